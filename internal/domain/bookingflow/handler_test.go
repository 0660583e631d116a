package bookingflow

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nailbook/booking-api/internal/domain/deeplink"
	"github.com/nailbook/booking-api/internal/domain/salon"
)

type fakeSalons struct {
	salon *salon.Salon
	err   error
}

func (f *fakeSalons) GetSalonBySlug(_ context.Context, slug string) (*salon.Salon, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.salon == nil || f.salon.Slug != slug {
		return nil, nil
	}
	return f.salon, nil
}

type fakeGate struct{ err error }

func (f fakeGate) CheckBookable(context.Context, uuid.UUID) error { return f.err }

type fakeChecker struct {
	check deeplink.LocationCheck
	err   error
}

func (f fakeChecker) Check(_ context.Context, _ uuid.UUID, supplied string) (deeplink.LocationCheck, error) {
	c := f.check
	c.Supplied = supplied
	if supplied == c.PrimaryID {
		c.Valid = true
	}
	return c, f.err
}

type flowAPIResponse struct {
	Success bool         `json:"success"`
	Data    FlowResponse `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func newFlowRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Mount("/api/v1/salons/{slug}/booking-flow", h.Routes())
	return r
}

func TestGetRedirectsToPrimaryLocation(t *testing.T) {
	primary := uuid.NewString()
	s := &salon.Salon{ID: uuid.New(), Slug: "polished", Status: salon.StatusActive}
	h := NewHandler(&fakeSalons{salon: s}, fakeGate{}, fakeChecker{check: deeplink.LocationCheck{PrimaryID: primary}})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/salons/polished/booking-flow?step=time&serviceIds=a", nil)
	w := httptest.NewRecorder()
	newFlowRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", w.Code)
	}
	loc, err := url.Parse(w.Header().Get("Location"))
	if err != nil {
		t.Fatalf("bad location header: %v", err)
	}
	if loc.Query().Get("locationId") != primary || loc.Query().Get("step") != "time" || loc.Query().Get("serviceIds") != "a" {
		t.Fatalf("unexpected redirect target %s", loc)
	}

	// Following the redirect renders instead of looping.
	req = httptest.NewRequest(http.MethodGet, loc.String(), nil)
	w = httptest.NewRecorder()
	newFlowRouter(h).ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 after repair, got %d", w.Code)
	}
}

func TestGetReturnsFlowState(t *testing.T) {
	primary := uuid.NewString()
	s := &salon.Salon{
		ID:          uuid.New(),
		Slug:        "polished",
		Status:      salon.StatusActive,
		BookingFlow: []byte(`["technician","service","time","confirm"]`),
	}
	h := NewHandler(&fakeSalons{salon: s}, fakeGate{}, fakeChecker{check: deeplink.LocationCheck{PrimaryID: primary}})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/salons/polished/booking-flow?step=service&locationId="+primary, nil)
	w := httptest.NewRecorder()
	newFlowRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body flowAPIResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	d := body.Data
	if d.Current != StepService || d.Index != 1 || d.Prev != StepTechnician || d.Next != StepTime {
		t.Fatalf("unexpected flow state %+v", d)
	}
	if d.LocationID != primary {
		t.Fatalf("expected location %s, got %s", primary, d.LocationID)
	}
}

func TestGetUnknownStepFallsBackToFirst(t *testing.T) {
	resp := NewFlowResponse(DefaultFlow(), "payment", "")
	if resp.Current != StepService || resp.Index != 0 || resp.Prev != "" {
		t.Fatalf("unexpected state %+v", resp)
	}
}

func TestGetErrors(t *testing.T) {
	s := &salon.Salon{ID: uuid.New(), Slug: "polished", Status: salon.StatusActive}

	tests := []struct {
		name     string
		handler  *Handler
		slug     string
		wantCode int
		wantErr  string
	}{
		{
			name:     "unknown salon",
			handler:  NewHandler(&fakeSalons{salon: s}, fakeGate{}, fakeChecker{}),
			slug:     "missing",
			wantCode: http.StatusNotFound,
			wantErr:  "SALON_NOT_FOUND",
		},
		{
			name:     "suspended salon",
			handler:  NewHandler(&fakeSalons{salon: s}, fakeGate{err: salon.ErrSalonSuspended}, fakeChecker{}),
			slug:     "polished",
			wantCode: http.StatusForbidden,
			wantErr:  "SALON_UNAVAILABLE",
		},
		{
			name:     "online booking disabled",
			handler:  NewHandler(&fakeSalons{salon: s}, fakeGate{err: salon.ErrFeatureDisabled}, fakeChecker{}),
			slug:     "polished",
			wantCode: http.StatusForbidden,
			wantErr:  "SALON_UNAVAILABLE",
		},
		{
			name:     "location lookup failure never redirects",
			handler:  NewHandler(&fakeSalons{salon: s}, fakeGate{}, fakeChecker{err: errors.New("db down")}),
			slug:     "polished",
			wantCode: http.StatusServiceUnavailable,
			wantErr:  "SALON_UNAVAILABLE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/salons/"+tt.slug+"/booking-flow", nil)
			w := httptest.NewRecorder()
			newFlowRouter(tt.handler).ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, w.Code)
			}
			var body flowAPIResponse
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error == nil || body.Error.Code != tt.wantErr {
				t.Fatalf("expected %s, got %+v", tt.wantErr, body.Error)
			}
		})
	}
}
