package availability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nailbook/booking-api/internal/domain/salon"
	"github.com/nailbook/booking-api/internal/pkg/clock"
)

type fakeCatalog struct {
	salon *salon.Salon
	techs map[uuid.UUID]*salon.Technician
}

func (f *fakeCatalog) GetSalonBySlug(_ context.Context, slug string) (*salon.Salon, error) {
	if f.salon == nil || f.salon.Slug != slug {
		return nil, nil
	}
	return f.salon, nil
}

func (f *fakeCatalog) GetTechnicianByID(_ context.Context, id, _ uuid.UUID) (*salon.Technician, error) {
	return f.techs[id], nil
}

type fakeGate struct{ err error }

func (f fakeGate) CheckBookable(context.Context, uuid.UUID) error { return f.err }

type availabilityAPIResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Date  string `json:"date"`
		Slots []struct {
			Time      string `json:"time"`
			Available bool   `json:"available"`
		} `json:"slots"`
		NoMoreSlotsToday bool `json:"noMoreSlotsToday"`
	} `json:"data"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func newAvailabilityRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Mount("/api/v1/salons/{slug}/availability", h.Routes())
	return r
}

func TestHandlerGet(t *testing.T) {
	s := torontoSalon()
	loc := s.Location()
	techID := uuid.New()
	catalog := &fakeCatalog{
		salon: s,
		techs: map[uuid.UUID]*salon.Technician{techID: {ID: techID, SalonID: s.ID, IsActive: true}},
	}
	now := time.Date(2024, 6, 1, 17, 45, 0, 0, loc)
	engine := NewEngine(&fakeReader{}, clock.Fixed{T: now}, 30)
	router := newAvailabilityRouter(NewHandler(engine, catalog, fakeGate{}))

	tests := []struct {
		name     string
		query    string
		wantCode int
		wantErr  string
		check    func(t *testing.T, body availabilityAPIResponse)
	}{
		{
			name:     "defaults to today",
			query:    "",
			wantCode: http.StatusOK,
			check: func(t *testing.T, body availabilityAPIResponse) {
				if body.Data.Date != "2024-06-01" || !body.Data.NoMoreSlotsToday {
					t.Fatalf("unexpected body %+v", body.Data)
				}
			},
		},
		{
			name:     "future date with technician",
			query:    "?date=2024-06-02&technicianId=" + techID.String(),
			wantCode: http.StatusOK,
			check: func(t *testing.T, body availabilityAPIResponse) {
				if len(body.Data.Slots) != 18 || !body.Data.Slots[0].Available || body.Data.Slots[0].Time != "09:00" {
					t.Fatalf("unexpected slots %+v", body.Data.Slots)
				}
			},
		},
		{name: "any technician", query: "?date=2024-06-02&technicianId=any", wantCode: http.StatusOK},
		{name: "bad date", query: "?date=June", wantCode: http.StatusBadRequest, wantErr: "INVALID_DATE"},
		{name: "bad technician", query: "?technicianId=bob", wantCode: http.StatusBadRequest, wantErr: "INVALID_TECHNICIAN"},
		{name: "unknown technician", query: "?technicianId=" + uuid.NewString(), wantCode: http.StatusBadRequest, wantErr: "INVALID_TECHNICIAN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/salons/polished/availability"+tt.query, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, w.Code, w.Body.String())
			}
			var body availabilityAPIResponse
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if tt.wantErr != "" && (body.Error == nil || body.Error.Code != tt.wantErr) {
				t.Fatalf("expected %s, got %+v", tt.wantErr, body.Error)
			}
			if tt.check != nil {
				tt.check(t, body)
			}
		})
	}
}

func TestHandlerGateRejections(t *testing.T) {
	s := torontoSalon()
	engine := NewEngine(&fakeReader{}, clock.System{}, 30)

	tests := []struct {
		name     string
		gateErr  error
		wantCode int
		wantErr  string
	}{
		{"suspended", salon.ErrSalonSuspended, http.StatusForbidden, "SALON_UNAVAILABLE"},
		{"online booking off", salon.ErrFeatureDisabled, http.StatusForbidden, "SALON_UNAVAILABLE"},
		{"salon gone", salon.ErrSalonNotFound, http.StatusNotFound, "SALON_NOT_FOUND"},
		{"gate lookup failed", errors.New("db down"), http.StatusServiceUnavailable, "SALON_UNAVAILABLE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newAvailabilityRouter(NewHandler(engine, &fakeCatalog{salon: s}, fakeGate{err: tt.gateErr}))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/salons/polished/availability", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, w.Code)
			}
			var body availabilityAPIResponse
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error == nil || body.Error.Code != tt.wantErr {
				t.Fatalf("expected %s, got %+v", tt.wantErr, body.Error)
			}
			if len(body.Data.Slots) != 0 {
				t.Fatalf("rejected salon must not list slots, got %d", len(body.Data.Slots))
			}
		})
	}
}
