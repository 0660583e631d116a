package salon

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

type fakeGateRepo struct {
	Repository
	salon      *Salon
	features   map[Feature]bool
	featureErr error
}

func (f *fakeGateRepo) GetSalonByID(_ context.Context, id uuid.UUID) (*Salon, error) {
	if f.salon == nil || f.salon.ID != id {
		return nil, nil
	}
	return f.salon, nil
}

func (f *fakeGateRepo) IsFeatureEnabled(_ context.Context, _ uuid.UUID, feature Feature) (bool, error) {
	if f.featureErr != nil {
		return false, f.featureErr
	}
	enabled, ok := f.features[feature]
	if !ok {
		return true, nil
	}
	return enabled, nil
}

func TestGateCheckSalonStatus(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name    string
		salon   *Salon
		wantErr error
	}{
		{name: "active", salon: &Salon{ID: id, Status: StatusActive}},
		{name: "suspended", salon: &Salon{ID: id, Status: StatusSuspended}, wantErr: ErrSalonSuspended},
		{name: "missing", salon: nil, wantErr: ErrSalonNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := NewGate(&fakeGateRepo{salon: tt.salon})
			err := gate.CheckSalonStatus(context.Background(), id)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestGateCheckFeatureEnabled(t *testing.T) {
	salonID := uuid.New()

	gate := NewGate(&fakeGateRepo{features: map[Feature]bool{FeatureOnlineBooking: false}})
	if err := gate.CheckFeatureEnabled(context.Background(), salonID, FeatureOnlineBooking); !errors.Is(err, ErrFeatureDisabled) {
		t.Fatalf("expected ErrFeatureDisabled, got %v", err)
	}

	gate = NewGate(&fakeGateRepo{})
	if err := gate.CheckFeatureEnabled(context.Background(), salonID, FeatureOnlineBooking); err != nil {
		t.Fatalf("feature without row should be enabled, got %v", err)
	}

	gate = NewGate(&fakeGateRepo{featureErr: ErrInternal})
	if err := gate.CheckFeatureEnabled(context.Background(), salonID, FeatureOnlineBooking); !errors.Is(err, ErrInternal) {
		t.Fatalf("expected lookup error to propagate, got %v", err)
	}
}

func TestGateCheckBookable(t *testing.T) {
	id := uuid.New()
	active := &Salon{ID: id, Status: StatusActive}

	tests := []struct {
		name    string
		repo    *fakeGateRepo
		wantErr error
	}{
		{name: "bookable", repo: &fakeGateRepo{salon: active}},
		{name: "suspended wins", repo: &fakeGateRepo{salon: &Salon{ID: id, Status: StatusSuspended}, features: map[Feature]bool{FeatureOnlineBooking: false}}, wantErr: ErrSalonSuspended},
		{name: "online booking off", repo: &fakeGateRepo{salon: active, features: map[Feature]bool{FeatureOnlineBooking: false}}, wantErr: ErrFeatureDisabled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewGate(tt.repo).CheckBookable(context.Background(), id)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestWriteGateError(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{ErrSalonNotFound, http.StatusNotFound},
		{ErrSalonSuspended, http.StatusForbidden},
		{ErrFeatureDisabled, http.StatusForbidden},
		{errors.New("timeout"), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		WriteGateError(context.Background(), w, tt.err)
		if w.Code != tt.code {
			t.Errorf("%v: expected %d, got %d", tt.err, tt.code, w.Code)
		}
	}
}

func TestResolveZone(t *testing.T) {
	if got := ResolveZone("Asia/Tokyo").String(); got != "Asia/Tokyo" {
		t.Fatalf("expected Asia/Tokyo, got %s", got)
	}
	if got := ResolveZone("Not/AZone").String(); got != fallbackZoneName {
		t.Fatalf("unknown zone should fall back to %s, got %s", fallbackZoneName, got)
	}
	s := &Salon{}
	if got := s.Location().String(); got != fallbackZoneName {
		t.Fatalf("empty zone should fall back to %s, got %s", fallbackZoneName, got)
	}
}
