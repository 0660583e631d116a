package salon

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/nailbook/booking-api/internal/pkg/errorhandler"
	"github.com/nailbook/booking-api/internal/pkg/response"
)

// Gate answers the booking preconditions: salon active, feature enabled.
type Gate struct {
	repo Repository
}

// NewGate creates status gate
func NewGate(repo Repository) *Gate {
	return &Gate{repo: repo}
}

// CheckSalonStatus fails with ErrSalonSuspended unless the salon is active.
func (g *Gate) CheckSalonStatus(ctx context.Context, salonID uuid.UUID) error {
	s, err := g.repo.GetSalonByID(ctx, salonID)
	if err != nil {
		return err
	}
	if s == nil {
		return ErrSalonNotFound
	}
	if !s.IsActive() {
		return ErrSalonSuspended
	}
	return nil
}

// CheckFeatureEnabled fails with ErrFeatureDisabled when the toggle is off.
func (g *Gate) CheckFeatureEnabled(ctx context.Context, salonID uuid.UUID, feature Feature) error {
	enabled, err := g.repo.IsFeatureEnabled(ctx, salonID, feature)
	if err != nil {
		return err
	}
	if !enabled {
		return ErrFeatureDisabled
	}
	return nil
}

// CheckBookable runs both public booking preconditions: status, then online_booking.
func (g *Gate) CheckBookable(ctx context.Context, salonID uuid.UUID) error {
	if err := g.CheckSalonStatus(ctx, salonID); err != nil {
		return err
	}
	return g.CheckFeatureEnabled(ctx, salonID, FeatureOnlineBooking)
}

// WriteGateError renders a gate failure for the public salon pages.
func WriteGateError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSalonNotFound):
		response.Error(w, http.StatusNotFound, "SALON_NOT_FOUND", "Salon not found")
	case errors.Is(err, ErrSalonSuspended), errors.Is(err, ErrFeatureDisabled):
		response.Error(w, http.StatusForbidden, "SALON_UNAVAILABLE", "Salon is not accepting bookings")
	default:
		errorhandler.HandleError(ctx, w, http.StatusServiceUnavailable, "SALON_UNAVAILABLE", "Salon is temporarily unavailable", err)
	}
}
