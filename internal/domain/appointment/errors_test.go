package appointment

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/nailbook/booking-api/internal/domain/salon"
)

func mustUUID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	if err != nil {
		t.Fatalf("parse uuid: %v", err)
	}
	return id
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		err    error
		code   string
		status int
	}{
		{fmt.Errorf("%w: empty", ErrValidation), "VALIDATION_ERROR", http.StatusUnprocessableEntity},
		{ErrInvalidPhone, "INVALID_PHONE", http.StatusBadRequest},
		{fmt.Errorf("%w: %w", ErrSlotUnavailable, errors.New("past")), "SLOT_UNAVAILABLE", http.StatusConflict},
		{&ExistingAppointmentError{AppointmentID: uuid.New()}, "EXISTING_APPOINTMENT", http.StatusConflict},
		{fmt.Errorf("%w: %w", ErrSlotConflict, errors.New("23P01")), "SLOT_CONFLICT", http.StatusConflict},
		{ErrInvalidTransition, "INVALID_TRANSITION", http.StatusConflict},
		{ErrAppointmentNotFound, "APPOINTMENT_NOT_FOUND", http.StatusNotFound},
		{salon.ErrSalonNotFound, "SALON_NOT_FOUND", http.StatusNotFound},
		{salon.ErrSalonSuspended, "SALON_UNAVAILABLE", http.StatusForbidden},
		{ErrBookingBusy, "BOOKING_BUSY", http.StatusServiceUnavailable},
		{errors.New("dial tcp: refused"), "SALON_UNAVAILABLE", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := Code(tt.err); got != tt.code {
				t.Errorf("Code = %s, want %s", got, tt.code)
			}
			if got := HTTPStatus(tt.err); got != tt.status {
				t.Errorf("HTTPStatus = %d, want %d", got, tt.status)
			}
		})
	}
}

func TestMessageHidesDriverDetail(t *testing.T) {
	err := fmt.Errorf("%w: %w", ErrStoreUnavailable, errors.New(`pq: password authentication failed for user "nailbook"`))
	if msg := Message(err); msg != "Salon is temporarily unavailable, please retry" {
		t.Errorf("unexpected message %q", msg)
	}
	if msg := Message(fmt.Errorf("%w: %w", ErrSlotConflict, errors.New("23P01"))); msg != ErrSlotConflict.Error() {
		t.Errorf("unexpected message %q", msg)
	}
}

func TestStatusTransitionTable(t *testing.T) {
	for _, to := range []Status{StatusCompleted, StatusCancelledByClient, StatusCancelledBySalon, StatusNoShow} {
		if !StatusScheduled.CanTransitionTo(to) {
			t.Errorf("expected scheduled -> %s", to)
		}
		if !to.IsTerminal() {
			t.Errorf("expected %s to be terminal", to)
		}
		if to.CanTransitionTo(StatusScheduled) {
			t.Errorf("expected %s -> scheduled to be refused", to)
		}
	}
}

func TestCancelReasonStatus(t *testing.T) {
	if s, ok := CancelByClient.Status(); !ok || s != StatusCancelledByClient {
		t.Errorf("client reason: got %s %v", s, ok)
	}
	if s, ok := CancelBySalon.Status(); !ok || s != StatusCancelledBySalon {
		t.Errorf("salon reason: got %s %v", s, ok)
	}
	if _, ok := CancelReason("weather").Status(); ok {
		t.Error("expected unknown reason to be rejected")
	}
}

func TestRewardPoints(t *testing.T) {
	if got := RewardPoints(6500, 10); got != 6 {
		t.Errorf("expected 6, got %d", got)
	}
	if got := RewardPoints(5000, 0); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
}
