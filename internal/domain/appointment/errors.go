package appointment

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/nailbook/booking-api/internal/domain/salon"
)

var (
	ErrValidation           = errors.New("invalid booking request")
	ErrInvalidPhone         = errors.New("phone number must have 10 digits")
	ErrInvalidStartTime     = errors.New("start time is missing or malformed")
	ErrInvalidService       = errors.New("one or more services are not offered by this salon")
	ErrInvalidTechnician    = errors.New("technician is not available at this salon")
	ErrSlotUnavailable      = errors.New("time slot cannot be booked")
	ErrExistingAppointment  = errors.New("client already has an upcoming appointment")
	ErrSlotConflict         = errors.New("technician is already booked at this time")
	ErrRescheduleNotAllowed = errors.New("original appointment cannot be rescheduled")
	ErrInvalidTransition    = errors.New("appointment status cannot change")
	ErrAppointmentNotFound  = errors.New("appointment not found")
	ErrBookingBusy          = errors.New("booking is busy, retry shortly")
	ErrStoreUnavailable     = errors.New("appointment store unavailable")
	ErrIdempotencyKeyReused = errors.New("idempotency key belongs to a finished request")

	// ErrDuplicateIdempotencyKey never leaves the package; Create replays the
	// client's original appointment or answers ErrIdempotencyKeyReused.
	ErrDuplicateIdempotencyKey = errors.New("idempotency key already used")
)

// ExistingAppointmentError carries the appointment the client should manage instead.
type ExistingAppointmentError struct {
	AppointmentID uuid.UUID
}

func (e *ExistingAppointmentError) Error() string {
	return fmt.Sprintf("%s: %s", ErrExistingAppointment, e.AppointmentID)
}

func (e *ExistingAppointmentError) Unwrap() error { return ErrExistingAppointment }

type errorClass struct {
	err    error
	code   string
	status int
}

// errorClasses is ordered: the first match wins.
var errorClasses = []errorClass{
	{ErrValidation, "VALIDATION_ERROR", http.StatusUnprocessableEntity},
	{ErrInvalidPhone, "INVALID_PHONE", http.StatusBadRequest},
	{ErrInvalidStartTime, "INVALID_START_TIME", http.StatusBadRequest},
	{ErrInvalidService, "INVALID_SERVICE", http.StatusBadRequest},
	{ErrInvalidTechnician, "INVALID_TECHNICIAN", http.StatusBadRequest},
	{ErrSlotUnavailable, "SLOT_UNAVAILABLE", http.StatusConflict},
	{ErrExistingAppointment, "EXISTING_APPOINTMENT", http.StatusConflict},
	{ErrSlotConflict, "SLOT_CONFLICT", http.StatusConflict},
	{ErrRescheduleNotAllowed, "RESCHEDULE_NOT_ALLOWED", http.StatusConflict},
	{ErrInvalidTransition, "INVALID_TRANSITION", http.StatusConflict},
	{ErrIdempotencyKeyReused, "IDEMPOTENCY_KEY_REUSED", http.StatusConflict},
	{ErrAppointmentNotFound, "APPOINTMENT_NOT_FOUND", http.StatusNotFound},
	{salon.ErrSalonNotFound, "SALON_NOT_FOUND", http.StatusNotFound},
	{salon.ErrSalonSuspended, "SALON_UNAVAILABLE", http.StatusForbidden},
	{salon.ErrFeatureDisabled, "SALON_UNAVAILABLE", http.StatusForbidden},
	{ErrBookingBusy, "BOOKING_BUSY", http.StatusServiceUnavailable},
}

var unavailable = errorClass{
	err:    ErrStoreUnavailable,
	code:   "SALON_UNAVAILABLE",
	status: http.StatusServiceUnavailable,
}

func classify(err error) errorClass {
	for _, c := range errorClasses {
		if errors.Is(err, c.err) {
			return c
		}
	}
	return unavailable
}

// Code returns the wire error code for err. Unclassified errors are
// collaborator failures and map to SALON_UNAVAILABLE.
func Code(err error) string {
	return classify(err).code
}

// HTTPStatus returns the response status for err.
func HTTPStatus(err error) int {
	return classify(err).status
}

// Message returns a client-safe description of err without wrapped driver detail.
func Message(err error) string {
	c := classify(err)
	if c.err == ErrStoreUnavailable {
		return "Salon is temporarily unavailable, please retry"
	}
	return c.err.Error()
}

// IsRejection reports whether err is an expected business outcome rather than a failure.
func IsRejection(err error) bool {
	return HTTPStatus(err) < http.StatusInternalServerError
}
