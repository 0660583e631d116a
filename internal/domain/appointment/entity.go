package appointment

import (
	"time"

	"github.com/google/uuid"
)

// Status represents appointment status (appointments.status check constraint)
type Status string

const (
	StatusScheduled         Status = "scheduled"
	StatusCompleted         Status = "completed"
	StatusCancelledByClient Status = "cancelled_by_client"
	StatusCancelledBySalon  Status = "cancelled_by_salon"
	StatusNoShow            Status = "no_show"
)

// transitions lists the allowed moves; terminal states have none.
var transitions = map[Status][]Status{
	StatusScheduled:         {StatusCompleted, StatusCancelledByClient, StatusCancelledBySalon, StatusNoShow},
	StatusCompleted:         {},
	StatusCancelledByClient: {},
	StatusCancelledBySalon:  {},
	StatusNoShow:            {},
}

// CanTransitionTo checks if status transition is valid
func (s Status) CanTransitionTo(to Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal returns true when no further transition is possible
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// IsCancelled returns true for both cancellation outcomes
func (s Status) IsCancelled() bool {
	return s == StatusCancelledByClient || s == StatusCancelledBySalon
}

// ServiceLine is the price and duration of one service at booking time
type ServiceLine struct {
	ServiceID       uuid.UUID `db:"service_id" json:"serviceId"`
	Name            string    `db:"name" json:"name"`
	PriceCents      int64     `db:"price_cents" json:"priceCents"`
	DurationMinutes int       `db:"duration_minutes" json:"durationMinutes"`
}

// Appointment is a client reservation (appointments table)
type Appointment struct {
	ID           uuid.UUID  `db:"id"`
	SalonID      uuid.UUID  `db:"salon_id"`
	ClientPhone  string     `db:"client_phone"`
	TechnicianID *uuid.UUID `db:"technician_id"`

	StartTime time.Time `db:"start_time"`
	EndTime   time.Time `db:"end_time"`

	Status               Status `db:"status"`
	TotalPrice           int64  `db:"total_price"`
	TotalDurationMinutes int    `db:"total_duration_minutes"`

	CancelReason    *string    `db:"cancel_reason"`
	RescheduledFrom *uuid.UUID `db:"rescheduled_from"`
	IdempotencyKey  *string    `db:"idempotency_key"`

	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
	CancelledAt *time.Time `db:"cancelled_at"`

	// Loaded from appointment_services
	Services []ServiceLine `db:"-"`
}

// IsActiveAt reports whether the appointment still holds the client's single
// active booking at now.
func (a *Appointment) IsActiveAt(now time.Time) bool {
	return a.Status == StatusScheduled && a.EndTime.After(now)
}

// Overlaps reports half-open intersection with [start, end).
func (a *Appointment) Overlaps(start, end time.Time) bool {
	return a.StartTime.Before(end) && start.Before(a.EndTime)
}

// ServiceIDs returns the booked services in order
func (a *Appointment) ServiceIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(a.Services))
	for i, l := range a.Services {
		ids[i] = l.ServiceID
	}
	return ids
}

// CancelReason says who cancelled
type CancelReason string

const (
	CancelByClient CancelReason = "client"
	CancelBySalon  CancelReason = "salon"
)

// Status maps the reason to its terminal status.
func (r CancelReason) Status() (Status, bool) {
	switch r {
	case CancelByClient:
		return StatusCancelledByClient, true
	case CancelBySalon:
		return StatusCancelledBySalon, true
	}
	return "", false
}
