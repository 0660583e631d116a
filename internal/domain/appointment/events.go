package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/nailbook/booking-api/internal/pkg/logger"
)

// EventType names a state change
type EventType string

const (
	EventCreated     EventType = "appointment.created"
	EventRescheduled EventType = "appointment.rescheduled"
	EventCancelled   EventType = "appointment.cancelled"
	EventCompleted   EventType = "appointment.completed"
	EventNoShow      EventType = "appointment.no_show"
)

// Event is emitted after a committed change. Notification and rewards
// consumers derive reminders and points from it.
type Event struct {
	Type                  EventType  `json:"type"`
	AppointmentID         uuid.UUID  `json:"appointmentId"`
	SalonID               uuid.UUID  `json:"salonId"`
	ClientPhone           string     `json:"clientPhone"`
	TechnicianID          *uuid.UUID `json:"technicianId,omitempty"`
	Status                Status     `json:"status"`
	StartTime             time.Time  `json:"startTime"`
	EndTime               time.Time  `json:"endTime"`
	TotalPrice            int64      `json:"totalPrice"`
	TotalDurationMinutes  int        `json:"totalDurationMinutes"`
	RewardPoints          int64      `json:"rewardPoints,omitempty"`
	PreviousAppointmentID *uuid.UUID `json:"previousAppointmentId,omitempty"`
	OccurredAt            time.Time  `json:"occurredAt"`
}

// NewEvent builds an event snapshot of a.
func NewEvent(t EventType, a *Appointment, at time.Time) Event {
	return Event{
		Type:                 t,
		AppointmentID:        a.ID,
		SalonID:              a.SalonID,
		ClientPhone:          a.ClientPhone,
		TechnicianID:         a.TechnicianID,
		Status:               a.Status,
		StartTime:            a.StartTime,
		EndTime:              a.EndTime,
		TotalPrice:           a.TotalPrice,
		TotalDurationMinutes: a.TotalDurationMinutes,
		OccurredAt:           at,
	}
}

// RewardPoints converts a price in cents to points: percent of the whole-currency amount.
func RewardPoints(totalPriceCents int64, percent int) int64 {
	if totalPriceCents <= 0 || percent <= 0 {
		return 0
	}
	return totalPriceCents * int64(percent) / 10000
}

// EventPublisher delivers committed events. Failures are logged by the caller
// and never undo the commit.
type EventPublisher interface {
	Publish(ctx context.Context, e Event) error
}

// LogPublisher writes events to the structured log.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, e Event) error {
	ev := logger.FromContext(ctx).Info().
		Str("event", string(e.Type)).
		Str("appointment_id", e.AppointmentID.String()).
		Str("salon_id", e.SalonID.String()).
		Str("client_phone", logger.MaskPhone(e.ClientPhone)).
		Time("start_time", e.StartTime).
		Int64("total_price", e.TotalPrice).
		Int64("reward_points", e.RewardPoints)
	if e.TechnicianID != nil {
		ev = ev.Str("technician_id", e.TechnicianID.String())
	}
	ev.Msg("appointment event")
	return nil
}

// MultiPublisher fans an event out to every publisher and joins their errors.
type MultiPublisher []EventPublisher

func (m MultiPublisher) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
