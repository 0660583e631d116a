package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nailbook/booking-api/internal/domain/salon"
	"github.com/nailbook/booking-api/internal/pkg/clock"
	"github.com/nailbook/booking-api/internal/pkg/logger"
	"github.com/nailbook/booking-api/internal/pkg/phone"
)

// Catalog is the salon catalog reader.
type Catalog interface {
	GetSalonBySlug(ctx context.Context, slug string) (*salon.Salon, error)
	GetServicesByIDs(ctx context.Context, ids []uuid.UUID, salonID uuid.UUID) ([]salon.Service, error)
	GetTechnicianByID(ctx context.Context, id, salonID uuid.UUID) (*salon.Technician, error)
}

// Gate is the salon status gate.
type Gate interface {
	CheckSalonStatus(ctx context.Context, salonID uuid.UUID) error
	CheckFeatureEnabled(ctx context.Context, salonID uuid.UUID, feature salon.Feature) error
}

// SlotValidator re-checks a start time at commit.
type SlotValidator interface {
	ValidateStart(s *salon.Salon, start time.Time) error
}

// CreateRequest is a parsed booking request
type CreateRequest struct {
	SalonSlug             string
	ServiceIDs            []uuid.UUID
	TechnicianID          *uuid.UUID
	ClientPhone           string
	StartTime             time.Time
	OriginalAppointmentID *uuid.UUID
	IdempotencyKey        string
}

// Actor identifies who asks for a change. Clients prove ownership with
// their phone; staff are scoped to their salon.
type Actor struct {
	SalonID     uuid.UUID
	ClientPhone string
	StaffID     uuid.UUID
}

func (a Actor) isStaff() bool { return a.StaffID != uuid.Nil }

// Manager is the only writer of appointment state
type Manager struct {
	store          Store
	catalog        Catalog
	gate           Gate
	slots          SlotValidator
	events         EventPublisher
	clock          clock.Clock
	rewardsPercent int
}

// NewManager creates reservation manager
func NewManager(store Store, catalog Catalog, gate Gate, slots SlotValidator, events EventPublisher, clk clock.Clock, rewardsPercent int) *Manager {
	if events == nil {
		events = LogPublisher{}
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &Manager{
		store:          store,
		catalog:        catalog,
		gate:           gate,
		slots:          slots,
		events:         events,
		clock:          clk,
		rewardsPercent: rewardsPercent,
	}
}

// Create books a new appointment, or atomically replaces the original one
// when OriginalAppointmentID is set.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (*Appointment, error) {
	clientPhone, serviceIDs, err := validateCreate(req)
	if err != nil {
		return nil, err
	}

	s, err := m.salonBySlug(ctx, req.SalonSlug)
	if err != nil {
		return nil, err
	}
	if err := m.gate.CheckSalonStatus(ctx, s.ID); err != nil {
		return nil, err
	}
	if err := m.gate.CheckFeatureEnabled(ctx, s.ID, salon.FeatureOnlineBooking); err != nil {
		return nil, err
	}

	lines, err := m.resolveServices(ctx, s.ID, serviceIDs)
	if err != nil {
		return nil, err
	}
	if req.TechnicianID != nil {
		tech, err := m.catalog.GetTechnicianByID(ctx, *req.TechnicianID, s.ID)
		if err != nil {
			return nil, err
		}
		if tech == nil || !tech.IsActive {
			return nil, ErrInvalidTechnician
		}
	}

	if err := m.slots.ValidateStart(s, req.StartTime); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSlotUnavailable, err)
	}

	appt := newAppointment(s.ID, clientPhone, req, lines)
	now := m.clock.Now()

	var replay, previous *Appointment
	scope := LockScope{SalonID: s.ID, ClientPhone: clientPhone, TechnicianID: req.TechnicianID}

	err = m.store.RunInTx(ctx, scope, func(ctx context.Context, tx Tx) error {
		replay, previous = nil, nil

		if appt.IdempotencyKey != nil {
			existing, err := tx.FindByIdempotencyKey(ctx, s.ID, clientPhone, *appt.IdempotencyKey)
			if err != nil {
				return err
			}
			if existing != nil {
				replay, err = replayOf(existing)
				return err
			}
		}

		active, err := tx.FindActiveByClientPhone(ctx, s.ID, clientPhone, now)
		if err != nil {
			return err
		}
		if active != nil && (req.OriginalAppointmentID == nil || active.ID != *req.OriginalAppointmentID) {
			return &ExistingAppointmentError{AppointmentID: active.ID}
		}

		if req.OriginalAppointmentID != nil {
			original, err := tx.GetForUpdate(ctx, *req.OriginalAppointmentID)
			if err != nil {
				return err
			}
			if original == nil || original.SalonID != s.ID || original.ClientPhone != clientPhone ||
				original.Status != StatusScheduled {
				return ErrRescheduleNotAllowed
			}
			note := "rescheduled to " + appt.ID.String()
			previous, err = tx.UpdateStatus(ctx, original.ID, StatusCancelledByClient, &note)
			if err != nil {
				if errors.Is(err, ErrInvalidTransition) {
					return ErrRescheduleNotAllowed
				}
				return err
			}
		}

		if appt.TechnicianID != nil {
			overlapping, err := tx.FindOverlapping(ctx, *appt.TechnicianID, appt.StartTime, appt.EndTime)
			if err != nil {
				return err
			}
			if len(overlapping) > 0 {
				return ErrSlotConflict
			}
		}

		return tx.Insert(ctx, appt)
	})

	if errors.Is(err, ErrDuplicateIdempotencyKey) {
		existing, findErr := m.store.FindByIdempotencyKey(ctx, s.ID, clientPhone, *appt.IdempotencyKey)
		if findErr != nil {
			return nil, findErr
		}
		if existing != nil {
			replay, err = replayOf(existing)
		}
	}
	if err != nil {
		m.logRejection(ctx, "create", s.ID, req.TechnicianID, err)
		return nil, err
	}
	if replay != nil {
		return replay, nil
	}

	l := logger.FromContext(ctx)
	l.Info().
		Str("appointment_id", appt.ID.String()).
		Str("salon_id", s.ID.String()).
		Str("client_phone", logger.MaskPhone(clientPhone)).
		Time("start_time", appt.StartTime).
		Bool("reschedule", previous != nil).
		Msg("appointment scheduled")

	event := NewEvent(EventCreated, appt, m.clock.Now())
	event.RewardPoints = RewardPoints(appt.TotalPrice, m.rewardsPercent)
	if previous != nil {
		event.Type = EventRescheduled
		event.PreviousAppointmentID = &previous.ID
	}
	m.publish(ctx, event)

	return appt, nil
}

// replayOf answers a retried create. Only a still-scheduled appointment is
// replayed; a finished one needs a new key.
func replayOf(existing *Appointment) (*Appointment, error) {
	if existing.Status != StatusScheduled {
		return nil, ErrIdempotencyKeyReused
	}
	return existing, nil
}

func validateCreate(req CreateRequest) (string, []uuid.UUID, error) {
	if strings.TrimSpace(req.SalonSlug) == "" {
		return "", nil, fmt.Errorf("%w: salon is required", ErrValidation)
	}

	var ids []uuid.UUID
	seen := make(map[uuid.UUID]bool, len(req.ServiceIDs))
	for _, id := range req.ServiceIDs {
		if id == uuid.Nil {
			return "", nil, fmt.Errorf("%w: empty service id", ErrValidation)
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return "", nil, fmt.Errorf("%w: at least one service is required", ErrValidation)
	}

	normalized, err := phone.Normalize(req.ClientPhone)
	if err != nil {
		return "", nil, ErrInvalidPhone
	}

	if req.StartTime.IsZero() {
		return "", nil, ErrInvalidStartTime
	}
	return normalized, ids, nil
}

func (m *Manager) salonBySlug(ctx context.Context, slug string) (*salon.Salon, error) {
	s, err := m.catalog.GetSalonBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, salon.ErrSalonNotFound
	}
	return s, nil
}

// resolveServices returns snapshot lines in request order.
func (m *Manager) resolveServices(ctx context.Context, salonID uuid.UUID, ids []uuid.UUID) ([]ServiceLine, error) {
	services, err := m.catalog.GetServicesByIDs(ctx, ids, salonID)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]salon.Service, len(services))
	for _, svc := range services {
		if svc.SalonID == salonID && svc.IsActive {
			byID[svc.ID] = svc
		}
	}

	lines := make([]ServiceLine, 0, len(ids))
	for _, id := range ids {
		svc, ok := byID[id]
		if !ok || svc.DurationMinutes <= 0 || svc.PriceCents < 0 {
			return nil, ErrInvalidService
		}
		lines = append(lines, ServiceLine{
			ServiceID:       svc.ID,
			Name:            svc.Name,
			PriceCents:      svc.PriceCents,
			DurationMinutes: svc.DurationMinutes,
		})
	}
	return lines, nil
}

func newAppointment(salonID uuid.UUID, clientPhone string, req CreateRequest, lines []ServiceLine) *Appointment {
	a := &Appointment{
		ID:              uuid.New(),
		SalonID:         salonID,
		ClientPhone:     clientPhone,
		TechnicianID:    req.TechnicianID,
		StartTime:       req.StartTime.UTC(),
		Status:          StatusScheduled,
		RescheduledFrom: req.OriginalAppointmentID,
		Services:        lines,
	}
	for _, l := range lines {
		a.TotalPrice += l.PriceCents
		a.TotalDurationMinutes += l.DurationMinutes
	}
	a.EndTime = a.StartTime.Add(time.Duration(a.TotalDurationMinutes) * time.Minute)

	if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
		a.IdempotencyKey = &key
	}
	return a
}

// Cancel moves a scheduled appointment to the cancelled status for reason.
func (m *Manager) Cancel(ctx context.Context, id uuid.UUID, reason CancelReason, actor Actor, note string) (*Appointment, error) {
	to, ok := reason.Status()
	if !ok {
		return nil, fmt.Errorf("%w: unknown cancel reason %q", ErrValidation, reason)
	}
	if reason == CancelBySalon && !actor.isStaff() {
		return nil, ErrAppointmentNotFound
	}

	var notePtr *string
	if note = strings.TrimSpace(note); note != "" {
		notePtr = &note
	}
	return m.transition(ctx, id, to, notePtr, actor, EventCancelled)
}

// CancelByClient cancels the client's own appointment at the salon identified by slug.
func (m *Manager) CancelByClient(ctx context.Context, slug string, id uuid.UUID, clientPhone string) (*Appointment, error) {
	s, err := m.salonBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return m.Cancel(ctx, id, CancelByClient, Actor{SalonID: s.ID, ClientPhone: clientPhone}, "")
}

// Complete records that the visit happened.
func (m *Manager) Complete(ctx context.Context, id uuid.UUID, actor Actor) (*Appointment, error) {
	return m.transition(ctx, id, StatusCompleted, nil, actor, EventCompleted)
}

// MarkNoShow records that the client did not come.
func (m *Manager) MarkNoShow(ctx context.Context, id uuid.UUID, actor Actor) (*Appointment, error) {
	return m.transition(ctx, id, StatusNoShow, nil, actor, EventNoShow)
}

func (m *Manager) transition(ctx context.Context, id uuid.UUID, to Status, note *string, actor Actor, eventType EventType) (*Appointment, error) {
	current, err := m.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if !current.Status.CanTransitionTo(to) {
		m.logRejection(ctx, string(to), current.SalonID, current.TechnicianID, ErrInvalidTransition)
		return nil, ErrInvalidTransition
	}

	updated, err := m.store.UpdateStatus(ctx, id, to, note)
	if err != nil {
		m.logRejection(ctx, string(to), current.SalonID, current.TechnicianID, err)
		return nil, err
	}

	logger.FromContext(ctx).Info().
		Str("appointment_id", id.String()).
		Str("salon_id", updated.SalonID.String()).
		Str("from", string(current.Status)).
		Str("to", string(to)).
		Msg("appointment status changed")

	m.publish(ctx, NewEvent(eventType, updated, m.clock.Now()))
	return updated, nil
}

// Get returns an appointment visible to actor. Appointments of other salons
// or other clients are reported as not found.
func (m *Manager) Get(ctx context.Context, id uuid.UUID, actor Actor) (*Appointment, error) {
	a, err := m.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil || a.SalonID != actor.SalonID {
		return nil, ErrAppointmentNotFound
	}
	if !actor.isStaff() {
		p, err := phone.Normalize(actor.ClientPhone)
		if err != nil || p != a.ClientPhone {
			return nil, ErrAppointmentNotFound
		}
	}
	return a, nil
}

// GetActiveForClient returns the client's upcoming appointment at the salon.
func (m *Manager) GetActiveForClient(ctx context.Context, slug, clientPhone string) (*Appointment, error) {
	p, err := phone.Normalize(clientPhone)
	if err != nil {
		return nil, ErrInvalidPhone
	}
	s, err := m.salonBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	a, err := m.store.FindActiveByClientPhone(ctx, s.ID, p, m.clock.Now())
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrAppointmentNotFound
	}
	return a, nil
}

func (m *Manager) publish(ctx context.Context, e Event) {
	if err := m.events.Publish(ctx, e); err != nil {
		logger.FromContext(ctx).Error().Err(err).
			Str("event", string(e.Type)).
			Str("appointment_id", e.AppointmentID.String()).
			Msg("publish appointment event failed")
	}
}

func (m *Manager) logRejection(ctx context.Context, op string, salonID uuid.UUID, technicianID *uuid.UUID, err error) {
	l := logger.FromContext(ctx)
	ev := l.Warn()
	if !IsRejection(err) {
		ev = l.Error()
	}
	ev = ev.Err(err).Str("op", op).Str("salon_id", salonID.String()).Str("code", Code(err))
	if technicianID != nil {
		ev = ev.Str("technician_id", technicianID.String())
	}
	ev.Msg("appointment change rejected")
}
