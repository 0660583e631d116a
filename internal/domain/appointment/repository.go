package appointment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/nailbook/booking-api/internal/domain/availability"
)

const (
	defaultQueryTimeout = 3 * time.Second
	defaultLockTimeout  = 2 * time.Second

	constraintTechnicianOverlap = "appointments_no_technician_overlap"
	constraintIdempotencyKey    = "appointments_salon_idempotency_key"
)

// LockScope names the serialization points a create must hold.
type LockScope struct {
	SalonID      uuid.UUID
	ClientPhone  string
	TechnicianID *uuid.UUID
}

// Store is the appointment persistence boundary. Lookups that find nothing return (nil, nil).
type Store interface {
	// RunInTx runs fn in one transaction holding the scope's locks.
	// fn's error rolls everything back.
	RunInTx(ctx context.Context, scope LockScope, fn func(ctx context.Context, tx Tx) error) error

	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	FindActiveByClientPhone(ctx context.Context, salonID uuid.UUID, phone string, now time.Time) (*Appointment, error)
	FindByIdempotencyKey(ctx context.Context, salonID uuid.UUID, phone, key string) (*Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, to Status, reason *string) (*Appointment, error)
	ListBusyIntervals(ctx context.Context, salonID uuid.UUID, from, to time.Time, technicianID *uuid.UUID) ([]availability.Interval, error)
}

// Tx is the transactional view used by Create.
type Tx interface {
	FindActiveByClientPhone(ctx context.Context, salonID uuid.UUID, phone string, now time.Time) (*Appointment, error)
	FindByIdempotencyKey(ctx context.Context, salonID uuid.UUID, phone, key string) (*Appointment, error)
	FindOverlapping(ctx context.Context, technicianID uuid.UUID, start, end time.Time) ([]Appointment, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Insert(ctx context.Context, a *Appointment) error
	// UpdateStatus moves a scheduled appointment to `to`; anything else is ErrInvalidTransition.
	UpdateStatus(ctx context.Context, id uuid.UUID, to Status, reason *string) (*Appointment, error)
}

type repository struct {
	db           *sqlx.DB
	queryTimeout time.Duration
	lockTimeout  time.Duration
}

// NewRepository creates the Postgres appointment store
func NewRepository(db *sqlx.DB, queryTimeout, lockTimeout time.Duration) Store {
	if queryTimeout <= 0 {
		queryTimeout = defaultQueryTimeout
	}
	if lockTimeout <= 0 {
		lockTimeout = defaultLockTimeout
	}
	return &repository{db: db, queryTimeout: queryTimeout, lockTimeout: lockTimeout}
}

const appointmentColumns = `
	id, salon_id, client_phone, technician_id, start_time, end_time, status,
	total_price, total_duration_minutes, cancel_reason, rescheduled_from,
	idempotency_key, created_at, updated_at, cancelled_at`

const cancelledStatuses = `('cancelled_by_client', 'cancelled_by_salon')`

func (r *repository) RunInTx(ctx context.Context, scope LockScope, fn func(ctx context.Context, tx Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout+r.lockTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return mapDBError(err)
	}
	defer tx.Rollback()

	// Waiting longer than lock_timeout fails with 55P03 instead of queueing.
	if _, err := tx.ExecContext(ctx, `SELECT set_config('lock_timeout', $1, true)`,
		fmt.Sprintf("%dms", r.lockTimeout.Milliseconds())); err != nil {
		return mapDBError(err)
	}

	// Client key first, technician second; every create takes them in this order.
	for _, key := range scope.lockKeys() {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key); err != nil {
			return mapDBError(err)
		}
	}

	if err := fn(ctx, &txStore{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return mapDBError(err)
	}
	return nil
}

func (s LockScope) lockKeys() []string {
	var keys []string
	if s.ClientPhone != "" {
		keys = append(keys, "appointment:client:"+s.SalonID.String()+":"+s.ClientPhone)
	}
	if s.TechnicianID != nil {
		keys = append(keys, "appointment:technician:"+s.TechnicianID.String())
	}
	return keys
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	a, err := getOne(ctx, r.db, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	if err != nil || a == nil {
		return a, err
	}
	if err := loadServices(ctx, r.db, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (r *repository) FindActiveByClientPhone(ctx context.Context, salonID uuid.UUID, phone string, now time.Time) (*Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	a, err := findActiveByClientPhone(ctx, r.db, salonID, phone, now)
	if err != nil || a == nil {
		return a, err
	}
	if err := loadServices(ctx, r.db, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (r *repository) FindByIdempotencyKey(ctx context.Context, salonID uuid.UUID, phone, key string) (*Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	a, err := findByIdempotencyKey(ctx, r.db, salonID, phone, key)
	if err != nil || a == nil {
		return a, err
	}
	if err := loadServices(ctx, r.db, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, to Status, reason *string) (*Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	a, err := updateStatus(ctx, r.db, id, to, reason)
	if err != nil {
		return nil, err
	}
	if err := loadServices(ctx, r.db, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (r *repository) ListBusyIntervals(ctx context.Context, salonID uuid.UUID, from, to time.Time, technicianID *uuid.UUID) ([]availability.Interval, error) {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	var intervals []availability.Interval
	err := r.db.SelectContext(ctx, &intervals, `
		SELECT start_time, end_time, technician_id
		FROM appointments
		WHERE salon_id = $1
		  AND status NOT IN `+cancelledStatuses+`
		  AND start_time < $3 AND end_time > $2
		  AND ($4::uuid IS NULL OR technician_id = $4)
		ORDER BY start_time
	`, salonID, from, to, technicianID)
	if err != nil {
		return nil, mapDBError(err)
	}
	return intervals, nil
}

// txStore implements Tx over a *sqlx.Tx
type txStore struct {
	tx *sqlx.Tx
}

func (t *txStore) FindActiveByClientPhone(ctx context.Context, salonID uuid.UUID, phone string, now time.Time) (*Appointment, error) {
	return findActiveByClientPhone(ctx, t.tx, salonID, phone, now)
}

func (t *txStore) FindByIdempotencyKey(ctx context.Context, salonID uuid.UUID, phone, key string) (*Appointment, error) {
	a, err := findByIdempotencyKey(ctx, t.tx, salonID, phone, key)
	if err != nil || a == nil {
		return a, err
	}
	if err := loadServices(ctx, t.tx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (t *txStore) FindOverlapping(ctx context.Context, technicianID uuid.UUID, start, end time.Time) ([]Appointment, error) {
	var out []Appointment
	err := t.tx.SelectContext(ctx, &out, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE technician_id = $1
		  AND status NOT IN `+cancelledStatuses+`
		  AND start_time < $3 AND end_time > $2
		ORDER BY start_time
	`, technicianID, start, end)
	if err != nil {
		return nil, mapDBError(err)
	}
	return out, nil
}

func (t *txStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return getOne(ctx, t.tx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1 FOR UPDATE`, id)
}

func (t *txStore) Insert(ctx context.Context, a *Appointment) error {
	err := t.tx.QueryRowxContext(ctx, `
		INSERT INTO appointments (
			id, salon_id, client_phone, technician_id, start_time, end_time, status,
			total_price, total_duration_minutes, rescheduled_from, idempotency_key
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`,
		a.ID, a.SalonID, a.ClientPhone, a.TechnicianID, a.StartTime, a.EndTime, a.Status,
		a.TotalPrice, a.TotalDurationMinutes, a.RescheduledFrom, a.IdempotencyKey,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return mapDBError(err)
	}

	for i, line := range a.Services {
		_, err := t.tx.ExecContext(ctx, `
			INSERT INTO appointment_services (appointment_id, position, service_id, name, price_cents, duration_minutes)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, a.ID, i, line.ServiceID, line.Name, line.PriceCents, line.DurationMinutes)
		if err != nil {
			return mapDBError(err)
		}
	}
	return nil
}

func (t *txStore) UpdateStatus(ctx context.Context, id uuid.UUID, to Status, reason *string) (*Appointment, error) {
	return updateStatus(ctx, t.tx, id, to, reason)
}

func getOne(ctx context.Context, q sqlx.QueryerContext, query string, args ...interface{}) (*Appointment, error) {
	var a Appointment
	if err := sqlx.GetContext(ctx, q, &a, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, mapDBError(err)
	}
	return &a, nil
}

func findActiveByClientPhone(ctx context.Context, q sqlx.QueryerContext, salonID uuid.UUID, phone string, now time.Time) (*Appointment, error) {
	return getOne(ctx, q, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE salon_id = $1 AND client_phone = $2 AND status = 'scheduled' AND end_time > $3
		ORDER BY start_time
		LIMIT 1
	`, salonID, phone, now)
}

func findByIdempotencyKey(ctx context.Context, q sqlx.QueryerContext, salonID uuid.UUID, phone, key string) (*Appointment, error) {
	return getOne(ctx, q, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE salon_id = $1 AND client_phone = $2 AND idempotency_key = $3
	`, salonID, phone, key)
}

func loadServices(ctx context.Context, q sqlx.QueryerContext, a *Appointment) error {
	var lines []ServiceLine
	err := sqlx.SelectContext(ctx, q, &lines, `
		SELECT service_id, name, price_cents, duration_minutes
		FROM appointment_services
		WHERE appointment_id = $1
		ORDER BY position
	`, a.ID)
	if err != nil {
		return mapDBError(err)
	}
	a.Services = lines
	return nil
}

// updateStatus is a conditional transition out of scheduled.
func updateStatus(ctx context.Context, q sqlx.ExtContext, id uuid.UUID, to Status, reason *string) (*Appointment, error) {
	if !StatusScheduled.CanTransitionTo(to) {
		return nil, ErrInvalidTransition
	}

	a, err := getOne(ctx, q, `
		UPDATE appointments
		SET status = $2,
		    cancel_reason = COALESCE($3, cancel_reason),
		    cancelled_at = CASE WHEN $2 IN `+cancelledStatuses+` THEN NOW() ELSE cancelled_at END,
		    updated_at = NOW()
		WHERE id = $1 AND status = 'scheduled'
		RETURNING `+appointmentColumns, id, to, reason)
	if err != nil {
		return nil, err
	}
	if a != nil {
		return a, nil
	}

	var exists bool
	if err := sqlx.GetContext(ctx, q, &exists, `SELECT EXISTS (SELECT 1 FROM appointments WHERE id = $1)`, id); err != nil {
		return nil, mapDBError(err)
	}
	if !exists {
		return nil, ErrAppointmentNotFound
	}
	return nil, ErrInvalidTransition
}

// mapDBError translates Postgres failures into domain errors.
func mapDBError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	constraint := strings.ToLower(pqErr.Constraint)
	switch pqErr.Code {
	case "23P01":
		if constraint == constraintTechnicianOverlap {
			return fmt.Errorf("%w: %w", ErrSlotConflict, err)
		}
	case "23505":
		if constraint == constraintIdempotencyKey {
			return fmt.Errorf("%w: %w", ErrDuplicateIdempotencyKey, err)
		}
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	case "55P03", "40P01", "40001", "57014":
		return fmt.Errorf("%w: %w", ErrBookingBusy, err)
	case "23503":
		if strings.Contains(constraint, "technician") {
			return fmt.Errorf("%w: %w", ErrInvalidTechnician, err)
		}
		if strings.Contains(constraint, "service") {
			return fmt.Errorf("%w: %w", ErrInvalidService, err)
		}
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
