package salon

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const defaultQueryTimeout = 3 * time.Second

// Repository is the catalog reader. Lookups that find nothing return (nil, nil).
type Repository interface {
	GetSalonBySlug(ctx context.Context, slug string) (*Salon, error)
	GetSalonByID(ctx context.Context, id uuid.UUID) (*Salon, error)
	GetServicesByIDs(ctx context.Context, ids []uuid.UUID, salonID uuid.UUID) ([]Service, error)
	GetTechnicianByID(ctx context.Context, id, salonID uuid.UUID) (*Technician, error)
	GetLocationByID(ctx context.Context, id, salonID uuid.UUID) (*Location, error)
	GetPrimaryLocation(ctx context.Context, salonID uuid.UUID) (*Location, error)
	IsFeatureEnabled(ctx context.Context, salonID uuid.UUID, feature Feature) (bool, error)
	GetStaffMember(ctx context.Context, id uuid.UUID) (*StaffMember, error)
	UpdateBookingFlow(ctx context.Context, salonID uuid.UUID, flow []byte) error
}

type repository struct {
	db           *sqlx.DB
	queryTimeout time.Duration
}

// NewRepository creates catalog repository
func NewRepository(db *sqlx.DB, queryTimeout time.Duration) Repository {
	if queryTimeout <= 0 {
		queryTimeout = defaultQueryTimeout
	}
	return &repository{db: db, queryTimeout: queryTimeout}
}

const salonColumns = `id, slug, name, timezone, booking_flow, status, created_at`

func (r *repository) GetSalonBySlug(ctx context.Context, slug string) (*Salon, error) {
	return r.getSalon(ctx, `SELECT `+salonColumns+` FROM salons WHERE slug = $1`, slug)
}

func (r *repository) GetSalonByID(ctx context.Context, id uuid.UUID) (*Salon, error) {
	return r.getSalon(ctx, `SELECT `+salonColumns+` FROM salons WHERE id = $1`, id)
}

func (r *repository) getSalon(ctx context.Context, query string, arg interface{}) (*Salon, error) {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	var s Salon
	if err := r.db.GetContext(ctx, &s, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: get salon: %w", ErrInternal, err)
	}
	return &s, nil
}

func (r *repository) GetServicesByIDs(ctx context.Context, ids []uuid.UUID, salonID uuid.UUID) ([]Service, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = id.String()
	}

	var services []Service
	err := r.db.SelectContext(ctx, &services, `
		SELECT id, salon_id, name, price_cents, duration_minutes, is_active
		FROM services
		WHERE salon_id = $1 AND id = ANY($2::uuid[])
	`, salonID, pq.Array(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: get services: %w", ErrInternal, err)
	}
	return services, nil
}

func (r *repository) GetTechnicianByID(ctx context.Context, id, salonID uuid.UUID) (*Technician, error) {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	var t Technician
	err := r.db.GetContext(ctx, &t, `
		SELECT id, salon_id, name, is_active
		FROM technicians
		WHERE id = $1 AND salon_id = $2
	`, id, salonID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: get technician: %w", ErrInternal, err)
	}
	return &t, nil
}

func (r *repository) GetLocationByID(ctx context.Context, id, salonID uuid.UUID) (*Location, error) {
	return r.getLocation(ctx, `
		SELECT id, salon_id, name, is_primary, is_active
		FROM locations
		WHERE id = $1 AND salon_id = $2
	`, id, salonID)
}

func (r *repository) GetPrimaryLocation(ctx context.Context, salonID uuid.UUID) (*Location, error) {
	return r.getLocation(ctx, `
		SELECT id, salon_id, name, is_primary, is_active
		FROM locations
		WHERE salon_id = $1 AND is_primary
	`, salonID)
}

func (r *repository) getLocation(ctx context.Context, query string, args ...interface{}) (*Location, error) {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	var l Location
	if err := r.db.GetContext(ctx, &l, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: get location: %w", ErrInternal, err)
	}
	return &l, nil
}

// IsFeatureEnabled treats a feature without a row as enabled.
func (r *repository) IsFeatureEnabled(ctx context.Context, salonID uuid.UUID, feature Feature) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	var enabled bool
	err := r.db.GetContext(ctx, &enabled,
		`SELECT enabled FROM salon_features WHERE salon_id = $1 AND feature = $2`, salonID, feature)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return true, nil
		}
		return false, fmt.Errorf("%w: get feature: %w", ErrInternal, err)
	}
	return enabled, nil
}

func (r *repository) GetStaffMember(ctx context.Context, id uuid.UUID) (*StaffMember, error) {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	var m StaffMember
	err := r.db.GetContext(ctx, &m,
		`SELECT id, salon_id, name, role, is_active FROM staff_members WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: get staff member: %w", ErrInternal, err)
	}
	return &m, nil
}

func (r *repository) UpdateBookingFlow(ctx context.Context, salonID uuid.UUID, flow []byte) error {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `UPDATE salons SET booking_flow = $2 WHERE id = $1`, salonID, flow)
	if err != nil {
		return fmt.Errorf("%w: update booking flow: %w", ErrInternal, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSalonNotFound
	}
	return nil
}
