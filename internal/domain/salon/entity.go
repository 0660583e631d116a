package salon

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Status represents salon account status
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
)

// Feature is a per-salon toggle (salon_features table).
type Feature string

const (
	FeatureOnlineBooking Feature = "online_booking"
)

// Salon represents a business taking bookings (salons table)
type Salon struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Slug      string    `db:"slug" json:"slug"`
	Name      string    `db:"name" json:"name"`
	Timezone  string    `db:"timezone" json:"timezone"`
	Status    Status    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`

	// Raw stored flow configuration; may be NULL or malformed.
	BookingFlow []byte `db:"booking_flow" json:"-"`
}

// IsActive returns true if the salon accepts bookings
func (s *Salon) IsActive() bool {
	return s.Status == StatusActive
}

// Location returns the salon's time zone, falling back to the default zone
// when the stored name is empty or unknown.
func (s *Salon) Location() *time.Location {
	return ResolveZone(s.Timezone)
}

// Location is a physical branch (locations table)
type Location struct {
	ID        uuid.UUID `db:"id" json:"id"`
	SalonID   uuid.UUID `db:"salon_id" json:"salonId"`
	Name      string    `db:"name" json:"name"`
	IsPrimary bool      `db:"is_primary" json:"isPrimary"`
	IsActive  bool      `db:"is_active" json:"isActive"`
}

// Service is a bookable treatment (services table)
type Service struct {
	ID              uuid.UUID `db:"id" json:"id"`
	SalonID         uuid.UUID `db:"salon_id" json:"salonId"`
	Name            string    `db:"name" json:"name"`
	PriceCents      int64     `db:"price_cents" json:"priceCents"`
	DurationMinutes int       `db:"duration_minutes" json:"durationMinutes"`
	IsActive        bool      `db:"is_active" json:"isActive"`
}

// Technician performs services (technicians table)
type Technician struct {
	ID       uuid.UUID `db:"id" json:"id"`
	SalonID  uuid.UUID `db:"salon_id" json:"salonId"`
	Name     string    `db:"name" json:"name"`
	IsActive bool      `db:"is_active" json:"isActive"`
}

// StaffMember can sign in to the staff tools of one salon (staff_members table)
type StaffMember struct {
	ID       uuid.UUID `db:"id"`
	SalonID  uuid.UUID `db:"salon_id"`
	Name     string    `db:"name"`
	Role     string    `db:"role"`
	IsActive bool      `db:"is_active"`
}

const fallbackZoneName = "America/Toronto"

var (
	defaultZone atomic.Pointer[time.Location]
	zoneCache   sync.Map // zone name -> *time.Location
)

// SetDefaultTimezone sets the zone used for salons with a missing or unknown timezone.
func SetDefaultTimezone(name string) error {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return err
	}
	defaultZone.Store(loc)
	return nil
}

func fallbackZone() *time.Location {
	if loc := defaultZone.Load(); loc != nil {
		return loc
	}
	loc, err := time.LoadLocation(fallbackZoneName)
	if err != nil {
		return time.UTC
	}
	defaultZone.CompareAndSwap(nil, loc)
	return loc
}

// ResolveZone loads an IANA zone once per process.
func ResolveZone(name string) *time.Location {
	if name == "" {
		return fallbackZone()
	}
	if cached, ok := zoneCache.Load(name); ok {
		return cached.(*time.Location)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return fallbackZone()
	}
	zoneCache.Store(name, loc)
	return loc
}
