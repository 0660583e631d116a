// Package deeplink repairs booking links that carry a missing or stale location.
package deeplink

import (
	"context"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/nailbook/booking-api/internal/domain/salon"
)

// ParamLocationID is the query parameter holding the location.
const ParamLocationID = "locationId"

// LocationCheck is the pre-fetched validity of a supplied location id.
type LocationCheck struct {
	Supplied  string
	Valid     bool
	PrimaryID string
}

// Effective returns the location id the page should render with.
func (c LocationCheck) Effective() string {
	if c.Supplied != "" && c.Valid {
		return c.Supplied
	}
	return c.PrimaryID
}

// ShouldRepair reports whether the caller should redirect to the primary location.
// It is false when the repaired target equals what was supplied, so repairing
// twice never loops, and false when the salon has no primary location.
func ShouldRepair(c LocationCheck) bool {
	if c.Supplied != "" && c.Valid {
		return false
	}
	return c.PrimaryID != "" && c.PrimaryID != c.Supplied
}

// RepairURL rebuilds path with existing params, overwriting only locationId.
func RepairURL(path string, existing url.Values, primaryID string) string {
	params := make(url.Values, len(existing)+1)
	for k, v := range existing {
		params[k] = append([]string(nil), v...)
	}
	params.Set(ParamLocationID, primaryID)

	var b strings.Builder
	b.WriteString(path)
	b.WriteByte('?')
	b.WriteString(params.Encode())
	return b.String()
}

// LocationLookup is the slice of the catalog the repairer needs.
type LocationLookup interface {
	GetLocationByID(ctx context.Context, id, salonID uuid.UUID) (*salon.Location, error)
	GetPrimaryLocation(ctx context.Context, salonID uuid.UUID) (*salon.Location, error)
}

// Repairer pre-fetches location validity for ShouldRepair.
type Repairer struct {
	locations LocationLookup
}

func NewRepairer(locations LocationLookup) *Repairer {
	return &Repairer{locations: locations}
}

// Check validates supplied against the salon's active locations.
// Lookup failures are returned; the caller must not redirect on error.
func (r *Repairer) Check(ctx context.Context, salonID uuid.UUID, supplied string) (LocationCheck, error) {
	check := LocationCheck{Supplied: supplied}

	if supplied != "" {
		if id, err := uuid.Parse(supplied); err == nil {
			loc, err := r.locations.GetLocationByID(ctx, id, salonID)
			if err != nil {
				return LocationCheck{}, err
			}
			check.Valid = loc != nil && loc.SalonID == salonID && loc.IsActive
		}
		if check.Valid {
			return check, nil
		}
	}

	primary, err := r.locations.GetPrimaryLocation(ctx, salonID)
	if err != nil {
		return LocationCheck{}, err
	}
	if primary != nil && primary.IsActive {
		check.PrimaryID = primary.ID.String()
	}
	return check, nil
}
