package availability

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nailbook/booking-api/internal/domain/salon"
	"github.com/nailbook/booking-api/internal/pkg/clock"
	"github.com/nailbook/booking-api/internal/pkg/logger"
)

// Interval is a busy [Start, End) span taken by a non-cancelled appointment.
type Interval struct {
	Start        time.Time  `db:"start_time"`
	End          time.Time  `db:"end_time"`
	TechnicianID *uuid.UUID `db:"technician_id"`
}

// Overlaps reports half-open intersection with [start, end).
func (i Interval) Overlaps(start, end time.Time) bool {
	return i.Start.Before(end) && start.Before(i.End)
}

// AppointmentReader lists busy intervals intersecting [from, to).
// A nil technicianID means every technician of the salon.
type AppointmentReader interface {
	ListBusyIntervals(ctx context.Context, salonID uuid.UUID, from, to time.Time, technicianID *uuid.UUID) ([]Interval, error)
}

// Engine computes bookable slots for a salon day.
type Engine struct {
	reader      AppointmentReader
	clock       clock.Clock
	leadMinutes int
}

// NewEngine creates availability engine
func NewEngine(reader AppointmentReader, clk clock.Clock, leadMinutes int) *Engine {
	if clk == nil {
		clk = clock.System{}
	}
	if leadMinutes < 0 {
		leadMinutes = DefaultLeadMinutes
	}
	return &Engine{reader: reader, clock: clk, leadMinutes: leadMinutes}
}

// Today returns the current calendar day in the salon's zone.
func (e *Engine) Today(s *salon.Salon) Date {
	return DateOf(e.clock.Now(), s.Location())
}

// BookedSlots returns the grid times whose 30 minute span intersects a busy interval.
// Without a technician any booking blocks the slot.
func (e *Engine) BookedSlots(ctx context.Context, s *salon.Salon, date Date, technicianID *uuid.UUID) (map[TimeOfDay]bool, error) {
	loc := s.Location()
	from := date.At(0, loc)
	to := date.AddDays(1).At(0, loc)

	intervals, err := e.reader.ListBusyIntervals(ctx, s.ID, from, to, technicianID)
	if err != nil {
		return nil, err
	}

	booked := make(map[TimeOfDay]bool)
	for _, slot := range dailySlots {
		start := date.At(slot.Time, loc)
		end := start.Add(SlotMinutes * time.Minute)
		for _, iv := range intervals {
			if iv.Overlaps(start, end) {
				booked[slot.Time] = true
				break
			}
		}
	}
	return booked, nil
}

// SlotAvailability is one grid entry of a day view
type SlotAvailability struct {
	Time      TimeOfDay `json:"time"`
	Period    Period    `json:"period"`
	Booked    bool      `json:"booked"`
	Available bool      `json:"available"`
}

// Day is the client-visible availability of one date
type Day struct {
	Date             Date               `json:"date"`
	Timezone         string             `json:"timezone"`
	Slots            []SlotAvailability `json:"slots"`
	NoMoreSlotsToday bool               `json:"noMoreSlotsToday"`
	Degraded         bool               `json:"degraded"`
}

// AvailableCount returns how many slots can be booked.
func (d *Day) AvailableCount() int {
	n := 0
	for _, s := range d.Slots {
		if s.Available {
			n++
		}
	}
	return n
}

// DayAvailability composes FilterPast and BookedSlots. When the reader fails
// every slot is reported unavailable and Degraded is set.
func (e *Engine) DayAvailability(ctx context.Context, s *salon.Salon, date Date, technicianID *uuid.UUID) *Day {
	loc := s.Location()
	now := e.clock.Now()

	open := make(map[TimeOfDay]bool, len(dailySlots))
	for _, slot := range FilterPast(dailySlots, date, now, loc, e.leadMinutes) {
		open[slot.Time] = true
	}

	day := &Day{Date: date, Timezone: loc.String()}

	booked, err := e.BookedSlots(ctx, s, date, technicianID)
	if err != nil {
		logger.FromContext(ctx).Error().Err(err).
			Str("salon_id", s.ID.String()).
			Str("date", date.String()).
			Msg("availability read failed, reporting no slots")
		day.Degraded = true
		open = nil
	}

	day.Slots = make([]SlotAvailability, len(dailySlots))
	for i, slot := range dailySlots {
		day.Slots[i] = SlotAvailability{
			Time:      slot.Time,
			Period:    slot.Period,
			Booked:    booked[slot.Time],
			Available: open[slot.Time] && !booked[slot.Time],
		}
	}

	day.NoMoreSlotsToday = !day.Degraded && date == DateOf(now, loc) && day.AvailableCount() == 0
	return day
}

// ValidateStart re-checks at commit time that start is an offered slot that
// is not inside the lead time.
func (e *Engine) ValidateStart(s *salon.Salon, start time.Time) error {
	loc := s.Location()
	local := start.In(loc)
	if local.Second() != 0 || local.Nanosecond() != 0 {
		return ErrSlotNotOffered
	}

	tod := TimeOfDay(local.Hour()*60 + local.Minute())
	if tod < DayStart || tod >= DayEnd || int(tod-DayStart)%SlotMinutes != 0 {
		return ErrSlotNotOffered
	}

	cutoff := e.clock.Now().Add(time.Duration(e.leadMinutes) * time.Minute)
	if start.Before(cutoff) {
		return ErrSlotInPast
	}
	return nil
}
