package availability

import (
	"fmt"
	"time"
)

const (
	SlotMinutes = 30
	DayStart    = TimeOfDay(9 * 60)
	DayEnd      = TimeOfDay(18 * 60) // exclusive

	DefaultLeadMinutes = 30
)

// TimeOfDay is minutes since local midnight.
type TimeOfDay int

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parsed, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return TimeOfDay(parsed.Hour()*60 + parsed.Minute()), nil
}

// Period groups slots for display.
type Period string

const (
	PeriodMorning   Period = "morning"
	PeriodAfternoon Period = "afternoon"
	PeriodEvening   Period = "evening"
)

// PeriodOf buckets t: morning before 12:00, afternoon until 17:00, evening after.
func PeriodOf(t TimeOfDay) Period {
	switch {
	case t < 12*60:
		return PeriodMorning
	case t < 17*60:
		return PeriodAfternoon
	default:
		return PeriodEvening
	}
}

// TimeSlot is a candidate start time within the daily window.
type TimeSlot struct {
	Time   TimeOfDay `json:"time"`
	Period Period    `json:"period"`
}

var dailySlots = buildDailySlots()

func buildDailySlots() []TimeSlot {
	slots := make([]TimeSlot, 0, int(DayEnd-DayStart)/SlotMinutes)
	for t := DayStart; t < DayEnd; t += SlotMinutes {
		slots = append(slots, TimeSlot{Time: t, Period: PeriodOf(t)})
	}
	return slots
}

// GenerateDailySlots returns the 09:00 to 17:30 grid. The grid is built once;
// callers get their own copy.
func GenerateDailySlots() []TimeSlot {
	return append([]TimeSlot(nil), dailySlots...)
}

// Date is a calendar day with no zone attached.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

const dateLayout = "2006-01-02"

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return DateOf(t, time.UTC), nil
}

// DateOf returns the calendar day of t as seen in loc.
func DateOf(t time.Time, loc *time.Location) Date {
	y, m, d := t.In(loc).Date()
	return Date{Year: y, Month: m, Day: d}
}

// At returns the instant of local time tod on d in loc.
func (d Date) At(tod TimeOfDay, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, tod.Hour(), tod.Minute(), 0, 0, loc)
}

// AddDays returns the date n days later.
func (d Date) AddDays(n int) Date {
	return DateOf(time.Date(d.Year, d.Month, d.Day+n, 12, 0, 0, 0, time.UTC), time.UTC)
}

func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// FilterPast drops slots that start before now+lead when date is today in loc.
// Future dates are returned unchanged; past dates have nothing left.
func FilterPast(slots []TimeSlot, date Date, now time.Time, loc *time.Location, leadMinutes int) []TimeSlot {
	today := DateOf(now, loc)
	switch {
	case today.Before(date):
		return append([]TimeSlot(nil), slots...)
	case date.Before(today):
		return []TimeSlot{}
	}

	cutoff := now.In(loc).Add(time.Duration(leadMinutes) * time.Minute)
	kept := make([]TimeSlot, 0, len(slots))
	for _, s := range slots {
		if !date.At(s.Time, loc).Before(cutoff) {
			kept = append(kept, s)
		}
	}
	return kept
}
