package roster

import "time"

// =============================================================================
// DAY - Calendar date abstraction (the engine never counts hours)
// =============================================================================

// Day is a calendar date stored as midnight UTC.
//
// Instants are mapped to a Day by their own wall-clock date, so an embark at
// 23:30 local time belongs to that local date. No timezone conversion is
// done anywhere in the engine.
type Day struct {
	t time.Time
}

// NewDay builds a Day from its parts.
func NewDay(year int, month time.Month, day int) Day {
	return Day{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DayOf returns the calendar day of t.
func DayOf(t time.Time) Day {
	return NewDay(t.Year(), t.Month(), t.Day())
}

// ParseDay parses a YYYY-MM-DD string.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return Day{}, &ValidationError{Field: "date", Message: "expected YYYY-MM-DD, got " + s}
	}
	return DayOf(t), nil
}

const dayLayout = "2006-01-02"

// StartOfDay truncates t to midnight of its own calendar date, keeping the
// location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Comparison
func (d Day) Before(o Day) bool        { return d.t.Before(o.t) }
func (d Day) After(o Day) bool         { return d.t.After(o.t) }
func (d Day) Equal(o Day) bool         { return d.t.Equal(o.t) }
func (d Day) BeforeOrEqual(o Day) bool { return !d.t.After(o.t) }
func (d Day) AfterOrEqual(o Day) bool  { return !d.t.Before(o.t) }

// Arithmetic
func (d Day) AddDays(n int) Day { return Day{t: d.t.AddDate(0, 0, n)} }

// Properties
func (d Day) Time() time.Time              { return d.t }
func (d Day) IsZero() bool                 { return d.t.IsZero() }
func (d Day) Weekday() time.Weekday        { return d.t.Weekday() }
func (d Day) String() string               { return d.t.Format(dayLayout) }
func (d Day) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Day) UnmarshalText(b []byte) error {
	parsed, err := ParseDay(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DaysBetween returns the number of calendar days from a to b (negative if b
// is before a). Both are midnight UTC, so the division is exact. Unix seconds
// are used because time.Duration saturates after about 292 years.
func DaysBetween(a, b Day) int {
	return int((b.t.Unix() - a.t.Unix()) / secondsPerDay)
}

const secondsPerDay = 24 * 60 * 60

// Today returns the current calendar day in the local clock.
func Today() Day { return DayOf(time.Now()) }

// MaxDay / MinDay
func MaxDay(a, b Day) Day {
	if a.After(b) {
		return a
	}
	return b
}

func MinDay(a, b Day) Day {
	if a.Before(b) {
		return a
	}
	return b
}
