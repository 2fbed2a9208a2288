/*
overlap.go - Which intervals touch a reporting window

PURPOSE:
  Builds the one predicate every read path uses to fetch intervals. The
  same Predicate value is evaluated in memory (Matches) and rendered to SQL
  (SQL), so the memory store, the sqlite store and the tests cannot drift.

RULE:
  An interval overlaps [start, end] iff

    embark    <= startOfDay(end) + 1 day
    AND (desembark >= startOfDay(start) OR desembark IS NULL)

  The +1 day makes the end date inclusive for any embark time on that date.
  Normalising start to midnight keeps intervals that end on the start date.
  Open intervals match no matter how old their embark is.

  The filter is deliberately coarse: an interval embarking exactly at
  midnight after the window passes it, and ComputeWorkedDays clips it to 0.

SHIP FILTER:
  AllShips omits the ship clause only. The date clauses always apply.
*/
package roster

import (
	"strings"
	"time"
)

// Predicate is a pure description of an overlap query.
type Predicate struct {
	EmbarkUntil   time.Time // inclusive upper bound on embark
	DesembarkFrom time.Time // inclusive lower bound on desembark (open intervals always pass)
	Ship          *ShipID   // nil = all ships
}

// SelectOverlapping builds the overlap predicate for w.
func SelectOverlapping(w Window) Predicate {
	p := Predicate{
		EmbarkUntil:   w.End.AddDays(1).Time(),
		DesembarkFrom: w.Start.Time(),
	}
	if !w.AllShipsSelected() {
		ship := w.Ship
		p.Ship = &ship
	}
	return p
}

// Matches evaluates the predicate against a single interval.
//
// Embark/desembark are compared on their wall-clock fields so that a value
// stored in a non-UTC location compares the same way it does in SQL.
func (p Predicate) Matches(iv Interval) bool {
	if p.Ship != nil && iv.ShipID != *p.Ship {
		return false
	}
	if wallClock(iv.Embark).After(p.EmbarkUntil) {
		return false
	}
	if iv.Desembark == nil {
		return true
	}
	return !wallClock(*iv.Desembark).Before(p.DesembarkFrom)
}

// Filter returns the intervals that match, preserving order.
func (p Predicate) Filter(ivs []Interval) []Interval {
	out := make([]Interval, 0, len(ivs))
	for _, iv := range ivs {
		if p.Matches(iv) {
			out = append(out, iv)
		}
	}
	return out
}

// SQL renders the predicate as a WHERE fragment over the columns
// embark, desembark and ship_id. Timestamps are bound with TimestampLayout,
// which sorts lexically.
func (p Predicate) SQL() (string, []any) {
	var b strings.Builder
	args := []any{
		FormatTimestamp(p.EmbarkUntil),
		FormatTimestamp(p.DesembarkFrom),
	}
	b.WriteString("embark <= ? AND (desembark >= ? OR desembark IS NULL)")
	if p.Ship != nil {
		b.WriteString(" AND ship_id = ?")
		args = append(args, string(*p.Ship))
	}
	return b.String(), args
}

// TimestampLayout is the storage format for embark/desembark. It has fixed
// width so string comparison equals chronological comparison.
const TimestampLayout = "2006-01-02T15:04:05.000000000"

// FormatTimestamp renders t's wall clock in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// ParseTimestamp is the inverse of FormatTimestamp. Values come back in UTC.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(TimestampLayout, s)
}

func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}
