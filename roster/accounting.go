/*
accounting.go - Worked days per staff member inside a reporting window

ALGORITHM (per interval):
  1. from = max(day(embark), window.Start)
  2. to   = min(day(desembark) or window.End, window.End)
  3. from > to                 -> contributes 0
  4. otherwise                 -> to - from + 1 days (inclusive)
  5. sum per staff; staff with 0 days are dropped

  Everything is done on calendar days, never on instants, so an embark at
  09:00 on the window's last day still counts that day.

OPEN INTERVALS:
  Clipped to window.End. A payroll for a future window counts future days
  for staff still aboard; callers pick the window.

OVERLAPPING INPUT:
  Two intervals of one staff member that overlap are both counted. This is
  preserved behaviour, not a bug fix target (see DESIGN.md).
*/
package roster

import "sort"

// WorkedDays maps a staff member to the days they worked in a window.
// Staff with no worked days are absent.
type WorkedDays map[StaffID]int

// Total sums all staff.
func (wd WorkedDays) Total() int {
	total := 0
	for _, d := range wd {
		total += d
	}
	return total
}

// StaffIDs returns the keys sorted, for stable output.
func (wd WorkedDays) StaffIDs() []StaffID {
	ids := make([]StaffID, 0, len(wd))
	for id := range wd {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Segment is one interval clipped to a window.
type Segment struct {
	IntervalID IntervalID
	StaffID    StaffID
	ShipID     ShipID
	From       Day
	To         Day
	Days       int
}

// Clip clips a single interval to w. ok is false when nothing remains.
func Clip(iv Interval, w Window) (seg Segment, ok bool) {
	from := MaxDay(iv.StartDay(), w.Start)
	to := w.End
	if end, closed := iv.EndDay(); closed {
		to = MinDay(end, w.End)
	}
	if from.After(to) {
		return Segment{}, false
	}
	return Segment{
		IntervalID: iv.ID,
		StaffID:    iv.StaffID,
		ShipID:     iv.ShipID,
		From:       from,
		To:         to,
		Days:       DaysBetween(from, to) + 1,
	}, true
}

// ComputeSegments clips every interval to w, dropping empty ones and
// intervals on other ships when w filters by ship. Input order is kept.
func ComputeSegments(ivs []Interval, w Window) []Segment {
	segs := make([]Segment, 0, len(ivs))
	for _, iv := range ivs {
		if !w.AllShipsSelected() && iv.ShipID != w.Ship {
			continue
		}
		if seg, ok := Clip(iv, w); ok {
			segs = append(segs, seg)
		}
	}
	return segs
}

// ComputeWorkedDays reduces intervals to worked days per staff member.
func ComputeWorkedDays(ivs []Interval, w Window) WorkedDays {
	out := make(WorkedDays)
	for _, seg := range ComputeSegments(ivs, w) {
		out[seg.StaffID] += seg.Days
	}
	return out
}
