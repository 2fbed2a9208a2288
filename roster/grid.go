/*
grid.go - Calendar grid projection (staff rows x day columns)

PURPOSE:
  Classifies every (staff, day) cell so the calendar can draw a bar:

    EMPTY            no interval covers the day
    SPAN_START       first day of a stay        o----
    SPAN_MIDDLE      inside a stay              -----
    SPAN_END         last day of a closed stay  ----o
    SPAN_SINGLE_DAY  embark and desembark same day  o

RULES:
  - Containment uses [day(embark), day(desembark)].
  - An open interval has no end: it covers every column from its embark
    day onward, however far the grid is scrolled, and never shows SPAN_END.
    Payroll clips open intervals to the window instead; the two policies
    are intentionally different.
  - Same start and end day -> SPAN_SINGLE_DAY, before START/END.
  - If two intervals of one staff member cover the same day, the first one
    in input order wins.

  The projection is pure and recomputed on every call. The day range grows
  in both directions (ExtendPast/ExtendFuture) and intervals change under
  it, so nothing is cached.
*/
package roster

import "encoding/json"

// =============================================================================
// CELL STATE
// =============================================================================

type CellState int

const (
	CellEmpty CellState = iota
	CellSpanStart
	CellSpanMiddle
	CellSpanEnd
	CellSpanSingleDay
)

var cellStateNames = [...]string{
	CellEmpty:         "EMPTY",
	CellSpanStart:     "SPAN_START",
	CellSpanMiddle:    "SPAN_MIDDLE",
	CellSpanEnd:       "SPAN_END",
	CellSpanSingleDay: "SPAN_SINGLE_DAY",
}

func (c CellState) String() string {
	if int(c) < 0 || int(c) >= len(cellStateNames) {
		return "UNKNOWN"
	}
	return cellStateNames[c]
}

func (c CellState) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// Cell is one classified grid cell. IntervalID is empty for CellEmpty.
type Cell struct {
	Day        Day        `json:"day"`
	State      CellState  `json:"state"`
	IntervalID IntervalID `json:"interval_id,omitempty"`
	ShipID     ShipID     `json:"ship_id,omitempty"`
}

// covers reports whether iv contains d under the grid rules.
func covers(iv Interval, d Day) bool {
	if d.Before(iv.StartDay()) {
		return false
	}
	end, closed := iv.EndDay()
	return !closed || d.BeforeOrEqual(end)
}

func classify(iv Interval, d Day) CellState {
	start := iv.StartDay()
	end, closed := iv.EndDay()
	switch {
	case closed && start.Equal(end):
		return CellSpanSingleDay
	case d.Equal(start):
		return CellSpanStart
	case closed && d.Equal(end):
		return CellSpanEnd
	default:
		return CellSpanMiddle
	}
}

// ClassifyCell classifies the cell for staffID on day d.
func ClassifyCell(staffID StaffID, d Day, ivs []Interval) Cell {
	for _, iv := range ivs {
		if iv.StaffID != staffID || !covers(iv, d) {
			continue
		}
		return Cell{Day: d, State: classify(iv, d), IntervalID: iv.ID, ShipID: iv.ShipID}
	}
	return Cell{Day: d, State: CellEmpty}
}

// =============================================================================
// DAY RANGE - the displayed columns
// =============================================================================

const (
	DefaultPastDays   = 5
	DefaultFutureDays = 45
	PastPageDays      = 7
	FuturePageDays    = 14
)

// DayRange is an inclusive range of displayed days.
type DayRange struct {
	From Day
	To   Day
}

// DefaultRange is the initial calendar: 5 days back, 45 days ahead.
func DefaultRange(today Day) DayRange {
	return DayRange{From: today.AddDays(-DefaultPastDays), To: today.AddDays(DefaultFutureDays)}
}

// Days lists every day in the range. Empty if To is before From.
func (r DayRange) Days() []Day {
	if r.To.Before(r.From) {
		return nil
	}
	days := make([]Day, 0, DaysBetween(r.From, r.To)+1)
	for d := r.From; d.BeforeOrEqual(r.To); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

// ExtendPast prepends n days.
func (r DayRange) ExtendPast(n int) DayRange {
	return DayRange{From: r.From.AddDays(-n), To: r.To}
}

// ExtendFuture appends n days.
func (r DayRange) ExtendFuture(n int) DayRange {
	return DayRange{From: r.From, To: r.To.AddDays(n)}
}

// Window converts the range to a reporting window for fetching intervals.
func (r DayRange) Window(ship ShipID) (Window, error) {
	return NewWindow(r.From, r.To, ship)
}

// =============================================================================
// GRID
// =============================================================================

// GridRow is one staff member's cells, one per day in the range.
type GridRow struct {
	Staff Staff
	Cells []Cell
}

// Grid is the full calendar projection.
type Grid struct {
	Range DayRange
	Days  []Day
	Rows  []GridRow
}

// Project classifies every cell for every staff member, in staff order.
func Project(staff []Staff, r DayRange, ivs []Interval) Grid {
	days := r.Days()

	// Bucket by staff once so each row only scans its own intervals.
	// Order within a bucket is input order, which keeps the first-match rule.
	byStaff := make(map[StaffID][]Interval)
	for _, iv := range ivs {
		byStaff[iv.StaffID] = append(byStaff[iv.StaffID], iv)
	}

	rows := make([]GridRow, 0, len(staff))
	for _, s := range staff {
		own := byStaff[s.ID]
		cells := make([]Cell, len(days))
		for i, d := range days {
			cells[i] = ClassifyCell(s.ID, d, own)
		}
		rows = append(rows, GridRow{Staff: s, Cells: cells})
	}
	return Grid{Range: r, Days: days, Rows: rows}
}
