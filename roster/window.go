package roster

import "fmt"

// =============================================================================
// WINDOW - The date range a report or calendar is evaluated over
// =============================================================================

// AllShips is the ship filter sentinel meaning "do not filter by ship".
const AllShips ShipID = "all"

// Window is an inclusive [Start, End] day range with an optional ship filter.
// It is never persisted.
type Window struct {
	Start Day
	End   Day
	Ship  ShipID // AllShips or "" = every ship
}

// NewWindow validates start <= end.
func NewWindow(start, end Day, ship ShipID) (Window, error) {
	if end.Before(start) {
		return Window{}, &ValidationError{Field: "window", Message: "window end is before window start"}
	}
	if ship == "" {
		ship = AllShips
	}
	return Window{Start: start, End: end, Ship: ship}, nil
}

// AllShipsSelected reports whether the ship clause should be omitted.
func (w Window) AllShipsSelected() bool {
	return w.Ship == "" || w.Ship == AllShips
}

// Contains returns true if d is within [Start, End].
func (w Window) Contains(d Day) bool {
	return d.AfterOrEqual(w.Start) && d.BeforeOrEqual(w.End)
}

// Len is the number of days in the window, inclusive.
func (w Window) Len() int {
	if w.End.Before(w.Start) {
		return 0
	}
	return DaysBetween(w.Start, w.End) + 1
}

// Upper bounds on window length for callers that materialise every day.
const (
	MaxGridDays   = 366
	MaxReportDays = 5 * 366
)

// CheckLen rejects windows longer than max days.
func (w Window) CheckLen(max int) error {
	if w.Len() > max {
		return &ValidationError{Field: "window", Message: fmt.Sprintf("window spans %d days, at most %d allowed", w.Len(), max)}
	}
	return nil
}

func (w Window) String() string {
	s := "[" + w.Start.String() + ", " + w.End.String() + "]"
	if !w.AllShipsSelected() {
		s += " ship=" + string(w.Ship)
	}
	return s
}
