/*
Package payroll turns worked days into pay.

FLOW:
  1. roster.SelectOverlapping(window)       which stays touch the window
  2. IntervalStore.FindOverlapping          fetch them
  3. roster.ComputeWorkedDays               clip + count per staff
  4. join staff, Amount = DailyRate x Days  (shopspring/decimal, no floats)

  Staff who did not work in the window are not listed. A staff row that
  has been deleted from the directory but still has intervals is reported
  with an empty name rather than dropped, so the total stays honest.
*/
package payroll

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/crew-roster/roster"
)

// Line is one staff member's pay for the window.
type Line struct {
	Staff    roster.Staff
	Days     int
	Rate     decimal.Decimal
	Amount   decimal.Decimal
	Segments []roster.Segment
}

// Report is the payroll for one window.
type Report struct {
	Window    roster.Window
	Lines     []Line
	TotalDays int
	Total     decimal.Decimal
}

// Service builds reports from a store.
type Service struct {
	Intervals roster.IntervalStore
	Staff     roster.StaffStore
}

func NewService(store roster.Store) *Service {
	return &Service{Intervals: store, Staff: store}
}

// Report computes the payroll for w.
func (s *Service) Report(ctx context.Context, w roster.Window) (Report, error) {
	ivs, err := s.Intervals.FindOverlapping(ctx, roster.SelectOverlapping(w))
	if err != nil {
		return Report{}, err
	}
	staff, err := s.Staff.ListStaff(ctx)
	if err != nil {
		return Report{}, err
	}
	return Build(w, staff, ivs), nil
}

// Build is the pure part of Report.
func Build(w roster.Window, staff []roster.Staff, ivs []roster.Interval) Report {
	byID := make(map[roster.StaffID]roster.Staff, len(staff))
	for _, st := range staff {
		byID[st.ID] = st
	}

	segs := make(map[roster.StaffID][]roster.Segment)
	for _, seg := range roster.ComputeSegments(ivs, w) {
		segs[seg.StaffID] = append(segs[seg.StaffID], seg)
	}

	worked := roster.ComputeWorkedDays(ivs, w)
	rep := Report{Window: w, Lines: make([]Line, 0, len(worked)), Total: decimal.Zero}
	for _, id := range worked.StaffIDs() {
		st, ok := byID[id]
		if !ok {
			st = roster.Staff{ID: id}
		}
		days := worked[id]
		amount := st.DailyRate.Mul(decimal.NewFromInt(int64(days)))
		rep.Lines = append(rep.Lines, Line{
			Staff:    st,
			Days:     days,
			Rate:     st.DailyRate,
			Amount:   amount,
			Segments: segs[id],
		})
		rep.TotalDays += days
		rep.Total = rep.Total.Add(amount)
	}

	sort.SliceStable(rep.Lines, func(i, j int) bool {
		return rep.Lines[i].Staff.Name() < rep.Lines[j].Staff.Name()
	})
	return rep
}
