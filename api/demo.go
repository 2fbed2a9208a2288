/*
demo.go - Demo fleet loader

PURPOSE:
  Populates an empty database with three ships, a small crew and a few
  weeks of embark/disembark history relative to today, so the calendar
  and payroll screens have something to show.

WHAT GETS CREATED:
  Ships:  JFE N1 / 清丸, JFE N3 / 第三清丸, 扇鳳丸
  Staff:  one chef, deck and engine crew, each with a 6-digit kiosk code
  History:
    - closed intervals in the past weeks, some crossing ships
    - two staff currently embarked (open intervals)
    - one single-day trip

NOTE:
  The loader refuses to touch a database that already has ships. It never
  resets anything. Only use in development/demo environments.
*/
package api

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/crew-roster/roster"
)

type demoStaff struct {
	first, last string
	role        roster.Role
	rate        string
	code        string
}

var demoShips = []string{"JFE N1 / 清丸", "JFE N3 / 第三清丸", "扇鳳丸"}

var demoCrew = []demoStaff{
	{"Kenji", "Sato", roster.RoleChef, "18000", "100001"},
	{"Yui", "Tanaka", roster.RoleDeck, "15000", "100002"},
	{"Haruto", "Suzuki", roster.RoleDeck, "15000", "100003"},
	{"Aiko", "Watanabe", roster.RoleEngine, "21000", "100004"},
	{"Ren", "Ito", roster.RoleEngine, "21000", "100005"},
}

// demoTrip is one interval: ship index, crew index, embark offset from
// today in days and length in days. A negative length leaves it open.
type demoTrip struct {
	ship, crew int
	from, days int
}

var demoTrips = []demoTrip{
	{ship: 0, crew: 0, from: -21, days: 9},
	{ship: 1, crew: 0, from: -10, days: 6},
	{ship: 0, crew: 1, from: -18, days: 14},
	{ship: 2, crew: 2, from: -12, days: 0},
	{ship: 2, crew: 2, from: -6, days: 3},
	{ship: 1, crew: 3, from: -15, days: 8},
	{ship: 1, crew: 3, from: -3, days: -1},
	{ship: 0, crew: 4, from: -8, days: -1},
}

// LoadDemoFleet seeds the demo fleet. It returns false without writing
// when ships already exist.
func LoadDemoFleet(ctx context.Context, store roster.TxStore, now time.Time) (bool, error) {
	existing, err := store.ListShips(ctx)
	if err != nil {
		return false, err
	}
	if len(existing) > 0 {
		return false, nil
	}

	today := roster.DayOf(now)

	err = store.WithTx(ctx, func(tx roster.Store) error {
		ships := make([]roster.Ship, len(demoShips))
		for i, name := range demoShips {
			s, err := tx.SaveShip(ctx, roster.Ship{Name: name})
			if err != nil {
				return err
			}
			ships[i] = s
		}

		crew := make([]roster.Staff, len(demoCrew))
		for i, c := range demoCrew {
			s, err := tx.SaveStaff(ctx, roster.Staff{
				FirstName: c.first,
				LastName:  c.last,
				Email:     c.code + "@example.com",
				Role:      c.role,
				DailyRate: decimal.RequireFromString(c.rate),
				Code:      c.code,
			})
			if err != nil {
				return err
			}
			crew[i] = s
		}

		for _, t := range demoTrips {
			staff, ship := crew[t.crew], ships[t.ship]
			embark := today.AddDays(t.from).Time().Add(8 * time.Hour)
			iv, err := tx.CreateInterval(ctx, staff.ID, ship.ID, embark)
			if err != nil {
				return err
			}
			if t.days < 0 {
				if _, err := tx.SetEmbarkState(ctx, staff.ID, &ship.ID, true); err != nil {
					return err
				}
				continue
			}
			desembark := today.AddDays(t.from + t.days).Time().Add(17 * time.Hour)
			if _, err := tx.CloseInterval(ctx, iv.ID, desembark); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
