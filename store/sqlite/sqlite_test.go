package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/crew-roster/roster"
	"github.com/warp/crew-roster/roster/store"
	"github.com/warp/crew-roster/store/sqlite"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func at(month time.Month, d, hour int) time.Time {
	return time.Date(2024, month, d, hour, 0, 0, 0, time.UTC)
}

// seed writes the same fleet into any store and returns the staff and ships.
func seed(t *testing.T, s roster.Store) ([]roster.Staff, []roster.Ship) {
	t.Helper()
	ctx := context.Background()

	var ships []roster.Ship
	for _, name := range []string{"JFE N1", "JFE N3"} {
		sh, err := s.SaveShip(ctx, roster.Ship{ID: roster.ShipID(name), Name: name})
		require.NoError(t, err)
		ships = append(ships, sh)
	}

	var staff []roster.Staff
	for i, name := range []string{"Aiko", "Kenji", "Yui"} {
		st, err := s.SaveStaff(ctx, roster.Staff{
			ID:        roster.StaffID(name),
			FirstName: name,
			LastName:  "Test",
			Role:      roster.RoleDeck,
			DailyRate: decimal.RequireFromString("15000.50"),
			Code:      []string{"111111", "222222", "333333"}[i],
		})
		require.NoError(t, err)
		staff = append(staff, st)
	}
	return staff, ships
}

func createClosed(t *testing.T, s roster.Store, staff roster.StaffID, ship roster.ShipID, embark, desembark time.Time) roster.Interval {
	t.Helper()
	ctx := context.Background()
	iv, err := s.CreateInterval(ctx, staff, ship, embark)
	require.NoError(t, err)
	iv, err = s.CloseInterval(ctx, iv.ID, desembark)
	require.NoError(t, err)
	return iv
}

// =============================================================================
// STAFF & SHIPS
// =============================================================================

func TestStaff_RoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	staff, ships := seed(t, s)

	got, err := s.FindByCode(ctx, "222222")
	require.NoError(t, err)
	assert.Equal(t, staff[1].ID, got.ID)
	assert.True(t, decimal.RequireFromString("15000.5").Equal(got.DailyRate))
	assert.False(t, got.Embarked)
	assert.Nil(t, got.ShipID)

	got, err = s.SetEmbarkState(ctx, got.ID, &ships[0].ID, true)
	require.NoError(t, err)
	assert.True(t, got.Embarked)
	assert.Equal(t, ships[0].ID, *got.ShipID)

	// Profile updates never touch the embark state.
	got.LastName = "Renamed"
	got.Embarked = false
	got.ShipID = nil
	saved, err := s.SaveStaff(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", saved.LastName)
	assert.True(t, saved.Embarked)
	assert.Equal(t, ships[0].ID, *saved.ShipID)

	list, err := s.ListStaff(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "Aiko", list[0].FirstName)
}

func TestStaff_DuplicateCode(t *testing.T) {
	s := newStore(t)
	seed(t, s)

	_, err := s.SaveStaff(context.Background(), roster.Staff{
		FirstName: "New", LastName: "Hire", Role: roster.RoleChef, Code: "111111",
	})

	var ce *roster.ConflictError
	require.True(t, errors.As(err, &ce), "got %v", err)
	assert.Equal(t, roster.ReasonDuplicateCode, ce.Reason)
}

func TestLookups_NotFound(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, err := s.FindByCode(ctx, "000000")
	assert.True(t, roster.IsNotFound(err))
	_, err = s.GetShip(ctx, "nope")
	assert.True(t, roster.IsNotFound(err))
	_, err = s.GetInterval(ctx, "nope")
	assert.True(t, roster.IsNotFound(err))
	_, err = s.CloseInterval(ctx, "nope", at(time.June, 1, 0))
	assert.True(t, roster.IsNotFound(err))

	_, found, err := s.FindOpenInterval(ctx, "nobody")
	assert.NoError(t, err)
	assert.False(t, found)
}

// =============================================================================
// INTERVALS
// =============================================================================

func TestIntervals_OneOpenPerStaff(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	staff, ships := seed(t, s)

	first, err := s.CreateInterval(ctx, staff[0].ID, ships[0].ID, at(time.June, 1, 8))
	require.NoError(t, err)

	_, err = s.CreateInterval(ctx, staff[0].ID, ships[1].ID, at(time.June, 2, 8))
	var ce *roster.ConflictError
	require.True(t, errors.As(err, &ce), "got %v", err)
	assert.Equal(t, roster.ReasonDuplicateOpen, ce.Reason)

	open, found, err := s.FindOpenInterval(ctx, staff[0].ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, first.ID, open.ID)
	assert.True(t, open.Embark.Equal(at(time.June, 1, 8)))
}

func TestIntervals_UnknownShipIsNotFound(t *testing.T) {
	s := newStore(t)
	staff, _ := seed(t, s)

	_, err := s.CreateInterval(context.Background(), staff[0].ID, "ghost", at(time.June, 1, 8))

	assert.True(t, roster.IsNotFound(err), "got %v", err)
}

func TestIntervals_UpdateKeepsStaff(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	staff, ships := seed(t, s)
	iv := createClosed(t, s, staff[0].ID, ships[0].ID, at(time.June, 1, 8), at(time.June, 3, 17))

	iv.ShipID = ships[1].ID
	iv.Embark = at(time.June, 2, 8)
	got, err := s.UpdateInterval(ctx, iv)

	require.NoError(t, err)
	assert.Equal(t, ships[1].ID, got.ShipID)
	assert.Equal(t, staff[0].ID, got.StaffID)
	assert.True(t, got.Embark.Equal(at(time.June, 2, 8)))
	assert.True(t, got.Desembark.Equal(at(time.June, 3, 17)))
}

// The same predicate must select the same intervals from sqlite and from
// the in-memory store.
func TestFindOverlapping_MatchesMemoryStore(t *testing.T) {
	db := newStore(t)
	mem := store.NewMemory()
	ctx := context.Background()

	for _, s := range []roster.Store{db, mem} {
		staff, ships := seed(t, s)
		createClosed(t, s, staff[0].ID, ships[0].ID, at(time.June, 1, 8), at(time.June, 5, 1))
		createClosed(t, s, staff[0].ID, ships[1].ID, at(time.June, 7, 23), at(time.June, 9, 9))
		createClosed(t, s, staff[1].ID, ships[0].ID, at(time.May, 1, 8), at(time.June, 4, 23))
		createClosed(t, s, staff[1].ID, ships[1].ID, at(time.June, 8, 0), at(time.June, 8, 12))
		_, err := s.CreateInterval(ctx, staff[2].ID, ships[1].ID, at(time.January, 2, 8))
		require.NoError(t, err)
	}

	windows := []struct {
		name string
		ship roster.ShipID
		want int
	}{
		{"all ships", roster.AllShips, 4},
		{"first ship", "JFE N1", 1},
		{"second ship", "JFE N3", 3},
	}
	for _, tt := range windows {
		t.Run(tt.name, func(t *testing.T) {
			w, err := roster.NewWindow(roster.NewDay(2024, time.June, 5), roster.NewDay(2024, time.June, 7), tt.ship)
			require.NoError(t, err)
			p := roster.SelectOverlapping(w)

			fromDB, err := db.FindOverlapping(ctx, p)
			require.NoError(t, err)
			fromMem, err := mem.FindOverlapping(ctx, p)
			require.NoError(t, err)

			assert.Len(t, fromDB, tt.want)
			assert.Equal(t, summarize(fromMem), summarize(fromDB))
		})
	}
}

func summarize(ivs []roster.Interval) []string {
	out := make([]string, len(ivs))
	for i, iv := range ivs {
		out[i] = string(iv.StaffID) + "@" + string(iv.ShipID) + " " + roster.FormatTimestamp(iv.Embark)
	}
	return out
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestWithTx_RollsBackOnError(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	staff, ships := seed(t, s)

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx roster.Store) error {
		if _, err := tx.CreateInterval(ctx, staff[0].ID, ships[0].ID, at(time.June, 1, 8)); err != nil {
			return err
		}
		if _, err := tx.SetEmbarkState(ctx, staff[0].ID, &ships[0].ID, true); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, found, err := s.FindOpenInterval(ctx, staff[0].ID)
	require.NoError(t, err)
	assert.False(t, found)
	got, err := s.GetStaff(ctx, staff[0].ID)
	require.NoError(t, err)
	assert.False(t, got.Embarked)
}

func TestKiosk_OnSQLite(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	_, ships := seed(t, s)
	k := roster.NewKiosk(s, nil)

	tr, err := k.Embark(ctx, "333333", ships[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "JFE N3", tr.Status.Ship)

	_, err = k.Embark(ctx, "333333", ships[0].ID)
	assert.True(t, roster.IsConflict(err))

	tr, err = k.Disembark(ctx, "333333")
	require.NoError(t, err)
	assert.NotNil(t, tr.Interval.Desembark)

	_, err = k.Disembark(ctx, "333333")
	assert.True(t, roster.IsConflict(err))
}

func TestKiosk_ConcurrentEmbarkOnFile(t *testing.T) {
	// A file database gives every goroutine its own connection, so the
	// immediate transactions and the open-interval index do the serialising.
	s, err := sqlite.New(filepath.Join(t.TempDir(), "roster.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()
	staff, ships := seed(t, s)
	k := roster.NewKiosk(s, nil)

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
		others    []error
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := k.Embark(ctx, "333333", ships[0].ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case roster.IsConflict(err):
				conflicts++
			default:
				others = append(others, err)
			}
		}()
	}
	wg.Wait()

	require.Empty(t, others)
	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, conflicts)

	w, err := roster.NewWindow(roster.NewDay(2000, time.January, 1), roster.NewDay(2100, time.January, 1), roster.AllShips)
	require.NoError(t, err)
	all, err := s.FindOverlapping(ctx, roster.SelectOverlapping(w))
	require.NoError(t, err)
	var mine []roster.Interval
	for _, iv := range all {
		if iv.StaffID == staff[2].ID {
			mine = append(mine, iv)
		}
	}
	require.Len(t, mine, 1)
	assert.Nil(t, mine[0].Desembark)
}

func TestPing(t *testing.T) {
	s := newStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}
