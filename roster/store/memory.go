// Package store provides an in-memory roster.TxStore.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/crew-roster/roster"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements roster.TxStore. WithTx is simulated with a snapshot and
// a restore on error; it holds the write lock for the whole unit, so
// transactions are serialised.
type Memory struct {
	mu sync.RWMutex
	state
}

type state struct {
	staff     map[roster.StaffID]roster.Staff
	ships     map[roster.ShipID]roster.Ship
	intervals []roster.Interval // insertion order
}

func NewMemory() *Memory {
	return &Memory{state: newState()}
}

func newState() state {
	return state{
		staff: make(map[roster.StaffID]roster.Staff),
		ships: make(map[roster.ShipID]roster.Ship),
	}
}

// WithTx executes fn within a transaction.
func (m *Memory) WithTx(ctx context.Context, fn func(roster.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.state.clone()
	if err := fn(&m.state); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

func (s *state) clone() state {
	c := newState()
	for k, v := range s.staff {
		c.staff[k] = v
	}
	for k, v := range s.ships {
		c.ships[k] = v
	}
	c.intervals = append([]roster.Interval(nil), s.intervals...)
	return c
}

// =============================================================================
// LOCKED ENTRY POINTS
// =============================================================================

func (m *Memory) FindOverlapping(ctx context.Context, p roster.Predicate) ([]roster.Interval, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.FindOverlapping(ctx, p)
}

func (m *Memory) CreateInterval(ctx context.Context, staffID roster.StaffID, shipID roster.ShipID, embark time.Time) (roster.Interval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.CreateInterval(ctx, staffID, shipID, embark)
}

func (m *Memory) CloseInterval(ctx context.Context, id roster.IntervalID, desembark time.Time) (roster.Interval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.CloseInterval(ctx, id, desembark)
}

func (m *Memory) FindOpenInterval(ctx context.Context, staffID roster.StaffID) (roster.Interval, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.FindOpenInterval(ctx, staffID)
}

func (m *Memory) GetInterval(ctx context.Context, id roster.IntervalID) (roster.Interval, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.GetInterval(ctx, id)
}

func (m *Memory) UpdateInterval(ctx context.Context, iv roster.Interval) (roster.Interval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.UpdateInterval(ctx, iv)
}

func (m *Memory) FindByCode(ctx context.Context, code string) (roster.Staff, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.FindByCode(ctx, code)
}

func (m *Memory) GetStaff(ctx context.Context, id roster.StaffID) (roster.Staff, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.GetStaff(ctx, id)
}

func (m *Memory) ListStaff(ctx context.Context) ([]roster.Staff, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.ListStaff(ctx)
}

func (m *Memory) SaveStaff(ctx context.Context, s roster.Staff) (roster.Staff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.SaveStaff(ctx, s)
}

func (m *Memory) SetEmbarkState(ctx context.Context, id roster.StaffID, shipID *roster.ShipID, embarked bool) (roster.Staff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.SetEmbarkState(ctx, id, shipID, embarked)
}

func (m *Memory) ListShips(ctx context.Context) ([]roster.Ship, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.ListShips(ctx)
}

func (m *Memory) GetShip(ctx context.Context, id roster.ShipID) (roster.Ship, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.GetShip(ctx, id)
}

func (m *Memory) SaveShip(ctx context.Context, s roster.Ship) (roster.Ship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.SaveShip(ctx, s)
}

// =============================================================================
// UNLOCKED STATE (also the transactional view)
// =============================================================================

func (s *state) FindOverlapping(_ context.Context, p roster.Predicate) ([]roster.Interval, error) {
	out := p.Filter(s.intervals)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Embark.Before(out[j].Embark) })
	return out, nil
}

func (s *state) CreateInterval(_ context.Context, staffID roster.StaffID, shipID roster.ShipID, embark time.Time) (roster.Interval, error) {
	if _, ok := s.staff[staffID]; !ok {
		return roster.Interval{}, &roster.NotFoundError{Entity: "staff", Key: string(staffID)}
	}
	if _, ok := s.ships[shipID]; !ok {
		return roster.Interval{}, &roster.NotFoundError{Entity: "ship", Key: string(shipID)}
	}
	for _, iv := range s.intervals {
		if iv.StaffID == staffID && iv.IsOpen() {
			return roster.Interval{}, &roster.ConflictError{Reason: roster.ReasonDuplicateOpen, StaffID: staffID}
		}
	}
	iv := roster.Interval{
		ID:      roster.NewIntervalID(),
		StaffID: staffID,
		ShipID:  shipID,
		Embark:  embark,
	}
	s.intervals = append(s.intervals, iv)
	return iv, nil
}

func (s *state) CloseInterval(_ context.Context, id roster.IntervalID, desembark time.Time) (roster.Interval, error) {
	i := s.indexOf(id)
	if i < 0 {
		return roster.Interval{}, &roster.NotFoundError{Entity: "interval", Key: string(id)}
	}
	d := desembark
	s.intervals[i].Desembark = &d
	return s.intervals[i], nil
}

func (s *state) FindOpenInterval(_ context.Context, staffID roster.StaffID) (roster.Interval, bool, error) {
	var (
		best  roster.Interval
		found bool
	)
	for _, iv := range s.intervals {
		if iv.StaffID != staffID || !iv.IsOpen() {
			continue
		}
		if !found || iv.Embark.After(best.Embark) {
			best, found = iv, true
		}
	}
	return best, found, nil
}

func (s *state) GetInterval(_ context.Context, id roster.IntervalID) (roster.Interval, error) {
	i := s.indexOf(id)
	if i < 0 {
		return roster.Interval{}, &roster.NotFoundError{Entity: "interval", Key: string(id)}
	}
	return s.intervals[i], nil
}

func (s *state) UpdateInterval(_ context.Context, iv roster.Interval) (roster.Interval, error) {
	i := s.indexOf(iv.ID)
	if i < 0 {
		return roster.Interval{}, &roster.NotFoundError{Entity: "interval", Key: string(iv.ID)}
	}
	if _, ok := s.ships[iv.ShipID]; !ok {
		return roster.Interval{}, &roster.NotFoundError{Entity: "ship", Key: string(iv.ShipID)}
	}
	iv.StaffID = s.intervals[i].StaffID
	s.intervals[i] = iv
	return iv, nil
}

func (s *state) indexOf(id roster.IntervalID) int {
	for i, iv := range s.intervals {
		if iv.ID == id {
			return i
		}
	}
	return -1
}

func (s *state) FindByCode(_ context.Context, code string) (roster.Staff, error) {
	for _, st := range s.staff {
		if st.Code == code {
			return st, nil
		}
	}
	return roster.Staff{}, &roster.NotFoundError{Entity: "staff", Key: code}
}

func (s *state) GetStaff(_ context.Context, id roster.StaffID) (roster.Staff, error) {
	st, ok := s.staff[id]
	if !ok {
		return roster.Staff{}, &roster.NotFoundError{Entity: "staff", Key: string(id)}
	}
	return st, nil
}

func (s *state) ListStaff(_ context.Context) ([]roster.Staff, error) {
	out := make([]roster.Staff, 0, len(s.staff))
	for _, st := range s.staff {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FirstName != out[j].FirstName {
			return out[i].FirstName < out[j].FirstName
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *state) SaveStaff(_ context.Context, in roster.Staff) (roster.Staff, error) {
	for _, other := range s.staff {
		if other.Code == in.Code && other.ID != in.ID {
			return roster.Staff{}, &roster.ConflictError{Reason: roster.ReasonDuplicateCode, StaffID: other.ID}
		}
	}
	now := time.Now().UTC()
	if in.ID == "" {
		in.ID = roster.NewStaffID()
	}
	if existing, ok := s.staff[in.ID]; ok {
		in.ShipID = existing.ShipID
		in.Embarked = existing.Embarked
		in.CreatedAt = existing.CreatedAt
	} else {
		in.ShipID = nil
		in.Embarked = false
		in.CreatedAt = now
	}
	in.UpdatedAt = now
	s.staff[in.ID] = in
	return in, nil
}

func (s *state) SetEmbarkState(_ context.Context, id roster.StaffID, shipID *roster.ShipID, embarked bool) (roster.Staff, error) {
	st, ok := s.staff[id]
	if !ok {
		return roster.Staff{}, &roster.NotFoundError{Entity: "staff", Key: string(id)}
	}
	if shipID != nil {
		ship := *shipID
		st.ShipID = &ship
	} else {
		st.ShipID = nil
	}
	st.Embarked = embarked
	st.UpdatedAt = time.Now().UTC()
	s.staff[id] = st
	return st, nil
}

func (s *state) ListShips(_ context.Context) ([]roster.Ship, error) {
	out := make([]roster.Ship, 0, len(s.ships))
	for _, sh := range s.ships {
		out = append(out, sh)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *state) GetShip(_ context.Context, id roster.ShipID) (roster.Ship, error) {
	sh, ok := s.ships[id]
	if !ok {
		return roster.Ship{}, &roster.NotFoundError{Entity: "ship", Key: string(id)}
	}
	return sh, nil
}

func (s *state) SaveShip(_ context.Context, sh roster.Ship) (roster.Ship, error) {
	if sh.ID == "" {
		sh.ID = roster.NewShipID()
	}
	s.ships[sh.ID] = sh
	return sh, nil
}

var (
	_ roster.TxStore = (*Memory)(nil)
	_ roster.Store   = (*state)(nil)
)
