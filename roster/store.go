/*
store.go - Persistence contracts the engine depends on

PURPOSE:
  The engine never holds a global store handle. Every component receives
  one of these interfaces, so tests can hand in the in-memory store and
  production hands in sqlite.

RESULT CONVENTIONS:
  - Lists:   (items, nil) on success, possibly empty; (nil, err) on failure.
  - Lookups: NotFoundError when the key matches nothing.
  - Optional: FindOpenInterval returns (iv, true, nil), (zero, false, nil)
              or (zero, false, err). "None" and "failed" never look alike.
  - Driver failures are wrapped in StorageError.

ATOMICITY:
  TxStore.WithTx runs fn against a transactional view. If fn returns an
  error nothing it wrote is kept. The Kiosk does its status check and its
  writes inside one WithTx call, so two concurrent embarks for the same
  code cannot both pass the check.

IMPLEMENTATIONS:
  - roster/store/memory.go: in-memory, for tests and demos
  - store/sqlite/sqlite.go: production
*/
package roster

import (
	"context"
	"time"
)

// IntervalStore persists schedule intervals.
type IntervalStore interface {
	// FindOverlapping returns intervals matching p, ordered by embark.
	FindOverlapping(ctx context.Context, p Predicate) ([]Interval, error)

	// CreateInterval opens a new interval (desembark = nil).
	CreateInterval(ctx context.Context, staffID StaffID, shipID ShipID, embark time.Time) (Interval, error)

	// CloseInterval sets desembark on an interval.
	CloseInterval(ctx context.Context, id IntervalID, desembark time.Time) (Interval, error)

	// FindOpenInterval returns the staff member's most recent open interval
	// (by embark, descending).
	FindOpenInterval(ctx context.Context, staffID StaffID) (Interval, bool, error)

	// GetInterval looks an interval up by id.
	GetInterval(ctx context.Context, id IntervalID) (Interval, error)

	// UpdateInterval overwrites ship, embark and desembark of an existing interval.
	UpdateInterval(ctx context.Context, iv Interval) (Interval, error)
}

// StaffStore persists crew members.
type StaffStore interface {
	FindByCode(ctx context.Context, code string) (Staff, error)
	GetStaff(ctx context.Context, id StaffID) (Staff, error)

	// ListStaff returns every staff member ordered by first name.
	ListStaff(ctx context.Context) ([]Staff, error)

	// SaveStaff inserts or updates the profile fields. It never touches
	// ShipID/Embarked of an existing row; only SetEmbarkState does.
	SaveStaff(ctx context.Context, s Staff) (Staff, error)

	// SetEmbarkState updates the current ship and status flag together.
	SetEmbarkState(ctx context.Context, id StaffID, shipID *ShipID, embarked bool) (Staff, error)
}

// ShipDirectory is read-only reference data for the engine. SaveShip exists
// for admin seeding.
type ShipDirectory interface {
	ListShips(ctx context.Context) ([]Ship, error)
	GetShip(ctx context.Context, id ShipID) (Ship, error)
	SaveShip(ctx context.Context, s Ship) (Ship, error)
}

// Store is everything the engine reads and writes.
type Store interface {
	IntervalStore
	StaffStore
	ShipDirectory
}

// TxStore adds atomic multi-write units.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, the transaction is rolled back.
	WithTx(ctx context.Context, fn func(Store) error) error
}
