/*
Package sqlite provides a SQLite-backed implementation of roster.TxStore.

KEY TABLES:
  ships:      reference data
  staff:      crew profile + current ship/status flag
  schedules:  one row per stay aboard (embark, nullable desembark)

INDEXES:
  - idx_schedules_one_open: UNIQUE(staff_id) WHERE desembark IS NULL.
    Storage backstop for "at most one open interval per staff member".
    The Kiosk already checks inside its transaction; this index turns a
    bypassing write into a ConflictError instead of corrupt data.
  - idx_schedules_window: (embark, desembark) for overlap queries
  - idx_schedules_staff_embark: open interval lookup, most recent first

TIMESTAMPS:
  embark/desembark are stored as fixed-width wall-clock text
  (roster.TimestampLayout), so SQL string comparison is chronological and
  roster.Predicate.SQL() can be used as-is.

CONCURRENCY:
  Uses sync.RWMutex for in-process serialisation, and opens every
  transaction with BEGIN IMMEDIATE (_txlock=immediate) so a second process
  waits for the write lock instead of racing the status check.

USAGE:
  store, err := sqlite.New("./data/roster.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/crew-roster/roster"
)

// Store implements roster.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_txlock=immediate&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection, for health endpoints.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS ships (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS staff (
		id TEXT PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL,
		daily_rate TEXT NOT NULL DEFAULT '0',
		code TEXT NOT NULL UNIQUE,
		ship_id TEXT REFERENCES ships(id),
		status BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_staff_first_name ON staff(first_name);

	CREATE TABLE IF NOT EXISTS schedules (
		id TEXT PRIMARY KEY,
		staff_id TEXT NOT NULL REFERENCES staff(id),
		ship_id TEXT NOT NULL REFERENCES ships(id),
		embark TEXT NOT NULL,
		desembark TEXT,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_schedules_one_open
		ON schedules(staff_id) WHERE desembark IS NULL;
	CREATE INDEX IF NOT EXISTS idx_schedules_window
		ON schedules(embark, desembark);
	CREATE INDEX IF NOT EXISTS idx_schedules_staff_embark
		ON schedules(staff_id, embark DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// WithTx executes fn within a database transaction.
// The view handed to fn talks to the *sql.Tx directly and never takes the
// store mutex, which WithTx already holds.
func (s *Store) WithTx(ctx context.Context, fn func(roster.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return roster.Storage("begin transaction", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&queries{q: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return roster.Storage("commit transaction", err)
	}
	return nil
}

func (s *Store) pool() *queries { return &queries{q: s.db} }

// =============================================================================
// LOCKED ENTRY POINTS (roster.Store)
// =============================================================================

func (s *Store) FindOverlapping(ctx context.Context, p roster.Predicate) ([]roster.Interval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pool().FindOverlapping(ctx, p)
}

func (s *Store) CreateInterval(ctx context.Context, staffID roster.StaffID, shipID roster.ShipID, embark time.Time) (roster.Interval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pool().CreateInterval(ctx, staffID, shipID, embark)
}

func (s *Store) CloseInterval(ctx context.Context, id roster.IntervalID, desembark time.Time) (roster.Interval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pool().CloseInterval(ctx, id, desembark)
}

func (s *Store) FindOpenInterval(ctx context.Context, staffID roster.StaffID) (roster.Interval, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pool().FindOpenInterval(ctx, staffID)
}

func (s *Store) GetInterval(ctx context.Context, id roster.IntervalID) (roster.Interval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pool().GetInterval(ctx, id)
}

func (s *Store) UpdateInterval(ctx context.Context, iv roster.Interval) (roster.Interval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pool().UpdateInterval(ctx, iv)
}

func (s *Store) FindByCode(ctx context.Context, code string) (roster.Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pool().FindByCode(ctx, code)
}

func (s *Store) GetStaff(ctx context.Context, id roster.StaffID) (roster.Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pool().GetStaff(ctx, id)
}

func (s *Store) ListStaff(ctx context.Context) ([]roster.Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pool().ListStaff(ctx)
}

func (s *Store) SaveStaff(ctx context.Context, st roster.Staff) (roster.Staff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pool().SaveStaff(ctx, st)
}

func (s *Store) SetEmbarkState(ctx context.Context, id roster.StaffID, shipID *roster.ShipID, embarked bool) (roster.Staff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pool().SetEmbarkState(ctx, id, shipID, embarked)
}

func (s *Store) ListShips(ctx context.Context) ([]roster.Ship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pool().ListShips(ctx)
}

func (s *Store) GetShip(ctx context.Context, id roster.ShipID) (roster.Ship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pool().GetShip(ctx, id)
}

func (s *Store) SaveShip(ctx context.Context, sh roster.Ship) (roster.Ship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pool().SaveShip(ctx, sh)
}

// =============================================================================
// QUERIES - shared by the pool and the transactional view
// =============================================================================

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	q querier
}

const intervalColumns = `id, staff_id, ship_id, embark, desembark`

func (qs *queries) FindOverlapping(ctx context.Context, p roster.Predicate) ([]roster.Interval, error) {
	where, args := p.SQL()
	query := `SELECT ` + intervalColumns + ` FROM schedules WHERE ` + where + ` ORDER BY embark ASC, created_at ASC`

	rows, err := qs.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, roster.Storage("find overlapping", err)
	}
	defer rows.Close()

	out := []roster.Interval{}
	for rows.Next() {
		iv, err := scanInterval(rows)
		if err != nil {
			return nil, roster.Storage("scan interval", err)
		}
		out = append(out, iv)
	}
	if err := rows.Err(); err != nil {
		return nil, roster.Storage("find overlapping", err)
	}
	return out, nil
}

func (qs *queries) CreateInterval(ctx context.Context, staffID roster.StaffID, shipID roster.ShipID, embark time.Time) (roster.Interval, error) {
	iv := roster.Interval{
		ID:      roster.NewIntervalID(),
		StaffID: staffID,
		ShipID:  shipID,
		Embark:  embark,
	}
	_, err := qs.q.ExecContext(ctx,
		`INSERT INTO schedules (id, staff_id, ship_id, embark, desembark, created_at) VALUES (?, ?, ?, ?, NULL, ?)`,
		iv.ID, iv.StaffID, iv.ShipID, roster.FormatTimestamp(embark), nowText(),
	)
	if err != nil {
		if isConstraint(err, sqlite3.ErrConstraintUnique) {
			return roster.Interval{}, &roster.ConflictError{Reason: roster.ReasonDuplicateOpen, StaffID: staffID}
		}
		if isConstraint(err, sqlite3.ErrConstraintForeignKey) {
			return roster.Interval{}, &roster.NotFoundError{Entity: "staff or ship", Key: string(staffID) + "/" + string(shipID)}
		}
		return roster.Interval{}, roster.Storage("create interval", err)
	}
	return qs.GetInterval(ctx, iv.ID)
}

func (qs *queries) CloseInterval(ctx context.Context, id roster.IntervalID, desembark time.Time) (roster.Interval, error) {
	res, err := qs.q.ExecContext(ctx,
		`UPDATE schedules SET desembark = ? WHERE id = ?`,
		roster.FormatTimestamp(desembark), id,
	)
	if err != nil {
		return roster.Interval{}, roster.Storage("close interval", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return roster.Interval{}, &roster.NotFoundError{Entity: "interval", Key: string(id)}
	}
	return qs.GetInterval(ctx, id)
}

func (qs *queries) FindOpenInterval(ctx context.Context, staffID roster.StaffID) (roster.Interval, bool, error) {
	row := qs.q.QueryRowContext(ctx,
		`SELECT `+intervalColumns+` FROM schedules WHERE staff_id = ? AND desembark IS NULL ORDER BY embark DESC LIMIT 1`,
		staffID,
	)
	iv, err := scanInterval(row)
	if errors.Is(err, sql.ErrNoRows) {
		return roster.Interval{}, false, nil
	}
	if err != nil {
		return roster.Interval{}, false, roster.Storage("find open interval", err)
	}
	return iv, true, nil
}

func (qs *queries) GetInterval(ctx context.Context, id roster.IntervalID) (roster.Interval, error) {
	row := qs.q.QueryRowContext(ctx, `SELECT `+intervalColumns+` FROM schedules WHERE id = ?`, id)
	iv, err := scanInterval(row)
	if errors.Is(err, sql.ErrNoRows) {
		return roster.Interval{}, &roster.NotFoundError{Entity: "interval", Key: string(id)}
	}
	if err != nil {
		return roster.Interval{}, roster.Storage("get interval", err)
	}
	return iv, nil
}

func (qs *queries) UpdateInterval(ctx context.Context, iv roster.Interval) (roster.Interval, error) {
	var desembark sql.NullString
	if iv.Desembark != nil {
		desembark = sql.NullString{String: roster.FormatTimestamp(*iv.Desembark), Valid: true}
	}
	res, err := qs.q.ExecContext(ctx,
		`UPDATE schedules SET ship_id = ?, embark = ?, desembark = ? WHERE id = ?`,
		iv.ShipID, roster.FormatTimestamp(iv.Embark), desembark, iv.ID,
	)
	if err != nil {
		if isConstraint(err, sqlite3.ErrConstraintForeignKey) {
			return roster.Interval{}, &roster.NotFoundError{Entity: "ship", Key: string(iv.ShipID)}
		}
		return roster.Interval{}, roster.Storage("update interval", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return roster.Interval{}, &roster.NotFoundError{Entity: "interval", Key: string(iv.ID)}
	}
	return qs.GetInterval(ctx, iv.ID)
}

const staffColumns = `id, first_name, last_name, email, phone, role, daily_rate, code, ship_id, status, created_at, updated_at`

func (qs *queries) FindByCode(ctx context.Context, code string) (roster.Staff, error) {
	row := qs.q.QueryRowContext(ctx, `SELECT `+staffColumns+` FROM staff WHERE code = ?`, code)
	st, err := scanStaff(row)
	if errors.Is(err, sql.ErrNoRows) {
		return roster.Staff{}, &roster.NotFoundError{Entity: "staff", Key: code}
	}
	if err != nil {
		return roster.Staff{}, roster.Storage("find staff by code", err)
	}
	return st, nil
}

func (qs *queries) GetStaff(ctx context.Context, id roster.StaffID) (roster.Staff, error) {
	row := qs.q.QueryRowContext(ctx, `SELECT `+staffColumns+` FROM staff WHERE id = ?`, id)
	st, err := scanStaff(row)
	if errors.Is(err, sql.ErrNoRows) {
		return roster.Staff{}, &roster.NotFoundError{Entity: "staff", Key: string(id)}
	}
	if err != nil {
		return roster.Staff{}, roster.Storage("get staff", err)
	}
	return st, nil
}

func (qs *queries) ListStaff(ctx context.Context) ([]roster.Staff, error) {
	rows, err := qs.q.QueryContext(ctx, `SELECT `+staffColumns+` FROM staff ORDER BY first_name ASC, id ASC`)
	if err != nil {
		return nil, roster.Storage("list staff", err)
	}
	defer rows.Close()

	out := []roster.Staff{}
	for rows.Next() {
		st, err := scanStaff(rows)
		if err != nil {
			return nil, roster.Storage("scan staff", err)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, roster.Storage("list staff", err)
	}
	return out, nil
}

// SaveStaff upserts profile fields. ship_id and status are left alone on
// update; they belong to SetEmbarkState.
func (qs *queries) SaveStaff(ctx context.Context, st roster.Staff) (roster.Staff, error) {
	if st.ID == "" {
		st.ID = roster.NewStaffID()
	}
	now := nowText()
	query := `
		INSERT INTO staff (id, first_name, last_name, email, phone, role, daily_rate, code, ship_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL, FALSE, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			email = excluded.email,
			phone = excluded.phone,
			role = excluded.role,
			daily_rate = excluded.daily_rate,
			code = excluded.code,
			updated_at = excluded.updated_at
	`
	_, err := qs.q.ExecContext(ctx, query,
		st.ID, st.FirstName, st.LastName, st.Email, st.Phone, st.Role,
		st.DailyRate.String(), st.Code, now, now,
	)
	if err != nil {
		if isConstraint(err, sqlite3.ErrConstraintUnique) && strings.Contains(err.Error(), "staff.code") {
			return roster.Staff{}, &roster.ConflictError{Reason: roster.ReasonDuplicateCode, StaffID: st.ID}
		}
		return roster.Staff{}, roster.Storage("save staff", err)
	}
	return qs.GetStaff(ctx, st.ID)
}

func (qs *queries) SetEmbarkState(ctx context.Context, id roster.StaffID, shipID *roster.ShipID, embarked bool) (roster.Staff, error) {
	var ship sql.NullString
	if shipID != nil {
		ship = sql.NullString{String: string(*shipID), Valid: true}
	}
	res, err := qs.q.ExecContext(ctx,
		`UPDATE staff SET ship_id = ?, status = ?, updated_at = ? WHERE id = ?`,
		ship, embarked, nowText(), id,
	)
	if err != nil {
		if isConstraint(err, sqlite3.ErrConstraintForeignKey) {
			return roster.Staff{}, &roster.NotFoundError{Entity: "ship", Key: ship.String}
		}
		return roster.Staff{}, roster.Storage("set embark state", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return roster.Staff{}, &roster.NotFoundError{Entity: "staff", Key: string(id)}
	}
	return qs.GetStaff(ctx, id)
}

func (qs *queries) ListShips(ctx context.Context) ([]roster.Ship, error) {
	rows, err := qs.q.QueryContext(ctx, `SELECT id, name FROM ships ORDER BY name`)
	if err != nil {
		return nil, roster.Storage("list ships", err)
	}
	defer rows.Close()

	out := []roster.Ship{}
	for rows.Next() {
		var sh roster.Ship
		if err := rows.Scan(&sh.ID, &sh.Name); err != nil {
			return nil, roster.Storage("scan ship", err)
		}
		out = append(out, sh)
	}
	if err := rows.Err(); err != nil {
		return nil, roster.Storage("list ships", err)
	}
	return out, nil
}

func (qs *queries) GetShip(ctx context.Context, id roster.ShipID) (roster.Ship, error) {
	var sh roster.Ship
	err := qs.q.QueryRowContext(ctx, `SELECT id, name FROM ships WHERE id = ?`, id).Scan(&sh.ID, &sh.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return roster.Ship{}, &roster.NotFoundError{Entity: "ship", Key: string(id)}
	}
	if err != nil {
		return roster.Ship{}, roster.Storage("get ship", err)
	}
	return sh, nil
}

func (qs *queries) SaveShip(ctx context.Context, sh roster.Ship) (roster.Ship, error) {
	if sh.ID == "" {
		sh.ID = roster.NewShipID()
	}
	_, err := qs.q.ExecContext(ctx,
		`INSERT INTO ships (id, name) VALUES (?, ?) ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
		sh.ID, sh.Name,
	)
	if err != nil {
		return roster.Ship{}, roster.Storage("save ship", err)
	}
	return sh, nil
}

// =============================================================================
// SCANNING
// =============================================================================

type scanner interface {
	Scan(dest ...any) error
}

func scanInterval(row scanner) (roster.Interval, error) {
	var (
		iv        roster.Interval
		embark    string
		desembark sql.NullString
	)
	if err := row.Scan(&iv.ID, &iv.StaffID, &iv.ShipID, &embark, &desembark); err != nil {
		return iv, err
	}
	t, err := roster.ParseTimestamp(embark)
	if err != nil {
		return iv, fmt.Errorf("bad embark %q: %w", embark, err)
	}
	iv.Embark = t
	if desembark.Valid {
		d, err := roster.ParseTimestamp(desembark.String)
		if err != nil {
			return iv, fmt.Errorf("bad desembark %q: %w", desembark.String, err)
		}
		iv.Desembark = &d
	}
	return iv, nil
}

func scanStaff(row scanner) (roster.Staff, error) {
	var (
		st                   roster.Staff
		rate                 string
		ship                 sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(
		&st.ID, &st.FirstName, &st.LastName, &st.Email, &st.Phone, &st.Role,
		&rate, &st.Code, &ship, &st.Embarked, &createdAt, &updatedAt,
	)
	if err != nil {
		return st, err
	}
	st.DailyRate, err = decimal.NewFromString(rate)
	if err != nil {
		return st, fmt.Errorf("bad daily_rate %q: %w", rate, err)
	}
	if ship.Valid {
		id := roster.ShipID(ship.String)
		st.ShipID = &id
	}
	st.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	st.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return st, nil
}

// Helper functions

func nowText() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func isConstraint(err error, code sqlite3.ErrNoExtended) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == code
}

var _ roster.TxStore = (*Store)(nil)
