/*
Package roster provides the crew schedule interval engine.

PURPOSE:
  Tracks which staff member is aboard which ship over time. A stay aboard
  is an Interval: an embark timestamp and an optional desembark timestamp.
  Everything else (payroll days, calendar cells, kiosk transitions) is
  derived from intervals.

KEY CONCEPTS IN THIS FILE (types.go):
  - Staff: a crew member with a kiosk code and a daily rate
  - Ship: reference data, just an id and a name
  - Interval: one stay aboard one ship; Desembark == nil means "still aboard"
  - Typed IDs so staff, ship and interval ids cannot be mixed up

INVARIANTS:
  1. Desembark, if set, is not before Embark (checked on writes only)
  2. A staff member has at most one open interval (enforced by Kiosk)
  3. Intervals are never deleted; they survive staff ship changes

SEE ALSO:
  - overlap.go: which intervals touch a reporting window
  - accounting.go: worked days per staff
  - grid.go: calendar cell classification
  - kiosk.go: embark/disembark transitions
*/
package roster

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type (
	StaffID    string
	ShipID     string
	IntervalID string
)

// NewStaffID returns a fresh random staff id.
func NewStaffID() StaffID { return StaffID(uuid.NewString()) }

// NewShipID returns a fresh random ship id.
func NewShipID() ShipID { return ShipID(uuid.NewString()) }

// NewIntervalID returns a fresh random interval id.
func NewIntervalID() IntervalID { return IntervalID(uuid.NewString()) }

// =============================================================================
// STAFF
// =============================================================================

// Role is the department a crew member works in.
type Role string

const (
	RoleChef   Role = "chef"
	RoleDeck   Role = "deck"
	RoleEngine Role = "engine"
)

// Roles lists every valid role in display order.
var Roles = []Role{RoleChef, RoleDeck, RoleEngine}

// ParseRole validates a role name. Matching is case-insensitive.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Roles {
		if r == known {
			return r, nil
		}
	}
	return "", &ValidationError{Field: "role", Message: "unknown role " + s}
}

// CodeLength is the number of digits in a kiosk access code.
const CodeLength = 6

// ValidateCode checks that code is exactly CodeLength ASCII digits.
func ValidateCode(code string) error {
	if len(code) != CodeLength {
		return &ValidationError{Field: "code", Message: "invalid code format"}
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return &ValidationError{Field: "code", Message: "invalid code format"}
		}
	}
	return nil
}

// MaskCode keeps the last two digits of an access code for logs.
func MaskCode(code string) string {
	if len(code) <= 2 {
		return strings.Repeat("*", len(code))
	}
	return strings.Repeat("*", len(code)-2) + code[len(code)-2:]
}

// Staff is a crew member.
//
// ShipID and Embarked are the denormalised "current state" the kiosk shows.
// They change only together with an interval write (see Kiosk).
type Staff struct {
	ID        StaffID
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Role      Role
	DailyRate decimal.Decimal
	Code      string
	ShipID    *ShipID
	Embarked  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Name returns "First Last".
func (s Staff) Name() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// Validate checks the fields an admin must supply.
func (s Staff) Validate() error {
	if strings.TrimSpace(s.FirstName) == "" {
		return &ValidationError{Field: "first_name", Message: "first name is required"}
	}
	if strings.TrimSpace(s.LastName) == "" {
		return &ValidationError{Field: "last_name", Message: "last name is required"}
	}
	if _, err := ParseRole(string(s.Role)); err != nil {
		return err
	}
	if s.DailyRate.IsNegative() {
		return &ValidationError{Field: "daily_rate", Message: "daily rate cannot be negative"}
	}
	return ValidateCode(s.Code)
}

// =============================================================================
// SHIP
// =============================================================================

// Ship is a vessel staff can embark on.
type Ship struct {
	ID   ShipID
	Name string
}

// =============================================================================
// INTERVAL
// =============================================================================

// Interval is one stay of one staff member aboard one ship.
type Interval struct {
	ID        IntervalID
	StaffID   StaffID
	ShipID    ShipID
	Embark    time.Time
	Desembark *time.Time // nil = still aboard
}

// IsOpen reports whether the staff member is still aboard.
func (iv Interval) IsOpen() bool { return iv.Desembark == nil }

// Validate checks the chronological invariant. Only write paths call it;
// read paths clip malformed intervals instead.
func (iv Interval) Validate() error {
	if iv.Embark.IsZero() {
		return &ValidationError{Field: "embark", Message: "embark time is required"}
	}
	if iv.Desembark != nil && iv.Desembark.Before(iv.Embark) {
		return &ValidationError{Field: "desembark", Message: "desembark cannot be before embark"}
	}
	return nil
}

// StartDay is the calendar day of Embark.
func (iv Interval) StartDay() Day { return DayOf(iv.Embark) }

// EndDay is the calendar day of Desembark. ok is false for open intervals.
func (iv Interval) EndDay() (d Day, ok bool) {
	if iv.Desembark == nil {
		return Day{}, false
	}
	return DayOf(*iv.Desembark), true
}
