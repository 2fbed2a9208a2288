/*
errors.go - Error taxonomy for the roster engine

ERROR CATEGORIES:
  1. NotFound   - staff/ship/interval lookup by key returned nothing
  2. Conflict   - invariant violation (already embarked, already disembarked,
                  missing or duplicate open interval, duplicate code)
  3. Validation - malformed input (bad code, missing ship, non-chronological edit)
  4. Storage    - persistence failure

USAGE:
  Match the category with errors.Is, the details with errors.As:

    if errors.Is(err, roster.ErrConflict) {
        var ce *roster.ConflictError
        errors.As(err, &ce) // ce.Reason tells the kiosk what to say
    }

  Read paths (overlap, accounting, grid) never return these for well-typed
  input. Only stores and the Kiosk do.
*/
package roster

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation failed")
	ErrStorage    = errors.New("storage failure")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// NotFoundError reports a lookup by key that matched nothing.
type NotFoundError struct {
	Entity string // "staff", "ship", "interval"
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.Key)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ConflictReason identifies which invariant a request would break.
type ConflictReason string

const (
	ReasonAlreadyEmbarked     ConflictReason = "already_embarked"
	ReasonAlreadyDisembarked  ConflictReason = "already_disembarked"
	ReasonMissingOpenInterval ConflictReason = "missing_open_interval"
	ReasonDuplicateOpen       ConflictReason = "duplicate_open_interval"
	ReasonDuplicateCode       ConflictReason = "duplicate_code"
	ReasonShipMismatch        ConflictReason = "ship_mismatch"
)

var conflictMessages = map[ConflictReason]string{
	ReasonAlreadyEmbarked:     "staff is already embarked",
	ReasonAlreadyDisembarked:  "staff is already disembarked",
	ReasonMissingOpenInterval: "no active schedule found although staff is marked as embarked",
	ReasonDuplicateOpen:       "staff already has an open schedule",
	ReasonDuplicateCode:       "access code is already in use",
	ReasonShipMismatch:        "staff ship differs from the ship of the open schedule",
}

// ConflictError reports a rejected transition or write.
type ConflictError struct {
	Reason  ConflictReason
	StaffID StaffID
}

func (e *ConflictError) Error() string {
	if msg, ok := conflictMessages[e.Reason]; ok {
		return msg
	}
	return "conflict: " + string(e.Reason)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// ValidationError reports malformed input for a single field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrValidation }

// StorageError wraps a persistence failure. It unwraps to both ErrStorage
// and the driver error.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error { return []error{ErrStorage, e.Err} }

// Storage wraps err as a StorageError unless it already carries a roster
// category, in which case it is returned unchanged.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrValidation) || errors.Is(err, ErrStorage) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

func IsNotFound(err error) bool   { return errors.Is(err, ErrNotFound) }
func IsConflict(err error) bool   { return errors.Is(err, ErrConflict) }
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsClientError returns true if the caller can fix the request.
func IsClientError(err error) bool {
	return IsNotFound(err) || IsConflict(err) || IsValidation(err)
}
