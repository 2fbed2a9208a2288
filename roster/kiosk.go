/*
kiosk.go - Embark/disembark state machine

STATES (per staff member):
  DISEMBARKED  no open interval, Staff.Embarked = false, Staff.ShipID = nil
  EMBARKED     exactly one open interval, Staff.Embarked = true, ShipID set

TRANSITIONS:
  DISEMBARKED --Embark(code, ship)--> EMBARKED
      creates Interval{embark: now, desembark: nil}, sets staff ship + flag
  EMBARKED    --Disembark(code)-----> DISEMBARKED
      closes the most recent open interval at now, clears staff ship + flag

  Anything else is rejected with a specific error:
    invalid code                    ValidationError  "invalid code format"
    no ship on embark               ValidationError  "ship selection is required to embark"
    unknown code / ship             NotFoundError
    embark while embarked           ConflictError    already_embarked
    disembark while disembarked     ConflictError    already_disembarked
    flag says embarked, no interval ConflictError    missing_open_interval
    flag says ashore, open interval ConflictError    duplicate_open_interval

ATOMICITY:
  The status read and both writes run in one TxStore.WithTx. A failed write
  rolls back the other, and a concurrent second embark for the same code
  sees the committed flag and is rejected.

LOOKUP:
  Staff are found by their 6-digit access code; the kiosk never sees
  internal ids.
*/
package roster

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// KioskStatus is what the kiosk shows after a code is entered.
type KioskStatus struct {
	Name     string `json:"name"`
	Ship     string `json:"ship"`
	Code     string `json:"code"`
	Embarked bool   `json:"status"`
}

// Transition is the outcome of a successful embark or disembark.
type Transition struct {
	Staff    Staff
	Interval Interval
	Status   KioskStatus
}

// Kiosk applies embark/disembark transitions and admin corrections.
type Kiosk struct {
	Store  TxStore
	Now    func() time.Time
	Logger *zap.Logger
}

// NewKiosk creates a Kiosk using the wall clock.
func NewKiosk(store TxStore, logger *zap.Logger) *Kiosk {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Kiosk{Store: store, Now: time.Now, Logger: logger}
}

// =============================================================================
// LOOKUP
// =============================================================================

// Lookup returns the current status for an access code.
func (k *Kiosk) Lookup(ctx context.Context, code string) (KioskStatus, error) {
	if err := ValidateCode(code); err != nil {
		return KioskStatus{}, err
	}
	staff, err := k.Store.FindByCode(ctx, code)
	if err != nil {
		return KioskStatus{}, err
	}
	return statusOf(ctx, k.Store, staff)
}

func statusOf(ctx context.Context, ships ShipDirectory, s Staff) (KioskStatus, error) {
	st := KioskStatus{Name: s.Name(), Code: s.Code, Embarked: s.Embarked}
	if s.ShipID != nil {
		ship, err := ships.GetShip(ctx, *s.ShipID)
		if err != nil && !IsNotFound(err) {
			return KioskStatus{}, err
		}
		st.Ship = ship.Name
	}
	return st, nil
}

// =============================================================================
// TRANSITIONS
// =============================================================================

// Embark moves the staff member with code aboard shipID.
func (k *Kiosk) Embark(ctx context.Context, code string, shipID ShipID) (Transition, error) {
	if err := ValidateCode(code); err != nil {
		return Transition{}, err
	}

	var out Transition
	err := k.Store.WithTx(ctx, func(st Store) error {
		staff, err := st.FindByCode(ctx, code)
		if err != nil {
			return err
		}
		if shipID == "" || shipID == AllShips {
			return &ValidationError{Field: "ship", Message: "ship selection is required to embark"}
		}
		if staff.Embarked {
			return &ConflictError{Reason: ReasonAlreadyEmbarked, StaffID: staff.ID}
		}
		if _, open, err := st.FindOpenInterval(ctx, staff.ID); err != nil {
			return err
		} else if open {
			return &ConflictError{Reason: ReasonDuplicateOpen, StaffID: staff.ID}
		}
		if _, err := st.GetShip(ctx, shipID); err != nil {
			return err
		}

		iv, err := st.CreateInterval(ctx, staff.ID, shipID, k.Now())
		if err != nil {
			return err
		}
		staff, err = st.SetEmbarkState(ctx, staff.ID, &shipID, true)
		if err != nil {
			return err
		}
		status, err := statusOf(ctx, st, staff)
		if err != nil {
			return err
		}
		out = Transition{Staff: staff, Interval: iv, Status: status}
		return nil
	})
	if err != nil {
		k.Logger.Info("embark rejected", zap.String("code", MaskCode(code)), zap.String("ship_id", string(shipID)), zap.Error(err))
		return Transition{}, err
	}

	k.Logger.Info("staff embarked",
		zap.String("staff_id", string(out.Staff.ID)),
		zap.String("ship_id", string(shipID)),
		zap.String("interval_id", string(out.Interval.ID)),
	)
	return out, nil
}

// Disembark closes the open interval of the staff member with code.
func (k *Kiosk) Disembark(ctx context.Context, code string) (Transition, error) {
	if err := ValidateCode(code); err != nil {
		return Transition{}, err
	}

	var out Transition
	err := k.Store.WithTx(ctx, func(st Store) error {
		staff, err := st.FindByCode(ctx, code)
		if err != nil {
			return err
		}
		if !staff.Embarked {
			return &ConflictError{Reason: ReasonAlreadyDisembarked, StaffID: staff.ID}
		}
		open, found, err := st.FindOpenInterval(ctx, staff.ID)
		if err != nil {
			return err
		}
		if !found {
			return &ConflictError{Reason: ReasonMissingOpenInterval, StaffID: staff.ID}
		}

		now := k.Now()
		if now.Before(open.Embark) {
			now = open.Embark
		}
		closed, err := st.CloseInterval(ctx, open.ID, now)
		if err != nil {
			return err
		}
		staff, err = st.SetEmbarkState(ctx, staff.ID, nil, false)
		if err != nil {
			return err
		}
		out = Transition{
			Staff:    staff,
			Interval: closed,
			Status:   KioskStatus{Name: staff.Name(), Code: staff.Code, Embarked: false},
		}
		return nil
	})
	if err != nil {
		k.Logger.Info("disembark rejected", zap.String("code", MaskCode(code)), zap.Error(err))
		return Transition{}, err
	}

	k.Logger.Info("staff disembarked",
		zap.String("staff_id", string(out.Staff.ID)),
		zap.String("interval_id", string(out.Interval.ID)),
	)
	return out, nil
}

// =============================================================================
// ADMIN CORRECTION
// =============================================================================

// IntervalPatch lists the fields an admin may correct. Nil = unchanged.
// Reopening a closed interval is not supported; use the kiosk.
type IntervalPatch struct {
	ShipID    *ShipID
	Embark    *time.Time
	Desembark *time.Time
}

// CorrectInterval applies an admin edit to an existing interval.
//
// When the interval stays open and its ship changes, the staff member's
// current ship follows. When an open interval is closed by the edit, the
// staff member is marked disembarked.
func (k *Kiosk) CorrectInterval(ctx context.Context, id IntervalID, patch IntervalPatch) (Interval, error) {
	var out Interval
	err := k.Store.WithTx(ctx, func(st Store) error {
		iv, err := st.GetInterval(ctx, id)
		if err != nil {
			return err
		}
		wasOpen := iv.IsOpen()
		shipChanged := patch.ShipID != nil && *patch.ShipID != iv.ShipID

		if shipChanged {
			if _, err := st.GetShip(ctx, *patch.ShipID); err != nil {
				return err
			}
			iv.ShipID = *patch.ShipID
		}
		if patch.Embark != nil {
			iv.Embark = *patch.Embark
		}
		if patch.Desembark != nil {
			d := *patch.Desembark
			iv.Desembark = &d
		}
		if err := iv.Validate(); err != nil {
			return err
		}

		out, err = st.UpdateInterval(ctx, iv)
		if err != nil {
			return err
		}

		switch {
		case wasOpen && !out.IsOpen():
			_, err = st.SetEmbarkState(ctx, out.StaffID, nil, false)
		case out.IsOpen() && shipChanged:
			ship := out.ShipID
			_, err = st.SetEmbarkState(ctx, out.StaffID, &ship, true)
		}
		return err
	})
	if err != nil {
		return Interval{}, err
	}

	k.Logger.Info("interval corrected", zap.String("interval_id", string(id)))
	return out, nil
}
