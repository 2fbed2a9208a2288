package roster

import "context"

// Drift is a staff member whose embark flag disagrees with the intervals.
// The kiosk rejects transitions for such staff until an admin corrects it.
type Drift struct {
	Staff    Staff
	Reason   ConflictReason
	Interval *Interval // the open interval, when there is one
}

// CheckConsistency compares every staff member's flag and ship with their
// most recent open interval. It only reads.
//
//	Embarked, no open interval       -> missing_open_interval
//	Ashore, open interval            -> duplicate_open_interval
//	Embarked, ship differs from open -> ship_mismatch
func CheckConsistency(ctx context.Context, st Store) ([]Drift, error) {
	staff, err := st.ListStaff(ctx)
	if err != nil {
		return nil, err
	}

	var drifts []Drift
	for _, s := range staff {
		open, found, err := st.FindOpenInterval(ctx, s.ID)
		if err != nil {
			return nil, err
		}
		switch {
		case s.Embarked && !found:
			drifts = append(drifts, Drift{Staff: s, Reason: ReasonMissingOpenInterval})
		case !s.Embarked && found:
			drifts = append(drifts, Drift{Staff: s, Reason: ReasonDuplicateOpen, Interval: &open})
		case found && (s.ShipID == nil || *s.ShipID != open.ShipID):
			drifts = append(drifts, Drift{Staff: s, Reason: ReasonShipMismatch, Interval: &open})
		}
	}
	return drifts, nil
}
