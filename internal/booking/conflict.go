package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/iliyamo/space-reservation/internal/model"
)

// Overlaps reports whether the half-open intervals [s1, e1) and [s2, e2)
// intersect.  Touching endpoints do not overlap, so back-to-back
// reservations are allowed.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && e1.After(s2)
}

// FindOverlapping returns the pending or confirmed reservations of the
// space that overlap [start, end).  A non-zero excludeID removes that
// reservation from consideration, which lets an update be checked
// against everything but itself.
func FindOverlapping(ctx context.Context, tx Tx, spaceID uint64, start, end time.Time, excludeID uint64) ([]model.Reservation, error) {
	found, err := tx.FindOverlapping(ctx, spaceID, start, end, excludeID)
	if err != nil {
		return nil, fmt.Errorf("booking: find overlapping: %w", err)
	}
	// Stores may return a superset; keep only true conflicts.
	out := found[:0]
	for _, r := range found {
		if r.ID == excludeID && excludeID != 0 {
			continue
		}
		if !r.Status.Blocking() {
			continue
		}
		if Overlaps(start, end, r.StartTime, r.EndTime) {
			out = append(out, r)
		}
	}
	return out, nil
}
