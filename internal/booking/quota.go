package booking

import (
	"context"
	"fmt"

	"github.com/iliyamo/space-reservation/internal/model"
)

// DefaultQuotaStatuses are the statuses that count toward a user's
// reservation ceiling.  Cancelled reservations are included: every
// reservation a user ever made consumes quota.
var DefaultQuotaStatuses = []model.Status{model.StatusPending, model.StatusConfirmed, model.StatusCancelled}

// QuotaChecker counts a user's reservations against
// max_simultaneous_reservations.
type QuotaChecker struct {
	Statuses []model.Status
}

// CountActive returns the number of the user's reservations whose status
// is in the checker's counted set.
func (q QuotaChecker) CountActive(ctx context.Context, tx Tx, userID uint64) (int, error) {
	statuses := q.Statuses
	if len(statuses) == 0 {
		statuses = DefaultQuotaStatuses
	}
	n, err := tx.CountUserReservations(ctx, userID, statuses)
	if err != nil {
		return 0, fmt.Errorf("booking: count reservations: %w", err)
	}
	return n, nil
}

// Check returns a ValidationError wrapping ErrQuotaExceeded when the user
// has a positive limit and already holds that many counted reservations.
func (q QuotaChecker) Check(ctx context.Context, tx Tx, user model.User) error {
	limit := user.QuotaLimit()
	if limit <= 0 {
		return nil
	}
	n, err := q.CountActive(ctx, tx, user.ID)
	if err != nil {
		return err
	}
	if n >= limit {
		return &ValidationError{
			Field:   "user_id",
			Message: fmt.Sprintf("reservation limit of %d reached", limit),
			Err:     ErrQuotaExceeded,
		}
	}
	return nil
}
