package booking

import (
	"context"
	"time"

	"github.com/iliyamo/space-reservation/internal/model"
)

// Store is the persistence port of the engine.  WithinTx runs fn in a
// single transaction: it commits when fn returns nil and rolls back
// otherwise.  Implementations return an error wrapping ErrNotFound for
// missing rows.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	GetReservation(ctx context.Context, id uint64) (model.Reservation, error)
	ListReservations(ctx context.Context, filter ListFilter) ([]model.Reservation, error)
}

// Tx is the set of operations available inside a transaction.
//
// LockSpace must serialize concurrent transactions touching the same
// space (a row lock on the space, or a store-wide writer lock) so that
// the overlap check and the following write are atomic.
type Tx interface {
	LockSpace(ctx context.Context, spaceID uint64) (model.Space, error)
	GetUser(ctx context.Context, userID uint64) (model.User, error)
	GetReservationForUpdate(ctx context.Context, id uint64) (model.Reservation, error)

	FindOverlapping(ctx context.Context, spaceID uint64, start, end time.Time, excludeID uint64) ([]model.Reservation, error)
	CountUserReservations(ctx context.Context, userID uint64, statuses []model.Status) (int, error)

	InsertReservation(ctx context.Context, r *model.Reservation) error
	UpdateReservation(ctx context.Context, r *model.Reservation) error
	DeleteReservation(ctx context.Context, id uint64) error
}

// ListFilter narrows ListReservations.  A zero UserID lists every user.
// Results are ordered newest first and loaded with their space and user.
type ListFilter struct {
	UserID uint64
}
