package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/space-reservation/internal/booking"
	"github.com/iliyamo/space-reservation/internal/database"
	"github.com/iliyamo/space-reservation/internal/model"
)

// Store implements booking.Store on top of the SQL repositories.
type Store struct {
	db           *sql.DB
	Spaces       *SpaceRepo
	Users        *UserRepo
	Reservations *ReservationRepo
}

// NewStore wires the repositories over db.
func NewStore(db *sql.DB, d database.Dialect) *Store {
	return &Store{
		db:           db,
		Spaces:       NewSpaceRepo(db, d),
		Users:        NewUserRepo(db),
		Reservations: NewReservationRepo(db, d),
	}
}

var _ booking.Store = (*Store)(nil)

// WithinTx runs fn in a transaction, committing when fn returns nil.  A
// commit failure is returned as an error; the caller must not treat the
// work as done.
func (s *Store) WithinTx(ctx context.Context, fn func(tx booking.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(&storeTx{s: s, tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

func (s *Store) GetReservation(ctx context.Context, id uint64) (model.Reservation, error) {
	r, err := s.Reservations.GetByID(ctx, id)
	return r, translate(err, "reservation")
}

func (s *Store) ListReservations(ctx context.Context, f booking.ListFilter) ([]model.Reservation, error) {
	return s.Reservations.List(ctx, f.UserID)
}

type storeTx struct {
	s  *Store
	tx *sql.Tx
}

func (t *storeTx) LockSpace(ctx context.Context, spaceID uint64) (model.Space, error) {
	sp, err := t.s.Spaces.LockTx(ctx, t.tx, spaceID)
	return sp, translate(err, "space")
}

func (t *storeTx) GetUser(ctx context.Context, userID uint64) (model.User, error) {
	u, err := t.s.Users.GetByIDTx(ctx, t.tx, userID)
	return u, translate(err, "user")
}

func (t *storeTx) GetReservationForUpdate(ctx context.Context, id uint64) (model.Reservation, error) {
	r, err := t.s.Reservations.GetForUpdateTx(ctx, t.tx, id)
	return r, translate(err, "reservation")
}

func (t *storeTx) FindOverlapping(ctx context.Context, spaceID uint64, start, end time.Time, excludeID uint64) ([]model.Reservation, error) {
	return t.s.Reservations.FindOverlappingTx(ctx, t.tx, spaceID, start, end, excludeID)
}

func (t *storeTx) CountUserReservations(ctx context.Context, userID uint64, statuses []model.Status) (int, error) {
	return t.s.Reservations.CountByUserTx(ctx, t.tx, userID, statuses)
}

func (t *storeTx) InsertReservation(ctx context.Context, r *model.Reservation) error {
	return t.s.Reservations.CreateTx(ctx, t.tx, r)
}

func (t *storeTx) UpdateReservation(ctx context.Context, r *model.Reservation) error {
	return translate(t.s.Reservations.UpdateTx(ctx, t.tx, r), "reservation")
}

func (t *storeTx) DeleteReservation(ctx context.Context, id uint64) error {
	return translate(t.s.Reservations.DeleteTx(ctx, t.tx, id), "reservation")
}

// translate maps ErrNotFound onto booking.ErrNotFound so the engine can
// classify it.
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%s: %w", what, booking.ErrNotFound)
	}
	return err
}
