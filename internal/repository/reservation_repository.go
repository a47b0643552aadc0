package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/space-reservation/internal/database"
	"github.com/iliyamo/space-reservation/internal/model"
)

const reservationColumns = "r.id, r.space_id, r.user_id, r.reservation_date, r.start_time, r.end_time, r.purpose, r.status, r.created_at, r.updated_at"

const relationColumns = `,
	s.id, s.name, s.kind, s.description, s.capacity, s.location, s.availability, s.created_at, s.updated_at,
	u.id, u.name, u.email, u.password_hash, u.role, u.max_simultaneous_reservations, u.created_at, u.updated_at`

const relationJoins = `
	JOIN spaces s ON s.id = r.space_id
	JOIN users u  ON u.id = r.user_id`

// ReservationRepo provides reservation persistence.  The ...Tx methods run
// inside a caller supplied transaction; the caller must commit or roll it
// back.  All timestamps are stored in UTC.
type ReservationRepo struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB, d database.Dialect) *ReservationRepo {
	return &ReservationRepo{db: db, dialect: d}
}

// CreateTx inserts res and populates its generated ID.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	const q = `INSERT INTO reservations
		(space_id, user_id, reservation_date, start_time, end_time, purpose, status, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?)`
	result, err := tx.ExecContext(ctx, q,
		res.SpaceID, res.UserID, res.ReservationDate,
		database.FormatTime(res.StartTime), database.FormatTime(res.EndTime),
		nullString(res.Purpose), string(res.Status),
		database.FormatTime(res.CreatedAt), database.FormatTime(res.UpdatedAt))
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	return nil
}

// UpdateTx overwrites every mutable column of res.
func (r *ReservationRepo) UpdateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	const q = `UPDATE reservations
		SET space_id=?, reservation_date=?, start_time=?, end_time=?, purpose=?, status=?, updated_at=?
		WHERE id=?`
	result, err := tx.ExecContext(ctx, q,
		res.SpaceID, res.ReservationDate,
		database.FormatTime(res.StartTime), database.FormatTime(res.EndTime),
		nullString(res.Purpose), string(res.Status), database.FormatTime(res.UpdatedAt), res.ID)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		var exists int
		if err := tx.QueryRowContext(ctx, "SELECT 1 FROM reservations WHERE id = ?", res.ID).Scan(&exists); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
	}
	return nil
}

// DeleteTx removes a reservation row.
func (r *ReservationRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	result, err := tx.ExecContext(ctx, "DELETE FROM reservations WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetForUpdateTx loads a reservation without relations and locks its row.
func (r *ReservationRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Reservation, error) {
	row := tx.QueryRowContext(ctx,
		"SELECT "+reservationColumns+" FROM reservations r WHERE r.id = ?"+r.dialect.ForUpdate, id)
	res, err := scanReservation(row, false)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Reservation{}, ErrNotFound
	}
	return res, err
}

// GetByID loads a reservation with its space and user.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (model.Reservation, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+reservationColumns+relationColumns+" FROM reservations r"+relationJoins+" WHERE r.id = ?", id)
	res, err := scanReservation(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Reservation{}, ErrNotFound
	}
	return res, err
}

// List returns reservations with their space and user, newest first.  A
// zero userID lists every user's reservations.
func (r *ReservationRepo) List(ctx context.Context, userID uint64) ([]model.Reservation, error) {
	q := "SELECT " + reservationColumns + relationColumns + " FROM reservations r" + relationJoins
	args := []any{}
	if userID != 0 {
		q += " WHERE r.user_id = ?"
		args = append(args, userID)
	}
	q += " ORDER BY r.created_at DESC, r.id DESC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Reservation{}
	for rows.Next() {
		res, err := scanReservation(rows, true)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// FindOverlapping returns pending or confirmed reservations of spaceID
// whose interval intersects [start, end), skipping excludeID.  Intervals
// that only touch do not match.
func (r *ReservationRepo) FindOverlapping(ctx context.Context, spaceID uint64, start, end time.Time, excludeID uint64) ([]model.Reservation, error) {
	return r.findOverlapping(ctx, r.db, spaceID, start, end, excludeID)
}

// FindOverlappingTx is FindOverlapping inside tx.
func (r *ReservationRepo) FindOverlappingTx(ctx context.Context, tx *sql.Tx, spaceID uint64, start, end time.Time, excludeID uint64) ([]model.Reservation, error) {
	return r.findOverlapping(ctx, tx, spaceID, start, end, excludeID)
}

func (r *ReservationRepo) findOverlapping(ctx context.Context, q querier, spaceID uint64, start, end time.Time, excludeID uint64) ([]model.Reservation, error) {
	const sel = "SELECT " + reservationColumns + ` FROM reservations r
		WHERE r.space_id = ? AND r.id <> ?
		  AND r.start_time < ? AND r.end_time > ?
		  AND r.status IN ('pending','confirmed')
		ORDER BY r.start_time ASC`
	rows, err := q.QueryContext(ctx, sel, spaceID, excludeID, database.FormatTime(end), database.FormatTime(start))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Reservation
	for rows.Next() {
		res, err := scanReservation(rows, false)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// CountByUserTx counts the user's reservations whose status is in statuses.
func (r *ReservationRepo) CountByUserTx(ctx context.Context, tx *sql.Tx, userID uint64, statuses []model.Status) (int, error) {
	if len(statuses) == 0 {
		return 0, nil
	}
	marks := strings.TrimSuffix(strings.Repeat("?,", len(statuses)), ",")
	args := make([]any, 0, len(statuses)+1)
	args = append(args, userID)
	for _, s := range statuses {
		args = append(args, string(s))
	}
	var n int
	err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM reservations WHERE user_id = ? AND status IN ("+marks+")", args...).Scan(&n)
	return n, err
}

func scanReservation(row rowScanner, withRelations bool) (model.Reservation, error) {
	var (
		res     model.Reservation
		status  string
		purpose sql.NullString
	)
	dest := []any{
		&res.ID, &res.SpaceID, &res.UserID, &res.ReservationDate,
		dbTime{&res.StartTime}, dbTime{&res.EndTime}, &purpose, &status,
		dbTime{&res.CreatedAt}, dbTime{&res.UpdatedAt},
	}

	var (
		sp     model.Space
		spKind string
		u      model.User
		uRole  string
		uQuota sql.NullInt64
	)
	if withRelations {
		dest = append(dest,
			&sp.ID, &sp.Name, &spKind, &sp.Description, &sp.Capacity, &sp.Location,
			availabilityColumn{&sp.Availability}, dbTime{&sp.CreatedAt}, dbTime{&sp.UpdatedAt},
			&u.ID, &u.Name, &u.Email, &u.PasswordHash, &uRole, &uQuota, dbTime{&u.CreatedAt}, dbTime{&u.UpdatedAt},
		)
	}
	if err := row.Scan(dest...); err != nil {
		return model.Reservation{}, err
	}

	res.Status = model.Status(status)
	if purpose.Valid {
		p := purpose.String
		res.Purpose = &p
	}
	if withRelations {
		sp.Kind = model.SpaceKind(spKind)
		u.Role = model.Role(uRole)
		if uQuota.Valid {
			q := uint32(uQuota.Int64)
			u.MaxSimultaneousReservations = &q
		}
		res.Space, res.User = &sp, &u
	}
	return res, nil
}
