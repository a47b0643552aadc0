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

const spaceColumns = "id, name, kind, description, capacity, location, availability, created_at, updated_at"

// SpaceRepo provides CRUD operations for spaces.  Availability is stored
// as a JSON document; callers validate it before writing.
type SpaceRepo struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewSpaceRepo returns a SpaceRepo bound to db.
func NewSpaceRepo(db *sql.DB, d database.Dialect) *SpaceRepo {
	return &SpaceRepo{db: db, dialect: d}
}

// SpaceFilter narrows List.  Zero values disable a filter.
type SpaceFilter struct {
	Kind        model.SpaceKind
	MinCapacity uint32
}

// Create inserts s and populates its ID and timestamps.
func (r *SpaceRepo) Create(ctx context.Context, s *model.Space) error {
	avail, err := encodeAvailability(s.Availability)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Truncate(time.Second)
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO spaces (name, kind, description, capacity, location, availability, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?)`,
		s.Name, string(s.Kind), s.Description, s.Capacity, s.Location, avail,
		database.FormatTime(now), database.FormatTime(now))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	s.CreatedAt, s.UpdatedAt = now, now
	return nil
}

// GetByID fetches a space.
func (r *SpaceRepo) GetByID(ctx context.Context, id uint64) (model.Space, error) {
	return r.get(ctx, r.db, id, "")
}

// LockTx fetches a space inside tx and locks its row until the
// transaction ends (SELECT ... FOR UPDATE on MySQL).
func (r *SpaceRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Space, error) {
	return r.get(ctx, tx, id, r.dialect.ForUpdate)
}

func (r *SpaceRepo) get(ctx context.Context, q querier, id uint64, suffix string) (model.Space, error) {
	row := q.QueryRowContext(ctx, "SELECT "+spaceColumns+" FROM spaces WHERE id = ?"+suffix, id)
	s, err := scanSpace(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Space{}, ErrNotFound
	}
	return s, err
}

// List returns spaces matching f ordered by name.
func (r *SpaceRepo) List(ctx context.Context, f SpaceFilter) ([]model.Space, error) {
	where := []string{}
	args := []any{}
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(f.Kind))
	}
	if f.MinCapacity > 0 {
		where = append(where, "capacity >= ?")
		args = append(args, f.MinCapacity)
	}
	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	rows, err := r.db.QueryContext(ctx, "SELECT "+spaceColumns+" FROM spaces WHERE "+cond+" ORDER BY name ASC, id ASC", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Space{}
	for rows.Next() {
		s, err := scanSpace(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Update overwrites the mutable fields of s.
func (r *SpaceRepo) Update(ctx context.Context, s *model.Space) error {
	avail, err := encodeAvailability(s.Availability)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Truncate(time.Second)
	res, err := r.db.ExecContext(ctx,
		`UPDATE spaces SET name=?, kind=?, description=?, capacity=?, location=?, availability=?, updated_at=?
		 WHERE id=?`,
		s.Name, string(s.Kind), s.Description, s.Capacity, s.Location, avail, database.FormatTime(now), s.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// MySQL reports 0 for unchanged rows; confirm the row exists.
		if _, err := r.GetByID(ctx, s.ID); err != nil {
			return err
		}
	}
	s.UpdatedAt = now
	return nil
}

// Delete removes a space.  It returns ErrConflict while the space still
// has pending or confirmed reservations.
func (r *SpaceRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := r.LockTx(ctx, tx, id); err != nil {
		return err
	}
	var active int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM reservations WHERE space_id = ? AND status IN ('pending','confirmed')", id).Scan(&active); err != nil {
		return err
	}
	if active > 0 {
		return ErrConflict
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM reservations WHERE space_id = ?", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM spaces WHERE id = ?", id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func scanSpace(row rowScanner) (model.Space, error) {
	var (
		s    model.Space
		kind string
	)
	err := row.Scan(&s.ID, &s.Name, &kind, &s.Description, &s.Capacity, &s.Location,
		availabilityColumn{&s.Availability}, dbTime{&s.CreatedAt}, dbTime{&s.UpdatedAt})
	if err != nil {
		return model.Space{}, err
	}
	s.Kind = model.SpaceKind(kind)
	return s, nil
}
