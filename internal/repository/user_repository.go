package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/space-reservation/internal/database"
	"github.com/iliyamo/space-reservation/internal/model"
	"github.com/iliyamo/space-reservation/internal/utils"
)

const userColumns = "id, name, email, password_hash, role, max_simultaneous_reservations, created_at, updated_at"

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// NewUser holds the fields needed to register a user.
type NewUser struct {
	Name     string
	Email    string
	Password string
	Role     model.Role
	Quota    *uint32
}

// Create hashes the password, inserts the user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, in NewUser, cost int) (uint64, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	hash, err := utils.HashPassword(in.Password, cost)
	if err != nil {
		return 0, err
	}
	role := in.Role
	if role == "" {
		role = model.RoleUser
	}
	now := database.FormatTime(time.Now())
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (name, email, password_hash, role, max_simultaneous_reservations, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?)`,
		strings.TrimSpace(in.Name), email, hash, string(role), nullUint32(in.Quota), now, now)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	row := r.DB.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email)
	return scanUser(row)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.getByID(ctx, r.DB, id)
}

// GetByIDTx is GetByID inside an existing transaction.
func (r *UserRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.User, error) {
	return r.getByID(ctx, tx, id)
}

func (r *UserRepo) getByID(ctx context.Context, q querier, id uint64) (model.User, error) {
	row := q.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	return scanUser(row)
}

// SetQuota updates max_simultaneous_reservations.  A nil limit removes
// the ceiling.
func (r *UserRepo) SetQuota(ctx context.Context, id uint64, limit *uint32) (model.User, error) {
	if _, err := r.DB.ExecContext(ctx,
		"UPDATE users SET max_simultaneous_reservations=?, updated_at=? WHERE id=?",
		nullUint32(limit), database.FormatTime(time.Now()), id); err != nil {
		return model.User{}, err
	}
	// RowsAffected is 0 on MySQL for unchanged rows, so existence is
	// settled by the read.
	return r.GetByID(ctx, id)
}

func scanUser(row rowScanner) (model.User, error) {
	var (
		u     model.User
		role  string
		quota sql.NullInt64
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &quota,
		dbTime{&u.CreatedAt}, dbTime{&u.UpdatedAt})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, err
	}
	u.Role = model.Role(role)
	if quota.Valid {
		q := uint32(quota.Int64)
		u.MaxSimultaneousReservations = &q
	}
	return u, nil
}
