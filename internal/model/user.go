package model

import "time"

// Role names stored in users.role.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User represents an application user record as stored in the
// `users` table.  Handlers expose a subset of these fields; the
// password hash never leaves the repository layer in responses.
//
// Fields:
//  ID                          – primary key identifier of the user.
//  Name                        – display name.
//  Email                       – unique email address.
//  PasswordHash                – bcrypt hashed password.
//  Role                        – user or admin.
//  MaxSimultaneousReservations – reservation ceiling; nil or 0 means unlimited.
//  CreatedAt                   – timestamp of creation.
//  UpdatedAt                   – timestamp of last update.
type User struct {
	ID                          uint64    `json:"id"`                            // users.id
	Name                        string    `json:"name"`                          // users.name
	Email                       string    `json:"email"`                         // users.email
	PasswordHash                string    `json:"-"`                             // users.password_hash
	Role                        Role      `json:"role"`                          // users.role
	MaxSimultaneousReservations *uint32   `json:"max_simultaneous_reservations"` // users.max_simultaneous_reservations (nullable)
	CreatedAt                   time.Time `json:"created_at"`                    // users.created_at
	UpdatedAt                   time.Time `json:"updated_at"`                    // users.updated_at
}

// IsAdmin reports whether the user has the admin role.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// QuotaLimit returns the configured ceiling, 0 meaning unlimited.
func (u User) QuotaLimit() int {
	if u.MaxSimultaneousReservations == nil {
		return 0
	}
	return int(*u.MaxSimultaneousReservations)
}

// RefreshToken models an entry in the `refresh_tokens` table.  The
// plain token is not stored; only its SHA‑256 hash.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA‑256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (null if still active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
