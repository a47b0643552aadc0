// Package repository implements SQL persistence for users, refresh tokens,
// spaces and reservations, and adapts it to the booking engine's Store
// port.  Queries use "?" placeholders and run unchanged on MySQL and
// SQLite; timestamps are written as UTC strings (database.TimeLayout).
package repository

import (
	"errors"
	"strings"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a delete or update cannot be performed
// because of dependent rows, such as deleting a space that still has
// active reservations.  Handlers translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrEmailExists is returned when registering an email that is taken.
var ErrEmailExists = errors.New("email already exists")

// isDuplicate reports whether err is a unique constraint violation on
// MySQL (error 1062) or SQLite.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "1062") || strings.Contains(msg, "unique constraint failed")
}
