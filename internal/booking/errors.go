// Package booking implements the reservation admission engine: the
// availability calendar check, overlap detection, the per-user quota and
// the reservation status lifecycle, composed by Service into create,
// update and cancel operations that run as single transactions.
package booking

import (
	"errors"
	"fmt"

	"github.com/iliyamo/space-reservation/internal/model"
)

var (
	// ErrInvalidInput marks malformed or missing fields, a start time in
	// the past or an end time not after the start.
	ErrInvalidInput = errors.New("booking: invalid input")
	// ErrNotFound is returned when the referenced space, reservation or
	// user does not exist.
	ErrNotFound = errors.New("booking: not found")
	// ErrOutsideAvailability is returned when the interval does not fit in
	// any availability window of the space.
	ErrOutsideAvailability = errors.New("booking: outside availability")
	// ErrOverlap is returned when the interval intersects an active
	// reservation of the same space.
	ErrOverlap = errors.New("booking: overlapping reservation")
	// ErrQuotaExceeded is returned when the user reached their reservation ceiling.
	ErrQuotaExceeded = errors.New("booking: quota exceeded")
	// ErrInvalidTransition is returned for a status change the lifecycle forbids.
	ErrInvalidTransition = errors.New("booking: invalid status transition")
	// ErrForbidden is returned when the policy denies the acting user.
	ErrForbidden = errors.New("booking: forbidden")
)

// ValidationError is a business rule rejection attached to a request
// field.  It unwraps to one of the sentinel errors above so callers can
// classify it with errors.Is.
type ValidationError struct {
	Field   string
	Message string
	Err     error

	// Conflicts holds the overlapping reservations for ErrOverlap.
	Conflicts []model.Reservation
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%v: %s", e.Err, e.Message)
	}
	return fmt.Sprintf("%v: %s: %s", e.Err, e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg, Err: ErrInvalidInput}
}

func notFound(what string) error {
	return fmt.Errorf("%s: %w", what, ErrNotFound)
}

// IsRejection reports whether err is a business rule or input rejection,
// as opposed to an authorization, lookup or storage failure.
func IsRejection(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrOutsideAvailability) ||
		errors.Is(err, ErrOverlap) ||
		errors.Is(err, ErrQuotaExceeded)
}

// ErrorKind maps an engine error to a stable label for logs.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrOutsideAvailability):
		return "outside_availability"
	case errors.Is(err, ErrOverlap):
		return "overlap"
	case errors.Is(err, ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	}
	return "unexpected"
}
