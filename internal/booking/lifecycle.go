package booking

import (
	"fmt"

	"github.com/iliyamo/space-reservation/internal/model"
)

var transitions = map[model.Status][]model.Status{
	model.StatusPending:   {model.StatusConfirmed, model.StatusCancelled},
	model.StatusConfirmed: {model.StatusCancelled},
	model.StatusCancelled: nil,
}

// CanTransition reports whether a reservation may move from one status to
// another.  Staying in the same status is always allowed.
func CanTransition(from, to model.Status) bool {
	if from == to {
		return from.Valid()
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition validates a status change and returns ErrInvalidTransition
// when the lifecycle forbids it.
func Transition(from, to model.Status) error {
	if !to.Valid() {
		return &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", to), Err: ErrInvalidInput}
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%s -> %s: %w", from, to, ErrInvalidTransition)
	}
	return nil
}
