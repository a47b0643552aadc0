package booking

import "github.com/iliyamo/space-reservation/internal/model"

// Actor is the authenticated user on whose behalf an operation runs.
type Actor struct {
	UserID uint64
	Role   model.Role
}

// IsAdmin reports whether the actor has the admin role.
func (a Actor) IsAdmin() bool { return a.Role == model.RoleAdmin }

// Policy decides whether an actor may see or change a reservation.
type Policy interface {
	CanView(actor Actor, r model.Reservation) bool
	CanUpdate(actor Actor, r model.Reservation) bool
	CanCancel(actor Actor, r model.Reservation) bool
}

// OwnershipPolicy lets administrators do anything and owners view and
// cancel their reservations, and change them while still pending.
type OwnershipPolicy struct{}

func (OwnershipPolicy) CanView(a Actor, r model.Reservation) bool {
	return a.IsAdmin() || a.UserID == r.UserID
}

func (OwnershipPolicy) CanUpdate(a Actor, r model.Reservation) bool {
	return a.IsAdmin() || (a.UserID == r.UserID && r.Status == model.StatusPending)
}

func (OwnershipPolicy) CanCancel(a Actor, r model.Reservation) bool {
	return a.IsAdmin() || a.UserID == r.UserID
}
