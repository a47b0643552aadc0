package model

import (
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of a reservation.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// Blocking reports whether a reservation in this status occupies its slot.
func (s Status) Blocking() bool { return s == StatusPending || s == StatusConfirmed }

// ParseStatus normalises and validates a status string.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("invalid status %q", raw)
	}
	return s, nil
}

// Reservation records a user's booking of a space for a time interval.
// The interval is half open: [StartTime, EndTime).
//
// Fields:
//  ID              – primary key identifier.
//  SpaceID         – reserved space.
//  UserID          – user who made the reservation.
//  ReservationDate – local calendar date of StartTime (YYYY-MM-DD).
//  StartTime       – start instant (stored in UTC).
//  EndTime         – end instant (stored in UTC).
//  Purpose         – optional free text.
//  Status          – pending, confirmed or cancelled.
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
//  Space, User     – populated when the reservation is loaded with its
//                    relations (events, API responses).
type Reservation struct {
	ID              uint64    `json:"id"`               // reservations.id
	SpaceID         uint64    `json:"space_id"`         // reservations.space_id
	UserID          uint64    `json:"user_id"`          // reservations.user_id
	ReservationDate string    `json:"reservation_date"` // reservations.reservation_date
	StartTime       time.Time `json:"start_time"`       // reservations.start_time
	EndTime         time.Time `json:"end_time"`         // reservations.end_time
	Purpose         *string   `json:"purpose"`          // reservations.purpose (nullable)
	Status          Status    `json:"status"`           // reservations.status
	CreatedAt       time.Time `json:"created_at"`       // reservations.created_at
	UpdatedAt       time.Time `json:"updated_at"`       // reservations.updated_at

	Space *Space `json:"space,omitempty"`
	User  *User  `json:"user,omitempty"`
}
