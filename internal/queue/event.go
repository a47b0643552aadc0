// Package queue carries ReservationCreated events out of the API process:
// the AMQP publisher and webhook sinks used by the server, and the
// consumer run by the notifier.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/space-reservation/internal/booking"
	"github.com/iliyamo/space-reservation/internal/model"
)

// EventReservationCreated is the event name carried in every payload.
const EventReservationCreated = "reservation.created"

// ReservationCreatedEvent is the wire form of a ReservationCreated event,
// used both as the AMQP message body and as the webhook request body.
// Data is the reservation with its user and space.
type ReservationCreatedEvent struct {
	Event     string            `json:"event"`
	EventID   string            `json:"event_id"`
	Timestamp string            `json:"timestamp"`
	Data      model.Reservation `json:"data"`
}

// NewReservationCreated builds the payload for ev with a fresh event id.
func NewReservationCreated(ev booking.ReservationCreated) ReservationCreatedEvent {
	at := ev.OccurredAt
	if at.IsZero() {
		at = time.Now()
	}
	return ReservationCreatedEvent{
		Event:     EventReservationCreated,
		EventID:   uuid.NewString(),
		Timestamp: at.Format(time.RFC3339),
		Data:      ev.Reservation,
	}
}
