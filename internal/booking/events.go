package booking

import (
	"context"
	"log/slog"
	"time"

	"github.com/iliyamo/space-reservation/internal/model"
)

// ReservationCreated is emitted after a reservation has been committed.
// Reservation carries its Space and User relations.
type ReservationCreated struct {
	Reservation model.Reservation
	OccurredAt  time.Time
}

// EventSink receives domain events.  Delivery is best effort: the engine
// logs and drops any error Publish returns.
type EventSink interface {
	Publish(ctx context.Context, ev ReservationCreated) error
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) Publish(context.Context, ReservationCreated) error { return nil }

// LogSink writes each event to a structured logger instead of delivering it.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Publish(_ context.Context, ev ReservationCreated) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("reservation created",
		slog.Uint64("reservation_id", ev.Reservation.ID),
		slog.Uint64("space_id", ev.Reservation.SpaceID),
		slog.Uint64("user_id", ev.Reservation.UserID),
		slog.Time("start_time", ev.Reservation.StartTime),
		slog.Time("end_time", ev.Reservation.EndTime),
	)
	return nil
}
