package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler processes one decoded event.  raw is the original message body.
type Handler interface {
	Handle(ctx context.Context, ev ReservationCreatedEvent, raw []byte) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, ev ReservationCreatedEvent, raw []byte) error

func (f HandlerFunc) Handle(ctx context.Context, ev ReservationCreatedEvent, raw []byte) error {
	return f(ctx, ev, raw)
}

// Handlers runs every handler in order and joins their errors.
type Handlers []Handler

func (hs Handlers) Handle(ctx context.Context, ev ReservationCreatedEvent, raw []byte) error {
	var errs []error
	for _, h := range hs {
		if err := h.Handle(ctx, ev, raw); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Forward returns a Handler that posts the message body to the webhook.
func Forward(w *WebhookSink) Handler {
	return HandlerFunc(func(ctx context.Context, ev ReservationCreatedEvent, raw []byte) error {
		return w.PostRaw(ctx, ev.EventID, raw)
	})
}

// FileLog appends a single-line summary of every event to a file.
type FileLog struct {
	Path string
	mu   sync.Mutex
}

func (f *FileLog) Handle(_ context.Context, ev ReservationCreatedEvent, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	file, err := os.OpenFile(f.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	r := ev.Data
	space := ""
	if r.Space != nil {
		space = r.Space.Name
	}
	line := fmt.Sprintf("[%s] Reservation created | event_id=%s | reservation_id=%d | user_id=%d | space_id=%d | space=%q | start=%s | end=%s | status=%s\n",
		ev.Timestamp, ev.EventID, r.ID, r.UserID, r.SpaceID, space,
		r.StartTime.Format(time.RFC3339), r.EndTime.Format(time.RFC3339), r.Status)
	if _, err := file.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// Consumer reads ReservationCreated messages from a durable queue and
// passes them to Handler.  Messages that fail to decode or to be handled
// are rejected without requeue.
type Consumer struct {
	URL      string
	Queue    string
	Prefetch int
	Handler  Handler
	Logger   *slog.Logger
}

// Run connects to the broker and consumes until ctx is done, reconnecting
// with exponential backoff (capped at 30s) whenever the connection drops.
func (c *Consumer) Run(ctx context.Context) error {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			logger.Warn("broker dial failed", slog.Any("error", err), slog.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn, logger)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn("consume loop ended; reconnecting", slog.Any("error", err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection, logger *slog.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	prefetch := c.Prefetch
	if prefetch <= 0 {
		prefetch = 50
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		logger.Warn("set QoS failed", slog.Any("error", err))
	}
	if err := declareQueue(ch, c.Queue); err != nil {
		return err
	}
	msgs, err := ch.Consume(c.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	logger.Info("consuming", slog.String("queue", c.Queue))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.HandleMessage(ctx, d.Body); err != nil {
				logger.Warn("handle message failed", slog.Any("error", err), slog.String("message_id", d.MessageId))
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// HandleMessage decodes body and runs the handler on it.
func (c *Consumer) HandleMessage(ctx context.Context, body []byte) error {
	var ev ReservationCreatedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Event != EventReservationCreated {
		return fmt.Errorf("unexpected event %q", ev.Event)
	}
	if c.Handler == nil {
		return nil
	}
	return c.Handler.Handle(ctx, ev, body)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
