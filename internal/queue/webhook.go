package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/iliyamo/space-reservation/internal/booking"
)

// WebhookSink POSTs ReservationCreated payloads to an HTTP endpoint.  Any
// non-2xx response is an error.
type WebhookSink struct {
	URL    string
	Client *http.Client
}

var _ booking.EventSink = (*WebhookSink)(nil)

// NewWebhookSink returns a sink posting to url with the given timeout.
func NewWebhookSink(url string, timeout time.Duration) *WebhookSink {
	return &WebhookSink{URL: url, Client: &http.Client{Timeout: timeout}}
}

// Publish posts ev.
func (w *WebhookSink) Publish(ctx context.Context, ev booking.ReservationCreated) error {
	return w.Post(ctx, NewReservationCreated(ev))
}

// Post sends an already built payload.  The notifier uses it to forward
// messages read from the queue.
func (w *WebhookSink) Post(ctx context.Context, msg ReservationCreatedEvent) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return w.PostRaw(ctx, msg.EventID, body)
}

// PostRaw sends body unchanged.
func (w *WebhookSink) PostRaw(ctx context.Context, eventID string, body []byte) error {
	if w.URL == "" {
		return fmt.Errorf("webhook url not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if eventID != "" {
		req.Header.Set("X-Event-Id", eventID)
	}

	client := w.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook post: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook post: unexpected status %d", resp.StatusCode)
	}
	return nil
}
