package queue

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/space-reservation/internal/booking"
	"github.com/iliyamo/space-reservation/internal/model"
)

func sampleEvent() booking.ReservationCreated {
	quota := uint32(2)
	return booking.ReservationCreated{
		OccurredAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Reservation: model.Reservation{
			ID: 7, SpaceID: 3, UserID: 5, ReservationDate: "2026-03-02",
			StartTime: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
			EndTime:   time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC),
			Status:    model.StatusPending,
			Space:     &model.Space{ID: 3, Name: "Orion", Kind: model.KindRoom, Capacity: 4},
			User:      &model.User{ID: 5, Name: "Ada", Email: "ada@example.com", PasswordHash: "secret-hash", MaxSimultaneousReservations: &quota},
		},
	}
}

func TestNewReservationCreated_Payload(t *testing.T) {
	t.Parallel()

	msg := NewReservationCreated(sampleEvent())
	if msg.Event != "reservation.created" || msg.Timestamp != "2026-03-01T09:00:00Z" {
		t.Fatalf("unexpected envelope %+v", msg)
	}
	if _, err := uuid.Parse(msg.EventID); err != nil {
		t.Fatalf("event id is not a uuid: %v", err)
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(raw), "secret-hash") {
		t.Fatalf("payload leaks the password hash: %s", raw)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	data := decoded["data"].(map[string]any)
	if data["space"].(map[string]any)["name"] != "Orion" || data["user"].(map[string]any)["email"] != "ada@example.com" {
		t.Fatalf("payload missing relations: %s", raw)
	}
}

func TestWebhookSink_Publish(t *testing.T) {
	t.Parallel()

	var (
		mu       sync.Mutex
		received []byte
		headers  http.Header
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		received, headers = body, r.Header.Clone()
		mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sink := NewWebhookSink(srv.URL, time.Second)
	if err := sink.Publish(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	var msg ReservationCreatedEvent
	if err := json.Unmarshal(received, &msg); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if msg.Data.ID != 7 || headers.Get("Content-Type") != "application/json" || headers.Get("X-Event-Id") != msg.EventID {
		t.Fatalf("unexpected request: %+v headers=%v", msg, headers)
	}
}

func TestWebhookSink_ErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if err := NewWebhookSink(srv.URL, time.Second).Publish(context.Background(), sampleEvent()); err == nil {
		t.Fatalf("expected error for 503 response")
	}
	if err := (&WebhookSink{}).Publish(context.Background(), sampleEvent()); err == nil {
		t.Fatalf("expected error without url")
	}
}

func TestConsumer_HandleMessage(t *testing.T) {
	t.Parallel()

	var forwarded int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		forwarded++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	logPath := filepath.Join(t.TempDir(), "logs", "reservations.log")
	c := &Consumer{Handler: Handlers{Forward(NewWebhookSink(srv.URL, time.Second)), &FileLog{Path: logPath}}}

	body, _ := json.Marshal(NewReservationCreated(sampleEvent()))
	if err := c.HandleMessage(context.Background(), body); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if forwarded != 1 {
		t.Fatalf("expected one forwarded request, got %d", forwarded)
	}
	line, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(line), "reservation_id=7") || !strings.Contains(string(line), `space="Orion"`) {
		t.Fatalf("unexpected log line %q", line)
	}

	if err := c.HandleMessage(context.Background(), []byte("{not json")); err == nil {
		t.Fatalf("expected decode error")
	}
	if err := c.HandleMessage(context.Background(), []byte(`{"event":"reservation.deleted"}`)); err == nil {
		t.Fatalf("expected unknown event error")
	}
}
