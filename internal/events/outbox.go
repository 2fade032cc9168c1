package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"shareit/internal/domain"
)

const outboxWriteTimeout = 5 * time.Second

// OutboxWriter persists published events so a worker can deliver them later.
// Rows are written after the booking change commits, not in its transaction.
type OutboxWriter struct {
	repo   domain.OutboxRepository
	notify func()
}

// NewOutboxWriter builds a writer. notify, when set, is called after each
// successful write to wake the delivery worker.
func NewOutboxWriter(repo domain.OutboxRepository, notify func()) *OutboxWriter {
	return &OutboxWriter{repo: repo, notify: notify}
}

// Attach subscribes the writer to every booking event type.
func (w *OutboxWriter) Attach(bus *EventBus) {
	for _, eventType := range BookingTypes {
		bus.Subscribe(eventType, w.Handle)
	}
}

func (w *OutboxWriter) Handle(event *Event) error {
	var head struct {
		BookingID int64 `json:"booking_id"`
	}
	if err := json.Unmarshal(event.Payload, &head); err != nil {
		return fmt.Errorf("decode %s payload: %w", event.Type, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), outboxWriteTimeout)
	defer cancel()

	if err := w.repo.EnqueueEvent(ctx, event.Type, head.BookingID, string(event.Payload)); err != nil {
		return fmt.Errorf("outbox %s: %w", event.Type, err)
	}
	if w.notify != nil {
		w.notify()
	}
	return nil
}
