package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"shareit/internal/models"
)

const outboxColumns = `id, event_type, aggregate_id, payload, status, retry_count, last_error, created_at, processed_at, next_retry_at`

func (db *DB) EnqueueEvent(ctx context.Context, eventType string, aggregateID int64, payload string) error {
	_, err := db.insert(ctx,
		`INSERT INTO event_outbox (event_type, aggregate_id, payload, status, retry_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		eventType, aggregateID, payload, models.OutboxPending, 0, dbTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue event: %w", err)
	}
	return nil
}

// GetPendingEvents returns due pending or retry rows, oldest first.
func (db *DB) GetPendingEvents(ctx context.Context, limit int) ([]*models.OutboxEvent, error) {
	rows, err := db.query(ctx,
		`SELECT `+outboxColumns+` FROM event_outbox
		 WHERE status IN (?, ?) AND (next_retry_at IS NULL OR next_retry_at <= ?)
		 ORDER BY created_at, id LIMIT ?`,
		models.OutboxPending, models.OutboxRetry, dbTime(time.Now()), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending events: %w", err)
	}
	defer rows.Close()

	return scanOutboxEvents(rows)
}

func (db *DB) MarkEventCompleted(ctx context.Context, id int64) error {
	now := dbTime(time.Now())
	_, err := db.exec(ctx,
		`UPDATE event_outbox SET status = ?, last_error = NULL, next_retry_at = NULL, processed_at = ? WHERE id = ?`,
		models.OutboxCompleted, now, id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete outbox event: %w", err)
	}
	return nil
}

func (db *DB) MarkEventRetry(ctx context.Context, id int64, retryCount int, nextRetryAt time.Time, lastErr string) error {
	_, err := db.exec(ctx,
		`UPDATE event_outbox SET status = ?, retry_count = ?, last_error = ?, next_retry_at = ? WHERE id = ?`,
		models.OutboxRetry, retryCount, lastErr, dbTime(nextRetryAt), id,
	)
	if err != nil {
		return fmt.Errorf("failed to reschedule outbox event: %w", err)
	}
	return nil
}

func (db *DB) MarkEventFailed(ctx context.Context, id int64, retryCount int, lastErr string) error {
	now := dbTime(time.Now())
	_, err := db.exec(ctx,
		`UPDATE event_outbox SET status = ?, retry_count = ?, last_error = ?, next_retry_at = NULL, processed_at = ? WHERE id = ?`,
		models.OutboxFailed, retryCount, lastErr, now, id,
	)
	if err != nil {
		return fmt.Errorf("failed to fail outbox event: %w", err)
	}
	return nil
}

// GetFailedEvents lists events that exhausted their retries, newest first.
func (db *DB) GetFailedEvents(ctx context.Context) ([]*models.OutboxEvent, error) {
	rows, err := db.query(ctx,
		`SELECT `+outboxColumns+` FROM event_outbox WHERE status = ? ORDER BY created_at DESC, id DESC`,
		models.OutboxFailed,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get failed events: %w", err)
	}
	defer rows.Close()

	return scanOutboxEvents(rows)
}

func scanOutboxEvents(rows *sql.Rows) ([]*models.OutboxEvent, error) {
	events := make([]*models.OutboxEvent, 0)
	for rows.Next() {
		var e models.OutboxEvent
		err := rows.Scan(
			&e.ID, &e.EventType, &e.AggregateID, &e.Payload, &e.Status, &e.RetryCount,
			&e.LastError, &e.CreatedAt, &e.ProcessedAt, &e.NextRetryAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}
