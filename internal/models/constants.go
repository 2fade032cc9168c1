package models

import "time"

const (
	// DefaultPageSize is used when a listing request omits size.
	DefaultPageSize = 10

	// DefaultBookingCacheTTL bounds how stale a cached booking read may be.
	DefaultBookingCacheTTL = 5 * time.Minute

	// OutboxBatchSize is the number of outbox rows fetched per poll.
	OutboxBatchSize = 20
)

const (
	OutboxPending   = "pending"
	OutboxRetry     = "retry"
	OutboxCompleted = "completed"
	OutboxFailed    = "failed"
)
