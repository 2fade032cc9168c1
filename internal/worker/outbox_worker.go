package worker

import (
	"context"
	"time"

	"shareit/internal/domain"
	"shareit/internal/models"
	"shareit/internal/queue"

	"github.com/rs/zerolog"
)

// OutboxWorker delivers event_outbox rows to the broker and retries failures
// with exponential backoff.
type OutboxWorker struct {
	repo         domain.OutboxRepository
	publisher    queue.Publisher
	retryPolicy  RetryPolicy
	pollInterval time.Duration
	batchSize    int
	wake         chan struct{}
	logger       *zerolog.Logger
	now          func() time.Time
}

func NewOutboxWorker(
	repo domain.OutboxRepository,
	publisher queue.Publisher,
	retry RetryPolicy,
	pollInterval time.Duration,
	batchSize int,
	logger *zerolog.Logger,
) *OutboxWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	if batchSize <= 0 {
		batchSize = models.OutboxBatchSize
	}

	return &OutboxWorker{
		repo:         repo,
		publisher:    publisher,
		retryPolicy:  retry,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		wake:         make(chan struct{}, 1),
		logger:       logger,
		now:          time.Now,
	}
}

// Notify asks the worker to poll now instead of waiting for the next tick.
func (w *OutboxWorker) Notify() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Start runs the poll loop until ctx is done.
func (w *OutboxWorker) Start(ctx context.Context) {
	w.logger.Info().Dur("poll_interval", w.pollInterval).Msg("Outbox worker started")
	defer w.logger.Info().Msg("Outbox worker stopped")

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		w.drain(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-w.wake:
		}
	}
}

// drain processes batches until nothing is due. It stops early when a row
// could not be marked, since that row would be fetched again right away.
func (w *OutboxWorker) drain(ctx context.Context) {
	for ctx.Err() == nil {
		n, marked, err := w.processBatch(ctx)
		if err != nil {
			w.logger.Error().Err(err).Msg("Fetch pending outbox events failed")
			return
		}
		if !marked {
			w.logger.Warn().Msg("Outbox rows left unmarked, waiting for next poll")
			return
		}
		if n < w.batchSize {
			return
		}
	}
}

// ProcessBatch handles one batch of due events and returns how many were fetched.
func (w *OutboxWorker) ProcessBatch(ctx context.Context) (int, error) {
	n, _, err := w.processBatch(ctx)
	return n, err
}

func (w *OutboxWorker) processBatch(ctx context.Context) (int, bool, error) {
	events, err := w.repo.GetPendingEvents(ctx, w.batchSize)
	if err != nil {
		return 0, false, err
	}
	marked := true
	for _, event := range events {
		if !w.processEvent(ctx, event) {
			marked = false
		}
	}
	return len(events), marked, nil
}

// processEvent publishes one event and reports whether its row was updated.
func (w *OutboxWorker) processEvent(ctx context.Context, event *models.OutboxEvent) bool {
	if err := w.publisher.Publish(ctx, event.EventType, []byte(event.Payload)); err != nil {
		return w.retryOrFail(ctx, event, err)
	}

	if err := w.repo.MarkEventCompleted(ctx, event.ID); err != nil {
		w.logger.Error().Err(err).Int64("event_id", event.ID).Msg("Mark outbox event completed failed")
		return false
	}
	return true
}

func (w *OutboxWorker) retryOrFail(ctx context.Context, event *models.OutboxEvent, cause error) bool {
	attempt := event.RetryCount + 1
	log := w.logger.With().Int64("event_id", event.ID).Str("event_type", event.EventType).Int("attempt", attempt).Logger()

	if w.retryPolicy.Exhausted(attempt) {
		log.Error().Err(cause).Msg("Outbox event failed permanently")
		if err := w.repo.MarkEventFailed(ctx, event.ID, attempt, cause.Error()); err != nil {
			log.Error().Err(err).Msg("Mark outbox event failed failed")
			return false
		}
		return true
	}

	next := w.now().Add(w.retryPolicy.NextDelay(attempt))
	log.Warn().Err(cause).Time("next_retry_at", next).Msg("Outbox event publish failed, will retry")
	if err := w.repo.MarkEventRetry(ctx, event.ID, attempt, next, cause.Error()); err != nil {
		log.Error().Err(err).Msg("Mark outbox event retry failed")
		return false
	}
	return true
}
