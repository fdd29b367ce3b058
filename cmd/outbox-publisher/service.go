package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ironmonger/hardware-backend/pkg/config"
	"github.com/ironmonger/hardware-backend/pkg/db/models"
	"github.com/ironmonger/hardware-backend/pkg/enums"
	"github.com/ironmonger/hardware-backend/pkg/kafka"
	"github.com/ironmonger/hardware-backend/pkg/logger"
	"github.com/ironmonger/hardware-backend/pkg/metrics"
	"github.com/ironmonger/hardware-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize      = 50
	defaultPollInterval   = 500 * time.Millisecond
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	defaultMaxBackoff     = time.Minute
	jitterWindow          = 250 * time.Millisecond
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type eventPublisher interface {
	Ping(context.Context) error
	Publish(ctx context.Context, msg kafka.Message) error
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type ServiceParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            dbClient
	Publisher     eventPublisher
	Repository    outboxRepository
	Registry      registryResolver
	DLQRepository dlqRepository
	Metrics       *metrics.OutboxMetrics
}

// Service drains outbox_events into Kafka. A batch is claimed and settled in
// one transaction, so concurrent publishers never send the same row twice.
type Service struct {
	logg         *logger.Logger
	db           dbClient
	repo         outboxRepository
	publisher    eventPublisher
	registry     registryResolver
	dlq          dlqRepository
	metrics      *metrics.OutboxMetrics
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
	maxBackoff   time.Duration
}

type outcome int

const (
	outcomePublished outcome = iota
	outcomeRetrying
	outcomeDeadLettered
)

// batchResult counts how the claimed rows were settled.
type batchResult struct {
	claimed  int
	retrying int
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Config == nil:
		return nil, errors.New("config is required")
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.Publisher == nil:
		return nil, errors.New("publisher is required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository is required")
	case params.Registry == nil:
		return nil, errors.New("event registry is required")
	case params.DLQRepository == nil:
		return nil, errors.New("dlq repository is required")
	}

	cfg := params.Config.Outbox
	s := &Service{
		logg:         params.Logger,
		db:           params.DB,
		repo:         params.Repository,
		publisher:    params.Publisher,
		registry:     params.Registry,
		dlq:          params.DLQRepository,
		metrics:      params.Metrics,
		batchSize:    defaultBatchSize,
		maxAttempts:  defaultMaxAttempts,
		pollInterval: defaultPollInterval,
		maxBackoff:   defaultMaxBackoff,
	}
	if cfg.BatchSize > 0 {
		s.batchSize = cfg.BatchSize
	}
	if cfg.MaxAttempts > 0 {
		s.maxAttempts = cfg.MaxAttempts
	}
	if cfg.PollIntervalMS > 0 {
		s.pollInterval = time.Duration(cfg.PollIntervalMS) * time.Millisecond
	}
	if cfg.MaxBackoffMS > 0 {
		s.maxBackoff = time.Duration(cfg.MaxBackoffMS) * time.Millisecond
	}
	s.maxBackoff = max(s.maxBackoff, s.pollInterval)
	return s, nil
}

// Run polls until ctx is canceled. A batch that settled every row is followed
// immediately by the next one and an empty batch waits one poll interval.
// A batch error, or any row left for retry, backs off exponentially up to
// the configured maximum, so a broker outage spends one attempt per backoff
// step instead of draining the queue into the DLQ.
func (s *Service) Run(ctx context.Context) error {
	for name, ping := range map[string]func(context.Context) error{"database": s.db.Ping, "kafka": s.publisher.Ping} {
		if err := ping(ctx); err != nil {
			s.logg.Error(ctx, name+" ping failed", err)
			return fmt.Errorf("%s ping failed: %w", name, err)
		}
	}

	backoff := s.pollInterval
	for {
		if err := ctx.Err(); err != nil {
			s.logg.Info(ctx, "outbox publisher context canceled")
			return err
		}

		result, err := s.processBatch(ctx)
		var wait time.Duration
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox publisher batch error", err)
			backoff = nextBackoff(backoff, s.pollInterval, s.maxBackoff)
			wait = withJitter(backoff)
		case result.retrying > 0:
			backoff = nextBackoff(backoff, s.pollInterval, s.maxBackoff)
			wait = withJitter(backoff)
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"retrying": result.retrying, "backoff_ms": wait.Milliseconds()}), "outbox publish failures, backing off")
		case result.claimed > 0:
			backoff = s.pollInterval
			continue
		default:
			backoff = s.pollInterval
			wait = withJitter(s.pollInterval)
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// processBatch claims one batch and settles every row in it. Per-event
// publish failures are recorded on the row; only storage errors abort the
// batch.
func (s *Service) processBatch(ctx context.Context) (batchResult, error) {
	var result batchResult
	start := time.Now()
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return err
		}
		result = batchResult{claimed: len(events)}
		for _, event := range events {
			settled, err := s.dispatch(ctx, tx, event)
			if err != nil {
				return err
			}
			if settled == outcomeRetrying {
				result.retrying++
			}
		}
		return nil
	})
	if result.claimed > 0 {
		s.metrics.ObserveBatch(time.Since(start))
	}
	return result, err
}

func (s *Service) dispatch(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) (outcome, error) {
	resolved, err := s.registry.Resolve(event)
	if err != nil {
		return s.deadLetter(s.logg.WithFields(ctx, eventFields(event, nil)), tx, event, enums.OutboxDLQReasonNonRetryable, err)
	}
	logCtx := s.logg.WithFields(ctx, eventFields(event, resolved))

	pubErr := s.publish(ctx, event, resolved)
	if pubErr == nil {
		if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
			return 0, fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		s.metrics.IncPublished(string(event.EventType))
		s.logg.Info(logCtx, "outbox event published")
		return outcomePublished, nil
	}

	var nonRetry registry.NonRetryableError
	if errors.As(pubErr, &nonRetry) {
		return s.deadLetter(logCtx, tx, event, enums.OutboxDLQReasonNonRetryable, pubErr)
	}

	s.metrics.IncFailed(string(event.EventType))
	attempt := event.AttemptCount + 1
	logCtx = s.logg.WithField(logCtx, "attempt_count", attempt)
	if attempt >= s.maxAttempts {
		return s.deadLetter(logCtx, tx, event, enums.OutboxDLQReasonMaxAttempts, fmt.Errorf("max publish attempts reached: %w", pubErr))
	}

	s.logg.Warn(s.logg.WithField(logCtx, "error", pubErr.Error()), "outbox publish failed")
	if err := s.repo.MarkFailedTx(tx, event.ID, pubErr); err != nil {
		return 0, fmt.Errorf("mark failure %s: %w", event.ID, err)
	}
	return outcomeRetrying, nil
}

// deadLetter copies the row into outbox_dlq and retires it so it is never
// fetched again.
func (s *Service) deadLetter(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) (outcome, error) {
	msg := cause.Error()
	s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"error_reason": reason, "error": msg}), "outbox event will not be retried")

	entry := models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  event.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}
	if err := s.dlq.InsertTx(tx, entry); err != nil {
		return 0, fmt.Errorf("insert dlq %s: %w", event.ID, err)
	}
	if err := s.repo.MarkTerminalTx(tx, event.ID, cause, s.maxAttempts); err != nil {
		return 0, fmt.Errorf("mark terminal %s: %w", event.ID, err)
	}
	s.metrics.IncDeadLettered(string(reason))
	return outcomeDeadLettered, nil
}

// publish sends the stored envelope keyed by aggregate id, so every event
// about one order lands on the same partition in order.
func (s *Service) publish(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	topic := resolved.Descriptor.Topic
	if topic == "" {
		return registry.NewNonRetryableError(fmt.Errorf("no topic configured for %s", event.EventType))
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	return s.publisher.Publish(publishCtx, kafka.Message{
		Topic: topic,
		Key:   event.AggregateID.String(),
		Value: event.Payload,
		Headers: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"created_at":     event.CreatedAt.Format(time.RFC3339Nano),
		},
	})
}

func eventFields(event models.OutboxEvent, resolved *registry.ResolvedEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
	}
	if resolved != nil {
		fields["topic"] = resolved.Descriptor.Topic
		fields["event_id"] = resolved.Envelope.EventID
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, limit time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	if next := current * 2; next < limit {
		return next
	}
	return limit
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + time.Duration(jitterSource.Int63n(int64(jitterWindow)))
}
