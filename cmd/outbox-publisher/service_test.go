package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/ironmonger/hardware-backend/pkg/config"
	"github.com/ironmonger/hardware-backend/pkg/db/models"
	"github.com/ironmonger/hardware-backend/pkg/enums"
	"github.com/ironmonger/hardware-backend/pkg/kafka"
	"github.com/ironmonger/hardware-backend/pkg/logger"
	"github.com/ironmonger/hardware-backend/pkg/metrics"
	"github.com/ironmonger/hardware-backend/pkg/outbox"
	"github.com/ironmonger/hardware-backend/pkg/outbox/payloads"
	"github.com/ironmonger/hardware-backend/pkg/outbox/registry"
)

func orderEvent(t *testing.T, eventID string) models.OutboxEvent {
	t.Helper()
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelopePayload(t, eventID),
	}
}

func orderResolved(topic string) *registry.ResolvedEvent {
	return &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			Topic:         topic,
		},
		Envelope: outbox.PayloadEnvelope{EventID: uuid.NewString(), OccurredAt: time.Now()},
		Payload:  &payloads.OrderCreatedEvent{},
	}
}

func TestServiceProcessBatchContinuesAfterFailure(t *testing.T) {
	repo := &fakeRepo{events: []models.OutboxEvent{orderEvent(t, "event-one"), orderEvent(t, "event-two")}}
	pub := &fakePublisher{errs: []error{errors.New("transient"), nil}}
	reg := prometheus.NewRegistry()
	service := newTestService(t, repo, pub, &fakeRegistry{resolved: orderResolved("hardware.order_created")}, &fakeDLQRepo{}, nil)
	service.metrics = metrics.NewOutboxMetrics(reg)

	result, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if result.claimed != 2 || result.retrying != 1 {
		t.Fatalf("expected 2 claimed and 1 retrying, got %+v", result)
	}
	if got := len(repo.failed); got != 1 {
		t.Fatalf("unexpected number of failed rows: %d", got)
	}
	if got := len(repo.published); got != 1 {
		t.Fatalf("unexpected number of published rows: %d", got)
	}
	if repo.failed[0] != repo.events[0].ID {
		t.Fatalf("failed row recorded wrong ID")
	}
	if repo.published[0] != repo.events[1].ID {
		t.Fatalf("published row recorded wrong ID")
	}
	if got := counterValue(t, reg, "hardware_outbox_published_total"); got != 1 {
		t.Fatalf("expected one published count, got %v", got)
	}
	if got := counterValue(t, reg, "hardware_outbox_failed_total"); got != 1 {
		t.Fatalf("expected one failed count, got %v", got)
	}
}

func TestPublishKeysByAggregateAndCarriesEnvelope(t *testing.T) {
	event := orderEvent(t, "keyed")
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{}
	service := newTestService(t, repo, pub, &fakeRegistry{resolved: orderResolved("hardware.order_created")}, &fakeDLQRepo{}, nil)

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(pub.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(pub.sent))
	}
	msg := pub.sent[0]
	if msg.Topic != "hardware.order_created" {
		t.Fatalf("unexpected topic %q", msg.Topic)
	}
	if msg.Key != event.AggregateID.String() {
		t.Fatalf("expected aggregate id key, got %q", msg.Key)
	}
	if !bytes.Equal(msg.Value, event.Payload) {
		t.Fatalf("expected stored envelope as value")
	}
	if msg.Headers["event_type"] != string(enums.EventOrderCreated) {
		t.Fatalf("missing event_type header: %+v", msg.Headers)
	}
}

func TestServiceProcessBatchWritesDLQOnNonRetryable(t *testing.T) {
	event := orderEvent(t, "nonretryable")
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	dlqRepo := &fakeDLQRepo{}
	service := newTestService(t, repo, &fakePublisher{}, &fakeRegistry{err: registry.NewNonRetryableError(errors.New("invalid payload"))}, dlqRepo, nil)

	result, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if result.claimed != 1 || result.retrying != 0 {
		t.Fatalf("expected a settled batch, got %+v", result)
	}
	if got := len(dlqRepo.entries); got != 1 {
		t.Fatalf("expected dlq entry, got %d", got)
	}
	entry := dlqRepo.entries[0]
	if entry.EventID != event.ID {
		t.Fatalf("dlq event_id mismatch: %s", entry.EventID)
	}
	if entry.Payload == nil || !bytes.Equal(entry.Payload, event.Payload) {
		t.Fatalf("dlq payload mismatch")
	}
	if entry.ErrorReason != enums.OutboxDLQReasonNonRetryable {
		t.Fatalf("unexpected error reason: %s", entry.ErrorReason)
	}
}

func TestServiceProcessBatchWritesDLQOnMaxAttempts(t *testing.T) {
	event := orderEvent(t, "max-attempts")
	event.AttemptCount = 1
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{errs: []error{errors.New("broker unavailable")}}
	dlqRepo := &fakeDLQRepo{}
	service := newTestService(t, repo, pub, &fakeRegistry{resolved: orderResolved("hardware.order_created")}, dlqRepo, &config.OutboxConfig{
		BatchSize:      1,
		PollIntervalMS: 100,
		MaxAttempts:    2,
	})

	result, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if result.claimed != 1 || result.retrying != 0 {
		t.Fatalf("expected a settled batch, got %+v", result)
	}
	if got := len(dlqRepo.entries); got != 1 {
		t.Fatalf("expected dlq entry, got %d", got)
	}
	if dlqRepo.entries[0].ErrorReason != enums.OutboxDLQReasonMaxAttempts {
		t.Fatalf("unexpected error reason: %s", dlqRepo.entries[0].ErrorReason)
	}
}

func TestServiceProcessBatchEmpty(t *testing.T) {
	service := newTestService(t, &fakeRepo{}, &fakePublisher{}, &fakeRegistry{}, &fakeDLQRepo{}, nil)
	result, err := service.processBatch(context.Background())
	if err != nil || result.claimed != 0 {
		t.Fatalf("expected idle batch, got %+v err=%v", result, err)
	}
}

func TestNextBackoffCaps(t *testing.T) {
	base := 500 * time.Millisecond
	limit := 10 * time.Second
	if got := nextBackoff(base, base, limit); got != time.Second {
		t.Fatalf("expected doubling, got %s", got)
	}
	if got := nextBackoff(8*time.Second, base, limit); got != limit {
		t.Fatalf("expected cap at %s, got %s", limit, got)
	}
	if got := withJitter(time.Second); got < time.Second || got >= time.Second+jitterWindow {
		t.Fatalf("jitter outside window: %s", got)
	}
}

func TestRunBacksOffWhileBrokerRejectsWrites(t *testing.T) {
	repo := &attemptRepo{fakeRepo: fakeRepo{events: []models.OutboxEvent{orderEvent(t, "outage-one"), orderEvent(t, "outage-two")}}}
	pub := &fakePublisher{alwaysErr: errors.New("leader not available")}
	dlqRepo := &fakeDLQRepo{}
	service := newTestService(t, repo, pub, &fakeRegistry{resolved: orderResolved("hardware.order_created")}, dlqRepo, &config.OutboxConfig{
		BatchSize:      10,
		PollIntervalMS: 40,
		MaxAttempts:    3,
		MaxBackoffMS:   1000,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := service.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected run to stop on deadline, got %v", err)
	}

	if pub.attempts != 2 {
		t.Fatalf("expected one attempt per row inside the backoff window, got %d", pub.attempts)
	}
	if len(dlqRepo.entries) != 0 {
		t.Fatalf("expected no dead letters during a short outage, got %d", len(dlqRepo.entries))
	}
	for _, event := range repo.events {
		if event.AttemptCount != 1 {
			t.Fatalf("expected a single recorded attempt, got %d", event.AttemptCount)
		}
	}
}

func TestRunStopsWhenKafkaUnreachable(t *testing.T) {
	service := newTestService(t, &fakeRepo{}, &fakePublisher{pingErr: errors.New("dial tcp: refused")}, &fakeRegistry{}, &fakeDLQRepo{}, nil)
	if err := service.Run(context.Background()); err == nil {
		t.Fatalf("expected readiness failure")
	}
}

func newTestService(t *testing.T, repo outboxRepository, pub eventPublisher, resolver registryResolver, dlq dlqRepository, outboxCfgOverride *config.OutboxConfig) *Service {
	t.Helper()
	outboxCfg := config.OutboxConfig{
		BatchSize:      2,
		PollIntervalMS: 100,
		MaxAttempts:    5,
	}
	if outboxCfgOverride != nil {
		outboxCfg = *outboxCfgOverride
	}
	logg := logger.New(logger.Options{
		ServiceName: "outbox-publisher-test",
		Output:      io.Discard,
	})
	service, err := NewService(ServiceParams{
		Config:        &config.Config{Outbox: outboxCfg},
		Logger:        logg,
		DB:            &fakeDB{},
		Publisher:     pub,
		Repository:    repo,
		Registry:      resolver,
		DLQRepository: dlq,
	})
	if err != nil {
		t.Fatalf("failed to construct service: %v", err)
	}
	return service
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	total := 0.0
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
	}
	return total
}

func mustEnvelopePayload(tb testing.TB, eventID string) json.RawMessage {
	tb.Helper()
	env := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID,
		OccurredAt: time.Now(),
		Data:       json.RawMessage(`{}`),
	}
	payload, err := json.Marshal(env)
	if err != nil {
		tb.Fatalf("marshal envelope: %v", err)
	}
	return payload
}

type fakeRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
}

func (f *fakeRepo) FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	return f.events, nil
}

func (f *fakeRepo) MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error {
	f.failed = append(f.failed, id)
	return nil
}

// attemptRepo mirrors the real fetch: rows at the attempt ceiling or already
// published are not claimed again.
type attemptRepo struct {
	fakeRepo
}

func (a *attemptRepo) FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	done := make(map[uuid.UUID]bool, len(a.published))
	for _, id := range a.published {
		done[id] = true
	}
	var out []models.OutboxEvent
	for _, event := range a.events {
		if !done[event.ID] && event.AttemptCount < maxAttempts && len(out) < limit {
			out = append(out, event)
		}
	}
	return out, nil
}

func (a *attemptRepo) MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error {
	a.bump(id, func(e *models.OutboxEvent) { e.AttemptCount++ })
	return a.fakeRepo.MarkFailedTx(tx, id, err)
}

func (a *attemptRepo) MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error {
	a.bump(id, func(e *models.OutboxEvent) { e.AttemptCount = terminalAttempts })
	return a.fakeRepo.MarkTerminalTx(tx, id, err, terminalAttempts)
}

func (a *attemptRepo) bump(id uuid.UUID, fn func(*models.OutboxEvent)) {
	for i := range a.events {
		if a.events[i].ID == id {
			fn(&a.events[i])
		}
	}
}

type fakeDB struct{}

func (f *fakeDB) Ping(context.Context) error {
	return nil
}

func (f *fakeDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error {
	return fn(nil)
}

type fakePublisher struct {
	errs      []error
	alwaysErr error
	sent      []kafka.Message
	pingErr   error
	attempts  int
}

func (f *fakePublisher) Ping(context.Context) error {
	return f.pingErr
}

func (f *fakePublisher) Publish(_ context.Context, msg kafka.Message) error {
	f.attempts++
	err := f.alwaysErr
	if len(f.errs) > 0 {
		err = f.errs[0]
		f.errs = f.errs[1:]
	}
	if err == nil {
		f.sent = append(f.sent, msg)
	}
	return err
}

type fakeRegistry struct {
	resolved *registry.ResolvedEvent
	err      error
}

func (f *fakeRegistry) Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if f.resolved == nil {
		return nil, f.err
	}
	resolved := *f.resolved
	resolved.Descriptor.AggregateType = event.AggregateType
	resolved.Envelope.EventID = event.ID.String()
	resolved.Envelope.OccurredAt = time.Now()
	return &resolved, f.err
}

type fakeDLQRepo struct {
	entries []models.OutboxDLQ
}

func (f *fakeDLQRepo) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	f.entries = append(f.entries, entry)
	return nil
}
