// Package registry knows every event type the outbox may carry: its
// aggregate, its Kafka topic and the Go type of its payload.
package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ironmonger/hardware-backend/pkg/config"
	"github.com/ironmonger/hardware-backend/pkg/db/models"
	"github.com/ironmonger/hardware-backend/pkg/enums"
	"github.com/ironmonger/hardware-backend/pkg/outbox"
	"github.com/ironmonger/hardware-backend/pkg/outbox/payloads"
)

type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() any
}

// ResolvedEvent is a row whose envelope and typed payload both decoded.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// NonRetryableError marks a row that will fail the same way on every attempt.
// The publisher dead-letters it immediately.
type NonRetryableError struct {
	Err error
}

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func describe[T any](event enums.OutboxEventType, aggregate enums.OutboxAggregateType) EventDescriptor {
	return EventDescriptor{
		EventType:      event,
		AggregateType:  aggregate,
		PayloadFactory: func() any { return new(T) },
	}
}

var catalog = []EventDescriptor{
	describe[payloads.OrderCreatedEvent](enums.EventOrderCreated, enums.AggregateOrder),
	describe[payloads.OrderStatusChangedEvent](enums.EventOrderStatusChanged, enums.AggregateOrder),
	describe[payloads.OrderPaymentUpdatedEvent](enums.EventOrderPaymentUpdated, enums.AggregateOrder),
	describe[payloads.DeliveryAssignedEvent](enums.EventDeliveryAssigned, enums.AggregateDelivery),
	describe[payloads.DeliveryStatusChangedEvent](enums.EventDeliveryStatusChanged, enums.AggregateDelivery),
	describe[payloads.InventoryAdjustedEvent](enums.EventInventoryAdjusted, enums.AggregateProduct),
}

// TopicFor returns "<prefix>.<event_type>", or the bare event type when no
// prefix is configured.
func TopicFor(prefix string, eventType enums.OutboxEventType) string {
	if prefix = strings.Trim(strings.TrimSpace(prefix), "."); prefix == "" {
		return string(eventType)
	}
	return prefix + "." + string(eventType)
}

type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

func NewEventRegistry(cfg config.KafkaConfig) *EventRegistry {
	entries := make(map[enums.OutboxEventType]EventDescriptor, len(catalog))
	for _, desc := range catalog {
		desc.Topic = TopicFor(cfg.TopicPrefix, desc.EventType)
		entries[desc.EventType] = desc
	}
	return &EventRegistry{entries: entries}
}

func (r *EventRegistry) Topics() []string {
	topics := make([]string, 0, len(r.entries))
	for _, desc := range r.entries {
		topics = append(topics, desc.Topic)
	}
	return topics
}

// Resolve checks the row against its descriptor and decodes the payload.
// Every failure here is non-retryable: the row itself is malformed.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	resolved, err := r.resolve(event)
	if err != nil {
		return nil, NewNonRetryableError(err)
	}
	return resolved, nil
}

func (r *EventRegistry) resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	switch {
	case !ok:
		return nil, fmt.Errorf("unsupported event type %s", event.EventType)
	case desc.AggregateType != event.AggregateType:
		return nil, fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return nil, errors.New("missing aggregate_id")
	}

	out := &ResolvedEvent{Descriptor: desc, Payload: desc.PayloadFactory()}
	if err := json.Unmarshal(event.Payload, &out.Envelope); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if data := bytes.TrimSpace(out.Envelope.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, fmt.Errorf("payload missing for %s", event.EventType)
	}
	if err := json.Unmarshal(out.Envelope.Data, out.Payload); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", event.EventType, err)
	}
	return out, nil
}
