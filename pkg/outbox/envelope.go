package outbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ironmonger/hardware-backend/pkg/enums"
)

// CurrentVersion is stamped on envelopes that do not set one.
const CurrentVersion = 1

type ActorRef struct {
	UserID uuid.UUID      `json:"userId"`
	Role   enums.UserRole `json:"role,omitempty"`
}

// PayloadEnvelope is the JSON stored in outbox_events.payload and sent to
// Kafka unchanged. Consumers dedupe on EventID.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// DomainEvent is what services hand to Emit. Data is any JSON-encodable
// payload from the payloads package.
type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Actor         *ActorRef
	Data          any
	Version       int
	OccurredAt    time.Time
}

func (e DomainEvent) validate() error {
	switch {
	case !e.EventType.IsValid():
		return fmt.Errorf("invalid event type %q", e.EventType)
	case !e.AggregateType.IsValid():
		return fmt.Errorf("invalid aggregate type %q", e.AggregateType)
	case e.AggregateID == uuid.Nil:
		return errors.New("aggregate id required")
	}
	return nil
}

// seal wraps the event data in a fresh envelope with a new event id.
func (e DomainEvent) seal(now time.Time) (PayloadEnvelope, error) {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return PayloadEnvelope{}, fmt.Errorf("encode %s payload: %w", e.EventType, err)
	}
	env := PayloadEnvelope{
		Version:    e.Version,
		EventID:    uuid.NewString(),
		OccurredAt: e.OccurredAt,
		Actor:      e.Actor,
		Data:       data,
	}
	if env.Version <= 0 {
		env.Version = CurrentVersion
	}
	if env.OccurredAt.IsZero() {
		env.OccurredAt = now
	}
	return env, nil
}
