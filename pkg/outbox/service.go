package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/ironmonger/hardware-backend/pkg/db/models"
	"github.com/ironmonger/hardware-backend/pkg/logger"
)

// Emitter is the surface domain services use to queue events inside their
// own transaction.
type Emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error
}

type inserter interface {
	Insert(tx *gorm.DB, event models.OutboxEvent) error
}

type Service struct {
	repo inserter
	logg *logger.Logger
}

// NewService accepts a nil logger.
func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg}
}

// Emit inserts the event through tx, so the row commits or rolls back with
// the state change it describes. It never opens its own transaction.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if err := event.validate(); err != nil {
		return err
	}

	env, err := event.seal(time.Now().UTC())
	if err != nil {
		return err
	}
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}

	if err := s.repo.Insert(tx, models.OutboxEvent{
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       body,
	}); err != nil {
		return err
	}

	if s.logg != nil && ctx != nil {
		s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
			"event_id":     env.EventID,
			"event_type":   event.EventType,
			"aggregate_id": event.AggregateID.String(),
		}), "outbox event queued")
	}
	return nil
}
