package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ironmonger/hardware-backend/pkg/logger"
)

const (
	outboxRetentionDays    = 30
	outboxTerminalAttempts = 10
	outboxRetentionJobName = "outbox-retention"
)

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository outboxRetentionRepo
	// Retention is in days.
	Retention int
	// TerminalAttempts matches the publisher's max attempts so dead-lettered
	// rows are pruned along with published ones.
	TerminalAttempts int
}

type outboxRetentionRepo interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, terminalAttempts int) (int64, error)
}

type outboxRetentionJob struct {
	logg             *logger.Logger
	db               txRunner
	repo             outboxRetentionRepo
	retention        int
	terminalAttempts int
	now              func() time.Time
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.DB == nil {
		return nil, errors.New("db runner required")
	}
	if params.Repository == nil {
		return nil, errors.New("outbox repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = outboxRetentionDays
	}
	terminal := params.TerminalAttempts
	if terminal <= 0 {
		terminal = outboxTerminalAttempts
	}
	return &outboxRetentionJob{
		logg:             params.Logger,
		db:               params.DB,
		repo:             params.Repository,
		retention:        retention,
		terminalAttempts: terminal,
		now:              time.Now,
	}, nil
}

func (j *outboxRetentionJob) Name() string { return outboxRetentionJobName }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().AddDate(0, 0, -j.retention)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.repo.DeletePublishedBefore(ctx, tx, cutoff, j.terminalAttempts)
		deleted = rows
		return err
	})
	if err != nil {
		return fmt.Errorf("outbox retention: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"rows_deleted":   deleted,
	}), "outbox retention cleanup complete")
	return nil
}
