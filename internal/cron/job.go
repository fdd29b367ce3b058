package cron

import (
	"context"

	"gorm.io/gorm"
)

// Job is one maintenance task run on every cycle.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}
