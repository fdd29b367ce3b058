package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ironmonger/hardware-backend/pkg/logger"
	"github.com/ironmonger/hardware-backend/pkg/metrics"
)

const defaultInterval = time.Hour

type ServiceParams struct {
	Logger   *logger.Logger
	Jobs     []Job
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	Interval time.Duration
}

// Service runs the maintenance jobs on a fixed cadence. Only the replica
// holding the lock does work in a given cycle.
type Service struct {
	logg     *logger.Logger
	jobs     []Job
	lock     Lock
	metrics  *metrics.CronJobMetrics
	interval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Lock == nil {
		return nil, errors.New("lock required")
	}
	jobs := make([]Job, 0, len(params.Jobs))
	for _, job := range params.Jobs {
		if job != nil {
			jobs = append(jobs, job)
		}
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		logg:     params.Logger,
		jobs:     jobs,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: interval,
	}, nil
}

// Run executes a cycle immediately and then once per interval until ctx ends.
func (s *Service) Run(ctx context.Context) error {
	s.runCycle(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron service context canceled")
			return ctx.Err()
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

// runCycle reports how many jobs ran; zero when another replica holds the lock.
func (s *Service) runCycle(ctx context.Context) int {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		s.logg.Error(ctx, "scheduled run failed", fmt.Errorf("lock acquire: %w", err))
		return 0
	}
	if !locked {
		s.logg.Info(ctx, "another cron instance holds the lock; skipping cycle")
		return 0
	}
	defer func() {
		if relErr := s.lock.Release(ctx); relErr != nil {
			s.logg.Error(ctx, "failed to release cron lock", relErr)
		}
	}()

	for _, job := range s.jobs {
		s.runJob(ctx, job)
	}
	return len(s.jobs)
}

func (s *Service) runJob(ctx context.Context, job Job) {
	jobCtx := s.logg.WithFields(ctx, map[string]any{"job": job.Name(), "event": "cron.job"})
	start := time.Now()
	err := job.Run(jobCtx)
	elapsed := time.Since(start)
	s.metrics.ObserveDuration(job.Name(), elapsed)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", elapsed.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		s.metrics.IncFailure(job.Name())
		return
	}
	s.logg.Info(jobCtx, "job completed")
	s.metrics.IncSuccess(job.Name())
}
