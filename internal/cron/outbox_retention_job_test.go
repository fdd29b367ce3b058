package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"
)

func TestOutboxRetentionJobUsesCutoffAndTerminalAttempts(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	repo := &fakeOutboxRetentionRepo{}
	job := newOutboxRetentionJob(t, repo, OutboxRetentionJobParams{Retention: 7, TerminalAttempts: 4})
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC); !repo.lastCutoff.Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, repo.lastCutoff)
	}
	if repo.terminalAttempts != 4 {
		t.Fatalf("expected terminal attempts 4, got %d", repo.terminalAttempts)
	}
	if repo.called != 1 {
		t.Fatalf("expected repo called once, got %d", repo.called)
	}
}

func TestOutboxRetentionJobDefaults(t *testing.T) {
	job := newOutboxRetentionJob(t, &fakeOutboxRetentionRepo{}, OutboxRetentionJobParams{})
	if job.retention != outboxRetentionDays || job.terminalAttempts != outboxTerminalAttempts {
		t.Fatalf("unexpected defaults retention=%d terminal=%d", job.retention, job.terminalAttempts)
	}
	if job.Name() != "outbox-retention" {
		t.Fatalf("unexpected name %q", job.Name())
	}
}

func TestOutboxRetentionJobPropagatesError(t *testing.T) {
	job := newOutboxRetentionJob(t, &fakeOutboxRetentionRepo{err: errors.New("boom")}, OutboxRetentionJobParams{})
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func newOutboxRetentionJob(t *testing.T, repo *fakeOutboxRetentionRepo, params OutboxRetentionJobParams) *outboxRetentionJob {
	t.Helper()
	params.Logger = testLogger()
	params.DB = passthroughTx{}
	params.Repository = repo
	jobIface, err := NewOutboxRetentionJob(params)
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}
	job, ok := jobIface.(*outboxRetentionJob)
	if !ok {
		t.Fatalf("expected outboxRetentionJob, got %T", jobIface)
	}
	return job
}

type fakeOutboxRetentionRepo struct {
	lastCutoff       time.Time
	terminalAttempts int
	called           int
	err              error
}

func (f *fakeOutboxRetentionRepo) DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, terminalAttempts int) (int64, error) {
	f.called++
	f.lastCutoff = cutoff
	f.terminalAttempts = terminalAttempts
	if f.err != nil {
		return 0, f.err
	}
	return 7, nil
}

type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}
