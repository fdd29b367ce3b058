package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/ironmonger/hardware-backend/internal/cron"
	"github.com/ironmonger/hardware-backend/internal/inventory"
	"github.com/ironmonger/hardware-backend/pkg/config"
	"github.com/ironmonger/hardware-backend/pkg/db"
	"github.com/ironmonger/hardware-backend/pkg/logger"
	"github.com/ironmonger/hardware-backend/pkg/metrics"
	"github.com/ironmonger/hardware-backend/pkg/migrate"
	"github.com/ironmonger/hardware-backend/pkg/outbox"
	"github.com/ironmonger/hardware-backend/pkg/redis"
)

const lockKeyFormat = "hardware:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	if err := run(cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(context.Background(), "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(context.Background(), "cron worker shutting down gracefully")
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		return err
	}

	cronMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:           logg,
		DB:               dbClient,
		Repository:       outbox.NewRepository(dbClient.DB()),
		Retention:        cfg.Cron.OutboxRetentionDays,
		TerminalAttempts: cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		return err
	}
	reconcile, err := cron.NewStockReconcileJob(cron.StockReconcileJobParams{
		Logger:     logg,
		Repository: inventory.NewRepository(dbClient.DB()),
		Metrics:    cronMetrics,
	})
	if err != nil {
		return err
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Jobs:     []cron.Job{retention, reconcile},
		Lock:     lock,
		Metrics:  cronMetrics,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		return err
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": "cron-worker",
		"interval":    cfg.Cron.Interval.String(),
	})
	logg.Info(ctx, "starting cron worker")
	return service.Run(ctx)
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
