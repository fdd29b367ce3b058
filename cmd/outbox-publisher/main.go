package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/ironmonger/hardware-backend/pkg/config"
	"github.com/ironmonger/hardware-backend/pkg/db"
	"github.com/ironmonger/hardware-backend/pkg/kafka"
	"github.com/ironmonger/hardware-backend/pkg/logger"
	"github.com/ironmonger/hardware-backend/pkg/metrics"
	"github.com/ironmonger/hardware-backend/pkg/migrate"
	"github.com/ironmonger/hardware-backend/pkg/outbox"
	"github.com/ironmonger/hardware-backend/pkg/outbox/registry"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "outbox-publisher"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "outbox-publisher",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	if err := run(cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(context.Background(), "outbox publisher stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(context.Background(), "outbox publisher shutting down gracefully")
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

	kafkaClient, err := kafka.New(cfg.Kafka, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, kafkaClient.Close()) }()

	events := registry.NewEventRegistry(cfg.Kafka)
	if cfg.Kafka.CreateTopics {
		spec := kafka.TopicSpec{Partitions: cfg.Kafka.TopicPartitions, ReplicationFactor: cfg.Kafka.ReplicationFactor}
		if err := kafkaClient.EnsureTopics(ctx, spec, events.Topics()...); err != nil {
			return err
		}
	}

	reg := prometheus.NewRegistry()
	service, err := NewService(ServiceParams{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		Publisher:     kafkaClient,
		Repository:    outbox.NewRepository(dbClient.DB()),
		Registry:      events,
		DLQRepository: outbox.NewDLQRepository(dbClient.DB()),
		Metrics:       metrics.NewOutboxMetrics(reg),
	})
	if err != nil {
		return err
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": "outbox-publisher",
		"brokers":     cfg.Kafka.BrokerList(),
	})
	logg.Info(ctx, "starting outbox publisher")

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return service.Run(groupCtx)
	})
	if cfg.Metrics.Enabled {
		mux := chi.NewRouter()
		mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		server := &http.Server{Addr: ":" + cfg.App.Port, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		group.Go(func() error {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		group.Go(func() error {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}
	return group.Wait()
}
