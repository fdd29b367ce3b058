package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/ironmonger/hardware-backend/api/routes"
	"github.com/ironmonger/hardware-backend/internal/address"
	"github.com/ironmonger/hardware-backend/internal/auth"
	"github.com/ironmonger/hardware-backend/internal/cart"
	"github.com/ironmonger/hardware-backend/internal/deliveries"
	"github.com/ironmonger/hardware-backend/internal/inventory"
	"github.com/ironmonger/hardware-backend/internal/orders"
	"github.com/ironmonger/hardware-backend/internal/products"
	"github.com/ironmonger/hardware-backend/internal/reviews"
	"github.com/ironmonger/hardware-backend/internal/users"
	"github.com/ironmonger/hardware-backend/pkg/auth/session"
	"github.com/ironmonger/hardware-backend/pkg/config"
	"github.com/ironmonger/hardware-backend/pkg/db"
	"github.com/ironmonger/hardware-backend/pkg/logger"
	"github.com/ironmonger/hardware-backend/pkg/metrics"
	"github.com/ironmonger/hardware-backend/pkg/migrate"
	"github.com/ironmonger/hardware-backend/pkg/outbox"
	"github.com/ironmonger/hardware-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
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

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	ledgerMetrics := metrics.NewLedgerMetrics(registry)

	services, err := buildServices(cfg, logg, dbClient, sessionManager, ledgerMetrics)
	if err != nil {
		return err
	}

	port := os.Getenv(config.EnvPort)
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, sessionManager, services, routes.Observability{
			Gatherer:    registry,
			HTTPMetrics: metrics.NewHTTPMetrics(registry),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logCtx := logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "addr": addr})
	logg.Info(logCtx, "starting api server")

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logg.Info(logCtx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return group.Wait()
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, sessions *session.Manager, ledgerMetrics *metrics.LedgerMetrics) (routes.Services, error) {
	conn := dbClient.DB()
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       users.NewRepository(conn),
		SessionManager: sessions,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return routes.Services{}, err
	}

	inventoryService, err := inventory.NewService(inventory.ServiceParams{
		Repo:    inventory.NewRepository(conn),
		Tx:      dbClient,
		Outbox:  emitter,
		Metrics: ledgerMetrics,
		Logger:  logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	catalogService, err := products.NewService(products.NewRepository(conn), dbClient, inventoryService)
	if err != nil {
		return routes.Services{}, err
	}

	cartService, err := cart.NewService(cart.NewRepository(conn), dbClient)
	if err != nil {
		return routes.Services{}, err
	}

	addressService, err := address.NewService(address.NewRepository(conn), dbClient)
	if err != nil {
		return routes.Services{}, err
	}

	reviewService, err := reviews.NewService(reviews.NewRepository(conn))
	if err != nil {
		return routes.Services{}, err
	}

	orderService, err := orders.NewService(orders.ServiceParams{
		Repo:    orders.NewRepository(conn),
		Tx:      dbClient,
		Ledger:  inventoryService,
		Outbox:  emitter,
		Metrics: ledgerMetrics,
		Logger:  logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	deliveryService, err := deliveries.NewService(deliveries.ServiceParams{
		Repo:    deliveries.NewRepository(conn),
		Tx:      dbClient,
		Outbox:  emitter,
		Metrics: ledgerMetrics,
		Logger:  logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Auth:       authService,
		Catalog:    catalogService,
		Inventory:  inventoryService,
		Cart:       cartService,
		Addresses:  addressService,
		Reviews:    reviewService,
		Orders:     orderService,
		Deliveries: deliveryService,
	}, nil
}
