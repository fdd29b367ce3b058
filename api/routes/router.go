package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ironmonger/hardware-backend/api/controllers"
	"github.com/ironmonger/hardware-backend/api/middleware"
	"github.com/ironmonger/hardware-backend/internal/address"
	"github.com/ironmonger/hardware-backend/internal/auth"
	"github.com/ironmonger/hardware-backend/internal/cart"
	"github.com/ironmonger/hardware-backend/internal/deliveries"
	"github.com/ironmonger/hardware-backend/internal/orders"
	"github.com/ironmonger/hardware-backend/internal/products"
	"github.com/ironmonger/hardware-backend/internal/reviews"
	"github.com/ironmonger/hardware-backend/pkg/auth/session"
	"github.com/ironmonger/hardware-backend/pkg/config"
	"github.com/ironmonger/hardware-backend/pkg/db"
	"github.com/ironmonger/hardware-backend/pkg/enums"
	"github.com/ironmonger/hardware-backend/pkg/logger"
	"github.com/ironmonger/hardware-backend/pkg/metrics"
	pkgredis "github.com/ironmonger/hardware-backend/pkg/redis"
)

// CacheStore is the Redis surface the HTTP layer needs: idempotency records,
// auth rate limiting and the readiness ping.
type CacheStore interface {
	pkgredis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	Ping(ctx context.Context) error
}

// Services bundles the domain services exposed over HTTP.
type Services struct {
	Auth       auth.Service
	Catalog    products.Service
	Inventory  controllers.InventoryService
	Cart       cart.Service
	Addresses  address.Service
	Reviews    reviews.Service
	Orders     orders.Service
	Deliveries deliveries.Service
}

// Observability carries the optional Prometheus wiring. A nil Gatherer
// leaves /metrics unmounted.
type Observability struct {
	Gatherer    prometheus.Gatherer
	HTTPMetrics *metrics.HTTPMetrics
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	cache CacheStore,
	sessions session.AccessSessionChecker,
	svc Services,
	obs Observability,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(logg),
		middleware.Logging(logg, obs.HTTPMetrics),
		middleware.Recoverer(logg),
		middleware.CORS(cfg.App.AllowedOrigins()),
	)

	var limiter middleware.RateLimiter
	var idem pkgredis.IdempotencyStore
	var redisPinger controllers.Pinger
	if cache != nil {
		limiter, idem, redisPinger = cache, cache, cache
	}
	var dbPinger controllers.Pinger
	if dbP != nil {
		dbPinger = dbP
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbPinger, redisPinger))
	})

	if obs.Gatherer != nil && cfg.Metrics.Enabled {
		r.Method(http.MethodGet, cfg.Metrics.Path, promhttp.HandlerFor(obs.Gatherer, promhttp.HandlerOpts{}))
	}

	authn := middleware.Auth(cfg.JWT, sessions, logg)
	admin := middleware.RequireRole(logg, enums.UserRoleAdmin)
	customer := middleware.RequireRole(logg, enums.UserRoleCustomer)
	courier := middleware.RequireRole(logg, enums.UserRoleDelivery)
	// keys are scoped per caller, so this must run after authn wherever a
	// route is authenticated
	idempotent := middleware.Idempotency(idem, logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(middleware.RegisterRateLimitPolicy(cfg.RateLimit), limiter, logg), idempotent).
				Post("/register", controllers.AuthRegister(svc.Auth, logg))
			r.With(middleware.AuthRateLimit(middleware.LoginRateLimitPolicy(cfg.RateLimit), limiter, logg)).
				Post("/login", controllers.AuthLogin(svc.Auth, logg))
			r.Post("/refresh", controllers.AuthRefresh(svc.Auth, logg))
			r.With(authn).Post("/logout", controllers.AuthLogout(svc.Auth, logg))
			r.With(authn).Get("/me", controllers.AuthMe(svc.Auth, logg))
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", controllers.CategoryList(svc.Catalog, logg))
			r.Group(func(r chi.Router) {
				r.Use(authn, admin)
				r.Post("/", controllers.CategoryCreate(svc.Catalog, logg))
				r.Put("/{id}", controllers.CategoryUpdate(svc.Catalog, logg))
				r.Delete("/{id}", controllers.CategoryDelete(svc.Catalog, logg))
			})
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(svc.Catalog, logg))
			r.Get("/{id}", controllers.ProductGet(svc.Catalog, logg))
			r.Get("/{id}/reviews", controllers.ReviewList(svc.Reviews, logg))
			r.With(authn, customer).Post("/{id}/reviews", controllers.ReviewUpsert(svc.Reviews, logg))
			r.Group(func(r chi.Router) {
				r.Use(authn, admin)
				r.Post("/", controllers.ProductCreate(svc.Catalog, logg))
				r.Put("/{id}", controllers.ProductUpdate(svc.Catalog, logg))
				r.Delete("/{id}", controllers.ProductDelete(svc.Catalog, logg))
			})
		})

		r.With(authn).Delete("/reviews/{id}", controllers.ReviewDelete(svc.Reviews, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Use(authn)
			r.Get("/", controllers.CartGet(svc.Cart, logg))
			r.Post("/", controllers.CartAddItem(svc.Cart, logg))
			r.Put("/items/{itemId}", controllers.CartUpdateItem(svc.Cart, logg))
			r.Delete("/items/{itemId}", controllers.CartRemoveItem(svc.Cart, logg))
			r.Delete("/clear", controllers.CartClear(svc.Cart, logg))
		})

		r.Route("/addresses", func(r chi.Router) {
			r.Use(authn)
			r.Get("/", controllers.AddressList(svc.Addresses, logg))
			r.Post("/", controllers.AddressCreate(svc.Addresses, logg))
			r.Put("/{id}", controllers.AddressUpdate(svc.Addresses, logg))
			r.Delete("/{id}", controllers.AddressDelete(svc.Addresses, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(authn)
			r.With(customer, idempotent).Post("/", controllers.OrderPlace(svc.Orders, logg))
			r.Get("/", controllers.OrderList(svc.Orders, logg))
			r.Get("/{id}", controllers.OrderGet(svc.Orders, logg))
			r.With(admin).Put("/{id}/status", controllers.OrderUpdateStatus(svc.Orders, logg))
			r.Put("/{id}/payment", controllers.OrderSetPayment(svc.Orders, logg))
		})

		r.Route("/deliveries", func(r chi.Router) {
			r.Use(authn)
			r.With(middleware.RequireRole(logg, enums.UserRoleAdmin, enums.UserRoleDelivery)).
				Get("/", controllers.DeliveryList(svc.Deliveries, logg))
			r.With(admin).Post("/assign", controllers.DeliveryAssign(svc.Deliveries, logg))
			r.With(courier).Put("/{orderId}/status", controllers.DeliveryUpdateStatus(svc.Deliveries, logg))
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Use(authn, admin)
			r.With(idempotent).Post("/update", controllers.InventoryUpdate(svc.Inventory, logg))
			r.Get("/logs", controllers.InventoryLogs(svc.Inventory, logg))
		})
	})

	return r
}
