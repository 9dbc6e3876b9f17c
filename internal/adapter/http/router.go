package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/ledgercal/internal/adapter/http/handler"
	"github.com/iho/ledgercal/internal/adapter/http/middleware"
)

// RouterConfig holds dependencies for the router. RateLimiter is
// optional; nil disables per-IP limiting.
type RouterConfig struct {
	AccountHandler  *handler.AccountHandler
	CalendarHandler *handler.CalendarHandler
	LedgerHandler   *handler.LedgerHandler
	HealthHandler   *handler.HealthHandler
	RateLimiter     *middleware.RateLimiter
	Logger          zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Metrics)
	r.Use(middleware.Recovery)
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health and metrics endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/networth", cfg.LedgerHandler.NetWorth)

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", cfg.AccountHandler.List)
			r.Get("/{id}/balance", cfg.AccountHandler.Balance)
		})

		r.Route("/calendar", func(r chi.Router) {
			r.Get("/day/{date}", cfg.CalendarHandler.Day)
			r.Get("/month/{month}", cfg.CalendarHandler.Month)
		})

		r.Route("/ledger", func(r chi.Router) {
			r.Get("/verify", cfg.LedgerHandler.Verify)
		})

		r.Route("/snapshot", func(r chi.Router) {
			r.Get("/", cfg.LedgerHandler.Snapshot)
			r.Post("/refresh", cfg.LedgerHandler.Refresh)
		})
	})

	return r
}
