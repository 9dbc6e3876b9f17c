package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	httpAdapter "github.com/iho/ledgercal/internal/adapter/http"
	"github.com/iho/ledgercal/internal/adapter/http/handler"
	"github.com/iho/ledgercal/internal/adapter/http/middleware"
	memoryRepo "github.com/iho/ledgercal/internal/adapter/repository/memory"
	postgresRepo "github.com/iho/ledgercal/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/ledgercal/internal/adapter/repository/redis"
	"github.com/iho/ledgercal/internal/infrastructure/config"
	"github.com/iho/ledgercal/internal/infrastructure/logger"
	"github.com/iho/ledgercal/internal/infrastructure/metrics"
	"github.com/iho/ledgercal/internal/infrastructure/postgres"
	"github.com/iho/ledgercal/internal/infrastructure/redis"
	"github.com/iho/ledgercal/internal/infrastructure/refresher"
	"github.com/iho/ledgercal/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Str("time_zone", cfg.TimeZone).Msg("failed to load time zone")
	}

	tolerance, err := decimal.NewFromString(cfg.ReconcileTolerance)
	if err != nil {
		log.Fatal().Err(err).Str("tolerance", cfg.ReconcileTolerance).Msg("invalid reconcile tolerance")
	}

	ctx := context.Background()
	m := metrics.New()
	checks := map[string]handler.Pinger{}

	// Snapshot source
	var source usecase.SnapshotSource
	switch cfg.DataSource {
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to postgres")
		}
		defer pool.Close()
		log.Info().Msg("connected to postgres")

		if err := postgres.RunMigrations(log, cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}

		source = postgresRepo.NewSnapshotSource(pool, log, m)
		checks["postgres"] = pool.Ping
	case "memory":
		accounts, transactions := memoryRepo.SeedFixture()
		source = memoryRepo.NewSnapshotSource(accounts, transactions)
		log.Info().Int("accounts", len(accounts)).Int("transactions", len(transactions)).
			Msg("using in-memory snapshot source")
	default:
		log.Fatal().Str("data_source", cfg.DataSource).Msg("unknown data source")
	}

	// Optional Redis summary cache
	var cache usecase.Cache
	if cfg.RedisURL != "" {
		redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		log.Info().Msg("connected to redis")

		cache = redisRepo.NewCache(redisClient)
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}

	// Load the initial snapshot so the first request does not pay for it.
	if _, err := source.Latest(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to load initial snapshot")
	}

	queryUC := usecase.NewQueryService(usecase.QueryServiceConfig{
		Source:    source,
		Cache:     cache,
		Location:  loc,
		Tolerance: tolerance,
		CacheTTL:  cfg.SummaryCacheTTL,
		Logger:    log,
		Metrics:   m,
	})

	rateLimiter := middleware.NewRateLimiter(cfg.HTTPRateLimit, cfg.HTTPRateBurst)

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		AccountHandler:  handler.NewAccountHandler(queryUC),
		CalendarHandler: handler.NewCalendarHandler(queryUC),
		LedgerHandler:   handler.NewLedgerHandler(queryUC),
		HealthHandler:   handler.NewHealthHandler(checks),
		RateLimiter:     rateLimiter,
		Logger:          log,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	refreshCtx, stopRefresh := context.WithCancel(ctx)
	defer stopRefresh()

	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-refreshCtx.Done():
				return
			case <-ticker.C:
				rateLimiter.CleanupLimiters(time.Hour)
			}
		}
	}()

	go func() {
		r := refresher.New(refresher.Config{
			Source:   source,
			Logger:   log,
			Interval: cfg.SnapshotRefreshInterval,
		})
		if err := r.Start(refreshCtx); err != nil {
			log.Error().Err(err).Msg("snapshot refresher stopped")
		}
	}()

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")
	stopRefresh()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
