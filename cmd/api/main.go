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
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tapify/tapify-backend/api/routes"
	"github.com/tapify/tapify-backend/internal/commission"
	"github.com/tapify/tapify-backend/internal/payouts"
	"github.com/tapify/tapify-backend/pkg/auth/session"
	"github.com/tapify/tapify-backend/pkg/config"
	"github.com/tapify/tapify-backend/pkg/db"
	"github.com/tapify/tapify-backend/pkg/disbursement"
	"github.com/tapify/tapify-backend/pkg/instance"
	"github.com/tapify/tapify-backend/pkg/logger"
	"github.com/tapify/tapify-backend/pkg/metrics"
	"github.com/tapify/tapify-backend/pkg/migrate"
	"github.com/tapify/tapify-backend/pkg/outbox"
	"github.com/tapify/tapify-backend/pkg/redis"
)

const (
	shutdownTimeout = 15 * time.Second
	// the lock must outlive the provider call it guards
	guardTTLMargin = 30 * time.Second
)

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
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	var sessions session.AccessSessionChecker
	if cfg.FeatureFlags.RequireSession {
		checker, err := session.NewChecker(redisClient)
		if err != nil {
			logg.Error(context.Background(), "failed to create session checker", err)
			os.Exit(1)
		}
		sessions = checker
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	payoutMetrics := metrics.NewPayoutMetrics(registry)

	disburser, err := disbursement.NewClient(
		cfg.Disbursement.BaseURL,
		cfg.Disbursement.APIKey,
		disbursement.WithExecutePath(cfg.Disbursement.ExecutePath),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create disbursement client", err)
		os.Exit(1)
	}

	guard, err := payouts.NewRedisGuard(redisClient, cfg.Payouts.TriggerTimeout+guardTTLMargin, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payout trigger guard", err)
		os.Exit(1)
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	payoutService, err := payouts.NewService(payouts.ServiceParams{
		Repo:      payouts.NewRepository(dbClient.DB()),
		Disburser: disburser,
		Guard:     guard,
		Tx:        dbClient,
		Outbox:    outboxService,
		Metrics:   payoutMetrics,
		Logger:    logg,
		Config: payouts.Config{
			RecentOrderLimit: cfg.Payouts.RecentOrderLimit,
			TriggerTimeout:   cfg.Payouts.TriggerTimeout,
			BatchConcurrency: cfg.Payouts.BatchConcurrency,
			MaxBatchSize:     cfg.Payouts.MaxBatchSize,
		},
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payouts service", err)
		os.Exit(1)
	}

	commissionService, err := commission.NewService(commission.NewRepository(dbClient.DB()), dbClient, outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create commission service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx := logg.WithFields(runCtx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.ID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			sessions,
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
			payoutService,
			commissionService,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-runCtx.Done():
		logg.Info(ctx, "api server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}
}
