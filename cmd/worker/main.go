// Package main provides the price alert worker entry point for the PocketBroker backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pocketbroker/internal/config"
	"github.com/pocketbroker/internal/logging"
	"github.com/pocketbroker/internal/market"
	"github.com/pocketbroker/internal/metrics"
	"github.com/pocketbroker/internal/notify"
	"github.com/pocketbroker/internal/ratelimit"
	"github.com/pocketbroker/internal/storage"
	"github.com/pocketbroker/internal/worker"
)

func main() {
	fmt.Println("PocketBroker Alert Worker")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logging.InitGlobalLogger(logging.ParseLogLevel(cfg.Logging.Level), logging.ParseLogFormat(cfg.Logging.Format))
	logger := logging.GetGlobalLogger().WithComponent("worker")

	logger.Info("Connecting to databases...")

	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

	// Redis is optional here too: the worker shares the API's coin cache
	// and draws from the shared pool of the call budget.
	var (
		cache  *storage.CacheService
		budget *ratelimit.Budget
	)
	redisCache, err := storage.NewRedisCache(&cfg.Database.Redis)
	if err != nil {
		logger.WithError(err).Warn("Redis unavailable, continuing without cache or call budget")
	} else {
		defer redisCache.Close()
		cache = storage.NewCacheService(redisCache, cfg.Cache.TTL)
		if cfg.Market.CallsPerMinute > 0 {
			budget, err = ratelimit.NewBudget(&ratelimit.BudgetConfig{
				Redis:          redisCache.Client(),
				TotalBudget:    cfg.Market.CallsPerMinute,
				ReservedBudget: cfg.Market.ReservedCalls,
			})
			if err != nil {
				logger.WithError(err).Fatal("Invalid market call budget")
			}
		}
	}

	logger.Info("Database connections established")

	m := metrics.New()

	client := market.NewClient(&cfg.Market)
	if budget != nil {
		client.WithBudget(budget)
	}
	markets := market.NewService(client, cache, &cfg.Market, m)

	if cfg.Email.ResendAPIKey == "" {
		logger.Warn("RESEND_API_KEY not set, alert emails will be logged only")
	}

	evaluator := worker.NewAlertEvaluator(
		storage.NewPriceAlertRepository(postgres),
		markets,
		notify.New(&cfg.Email),
		m,
	)

	scheduler, err := worker.NewScheduler(evaluator, cfg.Worker.Schedule, cfg.Worker.RunTimeout)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create scheduler")
	}

	var metricsServer *http.Server
	if cfg.Worker.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		metricsServer = &http.Server{Addr: cfg.Worker.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.WithError(err).Error("Metrics listener failed")
			}
		}()
		logger.WithField("addr", cfg.Worker.MetricsAddr).Info("Metrics listener started")
	}

	// First pass right away so a restart does not delay alerts by a full period
	scheduler.RunNow()
	scheduler.Start()

	logger.WithField("schedule", cfg.Worker.Schedule).Info("Worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := scheduler.Stop(ctx); err != nil {
		logger.WithError(err).Error("Scheduler did not stop cleanly")
	}
	if metricsServer != nil {
		_ = metricsServer.Shutdown(ctx)
	}

	logger.Info("Worker stopped")
}
