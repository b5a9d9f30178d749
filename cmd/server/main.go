// Package main provides the API server entry point for the PocketBroker backend.
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

	"github.com/pocketbroker/internal/api"
	"github.com/pocketbroker/internal/auth"
	"github.com/pocketbroker/internal/config"
	"github.com/pocketbroker/internal/logging"
	"github.com/pocketbroker/internal/market"
	"github.com/pocketbroker/internal/metrics"
	"github.com/pocketbroker/internal/ratelimit"
	"github.com/pocketbroker/internal/service"
	"github.com/pocketbroker/internal/storage"
	"github.com/pocketbroker/internal/swap"
)

func main() {
	fmt.Println("PocketBroker API Server")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	logging.InitGlobalLogger(logging.ParseLogLevel(cfg.Logging.Level), logging.ParseLogFormat(cfg.Logging.Format))
	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	logger.Info("Connecting to databases...")

	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

	checks := map[string]api.HealthChecker{"postgres": postgres}

	// Redis backs the market cache and the shared call budget. Without it
	// the market endpoints call CoinGecko directly.
	var (
		cache  *storage.CacheService
		budget *ratelimit.Budget
	)
	redisCache, err := storage.NewRedisCache(&cfg.Database.Redis)
	if err != nil {
		logger.WithError(err).Warn("Redis unavailable, market data will not be cached")
	} else {
		defer redisCache.Close()
		checks["redis"] = redisCache
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

	var recorder swap.QuoteRecorder = swap.NopRecorder{}
	if cfg.Database.ClickHouse.Enabled {
		clickhouse, err := storage.NewClickHouseDB(&cfg.Database.ClickHouse)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to ClickHouse")
		}
		defer clickhouse.Close()
		checks["clickhouse"] = clickhouse
		recorder = storage.NewQuoteEventStore(clickhouse)
	}

	logger.Info("Database connections established")

	// Initialize repositories
	userRepo := storage.NewUserRepository(postgres)
	txRepo := storage.NewTransactionRepository(postgres)
	portfolioRepo := storage.NewPortfolioRepository(postgres)
	watchlistRepo := storage.NewWatchlistRepository(postgres)
	alertRepo := storage.NewPriceAlertRepository(postgres)
	subscriptionRepo := storage.NewSubscriptionRepository(postgres)
	adminRepo := storage.NewAdminRepository(postgres)
	analyticsRepo := storage.NewAnalyticsRepository(postgres)
	authRepo := storage.NewAuthRepository(postgres)

	// Initialize services
	logger.Info("Initializing services...")

	m := metrics.New()

	client := market.NewClient(&cfg.Market)
	if budget != nil {
		client.WithBudget(budget)
	}
	marketService := market.NewService(client, cache, &cfg.Market, m)

	thresholds := storage.SuspicionThresholds{
		GasFee: cfg.Alerts.GasFeeThreshold,
		Amount: cfg.Alerts.AmountThreshold,
	}

	server := api.NewServer(&cfg.Server, &cfg.RateLimit, api.Services{
		Users:         service.NewUserService(userRepo),
		Transactions:  service.NewTransactionService(txRepo, userRepo, portfolioRepo),
		Portfolios:    service.NewPortfolioService(portfolioRepo),
		Watchlists:    service.NewWatchlistService(watchlistRepo),
		PriceAlerts:   service.NewPriceAlertService(alertRepo),
		Subscriptions: service.NewSubscriptionService(subscriptionRepo),
		Admin:         service.NewAdminService(adminRepo, analyticsRepo, userRepo),
		Analytics:     service.NewAnalyticsService(analyticsRepo),
		Alerts:        service.NewAlertsService(analyticsRepo, thresholds),
		Market:        marketService,
		Quoter:        swap.NewQuoter(recorder),
		Auth:          auth.NewAuthenticator(authRepo),
		Metrics:       m,
		Checks:        checks,
	})

	logger.Info("Services initialized")

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go server.SweepRateLimiter(sweepCtx, time.Minute)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	logger.WithFields(map[string]interface{}{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Server started successfully")

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
		return
	}

	logger.Info("Server exited")
}
