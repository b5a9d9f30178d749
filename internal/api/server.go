// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pocketbroker/internal/config"
	"github.com/pocketbroker/internal/logging"
	"github.com/pocketbroker/internal/market"
	"github.com/pocketbroker/internal/models"
	"github.com/pocketbroker/internal/service"
	"github.com/pocketbroker/internal/storage"
	"github.com/pocketbroker/internal/swap"
)

// Service interfaces for dependency injection and testing

// UserServiceInterface defines the user CRUD operations
type UserServiceInterface interface {
	Create(ctx context.Context, input *service.CreateUserInput) (*models.User, error)
	Get(ctx context.Context, id int64) (*models.User, error)
	GetByWallet(ctx context.Context, walletAddress string) (*models.User, error)
	List(ctx context.Context, filter storage.UserFilter) ([]*models.User, error)
	Update(ctx context.Context, id int64, input *service.UpdateUserInput) (*models.User, error)
	Delete(ctx context.Context, id int64) (*models.User, error)
}

// TransactionServiceInterface defines the transaction CRUD operations
type TransactionServiceInterface interface {
	Create(ctx context.Context, input *service.CreateTransactionInput) (*models.Transaction, error)
	Get(ctx context.Context, id int64) (*models.Transaction, error)
	GetByHash(ctx context.Context, txHash string) (*models.Transaction, error)
	List(ctx context.Context, filter storage.TransactionFilter) ([]*models.Transaction, error)
	Update(ctx context.Context, id int64, input *service.UpdateTransactionInput) (*models.Transaction, error)
	Delete(ctx context.Context, id int64) (*models.Transaction, error)
}

// PortfolioServiceInterface defines the portfolio CRUD operations
type PortfolioServiceInterface interface {
	Create(ctx context.Context, input *service.CreatePortfolioInput) (*models.Portfolio, error)
	Get(ctx context.Context, id int64) (*models.Portfolio, error)
	List(ctx context.Context, filter storage.PortfolioFilter) ([]*models.Portfolio, error)
	Update(ctx context.Context, id int64, input *service.UpdatePortfolioInput) (*models.Portfolio, error)
	Delete(ctx context.Context, id int64) (*models.Portfolio, error)
}

// WatchlistServiceInterface defines the watchlist CRUD operations
type WatchlistServiceInterface interface {
	Create(ctx context.Context, input *service.CreateWatchlistInput) (*models.Watchlist, error)
	Get(ctx context.Context, id int64) (*models.Watchlist, error)
	List(ctx context.Context, filter storage.WatchlistFilter) ([]*models.Watchlist, error)
	Update(ctx context.Context, id int64, input *service.UpdateWatchlistInput) (*models.Watchlist, error)
	Delete(ctx context.Context, id int64) (*models.Watchlist, error)
}

// PriceAlertServiceInterface defines the price alert CRUD operations
type PriceAlertServiceInterface interface {
	Create(ctx context.Context, input *service.CreatePriceAlertInput) (*models.PriceAlert, error)
	Get(ctx context.Context, id int64) (*models.PriceAlert, error)
	List(ctx context.Context, filter storage.PriceAlertFilter) ([]*models.PriceAlert, error)
	Update(ctx context.Context, id int64, input *service.UpdatePriceAlertInput) (*models.PriceAlert, error)
	Delete(ctx context.Context, id int64) (*models.PriceAlert, error)
}

// SubscriptionServiceInterface defines the subscription CRUD operations
type SubscriptionServiceInterface interface {
	Create(ctx context.Context, input *service.CreateSubscriptionInput) (*models.Subscription, error)
	Get(ctx context.Context, id int64) (*models.Subscription, error)
	GetByStripeCustomer(ctx context.Context, customerID string) (*models.Subscription, error)
	GetByStripeSubscription(ctx context.Context, subscriptionID string) (*models.Subscription, error)
	List(ctx context.Context, filter storage.SubscriptionFilter) ([]*models.Subscription, error)
	Update(ctx context.Context, id int64, input *service.UpdateSubscriptionInput) (*models.Subscription, error)
	Delete(ctx context.Context, id int64) (*models.Subscription, error)
}

// AdminServiceInterface defines the admin listings and platform stats
type AdminServiceInterface interface {
	Stats(ctx context.Context) (*service.PlatformStats, error)
	Users(ctx context.Context, page int) (*service.UserPage, error)
	Transactions(ctx context.Context, page int) (*service.TransactionPage, error)
	Subscriptions(ctx context.Context) (*service.SubscriptionList, error)
	UserListings(ctx context.Context, filter storage.AdminUserFilter, page, limit int) (*service.UserListingPage, error)
	TransactionListings(ctx context.Context, q service.TransactionListingQuery) (*service.TransactionListingPage, error)
	RecentActivity(ctx context.Context) ([]service.Activity, error)
}

// AnalyticsServiceInterface builds the admin analytics report
type AnalyticsServiceInterface interface {
	Report(ctx context.Context) (*service.AnalyticsReport, error)
}

// AlertsServiceInterface builds the failed/suspicious transaction report
type AlertsServiceInterface interface {
	Report(ctx context.Context) (*service.AlertsReport, error)
}

// MarketServiceInterface serves cached market data
type MarketServiceInterface interface {
	Stats(ctx context.Context) (*market.Stats, error)
	Trending(ctx context.Context) ([]market.TrendingToken, error)
	Movers(ctx context.Context) (*market.Movers, error)
}

// QuoterInterface prices swaps
type QuoterInterface interface {
	Quote(ctx context.Context, req *swap.QuoteRequest, requestID string) (*swap.Quote, error)
}

// HealthChecker reports whether a dependency is reachable
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Services bundles everything the server dispatches to
type Services struct {
	Users         UserServiceInterface
	Transactions  TransactionServiceInterface
	Portfolios    PortfolioServiceInterface
	Watchlists    WatchlistServiceInterface
	PriceAlerts   PriceAlertServiceInterface
	Subscriptions SubscriptionServiceInterface
	Admin         AdminServiceInterface
	Analytics     AnalyticsServiceInterface
	Alerts        AlertsServiceInterface
	Market        MarketServiceInterface
	Quoter        QuoterInterface
	Auth          Authenticator

	// Metrics is optional; when set, requests are observed and /metrics served
	Metrics interface {
		RequestObserver
		Handler() http.Handler
	}
	// Checks are pinged by /health
	Checks map[string]HealthChecker
}

// Server represents the HTTP API server.
type Server struct {
	router     *mux.Router
	handler    http.Handler
	httpServer *http.Server
	svc        Services
	auth       Authenticator
	limiter    *RateLimiter
	config     *config.ServerConfig
}

// NewServer creates a new API server instance.
func NewServer(cfg *config.ServerConfig, rl *config.RateLimitConfig, svc Services) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		svc:     svc,
		auth:    svc.Auth,
		limiter: NewRateLimiter(float64(rl.RequestsPerSecond), rl.Burst),
		config:  cfg,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	// Set up middleware (order matters!)
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	if s.svc.Metrics != nil {
		s.router.Use(MetricsMiddleware(s.svc.Metrics))
	}
	s.router.Use(RateLimitMiddleware(s.limiter))

	s.setupRoutes()

	// CORS wraps the router so preflight requests never reach route matching
	s.handler = CORSMiddleware(s.config.AllowedOrigins)(s.router)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if s.svc.Metrics != nil {
		s.router.Handle("/metrics", s.svc.Metrics.Handler()).Methods(http.MethodGet)
	}

	api := s.router.PathPrefix("/api").Subrouter()

	crud := func(path string, get, create, update, del http.HandlerFunc) {
		api.HandleFunc(path, get).Methods(http.MethodGet)
		api.HandleFunc(path, create).Methods(http.MethodPost)
		api.HandleFunc(path, update).Methods(http.MethodPut)
		api.HandleFunc(path, del).Methods(http.MethodDelete)
	}
	crud("/users", s.handleGetUsers, s.handleCreateUser, s.handleUpdateUser, s.handleDeleteUser)
	crud("/transactions", s.handleGetTransactions, s.handleCreateTransaction, s.handleUpdateTransaction, s.handleDeleteTransaction)
	crud("/portfolios", s.handleGetPortfolios, s.handleCreatePortfolio, s.handleUpdatePortfolio, s.handleDeletePortfolio)
	crud("/watchlists", s.handleGetWatchlists, s.handleCreateWatchlist, s.handleUpdateWatchlist, s.handleDeleteWatchlist)
	crud("/price-alerts", s.handleGetPriceAlerts, s.handleCreatePriceAlert, s.handleUpdatePriceAlert, s.handleDeletePriceAlert)
	crud("/subscriptions", s.handleGetSubscriptions, s.handleCreateSubscription, s.handleUpdateSubscription, s.handleDeleteSubscription)

	api.HandleFunc("/market/stats", s.handleMarketStats).Methods(http.MethodGet)
	api.HandleFunc("/market/trending", s.handleMarketTrending).Methods(http.MethodGet)
	api.HandleFunc("/market/movers", s.handleMarketMovers).Methods(http.MethodGet)

	api.HandleFunc("/swap/quote", s.handleSwapQuote).Methods(http.MethodPost)
	api.HandleFunc("/swap/quote", s.handleSwapQuoteGet).Methods(http.MethodGet)

	// Admin endpoints, all behind one admin session check
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(s.requireAdmin)
	admin.HandleFunc("/analytics", s.handleAdminAnalytics).Methods(http.MethodGet)
	admin.HandleFunc("/alerts", s.handleAdminAlerts).Methods(http.MethodGet)
	admin.HandleFunc("/stats", s.handleAdminStats).Methods(http.MethodGet)
	admin.HandleFunc("/recent-activity", s.handleAdminRecentActivity).Methods(http.MethodGet)
	admin.HandleFunc("/subscriptions", s.handleAdminSubscriptions).Methods(http.MethodGet)
	admin.HandleFunc("/users", s.handleAdminUsers).Methods(http.MethodGet)
	admin.HandleFunc("/users/list", s.handleAdminUserListing).Methods(http.MethodGet)
	admin.HandleFunc("/users-management", s.handleAdminUserListing).Methods(http.MethodGet)
	admin.HandleFunc("/transactions", s.handleAdminTransactions).Methods(http.MethodGet)
	admin.HandleFunc("/transactions/list", s.handleAdminTransactionListing).Methods(http.MethodGet)
	admin.HandleFunc("/transactions-management", s.handleAdminTransactionListing).Methods(http.MethodGet)
}

// handleHealth reports liveness and the reachability of each dependency
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(s.svc.Checks))
	for name, checker := range s.svc.Checks {
		if err := checker.Ping(ctx); err != nil {
			logging.FromContext(ctx).WithError(err).WithField("dependency", name).Warn("Health check failed")
			checks[name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	state := "healthy"
	if status != http.StatusOK {
		state = "degraded"
	}
	respondJSON(w, status, map[string]interface{}{
		"status":  state,
		"service": "pocketbroker",
		"checks":  checks,
	})
}

// Handler returns the fully wrapped HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	logging.Infof("Starting API server on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// SweepRateLimiter drops idle client buckets until ctx is done
func (s *Server) SweepRateLimiter(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.limiter.Sweep(); n > 0 {
				logging.GetGlobalLogger().WithField("removed", n).Debug("Swept idle rate limit buckets")
			}
		}
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down API server...")
	return s.httpServer.Shutdown(ctx)
}
