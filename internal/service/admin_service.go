package service

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/pocketbroker/internal/errors"
	"github.com/pocketbroker/internal/models"
	"github.com/pocketbroker/internal/storage"
	"golang.org/x/sync/errgroup"
)

// Admin listing sizes
const (
	AdminPageLimit       = 50
	RecentPerSource      = 10
	RecentActivityLimit  = 20
	CodeInvalidPageParam = "INVALID_PAGE_PARAMETER"
)

// AdminReader runs the joined admin listing queries
type AdminReader interface {
	RecentTransactions(ctx context.Context, page storage.Page) ([]*models.TransactionWithUser, error)
	RecentUsers(ctx context.Context, page storage.Page) ([]*models.User, error)
	SubscriptionsWithUser(ctx context.Context, limit int) ([]*models.SubscriptionWithUser, error)
	ListTransactions(ctx context.Context, filter storage.AdminTransactionFilter) ([]*models.TransactionWithUser, int64, error)
	ListUserListings(ctx context.Context, filter storage.AdminUserFilter) ([]*models.UserListing, int64, error)
}

// StatsReader runs the platform counters
type StatsReader interface {
	CountUsers(ctx context.Context) (int64, error)
	CountTransactions(ctx context.Context) (int64, error)
	TransactionVolume(ctx context.Context) (float64, error)
	CountActiveSubscriptions(ctx context.Context) (int64, error)
	CountPremiumUsers(ctx context.Context) (int64, error)
	CountRows(ctx context.Context, table string) (int64, error)
}

// WalletResolver maps a wallet address to the users holding it
type WalletResolver interface {
	FindIDsByWallet(ctx context.Context, walletAddress string) ([]int64, error)
}

// AdminService backs the admin dashboard listings
type AdminService struct {
	admin   AdminReader
	stats   StatsReader
	wallets WalletResolver
}

// NewAdminService creates a new admin service
func NewAdminService(admin AdminReader, stats StatsReader, wallets WalletResolver) *AdminService {
	return &AdminService{admin: admin, stats: stats, wallets: wallets}
}

// PlatformStats are the entity totals on the admin overview
type PlatformStats struct {
	TotalUsers             int64   `json:"totalUsers"`
	TotalTransactions      int64   `json:"totalTransactions"`
	TotalTransactionVolume float64 `json:"totalTransactionVolume"`
	ActiveSubscriptions    int64   `json:"activeSubscriptions"`
	PremiumUsers           int64   `json:"premiumUsers"`
	TotalPortfolios        int64   `json:"totalPortfolios"`
	TotalWatchlists        int64   `json:"totalWatchlists"`
	TotalPriceAlerts       int64   `json:"totalPriceAlerts"`
}

// Stats runs the platform counters concurrently
func (s *AdminService) Stats(ctx context.Context) (*PlatformStats, error) {
	var st PlatformStats

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		st.TotalUsers, err = s.stats.CountUsers(gctx)
		return err
	})
	g.Go(func() (err error) {
		st.TotalTransactions, err = s.stats.CountTransactions(gctx)
		return err
	})
	g.Go(func() (err error) {
		st.TotalTransactionVolume, err = s.stats.TransactionVolume(gctx)
		return err
	})
	g.Go(func() (err error) {
		st.ActiveSubscriptions, err = s.stats.CountActiveSubscriptions(gctx)
		return err
	})
	g.Go(func() (err error) {
		st.PremiumUsers, err = s.stats.CountPremiumUsers(gctx)
		return err
	})
	g.Go(func() (err error) {
		st.TotalPortfolios, err = s.stats.CountRows(gctx, "portfolios")
		return err
	})
	g.Go(func() (err error) {
		st.TotalWatchlists, err = s.stats.CountRows(gctx, "watchlists")
		return err
	})
	g.Go(func() (err error) {
		st.TotalPriceAlerts, err = s.stats.CountRows(gctx, "price_alerts")
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, errors.NewDatabaseError("platform stats", err)
	}
	return &st, nil
}

// ParsePageParam validates the page query parameter of the fixed-size admin
// listings. An empty value selects page 1.
func ParsePageParam(raw string) (int, error) {
	if raw == "" {
		return 1, nil
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 0, errors.NewValidationError(CodeInvalidPageParam, "Invalid page parameter. Must be a positive integer.")
	}
	return page, nil
}

// UserPage is one page of the admin user listing
type UserPage struct {
	Users      []*models.User `json:"users"`
	Pagination Pagination     `json:"pagination"`
}

// Users returns users newest first, AdminPageLimit per page
func (s *AdminService) Users(ctx context.Context, page int) (*UserPage, error) {
	var (
		users []*models.User
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		users, err = s.admin.RecentUsers(gctx, storage.Page{Limit: AdminPageLimit, Offset: Offset(page, AdminPageLimit)})
		return err
	})
	g.Go(func() (err error) {
		total, err = s.stats.CountUsers(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, errors.NewDatabaseError("admin users", err)
	}
	return &UserPage{Users: users, Pagination: NewPagination(page, AdminPageLimit, total)}, nil
}

// TransactionPage is one page of joined transactions
type TransactionPage struct {
	Transactions []*models.TransactionWithUser `json:"transactions"`
	Pagination   Pagination                    `json:"pagination"`
}

// Transactions returns transactions newest first, AdminPageLimit per page
func (s *AdminService) Transactions(ctx context.Context, page int) (*TransactionPage, error) {
	var (
		txs   []*models.TransactionWithUser
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		txs, err = s.admin.RecentTransactions(gctx, storage.Page{Limit: AdminPageLimit, Offset: Offset(page, AdminPageLimit)})
		return err
	})
	g.Go(func() (err error) {
		total, err = s.stats.CountTransactions(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, errors.NewDatabaseError("admin transactions", err)
	}
	return &TransactionPage{Transactions: txs, Pagination: NewPagination(page, AdminPageLimit, total)}, nil
}

// SubscriptionList is every subscription with its owner email
type SubscriptionList struct {
	Subscriptions []*models.SubscriptionWithUser `json:"subscriptions"`
	Total         int                            `json:"total"`
}

func (s *AdminService) Subscriptions(ctx context.Context) (*SubscriptionList, error) {
	subs, err := s.admin.SubscriptionsWithUser(ctx, 0)
	if err != nil {
		return nil, errors.NewDatabaseError("admin subscriptions", err)
	}
	return &SubscriptionList{Subscriptions: subs, Total: len(subs)}, nil
}

// UserListingPage is one page of the admin user management listing
type UserListingPage struct {
	Users      []*models.UserListing `json:"users"`
	Pagination Pagination            `json:"pagination"`
}

// UserListings returns auth identities with their trading totals. page and
// limit are normalized first.
func (s *AdminService) UserListings(ctx context.Context, filter storage.AdminUserFilter, page, limit int) (*UserListingPage, error) {
	page, limit = NormalizePage(page, limit)
	filter.Page = storage.Page{Limit: limit, Offset: Offset(page, limit)}

	users, total, err := s.admin.ListUserListings(ctx, filter)
	if err != nil {
		return nil, errors.NewDatabaseError("list user listings", err)
	}
	return &UserListingPage{Users: users, Pagination: NewPagination(page, limit, total)}, nil
}

// TransactionListingQuery is a filtered admin transaction listing request
type TransactionListingQuery struct {
	Filter        storage.AdminTransactionFilter
	WalletAddress string
	Page          int
	Limit         int
}

// TransactionListingPage is one page of reshaped transactions
type TransactionListingPage struct {
	Transactions []TransactionView `json:"transactions"`
	Pagination   Pagination        `json:"pagination"`
}

// TransactionListings returns filtered transactions with owner blocks. A
// wallet address that matches no user yields an empty page without querying
// transactions.
func (s *AdminService) TransactionListings(ctx context.Context, q TransactionListingQuery) (*TransactionListingPage, error) {
	page, limit := NormalizePage(q.Page, q.Limit)
	filter := q.Filter
	filter.Page = storage.Page{Limit: limit, Offset: Offset(page, limit)}
	if filter.SortBy == "" {
		filter.SortBy = storage.SortByTimestamp
	}

	if q.WalletAddress != "" {
		ids, err := s.wallets.FindIDsByWallet(ctx, q.WalletAddress)
		if err != nil {
			return nil, errors.NewDatabaseError("resolve wallet", err)
		}
		if len(ids) == 0 {
			return &TransactionListingPage{
				Transactions: []TransactionView{},
				Pagination:   NewPagination(page, limit, 0),
			}, nil
		}
		filter.UserIDs = ids
	}

	txs, total, err := s.admin.ListTransactions(ctx, filter)
	if err != nil {
		return nil, errors.NewDatabaseError("list transactions", err)
	}

	views := make([]TransactionView, 0, len(txs))
	for _, tx := range txs {
		views = append(views, transactionView(tx, "", "Unknown User"))
	}
	return &TransactionListingPage{Transactions: views, Pagination: NewPagination(page, limit, total)}, nil
}

// Activity kinds
const (
	ActivityTransaction     = "transaction"
	ActivityNewUser         = "new_user"
	ActivityNewSubscription = "new_subscription"
)

// Activity is one entry of the admin activity feed
type Activity struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	UserID    int64                  `json:"userId"`
	UserEmail string                 `json:"userEmail"`
	Details   map[string]interface{} `json:"details"`
}

// RecentActivity merges the latest transactions, signups and subscriptions
// into one feed, newest first
func (s *AdminService) RecentActivity(ctx context.Context) ([]Activity, error) {
	var (
		txs   []*models.TransactionWithUser
		users []*models.User
		subs  []*models.SubscriptionWithUser
	)
	recent := storage.Page{Limit: RecentPerSource}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		txs, err = s.admin.RecentTransactions(gctx, recent)
		return err
	})
	g.Go(func() (err error) {
		users, err = s.admin.RecentUsers(gctx, recent)
		return err
	})
	g.Go(func() (err error) {
		subs, err = s.admin.SubscriptionsWithUser(gctx, RecentPerSource)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, errors.NewDatabaseError("recent activity", err)
	}

	activities := make([]Activity, 0, len(txs)+len(users)+len(subs))
	for _, tx := range txs {
		activities = append(activities, Activity{
			ID:        "transaction-" + strconv.FormatInt(tx.ID, 10),
			Type:      ActivityTransaction,
			Timestamp: tx.Timestamp,
			UserID:    tx.UserID,
			UserEmail: deref(tx.UserEmail),
			Details: map[string]interface{}{
				"txHash":          tx.TxHash,
				"transactionType": tx.Type,
				"tokenIn":         tx.TokenIn,
				"tokenOut":        tx.TokenOut,
				"amountOut":       tx.AmountOut,
				"status":          tx.Status,
			},
		})
	}
	for _, u := range users {
		activities = append(activities, Activity{
			ID:        "user-" + strconv.FormatInt(u.ID, 10),
			Type:      ActivityNewUser,
			Timestamp: u.CreatedAt,
			UserID:    u.ID,
			UserEmail: u.Email,
			Details: map[string]interface{}{
				"email":    u.Email,
				"joinedAt": u.CreatedAt,
			},
		})
	}
	for _, sub := range subs {
		activities = append(activities, Activity{
			ID:        "subscription-" + strconv.FormatInt(sub.ID, 10),
			Type:      ActivityNewSubscription,
			Timestamp: sub.CreatedAt,
			UserID:    sub.UserID,
			UserEmail: deref(sub.UserEmail),
			Details: map[string]interface{}{
				"plan":   sub.Plan,
				"status": sub.Status,
			},
		})
	}

	sort.SliceStable(activities, func(i, j int) bool {
		return activities[i].Timestamp.After(activities[j].Timestamp)
	})
	if len(activities) > RecentActivityLimit {
		activities = activities[:RecentActivityLimit]
	}
	return activities, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
