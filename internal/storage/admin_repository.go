package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pocketbroker/internal/models"
	"github.com/pocketbroker/internal/querybuild"
)

// AdminRepository serves the joined listings of the admin surface
type AdminRepository struct {
	db *PostgresDB
}

// NewAdminRepository creates a new admin repository
func NewAdminRepository(db *PostgresDB) *AdminRepository {
	return &AdminRepository{db: db}
}

// RecentTransactions returns the newest transactions with the owner's email, if any
func (r *AdminRepository) RecentTransactions(ctx context.Context, page Page) ([]*models.TransactionWithUser, error) {
	query := `
		SELECT ` + joinedTransactionColumns + `
		FROM transactions t
		LEFT JOIN users u ON u.id = t.user_id
		LEFT JOIN auth_users a ON a.email = u.email
		ORDER BY t.timestamp DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Pool().Query(ctx, query, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent transactions: %w", err)
	}
	return collectJoinedTransactions(rows)
}

// RecentUsers returns users newest first
func (r *AdminRepository) RecentUsers(ctx context.Context, page Page) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.db.Pool().Query(ctx, query, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent users: %w", err)
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// SubscriptionsWithUser returns subscriptions newest first with the owner's
// email. A zero Limit returns every subscription.
func (r *AdminRepository) SubscriptionsWithUser(ctx context.Context, limit int) ([]*models.SubscriptionWithUser, error) {
	query := `
		SELECT s.id, s.user_id, s.stripe_customer_id, s.stripe_subscription_id, s.plan, s.status,
			s.current_period_end, s.created_at, s.updated_at, u.email
		FROM subscriptions s
		LEFT JOIN users u ON u.id = s.user_id
		ORDER BY s.created_at DESC
	`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := r.db.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	subs := make([]*models.SubscriptionWithUser, 0)
	for rows.Next() {
		var s models.SubscriptionWithUser
		if err := rows.Scan(
			&s.ID,
			&s.UserID,
			&s.StripeCustomerID,
			&s.StripeSubscriptionID,
			&s.Plan,
			&s.Status,
			&s.CurrentPeriodEnd,
			&s.CreatedAt,
			&s.UpdatedAt,
			&s.UserEmail,
		); err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, &s)
	}
	return subs, rows.Err()
}

// transactionSortColumns maps admin sort fields to qualified columns
var transactionSortColumns = map[TransactionSortField]querybuild.Column{
	SortByTimestamp: "t.timestamp",
	SortByAmountIn:  "t.amount_in",
	SortByAmountOut: "t.amount_out",
	SortByGasFee:    "t.gas_fee",
}

// ListTransactions returns one page of the filtered admin transaction listing and the
// total number of matching rows
func (r *AdminRepository) ListTransactions(ctx context.Context, filter AdminTransactionFilter) ([]*models.TransactionWithUser, int64, error) {
	b := querybuild.NewBuilder(
		"t.status", "t.user_id", "t.tx_hash", "t.token_in", "t.token_out",
		"t.timestamp", "t.amount_in", "t.amount_out", "t.gas_fee",
	)
	if filter.Status != nil {
		b.Where(querybuild.Equals("t.status", *filter.Status))
	}
	if filter.UserID != nil {
		b.Where(querybuild.Equals("t.user_id", *filter.UserID))
	}
	if len(filter.UserIDs) > 0 {
		b.Where(querybuild.InSet("t.user_id", filter.UserIDs))
	}
	if filter.TokenSymbol != "" {
		b.Where(querybuild.Like(filter.TokenSymbol, "t.token_in", "t.token_out"))
	}
	if filter.Search != "" {
		b.Where(querybuild.Like(filter.Search, "t.tx_hash", "t.token_in", "t.token_out"))
	}
	b.Where(querybuild.Range("t.timestamp", filter.StartDate, filter.EndDate))

	col, ok := transactionSortColumns[filter.SortBy]
	if !ok {
		col = transactionSortColumns[SortByTimestamp]
	}
	dir := querybuild.Desc
	if filter.Ascending {
		dir = querybuild.Asc
	}
	b.OrderBy(col, dir)

	q, err := b.Build(1)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build transaction query: %w", err)
	}

	from := `
		FROM transactions t
		INNER JOIN users u ON u.id = t.user_id
		LEFT JOIN auth_users a ON a.email = u.email
	`

	var total int64
	countArgs := append([]interface{}(nil), q.Args...)
	if err := r.db.Pool().QueryRow(ctx, `SELECT COUNT(*) `+from+q.Where, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	limit := q.Placeholder(filter.Limit)
	offset := q.Placeholder(filter.Offset)
	query := fmt.Sprintf("SELECT %s %s %s %s LIMIT %s OFFSET %s",
		joinedTransactionColumns, from, q.Where, q.OrderBy, limit, offset)

	rows, err := r.db.Pool().Query(ctx, query, q.Args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	txs, err := collectJoinedTransactions(rows)
	if err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}

// ListUserListings returns one page of auth identities joined with their
// application user and trading totals, plus the number of matching identities
func (r *AdminRepository) ListUserListings(ctx context.Context, filter AdminUserFilter) ([]*models.UserListing, int64, error) {
	b := querybuild.NewBuilder("a.role", "u.premium_tier", "a.email", "u.wallet_address", "a.created_at")
	if filter.Role != nil {
		b.Where(querybuild.Equals("a.role", *filter.Role))
	}
	if filter.PremiumTier != nil {
		b.Where(querybuild.Equals("u.premium_tier", *filter.PremiumTier))
	}
	if filter.Search != "" {
		b.Where(querybuild.Like(filter.Search, "a.email", "u.wallet_address"))
	}
	b.OrderBy("a.created_at", querybuild.Desc)

	q, err := b.Build(1)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build user listing query: %w", err)
	}

	from := `
		FROM auth_users a
		LEFT JOIN users u ON u.email = a.email
	`

	var total int64
	countArgs := append([]interface{}(nil), q.Args...)
	if err := r.db.Pool().QueryRow(ctx, `SELECT COUNT(DISTINCT a.id) `+from+q.Where, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count user listings: %w", err)
	}

	limit := q.Placeholder(filter.Limit)
	offset := q.Placeholder(filter.Offset)
	query := fmt.Sprintf(`
		SELECT a.id, a.name, a.email, u.wallet_address,
			COALESCE(a.role, 'user'), COALESCE(u.premium_tier, 'free'), a.created_at,
			COUNT(t.id), COALESCE(SUM(t.amount_out), 0)
		%s
		LEFT JOIN transactions t ON t.user_id = u.id
		%s
		GROUP BY a.id, a.name, a.email, u.wallet_address, a.role, u.premium_tier, a.created_at
		%s
		LIMIT %s OFFSET %s`,
		from, q.Where, q.OrderBy, limit, offset)

	rows, err := r.db.Pool().Query(ctx, query, q.Args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	listings, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.UserListing, error) {
		var l models.UserListing
		err := row.Scan(
			&l.ID,
			&l.Name,
			&l.Email,
			&l.WalletAddress,
			&l.Role,
			&l.PremiumTier,
			&l.CreatedAt,
			&l.TransactionCount,
			&l.TotalVolume,
		)
		return &l, err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to scan user listings: %w", err)
	}
	return listings, total, nil
}
