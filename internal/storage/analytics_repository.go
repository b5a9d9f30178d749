package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pocketbroker/internal/models"
	"github.com/pocketbroker/internal/types"
)

// AnalyticsRepository runs the read-only aggregate queries behind the admin reports
type AnalyticsRepository struct {
	db *PostgresDB
}

// NewAnalyticsRepository creates a new analytics repository
func NewAnalyticsRepository(db *PostgresDB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

func (r *AnalyticsRepository) count(ctx context.Context, query string, args ...interface{}) (int64, error) {
	var n int64
	if err := r.db.Pool().QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// CountUsers returns the number of application users
func (r *AnalyticsRepository) CountUsers(ctx context.Context) (int64, error) {
	n, err := r.count(ctx, `SELECT COUNT(*) FROM users`)
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

// CountActiveUsersSince returns the number of distinct users with a transaction at or after since
func (r *AnalyticsRepository) CountActiveUsersSince(ctx context.Context, since time.Time) (int64, error) {
	n, err := r.count(ctx, `SELECT COUNT(DISTINCT user_id) FROM transactions WHERE timestamp >= $1`, since)
	if err != nil {
		return 0, fmt.Errorf("failed to count active users: %w", err)
	}
	return n, nil
}

// TransactionTotals returns count, volume, averages and gas totals over all transactions
func (r *AnalyticsRepository) TransactionTotals(ctx context.Context) (*models.TransactionTotals, error) {
	query := `
		SELECT COUNT(*),
			COALESCE(SUM(amount_out), 0),
			COALESCE(AVG(amount_out), 0),
			COALESCE(AVG(gas_fee), 0),
			COALESCE(SUM(gas_fee), 0)
		FROM transactions
	`

	var t models.TransactionTotals
	if err := r.db.Pool().QueryRow(ctx, query).Scan(
		&t.Count,
		&t.Volume,
		&t.AverageValue,
		&t.AverageGas,
		&t.TotalGas,
	); err != nil {
		return nil, fmt.Errorf("failed to aggregate transactions: %w", err)
	}
	return &t, nil
}

// StatusCounts returns the number of transactions in each status
func (r *AnalyticsRepository) StatusCounts(ctx context.Context) (*models.StatusCounts, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = $1),
			COUNT(*) FILTER (WHERE status = $2),
			COUNT(*) FILTER (WHERE status = $3)
		FROM transactions
	`

	var c models.StatusCounts
	if err := r.db.Pool().QueryRow(ctx, query,
		types.StatusPending, types.StatusConfirmed, types.StatusFailed,
	).Scan(&c.Pending, &c.Confirmed, &c.Failed); err != nil {
		return nil, fmt.Errorf("failed to count transaction statuses: %w", err)
	}
	return &c, nil
}

// TokenInActivity groups transactions by token_in, summing amount_in
func (r *AnalyticsRepository) TokenInActivity(ctx context.Context) ([]models.TokenActivity, error) {
	return r.tokenActivity(ctx, `
		SELECT token_in, COUNT(*), COALESCE(SUM(amount_in), 0)
		FROM transactions
		WHERE token_in IS NOT NULL
		GROUP BY token_in
	`)
}

// TokenOutActivity groups transactions by token_out, summing amount_out
func (r *AnalyticsRepository) TokenOutActivity(ctx context.Context) ([]models.TokenActivity, error) {
	return r.tokenActivity(ctx, `
		SELECT token_out, COUNT(*), COALESCE(SUM(amount_out), 0)
		FROM transactions
		WHERE token_out IS NOT NULL
		GROUP BY token_out
	`)
}

func (r *AnalyticsRepository) tokenActivity(ctx context.Context, query string) ([]models.TokenActivity, error) {
	rows, err := r.db.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate token activity: %w", err)
	}

	activity, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.TokenActivity, error) {
		var a models.TokenActivity
		err := row.Scan(&a.Token, &a.Count, &a.Volume)
		return a, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan token activity: %w", err)
	}
	return activity, nil
}

// DailyVolumeSince returns volume and count per calendar date (UTC), newest first
func (r *AnalyticsRepository) DailyVolumeSince(ctx context.Context, since time.Time) ([]models.DailyVolume, error) {
	query := `
		SELECT to_char(timestamp AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day,
			COALESCE(SUM(amount_out), 0),
			COUNT(*)
		FROM transactions
		WHERE timestamp >= $1
		GROUP BY day
		ORDER BY day DESC
	`

	rows, err := r.db.Pool().Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate daily volume: %w", err)
	}

	days, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.DailyVolume, error) {
		var d models.DailyVolume
		err := row.Scan(&d.Date, &d.Volume, &d.Count)
		return d, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan daily volume: %w", err)
	}
	return days, nil
}

// DailySignupsSince returns new users per calendar date (UTC), newest first
func (r *AnalyticsRepository) DailySignupsSince(ctx context.Context, since time.Time) ([]models.DailySignups, error) {
	query := `
		SELECT to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, COUNT(*)
		FROM users
		WHERE created_at >= $1
		GROUP BY day
		ORDER BY day DESC
	`

	rows, err := r.db.Pool().Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate user growth: %w", err)
	}

	days, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.DailySignups, error) {
		var d models.DailySignups
		err := row.Scan(&d.Date, &d.NewUsers)
		return d, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan user growth: %w", err)
	}
	return days, nil
}

// CountTransactions returns the number of transactions
func (r *AnalyticsRepository) CountTransactions(ctx context.Context) (int64, error) {
	n, err := r.count(ctx, `SELECT COUNT(*) FROM transactions`)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return n, nil
}

// TransactionVolume returns the sum of amount_out over all transactions
func (r *AnalyticsRepository) TransactionVolume(ctx context.Context) (float64, error) {
	var v float64
	if err := r.db.Pool().QueryRow(ctx, `SELECT COALESCE(SUM(amount_out), 0) FROM transactions`).Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to sum transaction volume: %w", err)
	}
	return v, nil
}

// CountActiveSubscriptions returns the number of subscriptions in status active
func (r *AnalyticsRepository) CountActiveSubscriptions(ctx context.Context) (int64, error) {
	n, err := r.count(ctx, `SELECT COUNT(*) FROM subscriptions WHERE status = $1`, types.SubscriptionActive)
	if err != nil {
		return 0, fmt.Errorf("failed to count active subscriptions: %w", err)
	}
	return n, nil
}

// CountPremiumUsers returns the number of users on a tier other than free
func (r *AnalyticsRepository) CountPremiumUsers(ctx context.Context) (int64, error) {
	n, err := r.count(ctx, `SELECT COUNT(*) FROM users WHERE premium_tier <> $1`, types.TierFree)
	if err != nil {
		return 0, fmt.Errorf("failed to count premium users: %w", err)
	}
	return n, nil
}

var countableTables = map[string]bool{"portfolios": true, "watchlists": true, "price_alerts": true}

// CountRows returns the number of rows in one of portfolios, watchlists or price_alerts
func (r *AnalyticsRepository) CountRows(ctx context.Context, table string) (int64, error) {
	if !countableTables[table] {
		return 0, fmt.Errorf("count not supported for table %q", table)
	}
	n, err := r.count(ctx, `SELECT COUNT(*) FROM `+table)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}

// SuspicionThresholds bound the gas fee and input amount above which a live
// transaction is flagged
type SuspicionThresholds struct {
	GasFee float64
	Amount float64
}

const suspiciousCondition = `(COALESCE(t.gas_fee, 0) > $1 OR COALESCE(t.amount_in, 0) > $2) AND t.status IN ('confirmed', 'pending')`

// joinedTransactionColumns selects a transaction with owner fields from users u and auth_users a
const joinedTransactionColumns = `t.id, t.user_id, t.portfolio_id, t.tx_hash, t.type, t.token_in, t.token_out,
	t.amount_in, t.amount_out, t.gas_fee, t.status, t.timestamp, t.created_at,
	u.email, u.wallet_address, a.name`

func scanJoinedTransaction(row pgx.Row) (*models.TransactionWithUser, error) {
	var tx models.TransactionWithUser
	err := row.Scan(
		&tx.ID,
		&tx.UserID,
		&tx.PortfolioID,
		&tx.TxHash,
		&tx.Type,
		&tx.TokenIn,
		&tx.TokenOut,
		&tx.AmountIn,
		&tx.AmountOut,
		&tx.GasFee,
		&tx.Status,
		&tx.Timestamp,
		&tx.CreatedAt,
		&tx.UserEmail,
		&tx.UserWalletAddress,
		&tx.UserName,
	)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func collectJoinedTransactions(rows pgx.Rows) ([]*models.TransactionWithUser, error) {
	defer rows.Close()

	txs := make([]*models.TransactionWithUser, 0)
	for rows.Next() {
		tx, err := scanJoinedTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return txs, nil
}

// FailedTransactions returns the newest failed transactions with owner details
func (r *AnalyticsRepository) FailedTransactions(ctx context.Context, limit int) ([]*models.TransactionWithUser, error) {
	query := `
		SELECT ` + joinedTransactionColumns + `
		FROM transactions t
		INNER JOIN users u ON u.id = t.user_id
		LEFT JOIN auth_users a ON a.email = u.email
		WHERE t.status = 'failed'
		ORDER BY t.timestamp DESC
		LIMIT $1
	`

	rows, err := r.db.Pool().Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list failed transactions: %w", err)
	}
	return collectJoinedTransactions(rows)
}

// SuspiciousTransactions returns the newest live transactions above either threshold
func (r *AnalyticsRepository) SuspiciousTransactions(ctx context.Context, th SuspicionThresholds, limit int) ([]*models.TransactionWithUser, error) {
	query := `
		SELECT ` + joinedTransactionColumns + `
		FROM transactions t
		INNER JOIN users u ON u.id = t.user_id
		LEFT JOIN auth_users a ON a.email = u.email
		WHERE ` + suspiciousCondition + `
		ORDER BY t.timestamp DESC
		LIMIT $3
	`

	rows, err := r.db.Pool().Query(ctx, query, th.GasFee, th.Amount, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list suspicious transactions: %w", err)
	}
	return collectJoinedTransactions(rows)
}

// CountFailed counts failed transactions, optionally only those at or after since
func (r *AnalyticsRepository) CountFailed(ctx context.Context, since *time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM transactions t WHERE t.status = 'failed'`
	args := []interface{}{}
	if since != nil {
		query += ` AND t.timestamp >= $1`
		args = append(args, *since)
	}

	n, err := r.count(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to count failed transactions: %w", err)
	}
	return n, nil
}

// CountSuspicious counts suspicious transactions, optionally only those at or after since
func (r *AnalyticsRepository) CountSuspicious(ctx context.Context, th SuspicionThresholds, since *time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM transactions t WHERE ` + suspiciousCondition
	args := []interface{}{th.GasFee, th.Amount}
	if since != nil {
		query += ` AND t.timestamp >= $3`
		args = append(args, *since)
	}

	n, err := r.count(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to count suspicious transactions: %w", err)
	}
	return n, nil
}
