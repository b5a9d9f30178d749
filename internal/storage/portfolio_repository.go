package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pocketbroker/internal/models"
	"github.com/pocketbroker/internal/querybuild"
)

const portfolioColumns = `id, user_id, wallet_address, tokens, total_value_usd, last_synced_at, created_at, updated_at`

// PortfolioRepository handles portfolio persistence
type PortfolioRepository struct {
	db *PostgresDB
}

// NewPortfolioRepository creates a new portfolio repository
func NewPortfolioRepository(db *PostgresDB) *PortfolioRepository {
	return &PortfolioRepository{db: db}
}

func scanPortfolio(row pgx.Row) (*models.Portfolio, error) {
	var p models.Portfolio
	var tokens []byte
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.WalletAddress,
		&tokens,
		&p.TotalValueUSD,
		&p.LastSyncedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	p.Tokens = tokens
	return &p, nil
}

// Create inserts a portfolio
func (r *PortfolioRepository) Create(ctx context.Context, p *models.Portfolio) error {
	query := `
		INSERT INTO portfolios (user_id, wallet_address, tokens, total_value_usd, last_synced_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err := r.db.Pool().QueryRow(ctx, query,
		p.UserID,
		p.WalletAddress,
		string(p.Tokens),
		p.TotalValueUSD,
		p.LastSyncedAt,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create portfolio: %w", err)
	}
	return nil
}

// GetByID retrieves a portfolio by id
func (r *PortfolioRepository) GetByID(ctx context.Context, id int64) (*models.Portfolio, error) {
	query := `SELECT ` + portfolioColumns + ` FROM portfolios WHERE id = $1`

	p, err := scanPortfolio(r.db.Pool().QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get portfolio: %w", err)
	}
	return p, nil
}

// Exists reports whether a portfolio row with id exists
func (r *PortfolioRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.Pool().QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM portfolios WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check portfolio existence: %w", err)
	}
	return exists, nil
}

// List returns portfolios matching the filter, newest first
func (r *PortfolioRepository) List(ctx context.Context, filter PortfolioFilter) ([]*models.Portfolio, error) {
	b := querybuild.NewBuilder("user_id", "wallet_address", "created_at")
	if filter.UserID != nil {
		b.Where(querybuild.Equals("user_id", *filter.UserID))
	}
	if filter.WalletAddress != "" {
		b.Where(querybuild.Equals("wallet_address", filter.WalletAddress))
	}
	b.OrderBy("created_at", querybuild.Desc)

	query, args, err := listQuery(portfolioColumns, "portfolios", b, filter.Page)
	if err != nil {
		return nil, fmt.Errorf("failed to build portfolio query: %w", err)
	}

	rows, err := r.db.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list portfolios: %w", err)
	}
	defer rows.Close()

	portfolios := make([]*models.Portfolio, 0)
	for rows.Next() {
		p, err := scanPortfolio(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan portfolio: %w", err)
		}
		portfolios = append(portfolios, p)
	}
	return portfolios, rows.Err()
}

// Update applies the non-nil fields of update
func (r *PortfolioRepository) Update(ctx context.Context, id int64, update models.PortfolioUpdate) (*models.Portfolio, error) {
	var a assignments
	if update.WalletAddress != nil {
		a.set("wallet_address", *update.WalletAddress)
	}
	if update.Tokens != nil {
		a.set("tokens", string(update.Tokens))
	}
	if update.TotalValueUSD != nil {
		a.set("total_value_usd", *update.TotalValueUSD)
	}
	if update.LastSyncedAt != nil {
		a.set("last_synced_at", *update.LastSyncedAt)
	}
	if a.empty() {
		return r.GetByID(ctx, id)
	}

	query, args := a.updateQuery("portfolios", id, portfolioColumns, true)
	p, err := scanPortfolio(r.db.Pool().QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update portfolio: %w", err)
	}
	return p, nil
}

// Delete removes a portfolio and returns the deleted row
func (r *PortfolioRepository) Delete(ctx context.Context, id int64) (*models.Portfolio, error) {
	query := `DELETE FROM portfolios WHERE id = $1 RETURNING ` + portfolioColumns

	p, err := scanPortfolio(r.db.Pool().QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to delete portfolio: %w", err)
	}
	return p, nil
}
