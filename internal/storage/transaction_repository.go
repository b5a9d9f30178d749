package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pocketbroker/internal/models"
	"github.com/pocketbroker/internal/querybuild"
)

const transactionColumns = `id, user_id, portfolio_id, tx_hash, type, token_in, token_out,
	amount_in, amount_out, gas_fee, status, timestamp, created_at`

// ConstraintTransactionHash is the unique constraint on transactions.tx_hash
const ConstraintTransactionHash = "transactions_tx_hash_key"

// TransactionRepository handles transaction persistence
type TransactionRepository struct {
	db *PostgresDB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *PostgresDB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var tx models.Transaction
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
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &tx, nil
}

func collectTransactions(rows pgx.Rows) ([]*models.Transaction, error) {
	defer rows.Close()

	txs := make([]*models.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
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

// Create inserts a transaction. A duplicate hash surfaces as a unique
// violation on ConstraintTransactionHash.
func (r *TransactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	query := `
		INSERT INTO transactions (
			user_id, portfolio_id, tx_hash, type, token_in, token_out,
			amount_in, amount_out, gas_fee, status, timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at
	`

	err := r.db.Pool().QueryRow(ctx, query,
		tx.UserID,
		tx.PortfolioID,
		tx.TxHash,
		tx.Type,
		tx.TokenIn,
		tx.TokenOut,
		tx.AmountIn,
		tx.AmountOut,
		tx.GasFee,
		tx.Status,
		tx.Timestamp,
	).Scan(&tx.ID, &tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// GetByID retrieves a transaction by id
func (r *TransactionRepository) GetByID(ctx context.Context, id int64) (*models.Transaction, error) {
	return r.getOne(ctx, `WHERE id = $1`, id)
}

// GetByHash retrieves a transaction by its on-chain hash
func (r *TransactionRepository) GetByHash(ctx context.Context, txHash string) (*models.Transaction, error) {
	return r.getOne(ctx, `WHERE tx_hash = $1`, txHash)
}

func (r *TransactionRepository) getOne(ctx context.Context, where string, arg interface{}) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions ` + where

	tx, err := scanTransaction(r.db.Pool().QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return tx, nil
}

// List returns transactions matching the filter, newest first
func (r *TransactionRepository) List(ctx context.Context, filter TransactionFilter) ([]*models.Transaction, error) {
	b := querybuild.NewBuilder("user_id", "portfolio_id", "status", "type", "token_in", "token_out", "timestamp")
	if filter.UserID != nil {
		b.Where(querybuild.Equals("user_id", *filter.UserID))
	}
	if filter.PortfolioID != nil {
		b.Where(querybuild.Equals("portfolio_id", *filter.PortfolioID))
	}
	if filter.Status != nil {
		b.Where(querybuild.Equals("status", *filter.Status))
	}
	if filter.Type != nil {
		b.Where(querybuild.Equals("type", *filter.Type))
	}
	if filter.Search != "" {
		b.Where(querybuild.Like(filter.Search, "token_in", "token_out"))
	}
	b.OrderBy("timestamp", querybuild.Desc)

	query, args, err := listQuery(transactionColumns, "transactions", b, filter.Page)
	if err != nil {
		return nil, fmt.Errorf("failed to build transaction query: %w", err)
	}

	rows, err := r.db.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return collectTransactions(rows)
}

// Update applies the non-nil fields of update
func (r *TransactionRepository) Update(ctx context.Context, id int64, update models.TransactionUpdate) (*models.Transaction, error) {
	var a assignments
	if update.Status != nil {
		a.set("status", *update.Status)
	}
	if update.TokenIn != nil {
		a.set("token_in", *update.TokenIn)
	}
	if update.TokenOut != nil {
		a.set("token_out", *update.TokenOut)
	}
	if update.AmountIn != nil {
		a.set("amount_in", *update.AmountIn)
	}
	if update.AmountOut != nil {
		a.set("amount_out", *update.AmountOut)
	}
	if update.GasFee != nil {
		a.set("gas_fee", *update.GasFee)
	}
	if a.empty() {
		return r.GetByID(ctx, id)
	}

	// transactions has no updated_at column
	query, args := a.updateQuery("transactions", id, transactionColumns, false)
	tx, err := scanTransaction(r.db.Pool().QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update transaction: %w", err)
	}
	return tx, nil
}

// Delete removes a transaction and returns the deleted row
func (r *TransactionRepository) Delete(ctx context.Context, id int64) (*models.Transaction, error) {
	query := `DELETE FROM transactions WHERE id = $1 RETURNING ` + transactionColumns

	tx, err := scanTransaction(r.db.Pool().QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to delete transaction: %w", err)
	}
	return tx, nil
}
