package service

import (
	"context"
	"strings"
	"time"

	"github.com/pocketbroker/internal/errors"
	"github.com/pocketbroker/internal/models"
	"github.com/pocketbroker/internal/storage"
	"github.com/pocketbroker/internal/types"
)

// TransactionRepository interface for transaction data operations
type TransactionRepository interface {
	Create(ctx context.Context, tx *models.Transaction) error
	GetByID(ctx context.Context, id int64) (*models.Transaction, error)
	GetByHash(ctx context.Context, txHash string) (*models.Transaction, error)
	List(ctx context.Context, filter storage.TransactionFilter) ([]*models.Transaction, error)
	Update(ctx context.Context, id int64, update models.TransactionUpdate) (*models.Transaction, error)
	Delete(ctx context.Context, id int64) (*models.Transaction, error)
}

// ExistenceChecker reports whether a row with id exists
type ExistenceChecker interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// TransactionService manages recorded transactions
type TransactionService struct {
	repo       TransactionRepository
	users      ExistenceChecker
	portfolios ExistenceChecker
}

// NewTransactionService creates a new transaction service
func NewTransactionService(repo TransactionRepository, users, portfolios ExistenceChecker) *TransactionService {
	return &TransactionService{repo: repo, users: users, portfolios: portfolios}
}

// CreateTransactionInput is the body of a transaction create request
type CreateTransactionInput struct {
	UserID      types.FlexInt            `json:"userId"`
	PortfolioID types.FlexInt            `json:"portfolioId"`
	TxHash      string                   `json:"txHash"`
	Type        types.TransactionType    `json:"type"`
	Timestamp   *time.Time               `json:"timestamp"`
	TokenIn     *string                  `json:"tokenIn"`
	TokenOut    *string                  `json:"tokenOut"`
	AmountIn    types.FlexFloat          `json:"amountIn"`
	AmountOut   types.FlexFloat          `json:"amountOut"`
	GasFee      types.FlexFloat          `json:"gasFee"`
	Status      *types.TransactionStatus `json:"status"`
}

// UpdateTransactionInput is the body of a transaction update request
type UpdateTransactionInput struct {
	Status    *types.TransactionStatus `json:"status"`
	TokenIn   *string                  `json:"tokenIn"`
	TokenOut  *string                  `json:"tokenOut"`
	AmountIn  types.FlexFloat          `json:"amountIn"`
	AmountOut types.FlexFloat          `json:"amountOut"`
	GasFee    types.FlexFloat          `json:"gasFee"`
}

const txNotFoundCode = "TRANSACTION_NOT_FOUND"

// Error text for a duplicate transaction hash
const DuplicateTxHashMessage = "Transaction with this txHash already exists"

func invalidTypeError() error {
	return errors.NewValidationError("INVALID_TYPE", "Invalid type. Must be one of: swap, send, receive")
}

func invalidTxStatusError() error {
	return errors.NewValidationError(CodeInvalidStatus, "Invalid status. Must be one of: pending, confirmed, failed")
}

// Create validates and stores a transaction. The owner and portfolio must exist.
func (s *TransactionService) Create(ctx context.Context, input *CreateTransactionInput) (*models.Transaction, error) {
	txHash := strings.TrimSpace(input.TxHash)
	if !input.UserID.Present || !input.PortfolioID.Present || txHash == "" || input.Type == "" || input.Timestamp == nil {
		return nil, errors.NewMissingFieldsError("Missing required fields: userId, portfolioId, txHash, type, timestamp")
	}
	if !input.UserID.Valid {
		return nil, errors.NewValidationError(CodeInvalidUserID, "userId must be a valid integer")
	}
	if !input.PortfolioID.Valid {
		return nil, errors.NewValidationError("INVALID_PORTFOLIO_ID", "portfolioId must be a valid integer")
	}
	if !input.Type.IsValid() {
		return nil, invalidTypeError()
	}

	status := types.StatusPending
	if input.Status != nil && *input.Status != "" {
		if !input.Status.IsValid() {
			return nil, invalidTxStatusError()
		}
		status = *input.Status
	}

	userExists, err := s.users.Exists(ctx, input.UserID.Value)
	if err != nil {
		return nil, errors.NewDatabaseError("check user", err)
	}
	if !userExists {
		return nil, errors.NewValidationError(userNotFoundCode, "User not found")
	}

	portfolioExists, err := s.portfolios.Exists(ctx, input.PortfolioID.Value)
	if err != nil {
		return nil, errors.NewDatabaseError("check portfolio", err)
	}
	if !portfolioExists {
		return nil, errors.NewValidationError(portfolioNotFoundCode, "Portfolio not found")
	}

	tx := &models.Transaction{
		UserID:      input.UserID.Value,
		PortfolioID: input.PortfolioID.Value,
		TxHash:      txHash,
		Type:        input.Type,
		TokenIn:     trimmed(input.TokenIn),
		TokenOut:    trimmed(input.TokenOut),
		AmountIn:    input.AmountIn.Ptr(),
		AmountOut:   input.AmountOut.Ptr(),
		GasFee:      input.GasFee.Ptr(),
		Status:      status,
		Timestamp:   *input.Timestamp,
	}

	if err := s.repo.Create(ctx, tx); err != nil {
		if constraint, ok := storage.UniqueViolation(err); ok && constraint == storage.ConstraintTransactionHash {
			return nil, errors.NewConflictError("DUPLICATE_TX_HASH", DuplicateTxHashMessage)
		}
		return nil, errors.NewDatabaseError("create transaction", err)
	}
	return tx, nil
}

// Get returns the transaction with id
func (s *TransactionService) Get(ctx context.Context, id int64) (*models.Transaction, error) {
	tx, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "get transaction", txNotFoundCode, "Transaction not found")
	}
	return tx, nil
}

// GetByHash returns the transaction with txHash
func (s *TransactionService) GetByHash(ctx context.Context, txHash string) (*models.Transaction, error) {
	tx, err := s.repo.GetByHash(ctx, txHash)
	if err != nil {
		return nil, notFound(err, "get transaction by hash", txNotFoundCode, "Transaction not found")
	}
	return tx, nil
}

// List returns transactions matching filter
func (s *TransactionService) List(ctx context.Context, filter storage.TransactionFilter) ([]*models.Transaction, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, invalidTxStatusError()
	}
	if filter.Type != nil && !filter.Type.IsValid() {
		return nil, invalidTypeError()
	}

	txs, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, errors.NewDatabaseError("list transactions", err)
	}
	return txs, nil
}

// Update applies a partial update. An update without fields returns the stored row.
func (s *TransactionService) Update(ctx context.Context, id int64, input *UpdateTransactionInput) (*models.Transaction, error) {
	if input.Status != nil && !input.Status.IsValid() {
		return nil, invalidTxStatusError()
	}

	update := models.TransactionUpdate{
		Status:    input.Status,
		TokenIn:   trimmed(input.TokenIn),
		TokenOut:  trimmed(input.TokenOut),
		AmountIn:  input.AmountIn.Ptr(),
		AmountOut: input.AmountOut.Ptr(),
		GasFee:    input.GasFee.Ptr(),
	}

	tx, err := s.repo.Update(ctx, id, update)
	if err != nil {
		return nil, notFound(err, "update transaction", txNotFoundCode, "Transaction not found")
	}
	return tx, nil
}

// Delete removes the transaction with id and returns it
func (s *TransactionService) Delete(ctx context.Context, id int64) (*models.Transaction, error) {
	tx, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, notFound(err, "delete transaction", txNotFoundCode, "Transaction not found")
	}
	return tx, nil
}
