package models

import (
	"time"

	"github.com/pocketbroker/internal/types"
)

// Transaction is an on-chain transaction recorded against a portfolio
type Transaction struct {
	ID          int64                   `json:"id" db:"id"`
	UserID      int64                   `json:"userId" db:"user_id"`
	PortfolioID int64                   `json:"portfolioId" db:"portfolio_id"`
	TxHash      string                  `json:"txHash" db:"tx_hash"`
	Type        types.TransactionType   `json:"type" db:"type"`
	TokenIn     *string                 `json:"tokenIn" db:"token_in"`
	TokenOut    *string                 `json:"tokenOut" db:"token_out"`
	AmountIn    *float64                `json:"amountIn" db:"amount_in"`
	AmountOut   *float64                `json:"amountOut" db:"amount_out"`
	GasFee      *float64                `json:"gasFee" db:"gas_fee"`
	Status      types.TransactionStatus `json:"status" db:"status"`
	Timestamp   time.Time               `json:"timestamp" db:"timestamp"`
	CreatedAt   time.Time               `json:"createdAt" db:"created_at"`
}

// TransactionUpdate carries the mutable transaction columns
type TransactionUpdate struct {
	Status    *types.TransactionStatus
	TokenIn   *string
	TokenOut  *string
	AmountIn  *float64
	AmountOut *float64
	GasFee    *float64
}

func (u TransactionUpdate) IsEmpty() bool {
	return u.Status == nil && u.TokenIn == nil && u.TokenOut == nil &&
		u.AmountIn == nil && u.AmountOut == nil && u.GasFee == nil
}

// TransactionWithUser is a transaction joined with its owner's contact fields
type TransactionWithUser struct {
	Transaction
	UserEmail         *string `json:"userEmail"`
	UserWalletAddress *string `json:"-"`
	UserName          *string `json:"-"`
}
