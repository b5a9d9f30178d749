package models

import "time"

// TokenActivity is the traded count and volume for one token symbol
type TokenActivity struct {
	Token  string  `json:"token"`
	Count  int64   `json:"count"`
	Volume float64 `json:"volume"`
}

// DailyVolume is the transaction volume booked on one calendar date
type DailyVolume struct {
	Date   string  `json:"date"`
	Volume float64 `json:"volume"`
	Count  int64   `json:"count"`
}

// DailySignups is the number of users created on one calendar date
type DailySignups struct {
	Date     string `json:"date"`
	NewUsers int64  `json:"newUsers"`
}

// TransactionTotals are the platform-wide transaction aggregates
type TransactionTotals struct {
	Count        int64
	Volume       float64
	AverageValue float64
	AverageGas   float64
	TotalGas     float64
}

// StatusCounts are transaction counts per status
type StatusCounts struct {
	Pending   int64
	Confirmed int64
	Failed    int64
}

// UserListing is an auth identity joined with its application user and trading totals
type UserListing struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	WalletAddress    *string   `json:"walletAddress"`
	Role             string    `json:"role"`
	PremiumTier      string    `json:"premiumTier"`
	CreatedAt        time.Time `json:"createdAt"`
	TransactionCount int64     `json:"transactionCount"`
	TotalVolume      float64   `json:"totalVolume"`
}

// QuoteEvent is one swap quote as it was served
type QuoteEvent struct {
	QuotedAt        time.Time
	RequestID       string
	TokenIn         string
	TokenOut        string
	ChainID         uint64
	AmountIn        float64
	AmountOut       float64
	Rate            float64
	Slippage        float64
	MinimumReceived float64
}
