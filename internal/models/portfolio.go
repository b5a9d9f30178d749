package models

import (
	"encoding/json"
	"time"
)

// Portfolio is a snapshot of the tokens held by one wallet
type Portfolio struct {
	ID            int64           `json:"id" db:"id"`
	UserID        int64           `json:"userId" db:"user_id"`
	WalletAddress string          `json:"walletAddress" db:"wallet_address"`
	Tokens        json.RawMessage `json:"tokens" db:"tokens"`
	TotalValueUSD *float64        `json:"totalValueUsd" db:"total_value_usd"`
	LastSyncedAt  *time.Time      `json:"lastSyncedAt" db:"last_synced_at"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time       `json:"updatedAt" db:"updated_at"`
}

// PortfolioUpdate carries the mutable portfolio columns
type PortfolioUpdate struct {
	WalletAddress *string
	Tokens        json.RawMessage
	TotalValueUSD *float64
	LastSyncedAt  *time.Time
}

func (u PortfolioUpdate) IsEmpty() bool {
	return u.WalletAddress == nil && u.Tokens == nil && u.TotalValueUSD == nil && u.LastSyncedAt == nil
}

// Watchlist is a named list of tokens a user follows
type Watchlist struct {
	ID        int64           `json:"id" db:"id"`
	UserID    int64           `json:"userId" db:"user_id"`
	Name      string          `json:"name" db:"name"`
	Tokens    json.RawMessage `json:"tokens" db:"tokens"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time       `json:"updatedAt" db:"updated_at"`
}

type WatchlistUpdate struct {
	Name   *string
	Tokens json.RawMessage
}

func (u WatchlistUpdate) IsEmpty() bool {
	return u.Name == nil && u.Tokens == nil
}
