package models

import (
	"time"

	"github.com/pocketbroker/internal/types"
)

// PriceAlert fires when a token's price crosses TargetPrice in the direction of Condition
type PriceAlert struct {
	ID           int64                `json:"id" db:"id"`
	UserID       int64                `json:"userId" db:"user_id"`
	TokenSymbol  string               `json:"tokenSymbol" db:"token_symbol"`
	TokenAddress string               `json:"tokenAddress" db:"token_address"`
	Condition    types.AlertCondition `json:"condition" db:"condition"`
	TargetPrice  float64              `json:"targetPrice" db:"target_price"`
	CurrentPrice *float64             `json:"currentPrice" db:"current_price"`
	Triggered    bool                 `json:"triggered" db:"triggered"`
	Notified     bool                 `json:"notified" db:"notified"`
	CreatedAt    time.Time            `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time            `json:"updatedAt" db:"updated_at"`
}

type PriceAlertUpdate struct {
	TokenSymbol  *string
	TokenAddress *string
	Condition    *types.AlertCondition
	TargetPrice  *float64
	CurrentPrice *float64
	Triggered    *bool
	Notified     *bool
}

func (u PriceAlertUpdate) IsEmpty() bool {
	return u.TokenSymbol == nil && u.TokenAddress == nil && u.Condition == nil &&
		u.TargetPrice == nil && u.CurrentPrice == nil && u.Triggered == nil && u.Notified == nil
}

// PendingNotification is a triggered alert together with the address to notify
type PendingNotification struct {
	Alert     PriceAlert
	UserEmail string
}
