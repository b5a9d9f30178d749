package models

import (
	"time"

	"github.com/pocketbroker/internal/types"
)

// Subscription is a Stripe-backed paid plan
type Subscription struct {
	ID                   int64                    `json:"id" db:"id"`
	UserID               int64                    `json:"userId" db:"user_id"`
	StripeCustomerID     string                   `json:"stripeCustomerId" db:"stripe_customer_id"`
	StripeSubscriptionID string                   `json:"stripeSubscriptionId" db:"stripe_subscription_id"`
	Plan                 types.SubscriptionPlan   `json:"plan" db:"plan"`
	Status               types.SubscriptionStatus `json:"status" db:"status"`
	CurrentPeriodEnd     time.Time                `json:"currentPeriodEnd" db:"current_period_end"`
	CreatedAt            time.Time                `json:"createdAt" db:"created_at"`
	UpdatedAt            time.Time                `json:"updatedAt" db:"updated_at"`
}

type SubscriptionUpdate struct {
	Plan             *types.SubscriptionPlan
	Status           *types.SubscriptionStatus
	CurrentPeriodEnd *time.Time
}

func (u SubscriptionUpdate) IsEmpty() bool {
	return u.Plan == nil && u.Status == nil && u.CurrentPeriodEnd == nil
}

// SubscriptionWithUser is a subscription joined with its owner's email
type SubscriptionWithUser struct {
	Subscription
	UserEmail *string `json:"userEmail"`
}
