// Package types provides the enumerations shared across the PocketBroker backend.
package types

// PremiumTier represents a user's subscription level
type PremiumTier string

const (
	TierFree       PremiumTier = "free"
	TierPro        PremiumTier = "pro"
	TierEnterprise PremiumTier = "enterprise"
)

// IsValid reports whether t is a known tier
func (t PremiumTier) IsValid() bool {
	switch t {
	case TierFree, TierPro, TierEnterprise:
		return true
	}
	return false
}

// Role represents an auth user's privilege level
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAdmin
}

// TransactionType represents what a transaction did on chain
type TransactionType string

const (
	TypeSwap    TransactionType = "swap"
	TypeSend    TransactionType = "send"
	TypeReceive TransactionType = "receive"
)

func (t TransactionType) IsValid() bool {
	switch t {
	case TypeSwap, TypeSend, TypeReceive:
		return true
	}
	return false
}

// TransactionStatus represents transaction execution status
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusConfirmed TransactionStatus = "confirmed"
	StatusFailed    TransactionStatus = "failed"
)

func (s TransactionStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusFailed:
		return true
	}
	return false
}

// AlertCondition represents the direction a price alert fires on
type AlertCondition string

const (
	ConditionAbove AlertCondition = "above"
	ConditionBelow AlertCondition = "below"
)

func (c AlertCondition) IsValid() bool {
	return c == ConditionAbove || c == ConditionBelow
}

// Met reports whether price satisfies the condition against target.
// Both bounds are inclusive.
func (c AlertCondition) Met(price, target float64) bool {
	switch c {
	case ConditionAbove:
		return price >= target
	case ConditionBelow:
		return price <= target
	}
	return false
}

// SubscriptionPlan represents a paid plan
type SubscriptionPlan string

const (
	PlanPro        SubscriptionPlan = "pro"
	PlanEnterprise SubscriptionPlan = "enterprise"
)

func (p SubscriptionPlan) IsValid() bool {
	return p == PlanPro || p == PlanEnterprise
}

// SubscriptionStatus represents billing state of a subscription
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionPastDue   SubscriptionStatus = "past_due"
)

func (s SubscriptionStatus) IsValid() bool {
	switch s {
	case SubscriptionActive, SubscriptionCancelled, SubscriptionPastDue:
		return true
	}
	return false
}
