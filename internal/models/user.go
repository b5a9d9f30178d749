// Package models provides data models for the PocketBroker backend.
package models

import (
	"time"

	"github.com/pocketbroker/internal/types"
)

// User represents an application user
type User struct {
	ID               int64             `json:"id" db:"id"`
	Email            string            `json:"email" db:"email"`
	WalletAddress    *string           `json:"walletAddress" db:"wallet_address"`
	PremiumTier      types.PremiumTier `json:"premiumTier" db:"premium_tier"`
	PremiumExpiresAt *time.Time        `json:"premiumExpiresAt" db:"premium_expires_at"`
	CreatedAt        time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time         `json:"updatedAt" db:"updated_at"`
}

// UserUpdate carries the mutable user columns. Nil fields are left unchanged.
type UserUpdate struct {
	Email            *string
	WalletAddress    *string
	PremiumTier      *types.PremiumTier
	PremiumExpiresAt *time.Time
}

// IsEmpty reports whether the update changes nothing
func (u UserUpdate) IsEmpty() bool {
	return u.Email == nil && u.WalletAddress == nil && u.PremiumTier == nil && u.PremiumExpiresAt == nil
}

// AuthUser is an identity issued by the external auth provider
type AuthUser struct {
	ID            string     `json:"id" db:"id"`
	Name          string     `json:"name" db:"name"`
	Email         string     `json:"email" db:"email"`
	EmailVerified bool       `json:"emailVerified" db:"email_verified"`
	Role          types.Role `json:"role" db:"role"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time  `json:"updatedAt" db:"updated_at"`
}

// IsAdmin reports whether the identity carries the admin role
func (u *AuthUser) IsAdmin() bool {
	return u != nil && u.Role == types.RoleAdmin
}

// Session is a server-side session addressed by an opaque bearer token
type Session struct {
	ID        string    `json:"id" db:"id"`
	Token     string    `json:"-" db:"token"`
	UserID    string    `json:"userId" db:"user_id"`
	ExpiresAt time.Time `json:"expiresAt" db:"expires_at"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Expired reports whether the session has lapsed at now
func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt.Before(now)
}
