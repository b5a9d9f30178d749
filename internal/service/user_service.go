package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pocketbroker/internal/errors"
	"github.com/pocketbroker/internal/models"
	"github.com/pocketbroker/internal/storage"
	"github.com/pocketbroker/internal/types"
)

// UserRepository interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByWalletAddress(ctx context.Context, walletAddress string) (*models.User, error)
	List(ctx context.Context, filter storage.UserFilter) ([]*models.User, error)
	Update(ctx context.Context, id int64, update models.UserUpdate) (*models.User, error)
	Delete(ctx context.Context, id int64) (*models.User, error)
}

// UserService manages application users
type UserService struct {
	repo UserRepository
}

// NewUserService creates a new user service
func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

// CreateUserInput is the body of a user create request
type CreateUserInput struct {
	Email            string             `json:"email"`
	WalletAddress    *string            `json:"walletAddress"`
	PremiumTier      *types.PremiumTier `json:"premiumTier"`
	PremiumExpiresAt *time.Time         `json:"premiumExpiresAt"`
}

// UpdateUserInput is the body of a user update request. Absent fields are kept.
type UpdateUserInput struct {
	Email            *string            `json:"email"`
	WalletAddress    *string            `json:"walletAddress"`
	PremiumTier      *types.PremiumTier `json:"premiumTier"`
	PremiumExpiresAt *time.Time         `json:"premiumExpiresAt"`
}

const userNotFoundCode = "USER_NOT_FOUND"

func invalidTierError() error {
	return errors.NewValidationError("INVALID_PREMIUM_TIER", "Premium tier must be one of: free, pro, enterprise")
}

func invalidWalletError() error {
	return errors.NewValidationError("INVALID_WALLET_ADDRESS", "walletAddress must be a 0x-prefixed hex address")
}

// Create validates and stores a new user. The email is trimmed and lowercased.
func (s *UserService) Create(ctx context.Context, input *CreateUserInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, errors.NewMissingFieldsError("Email is required and must be a non-empty string")
	}
	if input.PremiumTier != nil && *input.PremiumTier != "" && !input.PremiumTier.IsValid() {
		return nil, invalidTierError()
	}

	wallet := trimmed(input.WalletAddress)
	if wallet != nil && !validWallet(*wallet) {
		return nil, invalidWalletError()
	}

	user := &models.User{
		Email:            email,
		WalletAddress:    wallet,
		PremiumTier:      types.TierFree,
		PremiumExpiresAt: input.PremiumExpiresAt,
	}
	if input.PremiumTier != nil && *input.PremiumTier != "" {
		user.PremiumTier = *input.PremiumTier
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, userWriteError(err, "create user")
	}
	return user, nil
}

// userWriteError maps unique violations on users to their conflict codes
func userWriteError(err error, op string) error {
	if constraint, ok := storage.UniqueViolation(err); ok {
		switch constraint {
		case storage.ConstraintUserEmail:
			return errors.NewConflictError("EMAIL_EXISTS", "Email already exists")
		case storage.ConstraintUserWallet:
			return errors.NewConflictError("WALLET_ADDRESS_EXISTS", "Wallet address already exists")
		}
	}
	return notFound(err, op, userNotFoundCode, "User not found")
}

// Get returns the user with id
func (s *UserService) Get(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "get user", userNotFoundCode, "User not found")
	}
	return user, nil
}

// GetByWallet returns the user holding walletAddress
func (s *UserService) GetByWallet(ctx context.Context, walletAddress string) (*models.User, error) {
	user, err := s.repo.GetByWalletAddress(ctx, walletAddress)
	if err != nil {
		return nil, notFound(err, "get user by wallet", userNotFoundCode, "User not found")
	}
	return user, nil
}

// List returns users matching filter
func (s *UserService) List(ctx context.Context, filter storage.UserFilter) ([]*models.User, error) {
	users, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, errors.NewDatabaseError("list users", err)
	}
	return users, nil
}

// Update applies a partial update to the user with id
func (s *UserService) Update(ctx context.Context, id int64, input *UpdateUserInput) (*models.User, error) {
	if input.PremiumTier != nil && !input.PremiumTier.IsValid() {
		return nil, invalidTierError()
	}

	var update models.UserUpdate
	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if email == "" {
			return nil, errors.NewMissingFieldsError("Email is required and must be a non-empty string")
		}
		update.Email = &email
	}
	if input.WalletAddress != nil {
		wallet := strings.TrimSpace(*input.WalletAddress)
		if !validWallet(wallet) {
			return nil, invalidWalletError()
		}
		update.WalletAddress = &wallet
	}
	update.PremiumTier = input.PremiumTier
	update.PremiumExpiresAt = input.PremiumExpiresAt

	user, err := s.repo.Update(ctx, id, update)
	if err != nil {
		return nil, userWriteError(err, "update user")
	}
	return user, nil
}

// Delete removes the user with id and returns it
func (s *UserService) Delete(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, notFound(err, "delete user", userNotFoundCode, "User not found")
	}
	return user, nil
}

// DeletedMessage is the confirmation text for a removed entity
func DeletedMessage(entity string) string {
	return fmt.Sprintf("%s deleted successfully", entity)
}
