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

// SubscriptionRepository interface for subscription data operations
type SubscriptionRepository interface {
	Create(ctx context.Context, s *models.Subscription) error
	GetByID(ctx context.Context, id int64) (*models.Subscription, error)
	GetByStripeCustomerID(ctx context.Context, customerID string) (*models.Subscription, error)
	GetByStripeSubscriptionID(ctx context.Context, subscriptionID string) (*models.Subscription, error)
	List(ctx context.Context, filter storage.SubscriptionFilter) ([]*models.Subscription, error)
	Update(ctx context.Context, id int64, update models.SubscriptionUpdate) (*models.Subscription, error)
	Delete(ctx context.Context, id int64) (*models.Subscription, error)
}

// SubscriptionService manages paid plans
type SubscriptionService struct {
	repo SubscriptionRepository
}

// NewSubscriptionService creates a new subscription service
func NewSubscriptionService(repo SubscriptionRepository) *SubscriptionService {
	return &SubscriptionService{repo: repo}
}

type CreateSubscriptionInput struct {
	UserID               types.FlexInt             `json:"userId"`
	StripeCustomerID     string                    `json:"stripeCustomerId"`
	StripeSubscriptionID string                    `json:"stripeSubscriptionId"`
	Plan                 types.SubscriptionPlan    `json:"plan"`
	Status               *types.SubscriptionStatus `json:"status"`
	CurrentPeriodEnd     *time.Time                `json:"currentPeriodEnd"`
}

type UpdateSubscriptionInput struct {
	Plan             *types.SubscriptionPlan   `json:"plan"`
	Status           *types.SubscriptionStatus `json:"status"`
	CurrentPeriodEnd *time.Time                `json:"currentPeriodEnd"`
}

const subscriptionNotFoundCode = "SUBSCRIPTION_NOT_FOUND"

func invalidPlanError() error {
	return errors.NewValidationError("INVALID_PLAN", "Invalid plan. Must be one of: pro, enterprise")
}

func invalidSubscriptionStatusError() error {
	return errors.NewValidationError(CodeInvalidStatus, "Invalid status. Must be one of: active, cancelled, past_due")
}

// ValidateSubscriptionFilter rejects unknown status and plan filter values
func ValidateSubscriptionFilter(filter storage.SubscriptionFilter) error {
	if filter.Plan != nil && !filter.Plan.IsValid() {
		return invalidPlanError()
	}
	if filter.Status != nil && !filter.Status.IsValid() {
		return invalidSubscriptionStatusError()
	}
	return nil
}

// Create validates and stores a subscription. Status defaults to active.
func (s *SubscriptionService) Create(ctx context.Context, input *CreateSubscriptionInput) (*models.Subscription, error) {
	customerID := strings.TrimSpace(input.StripeCustomerID)
	subscriptionID := strings.TrimSpace(input.StripeSubscriptionID)
	if !input.UserID.Present || customerID == "" || subscriptionID == "" || input.Plan == "" || input.CurrentPeriodEnd == nil {
		return nil, errors.NewMissingFieldsError("Missing required fields: userId, stripeCustomerId, stripeSubscriptionId, plan, currentPeriodEnd")
	}
	if !input.UserID.Valid {
		return nil, errors.NewValidationError(CodeInvalidUserID, "userId must be a valid integer")
	}
	if !input.Plan.IsValid() {
		return nil, invalidPlanError()
	}

	status := types.SubscriptionActive
	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, invalidSubscriptionStatusError()
		}
		status = *input.Status
	}

	sub := &models.Subscription{
		UserID:               input.UserID.Value,
		StripeCustomerID:     customerID,
		StripeSubscriptionID: subscriptionID,
		Plan:                 input.Plan,
		Status:               status,
		CurrentPeriodEnd:     *input.CurrentPeriodEnd,
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		if constraint, ok := storage.UniqueViolation(err); ok {
			switch constraint {
			case storage.ConstraintStripeCustomer:
				return nil, errors.NewConflictError("STRIPE_CUSTOMER_EXISTS", "Stripe customer already has a subscription")
			case storage.ConstraintStripeSubscription:
				return nil, errors.NewConflictError("STRIPE_SUBSCRIPTION_EXISTS", "Stripe subscription already exists")
			}
		}
		return nil, errors.NewDatabaseError("create subscription", err)
	}
	return sub, nil
}

func (s *SubscriptionService) Get(ctx context.Context, id int64) (*models.Subscription, error) {
	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "get subscription", subscriptionNotFoundCode, "Subscription not found")
	}
	return sub, nil
}

func (s *SubscriptionService) GetByStripeCustomer(ctx context.Context, customerID string) (*models.Subscription, error) {
	sub, err := s.repo.GetByStripeCustomerID(ctx, customerID)
	if err != nil {
		return nil, notFound(err, "get subscription by customer", subscriptionNotFoundCode, "Subscription not found")
	}
	return sub, nil
}

func (s *SubscriptionService) GetByStripeSubscription(ctx context.Context, subscriptionID string) (*models.Subscription, error) {
	sub, err := s.repo.GetByStripeSubscriptionID(ctx, subscriptionID)
	if err != nil {
		return nil, notFound(err, "get subscription by stripe id", subscriptionNotFoundCode, "Subscription not found")
	}
	return sub, nil
}

func (s *SubscriptionService) List(ctx context.Context, filter storage.SubscriptionFilter) ([]*models.Subscription, error) {
	if err := ValidateSubscriptionFilter(filter); err != nil {
		return nil, err
	}
	subs, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, errors.NewDatabaseError("list subscriptions", err)
	}
	return subs, nil
}

func (s *SubscriptionService) Update(ctx context.Context, id int64, input *UpdateSubscriptionInput) (*models.Subscription, error) {
	if input.Plan != nil && !input.Plan.IsValid() {
		return nil, invalidPlanError()
	}
	if input.Status != nil && !input.Status.IsValid() {
		return nil, invalidSubscriptionStatusError()
	}

	sub, err := s.repo.Update(ctx, id, models.SubscriptionUpdate{
		Plan:             input.Plan,
		Status:           input.Status,
		CurrentPeriodEnd: input.CurrentPeriodEnd,
	})
	if err != nil {
		return nil, notFound(err, "update subscription", subscriptionNotFoundCode, "Subscription not found")
	}
	return sub, nil
}

func (s *SubscriptionService) Delete(ctx context.Context, id int64) (*models.Subscription, error) {
	sub, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, notFound(err, "delete subscription", subscriptionNotFoundCode, "Subscription not found")
	}
	return sub, nil
}
