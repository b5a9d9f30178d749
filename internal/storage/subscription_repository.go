package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pocketbroker/internal/models"
	"github.com/pocketbroker/internal/querybuild"
)

const subscriptionColumns = `id, user_id, stripe_customer_id, stripe_subscription_id, plan, status,
	current_period_end, created_at, updated_at`

// Unique constraints on subscriptions
const (
	ConstraintStripeCustomer     = "subscriptions_stripe_customer_id_key"
	ConstraintStripeSubscription = "subscriptions_stripe_subscription_id_key"
)

// SubscriptionRepository handles subscription persistence
type SubscriptionRepository struct {
	db *PostgresDB
}

func NewSubscriptionRepository(db *PostgresDB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func scanSubscription(row pgx.Row) (*models.Subscription, error) {
	var s models.Subscription
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.StripeCustomerID,
		&s.StripeSubscriptionID,
		&s.Plan,
		&s.Status,
		&s.CurrentPeriodEnd,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *SubscriptionRepository) Create(ctx context.Context, s *models.Subscription) error {
	query := `
		INSERT INTO subscriptions (
			user_id, stripe_customer_id, stripe_subscription_id, plan, status, current_period_end
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err := r.db.Pool().QueryRow(ctx, query,
		s.UserID,
		s.StripeCustomerID,
		s.StripeSubscriptionID,
		s.Plan,
		s.Status,
		s.CurrentPeriodEnd,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	return nil
}

func (r *SubscriptionRepository) GetByID(ctx context.Context, id int64) (*models.Subscription, error) {
	return r.getOne(ctx, `WHERE id = $1`, id)
}

func (r *SubscriptionRepository) GetByStripeCustomerID(ctx context.Context, customerID string) (*models.Subscription, error) {
	return r.getOne(ctx, `WHERE stripe_customer_id = $1`, customerID)
}

func (r *SubscriptionRepository) GetByStripeSubscriptionID(ctx context.Context, subscriptionID string) (*models.Subscription, error) {
	return r.getOne(ctx, `WHERE stripe_subscription_id = $1`, subscriptionID)
}

func (r *SubscriptionRepository) getOne(ctx context.Context, where string, arg interface{}) (*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions ` + where

	s, err := scanSubscription(r.db.Pool().QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return s, nil
}

// List returns subscriptions matching the filter, newest first
func (r *SubscriptionRepository) List(ctx context.Context, filter SubscriptionFilter) ([]*models.Subscription, error) {
	b := querybuild.NewBuilder("user_id", "status", "plan", "created_at")
	if filter.UserID != nil {
		b.Where(querybuild.Equals("user_id", *filter.UserID))
	}
	if filter.Status != nil {
		b.Where(querybuild.Equals("status", *filter.Status))
	}
	if filter.Plan != nil {
		b.Where(querybuild.Equals("plan", *filter.Plan))
	}
	b.OrderBy("created_at", querybuild.Desc)

	query, args, err := listQuery(subscriptionColumns, "subscriptions", b, filter.Page)
	if err != nil {
		return nil, fmt.Errorf("failed to build subscription query: %w", err)
	}

	rows, err := r.db.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	subs := make([]*models.Subscription, 0)
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

func (r *SubscriptionRepository) Update(ctx context.Context, id int64, update models.SubscriptionUpdate) (*models.Subscription, error) {
	var a assignments
	if update.Plan != nil {
		a.set("plan", *update.Plan)
	}
	if update.Status != nil {
		a.set("status", *update.Status)
	}
	if update.CurrentPeriodEnd != nil {
		a.set("current_period_end", *update.CurrentPeriodEnd)
	}
	if a.empty() {
		return r.GetByID(ctx, id)
	}

	query, args := a.updateQuery("subscriptions", id, subscriptionColumns, true)
	s, err := scanSubscription(r.db.Pool().QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update subscription: %w", err)
	}
	return s, nil
}

func (r *SubscriptionRepository) Delete(ctx context.Context, id int64) (*models.Subscription, error) {
	query := `DELETE FROM subscriptions WHERE id = $1 RETURNING ` + subscriptionColumns

	s, err := scanSubscription(r.db.Pool().QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to delete subscription: %w", err)
	}
	return s, nil
}
