package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pocketbroker/internal/models"
	"github.com/pocketbroker/internal/querybuild"
)

const userColumns = `id, email, wallet_address, premium_tier, premium_expires_at, created_at, updated_at`

// Unique constraints on users, as named in the migrations
const (
	ConstraintUserEmail  = "users_email_key"
	ConstraintUserWallet = "users_wallet_address_key"
)

// UserRepository handles user data persistence
type UserRepository struct {
	db *PostgresDB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *PostgresDB) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.WalletAddress,
		&user.PremiumTier,
		&user.PremiumExpiresAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Create inserts a user and fills in its generated id and timestamps
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (email, wallet_address, premium_tier, premium_expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`

	err := r.db.Pool().QueryRow(ctx, query,
		user.Email,
		user.WalletAddress,
		user.PremiumTier,
		user.PremiumExpiresAt,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.Pool().QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetByWalletAddress retrieves a user by wallet address
func (r *UserRepository) GetByWalletAddress(ctx context.Context, walletAddress string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE wallet_address = $1`

	user, err := scanUser(r.db.Pool().QueryRow(ctx, query, walletAddress))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get user by wallet: %w", err)
	}
	return user, nil
}

// Exists reports whether a user row with id exists
func (r *UserRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.Pool().QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}

// FindIDsByWallet returns the ids of users holding walletAddress
func (r *UserRepository) FindIDsByWallet(ctx context.Context, walletAddress string) ([]int64, error) {
	rows, err := r.db.Pool().Query(ctx, `SELECT id FROM users WHERE wallet_address = $1`, walletAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to find users by wallet: %w", err)
	}
	defer rows.Close()

	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("failed to scan user ids: %w", err)
	}
	return ids, nil
}

// List returns users matching the filter, newest first
func (r *UserRepository) List(ctx context.Context, filter UserFilter) ([]*models.User, error) {
	b := querybuild.NewBuilder("email", "created_at")
	if filter.Search != "" {
		b.Where(querybuild.Like(filter.Search, "email"))
	}
	b.OrderBy("created_at", querybuild.Desc)

	query, args, err := listQuery(userColumns, "users", b, filter.Page)
	if err != nil {
		return nil, fmt.Errorf("failed to build user query: %w", err)
	}

	rows, err := r.db.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// Update applies the non-nil fields of update and returns the stored row
func (r *UserRepository) Update(ctx context.Context, id int64, update models.UserUpdate) (*models.User, error) {
	var a assignments
	if update.Email != nil {
		a.set("email", *update.Email)
	}
	if update.WalletAddress != nil {
		a.set("wallet_address", *update.WalletAddress)
	}
	if update.PremiumTier != nil {
		a.set("premium_tier", *update.PremiumTier)
	}
	if update.PremiumExpiresAt != nil {
		a.set("premium_expires_at", *update.PremiumExpiresAt)
	}
	if a.empty() {
		return r.GetByID(ctx, id)
	}

	query, args := a.updateQuery("users", id, userColumns, true)
	user, err := scanUser(r.db.Pool().QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

// Delete removes a user and returns the deleted row
func (r *UserRepository) Delete(ctx context.Context, id int64) (*models.User, error) {
	query := `DELETE FROM users WHERE id = $1 RETURNING ` + userColumns

	user, err := scanUser(r.db.Pool().QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to delete user: %w", err)
	}
	return user, nil
}
