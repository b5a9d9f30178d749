package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pocketbroker/internal/models"
)

// AuthRepository reads the identities and sessions written by the auth provider
type AuthRepository struct {
	db *PostgresDB
}

// NewAuthRepository creates a new auth repository
func NewAuthRepository(db *PostgresDB) *AuthRepository {
	return &AuthRepository{db: db}
}

// GetSessionByToken looks a session up by its exact bearer token.
// Expired sessions are returned; callers decide what expiry means.
func (r *AuthRepository) GetSessionByToken(ctx context.Context, token string) (*models.Session, error) {
	query := `
		SELECT id, token, user_id, expires_at, created_at, updated_at
		FROM sessions
		WHERE token = $1
	`

	var s models.Session
	err := r.db.Pool().QueryRow(ctx, query, token).Scan(
		&s.ID,
		&s.Token,
		&s.UserID,
		&s.ExpiresAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &s, nil
}

// GetAuthUserByID retrieves an auth identity by id
func (r *AuthRepository) GetAuthUserByID(ctx context.Context, id string) (*models.AuthUser, error) {
	return r.getAuthUser(ctx, `WHERE id = $1`, id)
}

// GetAuthUserByEmail retrieves an auth identity by email
func (r *AuthRepository) GetAuthUserByEmail(ctx context.Context, email string) (*models.AuthUser, error) {
	return r.getAuthUser(ctx, `WHERE email = $1`, email)
}

func (r *AuthRepository) getAuthUser(ctx context.Context, where string, arg interface{}) (*models.AuthUser, error) {
	query := `
		SELECT id, name, email, email_verified, role, created_at, updated_at
		FROM auth_users
	` + where

	var u models.AuthUser
	err := r.db.Pool().QueryRow(ctx, query, arg).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.EmailVerified,
		&u.Role,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get auth user: %w", err)
	}
	return &u, nil
}

// CreateAuthUser inserts an auth identity. Used by fixtures and provisioning tools.
func (r *AuthRepository) CreateAuthUser(ctx context.Context, u *models.AuthUser) error {
	query := `
		INSERT INTO auth_users (id, name, email, email_verified, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`
	if err := r.db.Pool().QueryRow(ctx, query, u.ID, u.Name, u.Email, u.EmailVerified, u.Role).
		Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create auth user: %w", err)
	}
	return nil
}

// CreateSession inserts a session
func (r *AuthRepository) CreateSession(ctx context.Context, s *models.Session) error {
	query := `
		INSERT INTO sessions (id, token, user_id, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`
	if err := r.db.Pool().QueryRow(ctx, query, s.ID, s.Token, s.UserID, s.ExpiresAt).
		Scan(&s.CreatedAt, &s.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}
