// Package auth decides whether a bearer session token grants access.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pocketbroker/internal/models"
	"github.com/pocketbroker/internal/storage"
)

// Outcome is the result of checking a session token
type Outcome int

const (
	Unauthenticated Outcome = iota
	InvalidSession
	Expired
	UserNotFound
	Forbidden
	Authorized
)

func (o Outcome) String() string {
	switch o {
	case Unauthenticated:
		return "unauthenticated"
	case InvalidSession:
		return "invalid_session"
	case Expired:
		return "expired"
	case UserNotFound:
		return "user_not_found"
	case Forbidden:
		return "forbidden"
	case Authorized:
		return "authorized"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result is the typed decision for one token. User and Session are set only
// when Outcome is Authorized.
type Result struct {
	Outcome Outcome
	User    *models.AuthUser
	Session *models.Session
}

// SessionStore looks up sessions and identities. Missing rows are reported
// as storage.ErrNotFound.
type SessionStore interface {
	GetSessionByToken(ctx context.Context, token string) (*models.Session, error)
	GetAuthUserByID(ctx context.Context, id string) (*models.AuthUser, error)
}

// Authenticator checks bearer session tokens against a SessionStore
type Authenticator struct {
	store SessionStore
	now   func() time.Time
}

// NewAuthenticator creates an authenticator backed by store
func NewAuthenticator(store SessionStore) *Authenticator {
	return &Authenticator{store: store, now: time.Now}
}

// Authenticate resolves token to a Result. A non-nil error means the store
// failed and no decision was reached.
func (a *Authenticator) Authenticate(ctx context.Context, token string, requireAdmin bool) (Result, error) {
	if token == "" {
		return Result{Outcome: Unauthenticated}, nil
	}

	session, err := a.store.GetSessionByToken(ctx, token)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Result{Outcome: InvalidSession}, nil
		}
		return Result{}, fmt.Errorf("failed to load session: %w", err)
	}

	if session.Expired(a.now()) {
		return Result{Outcome: Expired}, nil
	}

	user, err := a.store.GetAuthUserByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Result{Outcome: UserNotFound}, nil
		}
		return Result{}, fmt.Errorf("failed to load session user: %w", err)
	}

	if requireAdmin && !user.IsAdmin() {
		return Result{Outcome: Forbidden}, nil
	}

	return Result{Outcome: Authorized, User: user, Session: session}, nil
}

type userKey struct{}

// WithUser returns a context carrying the authorized identity
func WithUser(ctx context.Context, user *models.AuthUser) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFromContext returns the identity stored by WithUser, if any
func UserFromContext(ctx context.Context) (*models.AuthUser, bool) {
	user, ok := ctx.Value(userKey{}).(*models.AuthUser)
	return user, ok && user != nil
}
