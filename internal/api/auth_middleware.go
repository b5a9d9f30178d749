package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/pocketbroker/internal/auth"
	"github.com/pocketbroker/internal/errors"
)

// Authenticator decides whether a session token grants access
type Authenticator interface {
	Authenticate(ctx context.Context, token string, requireAdmin bool) (auth.Result, error)
}

// bearerToken returns the token of an "Authorization: Bearer <token>"
// header, or "" when the header is missing or malformed
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// outcomeError maps a non-authorized outcome to its HTTP error
func outcomeError(o auth.Outcome) error {
	switch o {
	case auth.InvalidSession:
		return errors.NewUnauthorizedError("INVALID_SESSION", "Invalid or expired session")
	case auth.Expired:
		return errors.NewUnauthorizedError("SESSION_EXPIRED", "Session expired")
	case auth.UserNotFound:
		return errors.NewUnauthorizedError("USER_NOT_FOUND", "User not found")
	case auth.Forbidden:
		return errors.NewForbiddenError("Admin access required")
	default:
		return errors.NewUnauthorizedError("MISSING_AUTH_TOKEN", "Authentication required")
	}
}

// requireAdmin rejects requests without an admin session and stores the
// admin identity in the request context
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		result, err := s.auth.Authenticate(r.Context(), bearerToken(r), true)
		if err != nil {
			writeError(w, r, errors.NewDatabaseError("authenticate session", err))
			return
		}
		if result.Outcome != auth.Authorized {
			writeError(w, r, outcomeError(result.Outcome))
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), result.User)))
	})
}
