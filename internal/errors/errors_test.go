package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "validation error passes through",
			err:        NewValidationError("INVALID_STATUS", "Invalid status"),
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_STATUS",
		},
		{
			name:       "wrapped not found is unwrapped",
			err:        fmt.Errorf("lookup: %w", NewNotFoundError("USER_NOT_FOUND", "User not found")),
			wantStatus: http.StatusNotFound,
			wantCode:   "USER_NOT_FOUND",
		},
		{
			name:       "conflict is a 400",
			err:        NewConflictError("DUPLICATE_TX_HASH", "Transaction with this txHash already exists"),
			wantStatus: http.StatusBadRequest,
			wantCode:   "DUPLICATE_TX_HASH",
		},
		{
			name:       "plain error becomes internal",
			err:        stderrors.New("connection reset"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Categorize(tt.err)
			assert.Equal(t, tt.wantStatus, got.StatusCode)
			assert.Equal(t, tt.wantCode, got.Code)
		})
	}

	assert.Nil(t, Categorize(nil))
}

func TestInternalErrorKeepsCause(t *testing.T) {
	cause := stderrors.New("pool closed")
	err := NewDatabaseError("list users", cause)

	assert.ErrorIs(t, err, cause)
	assert.True(t, IsRetryable(err))
	assert.True(t, IsSystemError(err))
	assert.False(t, IsUserError(err))
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("create: %w", NewConflictError("EMAIL_EXISTS", "User with this email already exists"))
	assert.True(t, IsCode(err, "EMAIL_EXISTS"))
	assert.False(t, IsCode(err, "WALLET_ADDRESS_EXISTS"))
	assert.False(t, IsCode(stderrors.New("x"), "EMAIL_EXISTS"))
}

func TestGetHTTPStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusForbidden, GetHTTPStatusCode(NewForbiddenError("Admin access required")))
	assert.Equal(t, http.StatusUnauthorized, GetHTTPStatusCode(NewUnauthorizedError("SESSION_EXPIRED", "Session expired")))
	assert.Equal(t, http.StatusTooManyRequests, GetHTTPStatusCode(NewRateLimitError()))
}
