// Package service holds the validation and business rules behind the HTTP
// handlers: entity CRUD, the admin reports and their formatting.
package service

import (
	stderrors "errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pocketbroker/internal/errors"
	"github.com/pocketbroker/internal/storage"
)

// Shared error codes
const (
	CodeMissingFields = "MISSING_REQUIRED_FIELDS"
	CodeInvalidUserID = "INVALID_USER_ID"
	CodeInvalidStatus = "INVALID_STATUS"
	CodeInvalidJSON   = "INVALID_JSON"
)

// notFound converts storage.ErrNotFound into a 404 with code and message and
// wraps anything else as a database error.
func notFound(err error, op, code, message string) error {
	if stderrors.Is(err, storage.ErrNotFound) {
		return errors.NewNotFoundError(code, message)
	}
	return errors.NewDatabaseError(op, err)
}

// trimmed returns the trimmed value of s, or nil when s is nil or blank
func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// validWallet reports whether s is a 0x-prefixed 20 byte hex address
func validWallet(s string) bool {
	return strings.HasPrefix(s, "0x") && common.IsHexAddress(s)
}
