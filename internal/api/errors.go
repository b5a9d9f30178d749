package api

import (
	"encoding/json"
	"net/http"

	"github.com/pocketbroker/internal/errors"
	"github.com/pocketbroker/internal/logging"
)

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Common error codes
const (
	ErrCodeInvalidID      = "INVALID_ID"
	ErrCodeInvalidBody    = "INVALID_REQUEST_BODY"
	ErrCodeInternalError  = "INTERNAL_ERROR"
	internalErrorMessage  = "Internal server error"
	invalidIDMessage      = "Valid ID is required"
	invalidRequestMessage = "Request body must be valid JSON"
)

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, statusCode int, code, message string) {
	respondJSON(w, statusCode, ErrorResponse{Error: message, Code: code})
}

// writeError converts err to its categorized HTTP reply. Internal failures
// are logged with their cause and answered without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	catErr := errors.Categorize(err)
	if catErr.StatusCode >= http.StatusInternalServerError && catErr.Category != errors.CategoryProvider {
		logging.FromContext(r.Context()).WithError(err).WithFields(map[string]interface{}{
			"category": string(catErr.Category),
			"code":     catErr.Code,
		}).Error("Request failed")
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, internalErrorMessage)
		return
	}
	if catErr.Category == errors.CategoryProvider {
		logging.FromContext(r.Context()).WithError(err).Warn("Upstream provider failed")
	}
	respondError(w, catErr.StatusCode, catErr.Code, catErr.Message)
}

// parseJSONBody parses JSON request body.
func parseJSONBody(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.NewValidationError(ErrCodeInvalidBody, invalidRequestMessage)
	}
	return nil
}
