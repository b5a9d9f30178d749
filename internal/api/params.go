package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pocketbroker/internal/errors"
	"github.com/pocketbroker/internal/service"
	"github.com/pocketbroker/internal/storage"
	"github.com/pocketbroker/internal/types"
)

// CRUD list paging
const (
	DefaultListLimit = 10
	MaxListLimit     = 100
)

// parseID reads the required ?id= parameter
func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get("id")), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.NewValidationError(ErrCodeInvalidID, invalidIDMessage)
	}
	return id, nil
}

// hasID reports whether the request names a single entity. An empty id
// falls through to the list.
func hasID(r *http.Request) bool {
	return r.URL.Query().Get("id") != ""
}

// listPage reads limit (default 10, max 100) and offset (default 0).
// Values that are not integers fall back to the defaults.
func listPage(q url.Values) storage.Page {
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit < 1 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	offset, err := strconv.Atoi(q.Get("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return storage.Page{Limit: limit, Offset: offset}
}

// optionalInt64 parses an integer filter; absent yields nil
func optionalInt64(q url.Values, key, code, message string) (*int64, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, errors.NewValidationError(code, message)
	}
	return &v, nil
}

// optionalBool parses "true" or "false"; anything else is no filter
func optionalBool(q url.Values, key string) *bool {
	switch q.Get(key) {
	case "true":
		v := true
		return &v
	case "false":
		v := false
		return &v
	}
	return nil
}

// optionalString returns a pointer to the trimmed value, nil when blank
func optionalString(q url.Values, key string) *string {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return nil
	}
	return &v
}

func userIDFilter(q url.Values) (*int64, error) {
	return optionalInt64(q, "userId", service.CodeInvalidUserID, "userId must be a valid integer")
}

// ISO layouts accepted for date filters
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseISODate accepts an RFC 3339 timestamp or a calendar date. Values
// without a zone are UTC.
func parseISODate(raw string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// adminPaging reads page (default 1) and limit (default 50). Non-integer
// values fall back to the defaults; integers are clamped to page >= 1 and
// limit 1..100.
func adminPaging(q url.Values) (int, int) {
	page, err := strconv.Atoi(q.Get("page"))
	if err != nil {
		page = 1
	}
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil {
		limit = service.DefaultPageLimit
	}
	return service.NormalizePage(page, limit)
}

// parseTransactionListing validates the admin transaction listing query,
// rejecting on the first invalid value
func parseTransactionListing(q url.Values) (service.TransactionListingQuery, error) {
	var lq service.TransactionListingQuery
	f := &lq.Filter

	if raw := q.Get("status"); raw != "" {
		st := types.TransactionStatus(raw)
		if !st.IsValid() {
			return lq, errors.NewValidationError(service.CodeInvalidStatus, "Invalid status. Must be pending, confirmed, or failed")
		}
		f.Status = &st
	}

	f.SortBy = storage.SortByTimestamp
	if raw := q.Get("sortBy"); raw != "" {
		sortBy := storage.TransactionSortField(raw)
		if !sortBy.IsValid() {
			fields := make([]string, len(storage.ValidTransactionSortFields))
			for i, v := range storage.ValidTransactionSortFields {
				fields[i] = string(v)
			}
			return lq, errors.NewValidationError("INVALID_SORT_FIELD",
				"Invalid sortBy field. Must be one of: "+strings.Join(fields, ", "))
		}
		f.SortBy = sortBy
	}

	switch q.Get("sortOrder") {
	case "", "desc":
	case "asc":
		f.Ascending = true
	default:
		return lq, errors.NewValidationError("INVALID_SORT_ORDER", "Invalid sortOrder. Must be asc or desc")
	}

	if raw := q.Get("startDate"); raw != "" {
		t, ok := parseISODate(raw)
		if !ok {
			return lq, errors.NewValidationError("INVALID_START_DATE", "Invalid startDate format. Use ISO date string")
		}
		f.StartDate = &t
	}
	if raw := q.Get("endDate"); raw != "" {
		t, ok := parseISODate(raw)
		if !ok {
			return lq, errors.NewValidationError("INVALID_END_DATE", "Invalid endDate format. Use ISO date string")
		}
		f.EndDate = &t
	}

	userID, err := optionalInt64(q, "userId", service.CodeInvalidUserID, "Invalid userId. Must be a number")
	if err != nil {
		return lq, err
	}
	f.UserID = userID

	f.TokenSymbol = strings.TrimSpace(q.Get("tokenSymbol"))
	f.Search = strings.TrimSpace(q.Get("search"))
	lq.WalletAddress = strings.TrimSpace(q.Get("walletAddress"))
	lq.Page, lq.Limit = adminPaging(q)
	return lq, nil
}

// parseUserListing validates the admin user listing filters
func parseUserListing(q url.Values) (storage.AdminUserFilter, error) {
	var f storage.AdminUserFilter

	if raw := q.Get("role"); raw != "" {
		role := types.Role(raw)
		if !role.IsValid() {
			return f, errors.NewValidationError("INVALID_ROLE_FILTER", `Invalid role filter. Must be "user" or "admin"`)
		}
		f.Role = &role
	}
	if raw := q.Get("premiumTier"); raw != "" {
		tier := types.PremiumTier(raw)
		if !tier.IsValid() {
			return f, errors.NewValidationError("INVALID_PREMIUM_TIER_FILTER", `Invalid premium tier filter. Must be "free", "pro", or "enterprise"`)
		}
		f.PremiumTier = &tier
	}
	f.Search = strings.TrimSpace(q.Get("search"))
	return f, nil
}
