package service

import "math"

// Page size bounds for the admin listings
const (
	DefaultPageLimit = 50
	MaxPageLimit     = 100
)

// MaxOffset caps the row offset of any page. Pages past it read no rows.
const MaxOffset = math.MaxInt32

// Pagination describes one page of a listing
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

// NormalizePage clamps page to at least 1 and limit to 1..MaxPageLimit
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return page, limit
}

// Offset returns the number of rows before page, at most MaxOffset
func Offset(page, limit int) int {
	if page < 1 || limit < 1 {
		return 0
	}
	if page-1 > MaxOffset/limit {
		return MaxOffset
	}
	return (page - 1) * limit
}

// TotalPages is ceil(total/limit). A non-positive limit yields 0.
func TotalPages(total int64, limit int) int64 {
	if limit <= 0 || total <= 0 {
		return 0
	}
	l := int64(limit)
	return (total + l - 1) / l
}

// NewPagination builds the pagination block for a page of total rows
func NewPagination(page, limit int, total int64) Pagination {
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: TotalPages(total, limit),
	}
}
