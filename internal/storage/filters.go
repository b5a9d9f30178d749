package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/pocketbroker/internal/querybuild"
	"github.com/pocketbroker/internal/types"
)

// Page bounds a list query
type Page struct {
	Limit  int
	Offset int
}

// UserFilter selects users for the CRUD list endpoint
type UserFilter struct {
	Search string
	Page
}

// TransactionFilter selects transactions for the CRUD list endpoint
type TransactionFilter struct {
	UserID      *int64
	PortfolioID *int64
	Status      *types.TransactionStatus
	Type        *types.TransactionType
	Search      string
	Page
}

type PortfolioFilter struct {
	UserID        *int64
	WalletAddress string
	Page
}

type WatchlistFilter struct {
	UserID *int64
	Search string
	Page
}

type PriceAlertFilter struct {
	UserID    *int64
	Search    string
	Triggered *bool
	Notified  *bool
	Page
}

type SubscriptionFilter struct {
	UserID *int64
	Status *types.SubscriptionStatus
	Plan   *types.SubscriptionPlan
	Page
}

// TransactionSortField names a sortable admin transaction column
type TransactionSortField string

const (
	SortByTimestamp TransactionSortField = "timestamp"
	SortByAmountIn  TransactionSortField = "amountIn"
	SortByAmountOut TransactionSortField = "amountOut"
	SortByGasFee    TransactionSortField = "gasFee"
)

// ValidTransactionSortFields lists the accepted sortBy values in display order
var ValidTransactionSortFields = []TransactionSortField{SortByTimestamp, SortByAmountIn, SortByAmountOut, SortByGasFee}

func (f TransactionSortField) IsValid() bool {
	for _, v := range ValidTransactionSortFields {
		if f == v {
			return true
		}
	}
	return false
}

// AdminTransactionFilter selects transactions for the admin management listing.
// UserIDs, when non-empty, restricts to those owners.
type AdminTransactionFilter struct {
	Status      *types.TransactionStatus
	UserID      *int64
	UserIDs     []int64
	TokenSymbol string
	Search      string
	StartDate   *time.Time
	EndDate     *time.Time
	SortBy      TransactionSortField
	Ascending   bool
	Page
}

// AdminUserFilter selects auth identities for the admin user listing
type AdminUserFilter struct {
	Role        *types.Role
	PremiumTier *types.PremiumTier
	Search      string
	Page
}

// assignments accumulates SET col = $n pairs for partial updates
type assignments struct {
	cols []string
	args []interface{}
}

func (a *assignments) set(col string, value interface{}) {
	a.args = append(a.args, value)
	a.cols = append(a.cols, fmt.Sprintf("%s = $%d", col, len(a.args)))
}

func (a *assignments) empty() bool {
	return len(a.cols) == 0
}

// updateQuery renders "UPDATE table SET ... WHERE id = $n RETURNING returning".
// touchUpdatedAt appends updated_at = NOW().
func (a *assignments) updateQuery(table string, id int64, returning string, touchUpdatedAt bool) (string, []interface{}) {
	cols := a.cols
	if touchUpdatedAt {
		cols = append(cols, "updated_at = NOW()")
	}
	args := append(a.args, id)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d RETURNING %s",
		table, strings.Join(cols, ", "), len(args), returning)
	return query, args
}

// listQuery renders a SELECT for columns from table with the builder's clauses and paging
func listQuery(columns, from string, b *querybuild.Builder, page Page) (string, []interface{}, error) {
	q, err := b.Build(1)
	if err != nil {
		return "", nil, err
	}
	limit := q.Placeholder(page.Limit)
	offset := q.Placeholder(page.Offset)
	query := fmt.Sprintf("SELECT %s FROM %s %s %s LIMIT %s OFFSET %s",
		columns, from, q.Where, q.OrderBy, limit, offset)
	return query, q.Args, nil
}
