package api

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/pocketbroker/internal/errors"
	"github.com/pocketbroker/internal/market"
	"github.com/pocketbroker/internal/models"
	"github.com/pocketbroker/internal/service"
	"github.com/pocketbroker/internal/storage"
	"github.com/pocketbroker/internal/swap"
	"github.com/pocketbroker/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryUsers is a map-backed user service
type memoryUsers struct {
	users      map[int64]*models.User
	lastFilter storage.UserFilter
	created    *service.CreateUserInput
	failList   bool
}

func newMemoryUsers(users ...*models.User) *memoryUsers {
	m := &memoryUsers{users: make(map[int64]*models.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func userNotFound() error { return errors.NewNotFoundError("USER_NOT_FOUND", "User not found") }

func (m *memoryUsers) Create(ctx context.Context, input *service.CreateUserInput) (*models.User, error) {
	m.created = input
	if strings.TrimSpace(input.Email) == "" {
		return nil, errors.NewMissingFieldsError("Email is required and must be a non-empty string")
	}
	u := &models.User{ID: int64(len(m.users) + 1), Email: input.Email, PremiumTier: types.TierFree}
	m.users[u.ID] = u
	return u, nil
}

func (m *memoryUsers) Get(ctx context.Context, id int64) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, userNotFound()
}

func (m *memoryUsers) GetByWallet(ctx context.Context, walletAddress string) (*models.User, error) {
	for _, u := range m.users {
		if u.WalletAddress != nil && *u.WalletAddress == walletAddress {
			return u, nil
		}
	}
	return nil, userNotFound()
}

func (m *memoryUsers) List(ctx context.Context, filter storage.UserFilter) ([]*models.User, error) {
	m.lastFilter = filter
	if m.failList {
		return nil, errors.NewDatabaseError("list users", stderrors.New("connection reset"))
	}
	out := []*models.User{}
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func (m *memoryUsers) Update(ctx context.Context, id int64, input *service.UpdateUserInput) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, userNotFound()
	}
	if input.Email != nil {
		u.Email = *input.Email
	}
	return u, nil
}

func (m *memoryUsers) Delete(ctx context.Context, id int64) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, userNotFound()
	}
	delete(m.users, id)
	return u, nil
}

// recordingTransactions captures the list filter
type recordingTransactions struct {
	TransactionServiceInterface
	lastFilter storage.TransactionFilter
	byHash     string
}

func (r *recordingTransactions) List(ctx context.Context, filter storage.TransactionFilter) ([]*models.Transaction, error) {
	r.lastFilter = filter
	return []*models.Transaction{}, nil
}

func (r *recordingTransactions) GetByHash(ctx context.Context, txHash string) (*models.Transaction, error) {
	r.byHash = txHash
	return &models.Transaction{ID: 9, TxHash: txHash}, nil
}

func (r *recordingTransactions) Create(ctx context.Context, input *service.CreateTransactionInput) (*models.Transaction, error) {
	return nil, errors.NewConflictError("DUPLICATE_TX_HASH", "Transaction with this txHash already exists")
}

type recordingAlerts struct {
	PriceAlertServiceInterface
	lastFilter storage.PriceAlertFilter
}

func (r *recordingAlerts) List(ctx context.Context, filter storage.PriceAlertFilter) ([]*models.PriceAlert, error) {
	r.lastFilter = filter
	return []*models.PriceAlert{}, nil
}

func (r *recordingAlerts) Delete(ctx context.Context, id int64) (*models.PriceAlert, error) {
	return &models.PriceAlert{ID: id}, nil
}

type recordingSubscriptions struct {
	SubscriptionServiceInterface
	customer   string
	lastFilter storage.SubscriptionFilter
}

func (r *recordingSubscriptions) GetByStripeCustomer(ctx context.Context, customerID string) (*models.Subscription, error) {
	r.customer = customerID
	return &models.Subscription{ID: 4}, nil
}

func (r *recordingSubscriptions) List(ctx context.Context, filter storage.SubscriptionFilter) ([]*models.Subscription, error) {
	r.lastFilter = filter
	if err := service.ValidateSubscriptionFilter(filter); err != nil {
		return nil, err
	}
	return []*models.Subscription{}, nil
}

type recordingWatchlists struct {
	WatchlistServiceInterface
	lastFilter storage.WatchlistFilter
}

func (r *recordingWatchlists) List(ctx context.Context, filter storage.WatchlistFilter) ([]*models.Watchlist, error) {
	r.lastFilter = filter
	return []*models.Watchlist{}, nil
}

type recordingPortfolios struct {
	PortfolioServiceInterface
	lastFilter storage.PortfolioFilter
}

func (r *recordingPortfolios) List(ctx context.Context, filter storage.PortfolioFilter) ([]*models.Portfolio, error) {
	r.lastFilter = filter
	return []*models.Portfolio{}, nil
}

// stubMarket serves fixed market data, or err for every resource
type stubMarket struct {
	err error
}

func (m stubMarket) Stats(ctx context.Context) (*market.Stats, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &market.Stats{TotalMarketCap: 2.5e12, BtcDominance: 52.1, ActiveMarkets: 1100}, nil
}

func (m stubMarket) Trending(ctx context.Context) ([]market.TrendingToken, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []market.TrendingToken{{ID: "pepe", Symbol: "PEPE", Price: "N/A", Volume: "N/A"}}, nil
}

func (m stubMarket) Movers(ctx context.Context) (*market.Movers, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &market.Movers{Gainers: []market.Mover{}, Losers: []market.Mover{}}, nil
}

func jsonBody(t *testing.T, v interface{}) *bytes.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func TestUsers_GetByID(t *testing.T) {
	users := newMemoryUsers(&models.User{ID: 1, Email: "a@example.com", PremiumTier: types.TierPro})
	s := newTestServer(t, Services{Users: users})

	w := do(s, http.MethodGet, "/api/users?id=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got models.User
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, "a@example.com", got.Email)

	w = do(s, http.MethodGet, "/api/users?id=42", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "USER_NOT_FOUND", decodeError(t, w).Code)
}

func TestUsers_InvalidID(t *testing.T) {
	s := newTestServer(t, Services{Users: newMemoryUsers()})

	tests := []struct {
		method string
		target string
	}{
		{http.MethodGet, "/api/users?id=abc"},
		{http.MethodGet, "/api/users?id=-3"},
		{http.MethodPut, "/api/users"},
		{http.MethodPut, "/api/users?id=x1"},
		{http.MethodDelete, "/api/users"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			w := do(s, tt.method, tt.target, strings.NewReader(`{}`))
			assert.Equal(t, http.StatusBadRequest, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, ErrCodeInvalidID, resp.Code)
			assert.Equal(t, "Valid ID is required", resp.Error)
		})
	}
}

func TestUsers_ByWalletAndList(t *testing.T) {
	wallet := "0x00000000000000000000000000000000000000aa"
	users := newMemoryUsers(&models.User{ID: 1, Email: "w@example.com", WalletAddress: &wallet})
	s := newTestServer(t, Services{Users: users})

	w := do(s, http.MethodGet, "/api/users?walletAddress="+wallet, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// an empty id falls through to the list
	w = do(s, http.MethodGet, "/api/users?id=&search=%20w@%20&limit=500&offset=20", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "w@", users.lastFilter.Search)
	assert.Equal(t, storage.Page{Limit: MaxListLimit, Offset: 20}, users.lastFilter.Page)

	w = do(s, http.MethodGet, "/api/users?limit=abc&offset=-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, storage.Page{Limit: DefaultListLimit, Offset: 0}, users.lastFilter.Page)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(w.Body.String()), "["), "lists are bare arrays")
}

func TestUsers_CreateUpdateDelete(t *testing.T) {
	users := newMemoryUsers()
	s := newTestServer(t, Services{Users: users})

	w := do(s, http.MethodPost, "/api/users", jsonBody(t, map[string]interface{}{"email": "new@example.com"}))
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.User
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
	assert.Equal(t, int64(1), created.ID)

	w = do(s, http.MethodPost, "/api/users", jsonBody(t, map[string]interface{}{"email": "  "}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, service.CodeMissingFields, decodeError(t, w).Code)

	w = do(s, http.MethodPut, "/api/users?id=1", jsonBody(t, map[string]interface{}{"email": "renamed@example.com"}))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "renamed@example.com")

	w = do(s, http.MethodDelete, "/api/users?id=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var deleted struct {
		Message string      `json:"message"`
		User    models.User `json:"user"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&deleted))
	assert.Equal(t, "User deleted successfully", deleted.Message)
	assert.Equal(t, "renamed@example.com", deleted.User.Email)

	w = do(s, http.MethodDelete, "/api/users?id=1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUsers_InvalidBody(t *testing.T) {
	s := newTestServer(t, Services{Users: newMemoryUsers()})

	w := do(s, http.MethodPost, "/api/users", strings.NewReader("invalid json"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, ErrCodeInvalidBody, decodeError(t, w).Code)
}

func TestUsers_DatabaseErrorIsHidden(t *testing.T) {
	users := newMemoryUsers()
	users.failList = true
	s := newTestServer(t, Services{Users: users})

	w := do(s, http.MethodGet, "/api/users", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, ErrCodeInternalError, resp.Code)
	assert.NotContains(t, resp.Error, "connection reset")
}

func TestTransactions_ListFilters(t *testing.T) {
	txs := &recordingTransactions{}
	s := newTestServer(t, Services{Transactions: txs})

	w := do(s, http.MethodGet, "/api/transactions?userId=7&portfolioId=3&status=failed&type=swap&search=ETH", nil)
	require.Equal(t, http.StatusOK, w.Code)
	f := txs.lastFilter
	require.NotNil(t, f.UserID)
	require.NotNil(t, f.PortfolioID)
	require.NotNil(t, f.Status)
	require.NotNil(t, f.Type)
	assert.Equal(t, int64(7), *f.UserID)
	assert.Equal(t, int64(3), *f.PortfolioID)
	assert.Equal(t, types.TransactionStatus("failed"), *f.Status)
	assert.Equal(t, types.TransactionType("swap"), *f.Type)
	assert.Equal(t, "ETH", f.Search)

	w = do(s, http.MethodGet, "/api/transactions?userId=seven", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, service.CodeInvalidUserID, decodeError(t, w).Code)

	w = do(s, http.MethodGet, "/api/transactions?portfolioId=1.5", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_PORTFOLIO_ID", decodeError(t, w).Code)
}

func TestTransactions_ByHashAndDuplicate(t *testing.T) {
	txs := &recordingTransactions{}
	s := newTestServer(t, Services{Transactions: txs})

	w := do(s, http.MethodGet, "/api/transactions?txHash=0xabc", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0xabc", txs.byHash)

	w = do(s, http.MethodPost, "/api/transactions", jsonBody(t, map[string]interface{}{"txHash": "0xabc"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "DUPLICATE_TX_HASH", resp.Code)
	assert.Equal(t, "Transaction with this txHash already exists", resp.Error)
}

func TestPortfoliosAndWatchlists_ListFilters(t *testing.T) {
	portfolios := &recordingPortfolios{}
	watchlists := &recordingWatchlists{}
	s := newTestServer(t, Services{Portfolios: portfolios, Watchlists: watchlists})

	w := do(s, http.MethodGet, "/api/portfolios?userId=2&walletAddress=0xdead", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, portfolios.lastFilter.UserID)
	assert.Equal(t, int64(2), *portfolios.lastFilter.UserID)
	assert.Equal(t, "0xdead", portfolios.lastFilter.WalletAddress)

	w = do(s, http.MethodGet, "/api/watchlists?search=defi&limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, watchlists.lastFilter.UserID)
	assert.Equal(t, "defi", watchlists.lastFilter.Search)
	assert.Equal(t, 5, watchlists.lastFilter.Limit)
}

func TestPriceAlerts_ListFiltersAndDelete(t *testing.T) {
	alerts := &recordingAlerts{}
	s := newTestServer(t, Services{PriceAlerts: alerts})

	w := do(s, http.MethodGet, "/api/price-alerts?triggered=true&notified=false&search=ETH", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, alerts.lastFilter.Triggered)
	require.NotNil(t, alerts.lastFilter.Notified)
	assert.True(t, *alerts.lastFilter.Triggered)
	assert.False(t, *alerts.lastFilter.Notified)
	assert.Equal(t, "ETH", alerts.lastFilter.Search)

	w = do(s, http.MethodGet, "/api/price-alerts?triggered=yes", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, alerts.lastFilter.Triggered)

	w = do(s, http.MethodDelete, "/api/price-alerts?id=12", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Message string            `json:"message"`
		Alert   models.PriceAlert `json:"alert"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "Price alert deleted successfully", resp.Message)
	assert.Equal(t, int64(12), resp.Alert.ID)
}

func TestSubscriptions_LookupAndFilters(t *testing.T) {
	subs := &recordingSubscriptions{}
	s := newTestServer(t, Services{Subscriptions: subs})

	w := do(s, http.MethodGet, "/api/subscriptions?stripeCustomerId=cus_123", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cus_123", subs.customer)

	w = do(s, http.MethodGet, "/api/subscriptions?status=active&plan=pro", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, subs.lastFilter.Status)
	require.NotNil(t, subs.lastFilter.Plan)
	assert.Equal(t, types.SubscriptionStatus("active"), *subs.lastFilter.Status)

	w = do(s, http.MethodGet, "/api/subscriptions?plan=platinum", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_PLAN", decodeError(t, w).Code)
}

func TestAdminTransactionListing_Query(t *testing.T) {
	admin := &stubAdmin{}
	s := newTestServer(t, Services{Admin: admin})

	w := do(s, http.MethodGet,
		"/api/admin/transactions/list?status=confirmed&sortBy=gasFee&sortOrder=asc&startDate=2025-01-01&endDate=2025-01-31T23:59:59Z&userId=5&tokenSymbol=ETH&walletAddress=0xabc&page=2&limit=500",
		nil, "Authorization", "Bearer admin-token")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	q := admin.listingReq
	require.NotNil(t, q.Filter.Status)
	assert.Equal(t, types.TransactionStatus("confirmed"), *q.Filter.Status)
	assert.Equal(t, storage.SortByGasFee, q.Filter.SortBy)
	assert.True(t, q.Filter.Ascending)
	require.NotNil(t, q.Filter.StartDate)
	require.NotNil(t, q.Filter.EndDate)
	assert.Equal(t, "2025-01-01T00:00:00Z", q.Filter.StartDate.Format("2006-01-02T15:04:05Z07:00"))
	require.NotNil(t, q.Filter.UserID)
	assert.Equal(t, int64(5), *q.Filter.UserID)
	assert.Equal(t, "ETH", q.Filter.TokenSymbol)
	assert.Equal(t, "0xabc", q.WalletAddress)
	assert.Equal(t, 2, q.Page)
	assert.Equal(t, service.MaxPageLimit, q.Limit)
}

func TestAdminTransactionListing_Rejections(t *testing.T) {
	s := newTestServer(t, Services{})

	tests := []struct {
		query    string
		wantCode string
		wantMsg  string
	}{
		{"status=done", service.CodeInvalidStatus, "Invalid status. Must be pending, confirmed, or failed"},
		{"sortBy=price", "INVALID_SORT_FIELD", "Invalid sortBy field. Must be one of: timestamp, amountIn, amountOut, gasFee"},
		{"sortOrder=up", "INVALID_SORT_ORDER", ""},
		{"startDate=yesterday", "INVALID_START_DATE", "Invalid startDate format. Use ISO date string"},
		{"endDate=01/02/2025", "INVALID_END_DATE", ""},
		{"userId=abc", service.CodeInvalidUserID, "Invalid userId. Must be a number"},
		// status is checked before sortBy
		{"status=done&sortBy=price", service.CodeInvalidStatus, ""},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := do(s, http.MethodGet, "/api/admin/transactions-management?"+tt.query, nil, "Authorization", "Bearer t")
			require.Equal(t, http.StatusBadRequest, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, tt.wantCode, resp.Code)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, resp.Error)
			}
		})
	}
}

func TestAdminUserListing_Rejections(t *testing.T) {
	s := newTestServer(t, Services{})

	w := do(s, http.MethodGet, "/api/admin/users/list?role=owner", nil, "Authorization", "Bearer t")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ROLE_FILTER", decodeError(t, w).Code)

	w = do(s, http.MethodGet, "/api/admin/users-management?premiumTier=gold", nil, "Authorization", "Bearer t")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_PREMIUM_TIER_FILTER", decodeError(t, w).Code)
}

func TestAdminPaging(t *testing.T) {
	tests := []struct {
		query     string
		wantPage  int
		wantLimit int
	}{
		{"", 1, service.DefaultPageLimit},
		{"page=3&limit=20", 3, 20},
		{"page=abc&limit=abc", 1, service.DefaultPageLimit},
		{"limit=0", 1, 1},
		{"limit=-5", 1, 1},
		{"page=-2&limit=500", 1, service.MaxPageLimit},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			require.NoError(t, err)
			page, limit := adminPaging(q)
			assert.Equal(t, tt.wantPage, page)
			assert.Equal(t, tt.wantLimit, limit)
		})
	}
}

func TestAdminUsers_PageParam(t *testing.T) {
	admin := &stubAdmin{}
	s := newTestServer(t, Services{Admin: admin})

	w := do(s, http.MethodGet, "/api/admin/users?page=3", nil, "Authorization", "Bearer t")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, admin.usersPage)

	for _, page := range []string{"0", "-1", "two"} {
		w = do(s, http.MethodGet, "/api/admin/users?page="+page, nil, "Authorization", "Bearer t")
		assert.Equal(t, http.StatusBadRequest, w.Code, page)
		assert.Equal(t, service.CodeInvalidPageParam, decodeError(t, w).Code)
	}
}

func TestAdminRecentActivity_EmptyFeed(t *testing.T) {
	s := newTestServer(t, Services{})

	w := do(s, http.MethodGet, "/api/admin/recent-activity", nil, "Authorization", "Bearer t")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"activities":[]}`, w.Body.String())
}

func TestMarketEndpoints(t *testing.T) {
	s := newTestServer(t, Services{Market: stubMarket{}})

	w := do(s, http.MethodGet, "/api/market/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"activeMarkets":1100`)

	w = do(s, http.MethodGet, "/api/market/trending", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"price":"N/A"`)

	w = do(s, http.MethodGet, "/api/market/movers", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"gainers":[],"losers":[]}`, w.Body.String())
}

func TestMarketEndpoints_UpstreamFailure(t *testing.T) {
	fail := errors.NewProviderError(market.CodeMarketUnavailable, "Failed to fetch market movers", stderrors.New("502"))
	s := newTestServer(t, Services{Market: stubMarket{err: fail}})

	w := do(s, http.MethodGet, "/api/market/movers", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, market.CodeMarketUnavailable, resp.Code)
	assert.Equal(t, "Failed to fetch market movers", resp.Error)
}

func TestSwapQuote(t *testing.T) {
	s := newTestServer(t, Services{Quoter: swap.NewQuoter(swap.NopRecorder{})})

	w := do(s, http.MethodPost, "/api/swap/quote", jsonBody(t, map[string]interface{}{
		"tokenIn": "ETH", "tokenOut": "USDC", "amount": "2", "slippage": 1,
	}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var quote swap.Quote
	require.NoError(t, json.NewDecoder(w.Body).Decode(&quote))
	assert.Equal(t, "6491.340000", quote.AmountOut)
	assert.Equal(t, "6426.426600", quote.MinimumReceived)

	w = do(s, http.MethodPost, "/api/swap/quote", jsonBody(t, map[string]interface{}{"tokenIn": "ETH"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, service.CodeMissingFields, decodeError(t, w).Code)

	w = do(s, http.MethodGet, "/api/swap/quote", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.JSONEq(t, `{"message":"Use POST method to get swap quotes"}`, w.Body.String())
}
