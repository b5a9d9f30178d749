package service

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pocketbroker/internal/models"
	"github.com/pocketbroker/internal/storage"
)

// Mock repositories for testing

func uniqueErr(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

type mockUserRepo struct {
	mu     sync.Mutex
	users  map[int64]*models.User
	nextID int64
	err    error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[int64]*models.User)}
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, u := range m.users {
		if u.Email == user.Email {
			return uniqueErr(storage.ConstraintUserEmail)
		}
		if u.WalletAddress != nil && user.WalletAddress != nil && *u.WalletAddress == *user.WalletAddress {
			return uniqueErr(storage.ConstraintUserWallet)
		}
	}
	m.nextID++
	user.ID = m.nextID
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, storage.ErrNotFound
}

func (m *mockUserRepo) GetByWalletAddress(ctx context.Context, walletAddress string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.WalletAddress != nil && *u.WalletAddress == walletAddress {
			return u, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *mockUserRepo) Exists(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.users[id]
	return ok, m.err
}

func (m *mockUserRepo) List(ctx context.Context, filter storage.UserFilter) ([]*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]*models.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u)
	}
	return users, m.err
}

func (m *mockUserRepo) Update(ctx context.Context, id int64, update models.UserUpdate) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if update.Email != nil {
		u.Email = *update.Email
	}
	if update.WalletAddress != nil {
		u.WalletAddress = update.WalletAddress
	}
	if update.PremiumTier != nil {
		u.PremiumTier = *update.PremiumTier
	}
	if update.PremiumExpiresAt != nil {
		u.PremiumExpiresAt = update.PremiumExpiresAt
	}
	return u, nil
}

func (m *mockUserRepo) Delete(ctx context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	delete(m.users, id)
	return u, nil
}

// existsSet is an ExistenceChecker over a fixed id set
type existsSet map[int64]bool

func (e existsSet) Exists(ctx context.Context, id int64) (bool, error) {
	return e[id], nil
}

type mockTransactionRepo struct {
	txs     map[int64]*models.Transaction
	nextID  int64
	listed  []storage.TransactionFilter
	updated []models.TransactionUpdate
}

func newMockTransactionRepo() *mockTransactionRepo {
	return &mockTransactionRepo{txs: make(map[int64]*models.Transaction)}
}

func (m *mockTransactionRepo) Create(ctx context.Context, tx *models.Transaction) error {
	for _, existing := range m.txs {
		if existing.TxHash == tx.TxHash {
			return uniqueErr(storage.ConstraintTransactionHash)
		}
	}
	m.nextID++
	tx.ID = m.nextID
	m.txs[tx.ID] = tx
	return nil
}

func (m *mockTransactionRepo) GetByID(ctx context.Context, id int64) (*models.Transaction, error) {
	if tx, ok := m.txs[id]; ok {
		return tx, nil
	}
	return nil, storage.ErrNotFound
}

func (m *mockTransactionRepo) GetByHash(ctx context.Context, txHash string) (*models.Transaction, error) {
	for _, tx := range m.txs {
		if tx.TxHash == txHash {
			return tx, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *mockTransactionRepo) List(ctx context.Context, filter storage.TransactionFilter) ([]*models.Transaction, error) {
	m.listed = append(m.listed, filter)
	txs := make([]*models.Transaction, 0, len(m.txs))
	for _, tx := range m.txs {
		txs = append(txs, tx)
	}
	return txs, nil
}

func (m *mockTransactionRepo) Update(ctx context.Context, id int64, update models.TransactionUpdate) (*models.Transaction, error) {
	m.updated = append(m.updated, update)
	tx, ok := m.txs[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if update.Status != nil {
		tx.Status = *update.Status
	}
	if update.GasFee != nil {
		tx.GasFee = update.GasFee
	}
	return tx, nil
}

func (m *mockTransactionRepo) Delete(ctx context.Context, id int64) (*models.Transaction, error) {
	tx, ok := m.txs[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	delete(m.txs, id)
	return tx, nil
}

type mockPortfolioRepo struct {
	portfolios map[int64]*models.Portfolio
	nextID     int64
	lastUpdate models.PortfolioUpdate
}

func newMockPortfolioRepo() *mockPortfolioRepo {
	return &mockPortfolioRepo{portfolios: make(map[int64]*models.Portfolio)}
}

func (m *mockPortfolioRepo) Create(ctx context.Context, p *models.Portfolio) error {
	m.nextID++
	p.ID = m.nextID
	m.portfolios[p.ID] = p
	return nil
}

func (m *mockPortfolioRepo) GetByID(ctx context.Context, id int64) (*models.Portfolio, error) {
	if p, ok := m.portfolios[id]; ok {
		return p, nil
	}
	return nil, storage.ErrNotFound
}

func (m *mockPortfolioRepo) List(ctx context.Context, filter storage.PortfolioFilter) ([]*models.Portfolio, error) {
	ps := make([]*models.Portfolio, 0, len(m.portfolios))
	for _, p := range m.portfolios {
		if filter.UserID != nil && p.UserID != *filter.UserID {
			continue
		}
		ps = append(ps, p)
	}
	return ps, nil
}

func (m *mockPortfolioRepo) Update(ctx context.Context, id int64, update models.PortfolioUpdate) (*models.Portfolio, error) {
	m.lastUpdate = update
	p, ok := m.portfolios[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if update.WalletAddress != nil {
		p.WalletAddress = *update.WalletAddress
	}
	if update.Tokens != nil {
		p.Tokens = update.Tokens
	}
	return p, nil
}

func (m *mockPortfolioRepo) Delete(ctx context.Context, id int64) (*models.Portfolio, error) {
	p, ok := m.portfolios[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	delete(m.portfolios, id)
	return p, nil
}

type mockSubscriptionRepo struct {
	subs   map[int64]*models.Subscription
	nextID int64
	listed int
}

func newMockSubscriptionRepo() *mockSubscriptionRepo {
	return &mockSubscriptionRepo{subs: make(map[int64]*models.Subscription)}
}

func (m *mockSubscriptionRepo) Create(ctx context.Context, s *models.Subscription) error {
	for _, existing := range m.subs {
		if existing.StripeCustomerID == s.StripeCustomerID {
			return uniqueErr(storage.ConstraintStripeCustomer)
		}
		if existing.StripeSubscriptionID == s.StripeSubscriptionID {
			return uniqueErr(storage.ConstraintStripeSubscription)
		}
	}
	m.nextID++
	s.ID = m.nextID
	m.subs[s.ID] = s
	return nil
}

func (m *mockSubscriptionRepo) GetByID(ctx context.Context, id int64) (*models.Subscription, error) {
	if s, ok := m.subs[id]; ok {
		return s, nil
	}
	return nil, storage.ErrNotFound
}

func (m *mockSubscriptionRepo) GetByStripeCustomerID(ctx context.Context, customerID string) (*models.Subscription, error) {
	for _, s := range m.subs {
		if s.StripeCustomerID == customerID {
			return s, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *mockSubscriptionRepo) GetByStripeSubscriptionID(ctx context.Context, subscriptionID string) (*models.Subscription, error) {
	for _, s := range m.subs {
		if s.StripeSubscriptionID == subscriptionID {
			return s, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *mockSubscriptionRepo) List(ctx context.Context, filter storage.SubscriptionFilter) ([]*models.Subscription, error) {
	m.listed++
	subs := make([]*models.Subscription, 0, len(m.subs))
	for _, s := range m.subs {
		subs = append(subs, s)
	}
	return subs, nil
}

func (m *mockSubscriptionRepo) Update(ctx context.Context, id int64, update models.SubscriptionUpdate) (*models.Subscription, error) {
	s, ok := m.subs[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if update.Plan != nil {
		s.Plan = *update.Plan
	}
	if update.Status != nil {
		s.Status = *update.Status
	}
	return s, nil
}

func (m *mockSubscriptionRepo) Delete(ctx context.Context, id int64) (*models.Subscription, error) {
	s, ok := m.subs[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	delete(m.subs, id)
	return s, nil
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }
