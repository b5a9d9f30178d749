package service

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/pocketbroker/internal/errors"
	"github.com/pocketbroker/internal/models"
	"github.com/pocketbroker/internal/storage"
	"github.com/pocketbroker/internal/types"
)

// PortfolioRepository interface for portfolio data operations
type PortfolioRepository interface {
	Create(ctx context.Context, p *models.Portfolio) error
	GetByID(ctx context.Context, id int64) (*models.Portfolio, error)
	List(ctx context.Context, filter storage.PortfolioFilter) ([]*models.Portfolio, error)
	Update(ctx context.Context, id int64, update models.PortfolioUpdate) (*models.Portfolio, error)
	Delete(ctx context.Context, id int64) (*models.Portfolio, error)
}

// PortfolioService manages wallet portfolios
type PortfolioService struct {
	repo PortfolioRepository
}

// NewPortfolioService creates a new portfolio service
func NewPortfolioService(repo PortfolioRepository) *PortfolioService {
	return &PortfolioService{repo: repo}
}

// CreatePortfolioInput is the body of a portfolio create request.
// Tokens may be a JSON array or a string holding one.
type CreatePortfolioInput struct {
	UserID        types.FlexInt   `json:"userId"`
	WalletAddress string          `json:"walletAddress"`
	Tokens        json.RawMessage `json:"tokens"`
	TotalValueUSD types.FlexFloat `json:"totalValueUsd"`
	LastSyncedAt  *time.Time      `json:"lastSyncedAt"`
}

// UpdatePortfolioInput is the body of a portfolio update request
type UpdatePortfolioInput struct {
	WalletAddress *string         `json:"walletAddress"`
	Tokens        json.RawMessage `json:"tokens"`
	TotalValueUSD types.FlexFloat `json:"totalValueUsd"`
	LastSyncedAt  *time.Time      `json:"lastSyncedAt"`
}

const portfolioNotFoundCode = "PORTFOLIO_NOT_FOUND"

// absentJSON reports whether raw is missing or null
func absentJSON(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// parseTokenArray checks that raw is a JSON array. With allowString a JSON
// string holding an array is unwrapped first. The result is compacted.
func parseTokenArray(raw json.RawMessage, allowString bool) (json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if allowString && len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, errors.NewValidationError(CodeInvalidJSON, "tokens must be valid JSON")
		}
		raw = bytes.TrimSpace([]byte(s))
		if !json.Valid(raw) {
			return nil, errors.NewValidationError(CodeInvalidJSON, "tokens must be valid JSON")
		}
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || items == nil {
		return nil, errors.NewValidationError(CodeInvalidJSON, "tokens must be a JSON array")
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, errors.NewValidationError(CodeInvalidJSON, "tokens must be valid JSON")
	}
	return buf.Bytes(), nil
}

// Create validates and stores a portfolio
func (s *PortfolioService) Create(ctx context.Context, input *CreatePortfolioInput) (*models.Portfolio, error) {
	if !input.UserID.Present {
		return nil, errors.NewMissingFieldsError("userId is required")
	}
	wallet := strings.TrimSpace(input.WalletAddress)
	if wallet == "" {
		return nil, errors.NewMissingFieldsError("walletAddress is required")
	}
	if absentJSON(input.Tokens) {
		return nil, errors.NewMissingFieldsError("tokens is required")
	}
	if !input.UserID.Valid {
		return nil, errors.NewValidationError(CodeInvalidUserID, "userId must be a valid integer")
	}

	tokens, err := parseTokenArray(input.Tokens, true)
	if err != nil {
		return nil, err
	}

	p := &models.Portfolio{
		UserID:        input.UserID.Value,
		WalletAddress: wallet,
		Tokens:        tokens,
		TotalValueUSD: input.TotalValueUSD.Ptr(),
		LastSyncedAt:  input.LastSyncedAt,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, errors.NewDatabaseError("create portfolio", err)
	}
	return p, nil
}

// Get returns the portfolio with id
func (s *PortfolioService) Get(ctx context.Context, id int64) (*models.Portfolio, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "get portfolio", portfolioNotFoundCode, "Portfolio not found")
	}
	return p, nil
}

// List returns portfolios matching filter
func (s *PortfolioService) List(ctx context.Context, filter storage.PortfolioFilter) ([]*models.Portfolio, error) {
	ps, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, errors.NewDatabaseError("list portfolios", err)
	}
	return ps, nil
}

// Update applies a partial update to the portfolio with id
func (s *PortfolioService) Update(ctx context.Context, id int64, input *UpdatePortfolioInput) (*models.Portfolio, error) {
	var update models.PortfolioUpdate
	if input.WalletAddress != nil {
		wallet := strings.TrimSpace(*input.WalletAddress)
		update.WalletAddress = &wallet
	}
	if !absentJSON(input.Tokens) {
		tokens, err := parseTokenArray(input.Tokens, true)
		if err != nil {
			return nil, err
		}
		update.Tokens = tokens
	}
	update.TotalValueUSD = input.TotalValueUSD.Ptr()
	update.LastSyncedAt = input.LastSyncedAt

	p, err := s.repo.Update(ctx, id, update)
	if err != nil {
		return nil, notFound(err, "update portfolio", portfolioNotFoundCode, "Portfolio not found")
	}
	return p, nil
}

// Delete removes the portfolio with id and returns it
func (s *PortfolioService) Delete(ctx context.Context, id int64) (*models.Portfolio, error) {
	p, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, notFound(err, "delete portfolio", portfolioNotFoundCode, "Portfolio not found")
	}
	return p, nil
}
