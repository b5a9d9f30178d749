package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pocketbroker/internal/errors"
	"github.com/pocketbroker/internal/models"
	"github.com/pocketbroker/internal/storage"
	"github.com/pocketbroker/internal/types"
)

// WatchlistRepository interface for watchlist data operations
type WatchlistRepository interface {
	Create(ctx context.Context, w *models.Watchlist) error
	GetByID(ctx context.Context, id int64) (*models.Watchlist, error)
	List(ctx context.Context, filter storage.WatchlistFilter) ([]*models.Watchlist, error)
	Update(ctx context.Context, id int64, update models.WatchlistUpdate) (*models.Watchlist, error)
	Delete(ctx context.Context, id int64) (*models.Watchlist, error)
}

type WatchlistService struct {
	repo WatchlistRepository
}

func NewWatchlistService(repo WatchlistRepository) *WatchlistService {
	return &WatchlistService{repo: repo}
}

type CreateWatchlistInput struct {
	UserID types.FlexInt   `json:"userId"`
	Name   *string         `json:"name"`
	Tokens json.RawMessage `json:"tokens"`
}

type UpdateWatchlistInput struct {
	Name   *string         `json:"name"`
	Tokens json.RawMessage `json:"tokens"`
}

const watchlistNotFoundCode = "WATCHLIST_NOT_FOUND"

func watchlistTokens(raw json.RawMessage) (json.RawMessage, error) {
	tokens, err := parseTokenArray(raw, false)
	if err != nil {
		return nil, errors.NewValidationError(CodeInvalidJSON, "Tokens must be a valid JSON array")
	}
	return tokens, nil
}

// Create validates and stores a watchlist. The name is trimmed.
func (s *WatchlistService) Create(ctx context.Context, input *CreateWatchlistInput) (*models.Watchlist, error) {
	if !input.UserID.Present {
		return nil, errors.NewMissingFieldsError("User ID is required")
	}
	if input.Name == nil || *input.Name == "" {
		return nil, errors.NewMissingFieldsError("Name is required")
	}
	if absentJSON(input.Tokens) {
		return nil, errors.NewMissingFieldsError("Tokens are required")
	}
	if !input.UserID.Valid {
		return nil, errors.NewValidationError(CodeInvalidUserID, "Valid user ID is required")
	}
	tokens, err := watchlistTokens(input.Tokens)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(*input.Name)
	if name == "" {
		return nil, errors.NewMissingFieldsError("Name cannot be empty")
	}

	w := &models.Watchlist{
		UserID: input.UserID.Value,
		Name:   name,
		Tokens: tokens,
	}
	if err := s.repo.Create(ctx, w); err != nil {
		return nil, errors.NewDatabaseError("create watchlist", err)
	}
	return w, nil
}

func (s *WatchlistService) Get(ctx context.Context, id int64) (*models.Watchlist, error) {
	w, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "get watchlist", watchlistNotFoundCode, "Watchlist not found")
	}
	return w, nil
}

func (s *WatchlistService) List(ctx context.Context, filter storage.WatchlistFilter) ([]*models.Watchlist, error) {
	ws, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, errors.NewDatabaseError("list watchlists", err)
	}
	return ws, nil
}

func (s *WatchlistService) Update(ctx context.Context, id int64, input *UpdateWatchlistInput) (*models.Watchlist, error) {
	var update models.WatchlistUpdate
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, errors.NewMissingFieldsError("Name cannot be empty")
		}
		update.Name = &name
	}
	if !absentJSON(input.Tokens) {
		tokens, err := watchlistTokens(input.Tokens)
		if err != nil {
			return nil, err
		}
		update.Tokens = tokens
	}

	w, err := s.repo.Update(ctx, id, update)
	if err != nil {
		return nil, notFound(err, "update watchlist", watchlistNotFoundCode, "Watchlist not found")
	}
	return w, nil
}

func (s *WatchlistService) Delete(ctx context.Context, id int64) (*models.Watchlist, error) {
	w, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, notFound(err, "delete watchlist", watchlistNotFoundCode, "Watchlist not found")
	}
	return w, nil
}
