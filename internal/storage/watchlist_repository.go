package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pocketbroker/internal/models"
	"github.com/pocketbroker/internal/querybuild"
)

const watchlistColumns = `id, user_id, name, tokens, created_at, updated_at`

// WatchlistRepository handles watchlist persistence
type WatchlistRepository struct {
	db *PostgresDB
}

func NewWatchlistRepository(db *PostgresDB) *WatchlistRepository {
	return &WatchlistRepository{db: db}
}

func scanWatchlist(row pgx.Row) (*models.Watchlist, error) {
	var w models.Watchlist
	var tokens []byte
	if err := row.Scan(&w.ID, &w.UserID, &w.Name, &tokens, &w.CreatedAt, &w.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	w.Tokens = tokens
	return &w, nil
}

func (r *WatchlistRepository) Create(ctx context.Context, w *models.Watchlist) error {
	query := `
		INSERT INTO watchlists (user_id, name, tokens)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`
	if err := r.db.Pool().QueryRow(ctx, query, w.UserID, w.Name, string(w.Tokens)).
		Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create watchlist: %w", err)
	}
	return nil
}

func (r *WatchlistRepository) GetByID(ctx context.Context, id int64) (*models.Watchlist, error) {
	query := `SELECT ` + watchlistColumns + ` FROM watchlists WHERE id = $1`

	w, err := scanWatchlist(r.db.Pool().QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get watchlist: %w", err)
	}
	return w, nil
}

// List returns watchlists matching the filter, newest first
func (r *WatchlistRepository) List(ctx context.Context, filter WatchlistFilter) ([]*models.Watchlist, error) {
	b := querybuild.NewBuilder("user_id", "name", "created_at")
	if filter.UserID != nil {
		b.Where(querybuild.Equals("user_id", *filter.UserID))
	}
	if filter.Search != "" {
		b.Where(querybuild.Like(filter.Search, "name"))
	}
	b.OrderBy("created_at", querybuild.Desc)

	query, args, err := listQuery(watchlistColumns, "watchlists", b, filter.Page)
	if err != nil {
		return nil, fmt.Errorf("failed to build watchlist query: %w", err)
	}

	rows, err := r.db.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list watchlists: %w", err)
	}
	defer rows.Close()

	lists := make([]*models.Watchlist, 0)
	for rows.Next() {
		w, err := scanWatchlist(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan watchlist: %w", err)
		}
		lists = append(lists, w)
	}
	return lists, rows.Err()
}

func (r *WatchlistRepository) Update(ctx context.Context, id int64, update models.WatchlistUpdate) (*models.Watchlist, error) {
	var a assignments
	if update.Name != nil {
		a.set("name", *update.Name)
	}
	if update.Tokens != nil {
		a.set("tokens", string(update.Tokens))
	}
	if a.empty() {
		return r.GetByID(ctx, id)
	}

	query, args := a.updateQuery("watchlists", id, watchlistColumns, true)
	w, err := scanWatchlist(r.db.Pool().QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update watchlist: %w", err)
	}
	return w, nil
}

func (r *WatchlistRepository) Delete(ctx context.Context, id int64) (*models.Watchlist, error) {
	query := `DELETE FROM watchlists WHERE id = $1 RETURNING ` + watchlistColumns

	w, err := scanWatchlist(r.db.Pool().QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to delete watchlist: %w", err)
	}
	return w, nil
}
