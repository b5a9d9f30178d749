package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pocketbroker/internal/models"
	"github.com/pocketbroker/internal/querybuild"
)

const priceAlertColumns = `id, user_id, token_symbol, token_address, condition, target_price,
	current_price, triggered, notified, created_at, updated_at`

// PriceAlertRepository handles price alert persistence
type PriceAlertRepository struct {
	db *PostgresDB
}

func NewPriceAlertRepository(db *PostgresDB) *PriceAlertRepository {
	return &PriceAlertRepository{db: db}
}

func scanPriceAlert(row pgx.Row) (*models.PriceAlert, error) {
	var a models.PriceAlert
	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.TokenSymbol,
		&a.TokenAddress,
		&a.Condition,
		&a.TargetPrice,
		&a.CurrentPrice,
		&a.Triggered,
		&a.Notified,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func collectPriceAlerts(rows pgx.Rows) ([]*models.PriceAlert, error) {
	defer rows.Close()

	alerts := make([]*models.PriceAlert, 0)
	for rows.Next() {
		a, err := scanPriceAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func (r *PriceAlertRepository) Create(ctx context.Context, a *models.PriceAlert) error {
	query := `
		INSERT INTO price_alerts (
			user_id, token_symbol, token_address, condition, target_price,
			current_price, triggered, notified
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`
	err := r.db.Pool().QueryRow(ctx, query,
		a.UserID,
		a.TokenSymbol,
		a.TokenAddress,
		a.Condition,
		a.TargetPrice,
		a.CurrentPrice,
		a.Triggered,
		a.Notified,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create price alert: %w", err)
	}
	return nil
}

func (r *PriceAlertRepository) GetByID(ctx context.Context, id int64) (*models.PriceAlert, error) {
	query := `SELECT ` + priceAlertColumns + ` FROM price_alerts WHERE id = $1`

	a, err := scanPriceAlert(r.db.Pool().QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get price alert: %w", err)
	}
	return a, nil
}

// List returns alerts matching the filter, newest first
func (r *PriceAlertRepository) List(ctx context.Context, filter PriceAlertFilter) ([]*models.PriceAlert, error) {
	b := querybuild.NewBuilder("user_id", "token_symbol", "triggered", "notified", "created_at")
	if filter.UserID != nil {
		b.Where(querybuild.Equals("user_id", *filter.UserID))
	}
	if filter.Search != "" {
		b.Where(querybuild.Like(filter.Search, "token_symbol"))
	}
	if filter.Triggered != nil {
		b.Where(querybuild.Equals("triggered", *filter.Triggered))
	}
	if filter.Notified != nil {
		b.Where(querybuild.Equals("notified", *filter.Notified))
	}
	b.OrderBy("created_at", querybuild.Desc)

	query, args, err := listQuery(priceAlertColumns, "price_alerts", b, filter.Page)
	if err != nil {
		return nil, fmt.Errorf("failed to build price alert query: %w", err)
	}

	rows, err := r.db.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list price alerts: %w", err)
	}
	return collectPriceAlerts(rows)
}

func (r *PriceAlertRepository) Update(ctx context.Context, id int64, update models.PriceAlertUpdate) (*models.PriceAlert, error) {
	var a assignments
	if update.TokenSymbol != nil {
		a.set("token_symbol", *update.TokenSymbol)
	}
	if update.TokenAddress != nil {
		a.set("token_address", *update.TokenAddress)
	}
	if update.Condition != nil {
		a.set("condition", *update.Condition)
	}
	if update.TargetPrice != nil {
		a.set("target_price", *update.TargetPrice)
	}
	if update.CurrentPrice != nil {
		a.set("current_price", *update.CurrentPrice)
	}
	if update.Triggered != nil {
		a.set("triggered", *update.Triggered)
	}
	if update.Notified != nil {
		a.set("notified", *update.Notified)
	}
	if a.empty() {
		return r.GetByID(ctx, id)
	}

	query, args := a.updateQuery("price_alerts", id, priceAlertColumns, true)
	alert, err := scanPriceAlert(r.db.Pool().QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update price alert: %w", err)
	}
	return alert, nil
}

func (r *PriceAlertRepository) Delete(ctx context.Context, id int64) (*models.PriceAlert, error) {
	query := `DELETE FROM price_alerts WHERE id = $1 RETURNING ` + priceAlertColumns

	a, err := scanPriceAlert(r.db.Pool().QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to delete price alert: %w", err)
	}
	return a, nil
}

// ListUntriggered returns every alert that has not fired yet
func (r *PriceAlertRepository) ListUntriggered(ctx context.Context) ([]*models.PriceAlert, error) {
	query := `SELECT ` + priceAlertColumns + ` FROM price_alerts WHERE triggered = FALSE ORDER BY id`

	rows, err := r.db.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list untriggered alerts: %w", err)
	}
	return collectPriceAlerts(rows)
}

// RecordPrice stores the latest observed price and whether the alert fired.
// A fired alert is never reset here.
func (r *PriceAlertRepository) RecordPrice(ctx context.Context, id int64, price float64, triggered bool) error {
	query := `
		UPDATE price_alerts
		SET current_price = $1, triggered = triggered OR $2, updated_at = NOW()
		WHERE id = $3
	`
	if _, err := r.db.Pool().Exec(ctx, query, price, triggered, id); err != nil {
		return fmt.Errorf("failed to record alert price: %w", err)
	}
	return nil
}

// ListPendingNotifications returns fired alerts that have not been notified,
// with the owner's email. Alerts whose owner no longer exists are skipped.
func (r *PriceAlertRepository) ListPendingNotifications(ctx context.Context) ([]models.PendingNotification, error) {
	query := `
		SELECT a.id, a.user_id, a.token_symbol, a.token_address, a.condition, a.target_price,
			a.current_price, a.triggered, a.notified, a.created_at, a.updated_at, u.email
		FROM price_alerts a
		INNER JOIN users u ON u.id = a.user_id
		WHERE a.triggered = TRUE AND a.notified = FALSE
		ORDER BY a.id
	`

	rows, err := r.db.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending notifications: %w", err)
	}
	defer rows.Close()

	var pending []models.PendingNotification
	for rows.Next() {
		var p models.PendingNotification
		a := &p.Alert
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.TokenSymbol, &a.TokenAddress, &a.Condition, &a.TargetPrice,
			&a.CurrentPrice, &a.Triggered, &a.Notified, &a.CreatedAt, &a.UpdatedAt, &p.UserEmail,
		); err != nil {
			return nil, fmt.Errorf("failed to scan pending notification: %w", err)
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

// MarkNotified flags an alert as notified
func (r *PriceAlertRepository) MarkNotified(ctx context.Context, id int64) error {
	if _, err := r.db.Pool().Exec(ctx,
		`UPDATE price_alerts SET notified = TRUE, updated_at = NOW() WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to mark alert notified: %w", err)
	}
	return nil
}
