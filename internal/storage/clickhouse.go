package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/pocketbroker/internal/config"
	"github.com/pocketbroker/internal/models"
)

// ClickHouseDB wraps the ClickHouse connection
type ClickHouseDB struct {
	conn driver.Conn
}

// NewClickHouseDB creates a new ClickHouse database connection
func NewClickHouseDB(cfg *config.ClickHouseConfig) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 30,
		},
		DialTimeout:      10 * time.Second,
		MaxOpenConns:     5,
		MaxIdleConns:     2,
		ConnMaxLifetime:  time.Hour,
		ConnOpenStrategy: clickhouse.ConnOpenInOrder,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	return &ClickHouseDB{conn: conn}, nil
}

// Close closes the ClickHouse connection
func (db *ClickHouseDB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Conn returns the underlying ClickHouse connection
func (db *ClickHouseDB) Conn() driver.Conn {
	return db.conn
}

// Ping checks if the database is reachable
func (db *ClickHouseDB) Ping(ctx context.Context) error {
	return db.conn.Ping(ctx)
}

// Exec executes a query without returning rows
func (db *ClickHouseDB) Exec(ctx context.Context, query string, args ...interface{}) error {
	return db.conn.Exec(ctx, query, args...)
}

// QuoteEventStore appends served swap quotes to the swap_quotes table
type QuoteEventStore struct {
	db *ClickHouseDB
}

// NewQuoteEventStore creates a new quote event store
func NewQuoteEventStore(db *ClickHouseDB) *QuoteEventStore {
	return &QuoteEventStore{db: db}
}

// RecordQuote inserts one quote event
func (s *QuoteEventStore) RecordQuote(ctx context.Context, event models.QuoteEvent) error {
	query := `
		INSERT INTO swap_quotes (
			quoted_at, request_id, token_in, token_out, chain_id,
			amount_in, amount_out, rate, slippage, minimum_received
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	if err := s.db.Exec(ctx, query,
		event.QuotedAt,
		event.RequestID,
		event.TokenIn,
		event.TokenOut,
		event.ChainID,
		event.AmountIn,
		event.AmountOut,
		event.Rate,
		event.Slippage,
		event.MinimumReceived,
	); err != nil {
		return fmt.Errorf("failed to record swap quote: %w", err)
	}
	return nil
}
