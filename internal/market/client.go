// Package market fetches public market data from CoinGecko.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pocketbroker/internal/circuitbreaker"
	"github.com/pocketbroker/internal/config"
	"github.com/pocketbroker/internal/logging"
	"github.com/pocketbroker/internal/ratelimit"
	"github.com/pocketbroker/internal/retry"
)

const (
	// DefaultBaseURL is the CoinGecko public API root
	DefaultBaseURL = "https://api.coingecko.com/api/v3"

	demoKeyHeader = "x-cg-demo-api-key"
)

// GlobalData is the subset of /global the dashboard uses
type GlobalData struct {
	TotalMarketCap             map[string]float64 `json:"total_market_cap"`
	TotalVolume                map[string]float64 `json:"total_volume"`
	MarketCapPercentage        map[string]float64 `json:"market_cap_percentage"`
	Markets                    int64              `json:"markets"`
	MarketCapChangePercent24hU float64            `json:"market_cap_change_percentage_24h_usd"`
}

// TrendingCoin is one item of /search/trending
type TrendingCoin struct {
	ID            string            `json:"id"`
	Symbol        string            `json:"symbol"`
	Name          string            `json:"name"`
	MarketCapRank *int64            `json:"market_cap_rank"`
	Large         string            `json:"large"`
	Data          *TrendingCoinData `json:"data"`
}

// TrendingCoinData carries the price fields of a trending coin. CoinGecko
// sends price and total_volume as either numbers or formatted strings.
type TrendingCoinData struct {
	Price                    json.RawMessage    `json:"price"`
	TotalVolume              json.RawMessage    `json:"total_volume"`
	PriceChangePercentage24h map[string]float64 `json:"price_change_percentage_24h"`
}

// Coin is one row of /coins/markets
type Coin struct {
	ID                       string   `json:"id"`
	Symbol                   string   `json:"symbol"`
	Name                     string   `json:"name"`
	Image                    string   `json:"image"`
	CurrentPrice             *float64 `json:"current_price"`
	TotalVolume              *float64 `json:"total_volume"`
	PriceChangePercentage24h *float64 `json:"price_change_percentage_24h"`
}

// StatusError is returned for a non-2xx upstream response
type StatusError struct {
	Path       string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("coingecko %s returned status %d", e.Path, e.StatusCode)
}

// CallBudget meters upstream calls. See ratelimit.Budget.
type CallBudget interface {
	TryConsume(ctx context.Context, priority ratelimit.Priority) (bool, time.Duration, error)
}

// Client calls the CoinGecko API with retries behind a circuit breaker
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	retry      retry.Config
	breaker    *circuitbreaker.CircuitBreaker
	budget     CallBudget
}

// NewClient creates a CoinGecko client from market config
func NewClient(cfg *config.MarketConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		retry:      retry.DefaultConfig(),
		breaker:    circuitbreaker.New(circuitbreaker.DefaultConfig("coingecko")),
	}
}

// WithBudget charges every call to budget first
func (c *Client) WithBudget(budget CallBudget) *Client {
	c.budget = budget
	return c
}

// Global fetches /global
func (c *Client) Global(ctx context.Context) (*GlobalData, error) {
	var resp struct {
		Data GlobalData `json:"data"`
	}
	if err := c.get(ctx, "/global", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// Trending fetches /search/trending
func (c *Client) Trending(ctx context.Context) ([]TrendingCoin, error) {
	var resp struct {
		Coins []struct {
			Item TrendingCoin `json:"item"`
		} `json:"coins"`
	}
	if err := c.get(ctx, "/search/trending", nil, &resp); err != nil {
		return nil, err
	}
	coins := make([]TrendingCoin, 0, len(resp.Coins))
	for _, c := range resp.Coins {
		coins = append(coins, c.Item)
	}
	return coins, nil
}

// Markets fetches the top 100 coins by market cap in USD
func (c *Client) Markets(ctx context.Context) ([]Coin, error) {
	params := url.Values{}
	params.Set("vs_currency", "usd")
	params.Set("order", "market_cap_desc")
	params.Set("per_page", "100")
	params.Set("page", "1")
	params.Set("sparkline", "false")
	params.Set("price_change_percentage", "24h")

	var coins []Coin
	if err := c.get(ctx, "/coins/markets", params, &coins); err != nil {
		return nil, err
	}
	return coins, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, dest interface{}) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	if err := c.charge(ctx, path); err != nil {
		return err
	}

	return c.breaker.Execute(func() error {
		return retry.Do(ctx, c.retry, func(ctx context.Context, attempt int) error {
			return c.fetch(ctx, endpoint, path, dest)
		})
	})
}

// charge takes one call from the budget. Budget store failures are logged
// and the call proceeds.
func (c *Client) charge(ctx context.Context, path string) error {
	if c.budget == nil {
		return nil
	}
	priority := ratelimit.PriorityFrom(ctx)
	ok, wait, err := c.budget.TryConsume(ctx, priority)
	if err != nil {
		logging.FromContext(ctx).WithError(err).WithField("path", path).Warn("Call budget unavailable")
		return nil
	}
	if !ok {
		return &ratelimit.ExhaustedError{Priority: priority, RetryAfter: wait}
	}
	return nil
}

func (c *Client) fetch(ctx context.Context, endpoint, path string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return retry.Permanent(fmt.Errorf("failed to build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(demoKeyHeader, c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("coingecko %s request failed: %w", path, err)
	}
	defer resp.Body.Close()

	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"path":     path,
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
	}).Debug("CoinGecko response")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		statusErr := &StatusError{Path: path, StatusCode: resp.StatusCode}
		// 429 is worth another attempt, other client errors are not
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return retry.Permanent(statusErr)
		}
		return statusErr
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return retry.Permanent(fmt.Errorf("failed to decode coingecko %s: %w", path, err))
	}
	return nil
}
