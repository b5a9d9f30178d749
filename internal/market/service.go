package market

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"sort"
	"strings"
	"time"

	"github.com/pocketbroker/internal/config"
	"github.com/pocketbroker/internal/errors"
	"github.com/pocketbroker/internal/logging"
	"github.com/pocketbroker/internal/metrics"
	"github.com/pocketbroker/internal/storage"
)

// CodeMarketUnavailable is returned when CoinGecko cannot be reached
const CodeMarketUnavailable = "MARKET_DATA_UNAVAILABLE"

const (
	trendingCount = 6
	moversCount   = 5
	notAvailable  = "N/A"
)

// Cache resources, stored under market:<resource>
const (
	ResourceStats    = "stats"
	ResourceTrending = "trending"
	ResourceMovers   = "movers"
	ResourceCoins    = "coins"
)

// Fetcher is the upstream the service reads from
type Fetcher interface {
	Global(ctx context.Context) (*GlobalData, error)
	Trending(ctx context.Context) ([]TrendingCoin, error)
	Markets(ctx context.Context) ([]Coin, error)
}

// CacheObserver is told about every cache lookup
type CacheObserver interface {
	ObserveCache(resource, result string)
}

// Stats is the global market summary
type Stats struct {
	TotalMarketCap     float64 `json:"totalMarketCap"`
	TotalVolume        float64 `json:"totalVolume"`
	BtcDominance       float64 `json:"btcDominance"`
	ActiveMarkets      int64   `json:"activeMarkets"`
	MarketCapChange24h float64 `json:"marketCapChange24h"`
}

// TrendingToken is one trending coin. Price and Volume hold "N/A" when
// CoinGecko has no value.
type TrendingToken struct {
	ID             string      `json:"id"`
	Symbol         string      `json:"symbol"`
	Name           string      `json:"name"`
	Price          interface{} `json:"price"`
	PriceChange24h float64     `json:"priceChange24h"`
	Volume         interface{} `json:"volume"`
	MarketCapRank  *int64      `json:"marketCapRank"`
	Image          string      `json:"image"`
}

// Mover is a coin with a large 24h price change
type Mover struct {
	ID             string   `json:"id"`
	Symbol         string   `json:"symbol"`
	Name           string   `json:"name"`
	Price          *float64 `json:"price"`
	PriceChange24h *float64 `json:"priceChange24h"`
	Image          string   `json:"image"`
	Volume         *float64 `json:"volume"`
}

// Movers holds the top gainers and losers
type Movers struct {
	Gainers []Mover `json:"gainers"`
	Losers  []Mover `json:"losers"`
}

// Service serves market data through the Redis cache
type Service struct {
	fetcher  Fetcher
	cache    *storage.CacheService
	observer CacheObserver
	ttls     map[string]time.Duration
}

// NewService creates a market service. cache and observer may be nil.
func NewService(fetcher Fetcher, cache *storage.CacheService, cfg *config.MarketConfig, observer CacheObserver) *Service {
	ttl := func(d, def time.Duration) time.Duration {
		if d <= 0 {
			return def
		}
		return d
	}
	return &Service{
		fetcher:  fetcher,
		cache:    cache,
		observer: observer,
		ttls: map[string]time.Duration{
			ResourceStats:    ttl(cfg.StatsTTL, 60*time.Second),
			ResourceTrending: ttl(cfg.TrendingTTL, 300*time.Second),
			ResourceMovers:   ttl(cfg.MoversTTL, 120*time.Second),
		},
	}
}

// Stats returns the global market summary
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats
	err := s.cached(ctx, ResourceStats, &stats, func() (interface{}, error) {
		global, err := s.fetcher.Global(ctx)
		if err != nil {
			return nil, err
		}
		return statsFromGlobal(global), nil
	})
	if err != nil {
		return nil, errors.NewProviderError(CodeMarketUnavailable, "Failed to fetch market statistics", err)
	}
	return &stats, nil
}

// Trending returns the first six trending coins
func (s *Service) Trending(ctx context.Context) ([]TrendingToken, error) {
	var tokens []TrendingToken
	err := s.cached(ctx, ResourceTrending, &tokens, func() (interface{}, error) {
		coins, err := s.fetcher.Trending(ctx)
		if err != nil {
			return nil, err
		}
		return TrendingTokens(coins), nil
	})
	if err != nil {
		return nil, errors.NewProviderError(CodeMarketUnavailable, "Failed to fetch trending tokens", err)
	}
	if tokens == nil {
		tokens = []TrendingToken{}
	}
	return tokens, nil
}

// Movers returns the five biggest gainers and losers of the top 100 coins
func (s *Service) Movers(ctx context.Context) (*Movers, error) {
	var movers Movers
	err := s.cached(ctx, ResourceMovers, &movers, func() (interface{}, error) {
		coins, err := s.fetcher.Markets(ctx)
		if err != nil {
			return nil, err
		}
		return RankMovers(coins), nil
	})
	if err != nil {
		return nil, errors.NewProviderError(CodeMarketUnavailable, "Failed to fetch market movers", err)
	}
	return &movers, nil
}

// Coins returns the raw top 100 coins
func (s *Service) Coins(ctx context.Context) ([]Coin, error) {
	var coins []Coin
	err := s.cached(ctx, ResourceCoins, &coins, func() (interface{}, error) {
		return s.fetcher.Markets(ctx)
	})
	if err != nil {
		return nil, errors.NewProviderError(CodeMarketUnavailable, "Failed to fetch market coins", err)
	}
	return coins, nil
}

// cached fills dest from the cache or from fetch. Cache failures are logged
// and never returned.
func (s *Service) cached(ctx context.Context, resource string, dest interface{}, fetch func() (interface{}, error)) error {
	logger := logging.FromContext(ctx).WithField("resource", resource)

	var key string
	if s.cache != nil {
		key = s.cache.GenerateMarketKey(resource)
		found, err := s.cache.Get(ctx, key, dest)
		switch {
		case err != nil:
			logger.WithError(err).Warn("Market cache read failed, fetching directly")
			s.observe(resource, metrics.CacheError)
			if stderrors.Is(err, storage.ErrCorruptEntry) {
				if err := s.cache.Invalidate(ctx, key); err != nil {
					logger.WithError(err).Warn("Failed to drop corrupt market cache entry")
				}
			}
		case found:
			s.observe(resource, metrics.CacheHit)
			return nil
		default:
			s.observe(resource, metrics.CacheMiss)
		}
	}

	value, err := fetch()
	if err != nil {
		logger.WithError(err).Error("Market data fetch failed")
		return err
	}

	// Round-trip through JSON so a hit and a miss produce the same value
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return err
	}

	if s.cache != nil {
		// resources without their own TTL use the cache default
		if ttl, ok := s.ttls[resource]; ok {
			err = s.cache.SetWithTTL(ctx, key, value, ttl)
		} else {
			err = s.cache.Set(ctx, key, value)
		}
		if err != nil {
			logger.WithError(err).Warn("Market cache write failed")
		}
	}
	return nil
}

func (s *Service) observe(resource, result string) {
	if s.observer != nil {
		s.observer.ObserveCache(resource, result)
	}
}

func statsFromGlobal(g *GlobalData) *Stats {
	return &Stats{
		TotalMarketCap:     g.TotalMarketCap["usd"],
		TotalVolume:        g.TotalVolume["usd"],
		BtcDominance:       g.MarketCapPercentage["btc"],
		ActiveMarkets:      g.Markets,
		MarketCapChange24h: g.MarketCapChangePercent24hU,
	}
}

// TrendingTokens shapes the first six trending coins
func TrendingTokens(coins []TrendingCoin) []TrendingToken {
	if len(coins) > trendingCount {
		coins = coins[:trendingCount]
	}
	out := make([]TrendingToken, 0, len(coins))
	for _, c := range coins {
		t := TrendingToken{
			ID:            c.ID,
			Symbol:        c.Symbol,
			Name:          c.Name,
			Price:         notAvailable,
			Volume:        notAvailable,
			MarketCapRank: c.MarketCapRank,
			Image:         c.Large,
		}
		if c.Data != nil {
			t.Price = valueOrNA(c.Data.Price)
			t.Volume = valueOrNA(c.Data.TotalVolume)
			t.PriceChange24h = c.Data.PriceChangePercentage24h["usd"]
		}
		out = append(out, t)
	}
	return out
}

// valueOrNA keeps a number or non-empty string as-is; zero, empty and
// missing values become "N/A"
func valueOrNA(raw json.RawMessage) interface{} {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return notAvailable
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return notAvailable
	}
	switch val := v.(type) {
	case float64:
		if val == 0 {
			return notAvailable
		}
		return val
	case string:
		if val == "" {
			return notAvailable
		}
		return val
	}
	return notAvailable
}

// RankMovers sorts coins by 24h change, missing changes counting as zero,
// and takes the top and bottom five. Losers are most negative first.
func RankMovers(coins []Coin) *Movers {
	sorted := make([]Coin, len(coins))
	copy(sorted, coins)
	sort.SliceStable(sorted, func(i, j int) bool {
		return change(sorted[i]) > change(sorted[j])
	})

	top := sorted
	if len(top) > moversCount {
		top = top[:moversCount]
	}
	bottom := sorted
	if len(bottom) > moversCount {
		bottom = bottom[len(bottom)-moversCount:]
	}

	movers := &Movers{
		Gainers: make([]Mover, 0, len(top)),
		Losers:  make([]Mover, 0, len(bottom)),
	}
	for _, c := range top {
		movers.Gainers = append(movers.Gainers, toMover(c))
	}
	for i := len(bottom) - 1; i >= 0; i-- {
		movers.Losers = append(movers.Losers, toMover(bottom[i]))
	}
	return movers
}

func change(c Coin) float64 {
	if c.PriceChangePercentage24h == nil {
		return 0
	}
	return *c.PriceChangePercentage24h
}

func toMover(c Coin) Mover {
	return Mover{
		ID:             c.ID,
		Symbol:         strings.ToUpper(c.Symbol),
		Name:           c.Name,
		Price:          c.CurrentPrice,
		PriceChange24h: c.PriceChangePercentage24h,
		Image:          c.Image,
		Volume:         c.TotalVolume,
	}
}

// PriceMap maps uppercase symbols to their current USD price. The first
// coin wins when two share a symbol.
func PriceMap(coins []Coin) map[string]float64 {
	prices := make(map[string]float64, len(coins))
	for _, c := range coins {
		if c.CurrentPrice == nil || c.Symbol == "" {
			continue
		}
		sym := strings.ToUpper(c.Symbol)
		if _, ok := prices[sym]; !ok {
			prices[sym] = *c.CurrentPrice
		}
	}
	return prices
}
