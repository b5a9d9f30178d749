package market

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/pocketbroker/internal/config"
	"github.com/pocketbroker/internal/errors"
	"github.com/pocketbroker/internal/storage"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	global   *GlobalData
	trending []TrendingCoin
	coins    []Coin
	err      error
	calls    map[string]int
}

func (f *stubFetcher) count(name string) {
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[name]++
}

func (f *stubFetcher) Global(ctx context.Context) (*GlobalData, error) {
	f.count("global")
	return f.global, f.err
}

func (f *stubFetcher) Trending(ctx context.Context) ([]TrendingCoin, error) {
	f.count("trending")
	return f.trending, f.err
}

func (f *stubFetcher) Markets(ctx context.Context) ([]Coin, error) {
	f.count("markets")
	return f.coins, f.err
}

type countingObserver map[string]int

func (o countingObserver) ObserveCache(resource, result string) {
	o[resource+":"+result]++
}

func newCache(t *testing.T) (*storage.CacheService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return storage.NewCacheService(storage.NewRedisCacheFromClient(client), time.Minute), mr
}

func f64(v float64) *float64 { return &v }

func testGlobal() *GlobalData {
	return &GlobalData{
		TotalMarketCap:             map[string]float64{"usd": 2.4e12},
		TotalVolume:                map[string]float64{"usd": 8.8e10},
		MarketCapPercentage:        map[string]float64{"btc": 51.7, "eth": 17.1},
		Markets:                    980,
		MarketCapChangePercent24hU: 0.8,
	}
}

func TestService_StatsCachesResult(t *testing.T) {
	cache, mr := newCache(t)
	fetcher := &stubFetcher{global: testGlobal()}
	obs := countingObserver{}
	svc := NewService(fetcher, cache, &config.MarketConfig{}, obs)
	ctx := context.Background()

	first, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &Stats{TotalMarketCap: 2.4e12, TotalVolume: 8.8e10, BtcDominance: 51.7, ActiveMarkets: 980, MarketCapChange24h: 0.8}, first)

	second, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, fetcher.calls["global"])
	assert.Equal(t, 1, obs["stats:miss"])
	assert.Equal(t, 1, obs["stats:hit"])

	require.True(t, mr.Exists("market:stats"))
	assert.Equal(t, 60*time.Second, mr.TTL("market:stats"))

	mr.FastForward(61 * time.Second)
	_, err = svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, fetcher.calls["global"])
}

func TestService_ConfiguredTTLs(t *testing.T) {
	cache, mr := newCache(t)
	fetcher := &stubFetcher{trending: []TrendingCoin{{ID: "a"}}, coins: []Coin{{ID: "b", Symbol: "b"}}}
	svc := NewService(fetcher, cache, &config.MarketConfig{TrendingTTL: 10 * time.Second, MoversTTL: 20 * time.Second}, nil)

	_, err := svc.Trending(context.Background())
	require.NoError(t, err)
	_, err = svc.Movers(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, mr.TTL("market:trending"))
	assert.Equal(t, 20*time.Second, mr.TTL("market:movers"))

	// the alert feed has no TTL of its own
	_, err = svc.Coins(context.Background())
	require.NoError(t, err)
	assert.Equal(t, time.Minute, mr.TTL("market:coins"))
}

func TestService_CorruptEntryIsDropped(t *testing.T) {
	cache, mr := newCache(t)
	require.NoError(t, mr.Set("market:stats", "{not json"))

	fetcher := &stubFetcher{err: stderrors.New("connection refused")}
	obs := countingObserver{}
	svc := NewService(fetcher, cache, &config.MarketConfig{}, obs)

	_, err := svc.Stats(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, obs["stats:error"])
	assert.False(t, mr.Exists("market:stats"), "an undecodable entry must not survive a failed refresh")
}

func TestService_CacheFailureFallsBackToFetch(t *testing.T) {
	cache, mr := newCache(t)
	mr.Close()

	fetcher := &stubFetcher{global: testGlobal()}
	obs := countingObserver{}
	svc := NewService(fetcher, cache, &config.MarketConfig{}, obs)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 51.7, stats.BtcDominance)
	assert.Equal(t, 1, obs["stats:error"])
}

func TestService_WithoutCache(t *testing.T) {
	fetcher := &stubFetcher{coins: []Coin{{ID: "eth", Symbol: "eth", CurrentPrice: f64(3000)}}}
	svc := NewService(fetcher, nil, &config.MarketConfig{}, nil)

	coins, err := svc.Coins(context.Background())
	require.NoError(t, err)
	require.Len(t, coins, 1)
	_, err = svc.Coins(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, fetcher.calls["markets"])
}

func TestService_UpstreamFailure(t *testing.T) {
	cache, _ := newCache(t)
	fetcher := &stubFetcher{err: stderrors.New("connection refused")}
	svc := NewService(fetcher, cache, &config.MarketConfig{}, nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		call    func() error
		message string
	}{
		{"stats", func() error { _, err := svc.Stats(ctx); return err }, "Failed to fetch market statistics"},
		{"trending", func() error { _, err := svc.Trending(ctx); return err }, "Failed to fetch trending tokens"},
		{"movers", func() error { _, err := svc.Movers(ctx); return err }, "Failed to fetch market movers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			cat := errors.Categorize(err)
			assert.Equal(t, CodeMarketUnavailable, cat.Code)
			assert.Equal(t, tt.message, cat.Message)
			assert.Equal(t, 500, cat.StatusCode)
		})
	}
}

func TestTrendingTokens(t *testing.T) {
	rank := int64(42)
	var coins []TrendingCoin
	for i := 0; i < 8; i++ {
		coins = append(coins, TrendingCoin{ID: string(rune('a' + i)), Symbol: "SYM", Name: "Coin", Large: "img.png"})
	}
	coins[0].MarketCapRank = &rank
	coins[0].Data = &TrendingCoinData{
		Price:                    json.RawMessage(`0.00123`),
		TotalVolume:              json.RawMessage(`"$1,234,567"`),
		PriceChangePercentage24h: map[string]float64{"usd": 12.5},
	}
	coins[1].Data = &TrendingCoinData{Price: json.RawMessage(`0`), TotalVolume: json.RawMessage(`null`)}

	out := TrendingTokens(coins)
	require.Len(t, out, 6)

	assert.Equal(t, 0.00123, out[0].Price)
	assert.Equal(t, "$1,234,567", out[0].Volume)
	assert.Equal(t, 12.5, out[0].PriceChange24h)
	assert.Equal(t, &rank, out[0].MarketCapRank)
	assert.Equal(t, "img.png", out[0].Image)

	assert.Equal(t, "N/A", out[1].Price)
	assert.Equal(t, "N/A", out[1].Volume)
	assert.Equal(t, "N/A", out[2].Price)
	assert.Equal(t, 0.0, out[2].PriceChange24h)
	assert.Nil(t, out[2].MarketCapRank)
}

func TestRankMovers(t *testing.T) {
	changes := []*float64{f64(3), f64(-7), nil, f64(12), f64(-1), f64(5), f64(-20), f64(0.5), f64(8), f64(-3), f64(1)}
	coins := make([]Coin, len(changes))
	for i, c := range changes {
		coins[i] = Coin{ID: string(rune('a' + i)), Symbol: "c" + string(rune('a'+i)), PriceChangePercentage24h: c}
	}

	movers := RankMovers(coins)

	var gainers, losers []string
	for _, m := range movers.Gainers {
		gainers = append(gainers, m.ID)
	}
	for _, m := range movers.Losers {
		losers = append(losers, m.ID)
	}
	assert.Equal(t, []string{"d", "i", "f", "a", "k"}, gainers)
	assert.Equal(t, []string{"g", "b", "j", "e", "c"}, losers, "most negative first, missing counts as zero")
	assert.Equal(t, "CD", movers.Gainers[0].Symbol)
	assert.Nil(t, movers.Losers[4].PriceChange24h)
	assert.Equal(t, 3.0, *coins[0].PriceChangePercentage24h, "input is not reordered")
	assert.Equal(t, "a", coins[0].ID)
}

func TestRankMovers_FewCoins(t *testing.T) {
	movers := RankMovers([]Coin{{ID: "x", PriceChangePercentage24h: f64(1)}, {ID: "y", PriceChangePercentage24h: f64(-1)}})
	require.Len(t, movers.Gainers, 2)
	require.Len(t, movers.Losers, 2)
	assert.Equal(t, "y", movers.Losers[0].ID)

	empty := RankMovers(nil)
	assert.NotNil(t, empty.Gainers)
	assert.Empty(t, empty.Losers)
}

func TestPriceMap(t *testing.T) {
	prices := PriceMap([]Coin{
		{Symbol: "eth", CurrentPrice: f64(3100)},
		{Symbol: "ETH", CurrentPrice: f64(1)},
		{Symbol: "btc"},
		{Symbol: "", CurrentPrice: f64(2)},
	})
	assert.Equal(t, map[string]float64{"ETH": 3100}, prices)
}
