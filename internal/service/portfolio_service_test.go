package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pocketbroker/internal/errors"
	"github.com/pocketbroker/internal/models"
	"github.com/pocketbroker/internal/storage"
	"github.com/pocketbroker/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTokenArray(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		allowString bool
		want        string
		wantErr     bool
	}{
		{name: "array", raw: `[ "ETH", "USDC" ]`, want: `["ETH","USDC"]`},
		{name: "empty array", raw: `[]`, want: `[]`},
		{name: "array of objects", raw: `[{"symbol":"ETH","balance":1.5}]`, want: `[{"symbol":"ETH","balance":1.5}]`},
		{name: "string holding array", raw: `"[\"ETH\"]"`, allowString: true, want: `["ETH"]`},
		{name: "string not allowed", raw: `"[\"ETH\"]"`, wantErr: true},
		{name: "string holding garbage", raw: `"[ETH"`, allowString: true, wantErr: true},
		{name: "object", raw: `{"ETH":1}`, wantErr: true},
		{name: "number", raw: `42`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTokenArray(json.RawMessage(tt.raw), tt.allowString)
			if tt.wantErr {
				if !errors.IsCode(err, CodeInvalidJSON) {
					t.Errorf("parseTokenArray() error = %v, want INVALID_JSON", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseTokenArray() unexpected error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("parseTokenArray() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestPortfolioService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("missing tokens", func(t *testing.T) {
		svc := NewPortfolioService(newMockPortfolioRepo())
		_, err := svc.Create(ctx, &CreatePortfolioInput{UserID: types.Int(1), WalletAddress: testWallet, Tokens: json.RawMessage("null")})
		assert.True(t, errors.IsCode(err, CodeMissingFields))
	})

	t.Run("missing wallet", func(t *testing.T) {
		svc := NewPortfolioService(newMockPortfolioRepo())
		_, err := svc.Create(ctx, &CreatePortfolioInput{UserID: types.Int(1), Tokens: json.RawMessage(`[]`)})
		assert.True(t, errors.IsCode(err, CodeMissingFields))
	})

	t.Run("tokens as string", func(t *testing.T) {
		repo := newMockPortfolioRepo()
		svc := NewPortfolioService(repo)
		p, err := svc.Create(ctx, &CreatePortfolioInput{
			UserID:        types.Int(1),
			WalletAddress: "  " + testWallet + " ",
			Tokens:        json.RawMessage(`"[{\"symbol\":\"ETH\"}]"`),
			TotalValueUSD: types.Float(1234.5),
		})
		require.NoError(t, err)
		assert.Equal(t, testWallet, p.WalletAddress)
		assert.JSONEq(t, `[{"symbol":"ETH"}]`, string(p.Tokens))
		assert.InDelta(t, 1234.5, *p.TotalValueUSD, 1e-9)
		assert.Len(t, repo.portfolios, 1)
	})

	t.Run("tokens not an array", func(t *testing.T) {
		svc := NewPortfolioService(newMockPortfolioRepo())
		_, err := svc.Create(ctx, &CreatePortfolioInput{UserID: types.Int(1), WalletAddress: testWallet, Tokens: json.RawMessage(`{"ETH":1}`)})
		assert.True(t, errors.IsCode(err, CodeInvalidJSON))
	})
}

func TestPortfolioService_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := newMockPortfolioRepo()
	svc := NewPortfolioService(repo)
	p, err := svc.Create(ctx, &CreatePortfolioInput{UserID: types.Int(3), WalletAddress: testWallet, Tokens: json.RawMessage(`[]`)})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, p.ID, &UpdatePortfolioInput{Tokens: json.RawMessage(`["WBTC"]`)})
	require.NoError(t, err)
	assert.Equal(t, `["WBTC"]`, string(updated.Tokens))
	assert.Nil(t, repo.lastUpdate.WalletAddress)
	assert.Nil(t, repo.lastUpdate.TotalValueUSD)

	_, err = svc.Update(ctx, p.ID, &UpdatePortfolioInput{Tokens: json.RawMessage(`"nope"`)})
	assert.True(t, errors.IsCode(err, CodeInvalidJSON))

	_, err = svc.Delete(ctx, p.ID)
	require.NoError(t, err)
	_, err = svc.Get(ctx, p.ID)
	assert.True(t, errors.IsCode(err, "PORTFOLIO_NOT_FOUND"))
}

func TestPortfolioService_ListByUser(t *testing.T) {
	ctx := context.Background()
	svc := NewPortfolioService(newMockPortfolioRepo())
	for _, uid := range []int64{1, 1, 2} {
		_, err := svc.Create(ctx, &CreatePortfolioInput{UserID: types.Int(uid), WalletAddress: testWallet, Tokens: json.RawMessage(`[]`)})
		require.NoError(t, err)
	}

	uid := int64(1)
	ps, err := svc.List(ctx, storage.PortfolioFilter{UserID: &uid})
	require.NoError(t, err)
	assert.Len(t, ps, 2)
}

// funcWatchlistRepo records the watchlist handed to Create
type funcWatchlistRepo struct {
	WatchlistRepository
	created *models.Watchlist
	updated models.WatchlistUpdate
}

func (r *funcWatchlistRepo) Create(ctx context.Context, w *models.Watchlist) error {
	w.ID = 1
	r.created = w
	return nil
}

func (r *funcWatchlistRepo) Update(ctx context.Context, id int64, update models.WatchlistUpdate) (*models.Watchlist, error) {
	r.updated = update
	if id != 1 {
		return nil, storage.ErrNotFound
	}
	return &models.Watchlist{ID: 1}, nil
}

func TestWatchlistService(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		input    CreateWatchlistInput
		wantCode string
	}{
		{"missing name", CreateWatchlistInput{UserID: types.Int(1), Tokens: json.RawMessage(`[]`)}, CodeMissingFields},
		{"blank name", CreateWatchlistInput{UserID: types.Int(1), Name: strPtr("   "), Tokens: json.RawMessage(`[]`)}, CodeMissingFields},
		{"missing tokens", CreateWatchlistInput{UserID: types.Int(1), Name: strPtr("Blue chips")}, CodeMissingFields},
		{"string tokens rejected", CreateWatchlistInput{UserID: types.Int(1), Name: strPtr("x"), Tokens: json.RawMessage(`"[]"`)}, CodeInvalidJSON},
		{"invalid user", CreateWatchlistInput{UserID: types.FlexInt{Present: true}, Name: strPtr("x"), Tokens: json.RawMessage(`[]`)}, CodeInvalidUserID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewWatchlistService(&funcWatchlistRepo{})
			_, err := svc.Create(ctx, &tt.input)
			if !errors.IsCode(err, tt.wantCode) {
				t.Errorf("Create() error = %v, want code %s", err, tt.wantCode)
			}
		})
	}

	t.Run("trims name", func(t *testing.T) {
		repo := &funcWatchlistRepo{}
		svc := NewWatchlistService(repo)
		_, err := svc.Create(ctx, &CreateWatchlistInput{UserID: types.Int(1), Name: strPtr("  Blue chips "), Tokens: json.RawMessage(`["ETH"]`)})
		require.NoError(t, err)
		assert.Equal(t, "Blue chips", repo.created.Name)
	})

	t.Run("update not found", func(t *testing.T) {
		repo := &funcWatchlistRepo{}
		svc := NewWatchlistService(repo)
		_, err := svc.Update(ctx, 7, &UpdateWatchlistInput{Name: strPtr("Renamed ")})
		assert.True(t, errors.IsCode(err, "WATCHLIST_NOT_FOUND"))
		assert.Equal(t, "Renamed", *repo.updated.Name)
	})
}
