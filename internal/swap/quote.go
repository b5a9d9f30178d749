// Package swap produces indicative DEX swap quotes from a fixed rate table.
package swap

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pocketbroker/internal/errors"
	"github.com/pocketbroker/internal/logging"
	"github.com/pocketbroker/internal/models"
	"github.com/pocketbroker/internal/types"
)

// Error codes
const (
	CodeMissingFields   = "MISSING_REQUIRED_FIELDS"
	CodeInvalidAmount   = "INVALID_AMOUNT"
	CodeInvalidSlippage = "INVALID_SLIPPAGE"
)

const (
	// DefaultSlippage is the tolerated slippage in percent when none is sent
	DefaultSlippage = 0.5
	// DefaultChainID is Ethereum mainnet
	DefaultChainID uint64 = 1

	estimatedGas = "0.002"
	gasCostUSD   = "2.45"
	priceImpact  = "0.01"
)

// Well-known mainnet tokens
var tokenAddresses = map[string]common.Address{
	"ETH":  common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE"),
	"USDC": common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"),
	"USDT": common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7"),
	"WBTC": common.HexToAddress("0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599"),
}

var rates = map[string]float64{
	"ETH-USDC": 3245.67,
	"USDC-ETH": 1 / 3245.67,
	"ETH-USDT": 3244.32,
	"USDT-ETH": 1 / 3244.32,
	"WBTC-ETH": 15.2,
	"ETH-WBTC": 1 / 15.2,
}

// QuoteRequest is the body of a quote request
type QuoteRequest struct {
	TokenIn  string          `json:"tokenIn"`
	TokenOut string          `json:"tokenOut"`
	Amount   types.FlexFloat `json:"amount"`
	Slippage types.FlexFloat `json:"slippage"`
	ChainID  types.FlexInt   `json:"chainId"`
}

// RouteLeg is the share of a swap routed through one protocol
type RouteLeg struct {
	Protocol   string `json:"protocol"`
	Percentage int    `json:"percentage"`
}

// Quote is the response to a quote request
type Quote struct {
	TokenIn         string     `json:"tokenIn"`
	TokenOut        string     `json:"tokenOut"`
	AmountIn        string     `json:"amountIn"`
	AmountOut       string     `json:"amountOut"`
	EstimatedGas    string     `json:"estimatedGas"`
	GasCostUSD      string     `json:"gasCostUSD"`
	PriceImpact     string     `json:"priceImpact"`
	Route           []RouteLeg `json:"route"`
	MinimumReceived string     `json:"minimumReceived"`
	Slippage        float64    `json:"slippage"`
	ChainID         uint64     `json:"chainId"`
	Timestamp       time.Time  `json:"timestamp"`
}

// QuoteRecorder receives every quote served
type QuoteRecorder interface {
	RecordQuote(ctx context.Context, event models.QuoteEvent) error
}

// NopRecorder discards quotes
type NopRecorder struct{}

func (NopRecorder) RecordQuote(ctx context.Context, event models.QuoteEvent) error { return nil }

// Quoter prices swaps
type Quoter struct {
	recorder QuoteRecorder
	now      func() time.Time
}

// NewQuoter creates a quoter. A nil recorder discards quotes.
func NewQuoter(recorder QuoteRecorder) *Quoter {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &Quoter{recorder: recorder, now: time.Now}
}

// Quote validates req and prices it. requestID is stored with the recorded
// quote; a recorder failure is logged and does not fail the quote.
func (q *Quoter) Quote(ctx context.Context, req *QuoteRequest, requestID string) (*Quote, error) {
	tokenIn := strings.TrimSpace(req.TokenIn)
	tokenOut := strings.TrimSpace(req.TokenOut)
	if tokenIn == "" || tokenOut == "" || !req.Amount.Present {
		return nil, errors.NewValidationError(CodeMissingFields, "Missing required fields: tokenIn, tokenOut, amount")
	}
	amount := req.Amount.Value
	if !req.Amount.Valid || amount <= 0 || math.IsInf(amount, 0) || math.IsNaN(amount) {
		return nil, errors.NewValidationError(CodeInvalidAmount, "Amount must be a positive number")
	}

	slippage := DefaultSlippage
	if req.Slippage.Present {
		if !req.Slippage.Valid || req.Slippage.Value < 0 || req.Slippage.Value > 100 {
			return nil, errors.NewValidationError(CodeInvalidSlippage, "Slippage must be a percentage between 0 and 100")
		}
		slippage = req.Slippage.Value
	}

	chainID := DefaultChainID
	if req.ChainID.Valid && req.ChainID.Value > 0 {
		chainID = uint64(req.ChainID.Value)
	}

	rate := Rate(tokenIn, tokenOut)
	amountOut := amount * rate
	minimum := MinimumReceived(amountOut, slippage)
	now := q.now().UTC()

	quote := &Quote{
		TokenIn:      tokenIn,
		TokenOut:     tokenOut,
		AmountIn:     strconv.FormatFloat(amount, 'f', -1, 64),
		AmountOut:    strconv.FormatFloat(amountOut, 'f', 6, 64),
		EstimatedGas: estimatedGas,
		GasCostUSD:   gasCostUSD,
		PriceImpact:  priceImpact,
		Route: []RouteLeg{
			{Protocol: "Uniswap V3", Percentage: 60},
			{Protocol: "SushiSwap", Percentage: 40},
		},
		MinimumReceived: strconv.FormatFloat(minimum, 'f', 6, 64),
		Slippage:        slippage,
		ChainID:         chainID,
		Timestamp:       now,
	}

	event := models.QuoteEvent{
		QuotedAt:        now,
		RequestID:       requestID,
		TokenIn:         ResolveToken(tokenIn),
		TokenOut:        ResolveToken(tokenOut),
		ChainID:         chainID,
		AmountIn:        amount,
		AmountOut:       amountOut,
		Rate:            rate,
		Slippage:        slippage,
		MinimumReceived: minimum,
	}
	if err := q.recorder.RecordQuote(ctx, event); err != nil {
		logging.FromContext(ctx).WithError(err).Warn("Failed to record swap quote")
	}

	return quote, nil
}

// ResolveToken maps a symbol or a well-known address to its uppercase
// symbol. Anything else is returned uppercased.
func ResolveToken(token string) string {
	token = strings.TrimSpace(token)
	if common.IsHexAddress(token) {
		addr := common.HexToAddress(token)
		for symbol, known := range tokenAddresses {
			if known == addr {
				return symbol
			}
		}
	}
	return strings.ToUpper(token)
}

// Rate is the number of tokenOut received per tokenIn. Unknown pairs trade 1:1.
func Rate(tokenIn, tokenOut string) float64 {
	if r, ok := rates[ResolveToken(tokenIn)+"-"+ResolveToken(tokenOut)]; ok {
		return r
	}
	return 1
}

// MinimumReceived applies a slippage percentage to amountOut
func MinimumReceived(amountOut, slippage float64) float64 {
	return amountOut * (1 - slippage/100)
}
