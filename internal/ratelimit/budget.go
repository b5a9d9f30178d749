// Package ratelimit coordinates the upstream market data call budget across
// the API server and the worker through Redis.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Default budget values, matching the CoinGecko demo plan.
const (
	DefaultTotalBudget    = 30
	DefaultReservedBudget = 20
	DefaultWindowSize     = time.Minute
)

// Redis key prefixes for call tracking.
const (
	KeyPrefixTotal    = "budget:total:"
	KeyPrefixReserved = "budget:reserved:"
	KeyPrefixShared   = "budget:shared:"
)

// Priority selects the pool a call is charged to.
type Priority int

const (
	// PriorityHigh is for API requests (uses the reserved pool).
	PriorityHigh Priority = iota
	// PriorityLow is for background work (uses the shared pool).
	PriorityLow
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

type priorityKey struct{}

// WithPriority marks calls made under ctx with p
func WithPriority(ctx context.Context, p Priority) context.Context {
	return context.WithValue(ctx, priorityKey{}, p)
}

// PriorityFrom returns the priority stored in ctx, PriorityHigh if none
func PriorityFrom(ctx context.Context) Priority {
	if p, ok := ctx.Value(priorityKey{}).(Priority); ok {
		return p
	}
	return PriorityHigh
}

// ExhaustedError is returned when the current window has no calls left.
type ExhaustedError struct {
	Priority   Priority
	RetryAfter time.Duration
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s priority call budget exhausted, retry after %s", e.Priority, e.RetryAfter)
}

// Budget is a fixed-window call counter shared by every process using the
// same Redis. The reserved pool serves PriorityHigh only; the rest of the
// total is shared.
type Budget struct {
	redis          redis.Cmdable
	totalBudget    int
	reservedBudget int
	sharedBudget   int
	windowSize     time.Duration
	now            func() time.Time
}

// BudgetConfig holds configuration for the call budget.
type BudgetConfig struct {
	// Redis is required.
	Redis redis.Cmdable

	// TotalBudget is the number of calls per window. Default: 30.
	TotalBudget int

	// ReservedBudget is the share of TotalBudget kept for PriorityHigh. Default: 20.
	ReservedBudget int

	// WindowSize is the counting window. Default: 1m.
	WindowSize time.Duration
}

// Usage reports the counters of the current window.
type Usage struct {
	TotalUsed      int
	ReservedUsed   int
	SharedUsed     int
	TotalBudget    int
	ReservedBudget int
	SharedBudget   int
	WindowStart    time.Time
}

// Validate checks if the configuration is valid.
func (c *BudgetConfig) Validate() error {
	if c.Redis == nil {
		return errors.New("redis client is required")
	}
	if c.TotalBudget < 0 {
		return errors.New("total budget cannot be negative")
	}
	if c.ReservedBudget < 0 {
		return errors.New("reserved budget cannot be negative")
	}

	total, reserved := c.budgets()
	if reserved > total {
		return fmt.Errorf("reserved budget (%d) cannot exceed total budget (%d)", reserved, total)
	}
	return nil
}

func (c *BudgetConfig) budgets() (total, reserved int) {
	total, reserved = c.TotalBudget, c.ReservedBudget
	if total == 0 {
		total = DefaultTotalBudget
	}
	if reserved == 0 {
		reserved = DefaultReservedBudget
		if reserved > total {
			reserved = total
		}
	}
	return total, reserved
}

// NewBudget creates a budget with the given configuration.
func NewBudget(cfg *BudgetConfig) (*Budget, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	total, reserved := cfg.budgets()
	windowSize := cfg.WindowSize
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}

	return &Budget{
		redis:          cfg.Redis,
		totalBudget:    total,
		reservedBudget: reserved,
		sharedBudget:   total - reserved,
		windowSize:     windowSize,
		now:            time.Now,
	}, nil
}

func (b *Budget) windowStart() time.Time {
	return b.now().Truncate(b.windowSize)
}

func (b *Budget) keys(start time.Time) (totalKey, reservedKey, sharedKey string) {
	ts := strconv.FormatInt(start.UnixMilli(), 10)
	return KeyPrefixTotal + ts, KeyPrefixReserved + ts, KeyPrefixShared + ts
}

// consumeScript checks both the total and the pool counter before
// incrementing, so concurrent callers cannot overshoot.
var consumeScript = redis.NewScript(`
	local totalKey = KEYS[1]
	local poolKey = KEYS[2]
	local n = tonumber(ARGV[1])
	local totalBudget = tonumber(ARGV[2])
	local poolBudget = tonumber(ARGV[3])
	local ttl = tonumber(ARGV[4])

	local totalUsed = tonumber(redis.call('GET', totalKey) or '0')
	local poolUsed = tonumber(redis.call('GET', poolKey) or '0')

	if totalUsed + n > totalBudget then
		return {0, totalUsed, poolUsed}
	end
	if poolUsed + n > poolBudget then
		return {0, totalUsed, poolUsed}
	end

	redis.call('INCRBY', totalKey, n)
	redis.call('EXPIRE', totalKey, ttl)
	redis.call('INCRBY', poolKey, n)
	redis.call('EXPIRE', poolKey, ttl)

	return {1, totalUsed + n, poolUsed + n}
`)

// TryConsume charges one call to the pool of priority. When the window is
// spent it returns false and the time until the next window.
//
// A Redis failure returns the error with allowed set to true: the budget is
// advisory and must not take the market endpoints down with it.
func (b *Budget) TryConsume(ctx context.Context, priority Priority) (bool, time.Duration, error) {
	start := b.windowStart()
	totalKey, reservedKey, sharedKey := b.keys(start)

	poolKey, poolBudget := sharedKey, b.sharedBudget
	if priority == PriorityHigh {
		poolKey, poolBudget = reservedKey, b.reservedBudget
	}

	ttlSeconds := int((2 * b.windowSize).Seconds())
	if ttlSeconds < 1 {
		ttlSeconds = 1
	}

	result, err := consumeScript.Run(ctx, b.redis, []string{totalKey, poolKey},
		1, b.totalBudget, poolBudget, ttlSeconds).Int64Slice()
	if err != nil {
		return true, 0, fmt.Errorf("failed to consume call budget: %w", err)
	}

	if result[0] != 1 {
		return false, b.waitTime(start), nil
	}
	return true, 0, nil
}

// waitTime returns the time until the window after start begins.
func (b *Budget) waitTime(start time.Time) time.Duration {
	wait := start.Add(b.windowSize).Sub(b.now())
	if wait < 0 {
		wait = 0
	}
	return wait + time.Millisecond
}

// Usage returns the counters of the current window.
func (b *Budget) Usage(ctx context.Context) (*Usage, error) {
	start := b.windowStart()
	totalKey, reservedKey, sharedKey := b.keys(start)

	pipe := b.redis.Pipeline()
	totalCmd := pipe.Get(ctx, totalKey)
	reservedCmd := pipe.Get(ctx, reservedKey)
	sharedCmd := pipe.Get(ctx, sharedKey)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to read call budget: %w", err)
	}

	return &Usage{
		TotalUsed:      intOrZero(totalCmd),
		ReservedUsed:   intOrZero(reservedCmd),
		SharedUsed:     intOrZero(sharedCmd),
		TotalBudget:    b.totalBudget,
		ReservedBudget: b.reservedBudget,
		SharedBudget:   b.sharedBudget,
		WindowStart:    start,
	}, nil
}

func intOrZero(cmd *redis.StringCmd) int {
	v, err := cmd.Int()
	if err != nil {
		return 0
	}
	return v
}
