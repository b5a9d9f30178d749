// Package circuitbreaker stops calling an upstream that keeps failing.
package circuitbreaker

import (
	"errors"
	"sync"
	"time"

	"github.com/pocketbroker/internal/logging"
)

// State represents the circuit breaker state
type State string

const (
	// StateClosed means requests are allowed
	StateClosed State = "closed"
	// StateOpen means requests are rejected until the cooldown elapses
	StateOpen State = "open"
	// StateHalfOpen means a single probe request is allowed
	StateHalfOpen State = "half_open"
)

// ErrCircuitOpen is returned while the circuit is open
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Config configures a circuit breaker
type Config struct {
	Name        string
	MaxFailures int           // Consecutive failures that open the circuit
	Cooldown    time.Duration // Time spent open before a probe is allowed
}

// DefaultConfig returns a default circuit breaker configuration
func DefaultConfig(name string) Config {
	return Config{
		Name:        name,
		MaxFailures: 5,
		Cooldown:    30 * time.Second,
	}
}

// CircuitBreaker opens after MaxFailures consecutive failures. After the
// cooldown one probe is let through: success closes the circuit, failure
// opens it again.
type CircuitBreaker struct {
	cfg Config
	now func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
}

// New creates a closed circuit breaker
func New(cfg Config) *CircuitBreaker {
	if cfg.MaxFailures < 1 {
		cfg.MaxFailures = 1
	}
	return &CircuitBreaker{cfg: cfg, now: time.Now, state: StateClosed}
}

// Execute runs fn unless the circuit is open
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.allow(); err != nil {
		return err
	}
	err := fn()
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.cfg.Cooldown {
			return ErrCircuitOpen
		}
		cb.state = StateHalfOpen
		cb.probing = true
		logging.WithField("circuitBreaker", cb.cfg.Name).Info("Circuit breaker transitioning to half-open")
		return nil
	case StateHalfOpen:
		if cb.probing {
			return ErrCircuitOpen
		}
		cb.probing = true
	}
	return nil
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		if cb.state != StateClosed {
			logging.WithField("circuitBreaker", cb.cfg.Name).Info("Circuit breaker closed after successful probe")
		}
		cb.state = StateClosed
		cb.failures = 0
		cb.probing = false
		return
	}

	cb.failures++
	if cb.state == StateHalfOpen || cb.failures >= cb.cfg.MaxFailures {
		cb.state = StateOpen
		cb.openedAt = cb.now()
		cb.probing = false
		logging.WithFields(map[string]interface{}{
			"circuitBreaker": cb.cfg.Name,
			"failures":       cb.failures,
		}).Warn("Circuit breaker opened due to failures")
	}
}

// State returns the current state
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset closes the circuit and clears the failure count
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failures = 0
	cb.probing = false
}
