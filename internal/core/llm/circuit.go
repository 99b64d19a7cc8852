package llm

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/ekki-bot/internal/core/errors"
	"github.com/lueurxax/ekki-bot/internal/platform/observability"
)

// CircuitBreakerConfig configures when the breaker opens and for how long.
type CircuitBreakerConfig struct {
	Threshold  int
	ResetAfter time.Duration
}

// CircuitBreaker stops calls to the completion service after repeated failures.
type CircuitBreaker struct {
	threshold           int
	resetAfter          time.Duration
	consecutiveFailures int
	openUntil           time.Time
	mu                  sync.Mutex
	logger              *zerolog.Logger
	now                 func() time.Time
}

// NewCircuitBreaker creates a new circuit breaker. Zero values fall back to defaults.
func NewCircuitBreaker(cfg CircuitBreakerConfig, logger *zerolog.Logger) *CircuitBreaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = circuitBreakerThreshold
	}

	if cfg.ResetAfter <= 0 {
		cfg.ResetAfter = circuitBreakerTimeout
	}

	return &CircuitBreaker{
		threshold:  cfg.Threshold,
		resetAfter: cfg.ResetAfter,
		logger:     logger,
		now:        time.Now,
	}
}

// CheckCircuit returns an error if the circuit is open.
func (cb *CircuitBreaker) CheckCircuit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.now().Before(cb.openUntil) {
		return fmt.Errorf("%w until %v", errors.ErrCircuitBreakerOpen, cb.openUntil)
	}

	observability.LLMCircuitOpen.Set(0)

	return nil
}

// RecordSuccess records a successful call and resets the failure count.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFailures = 0
}

// RecordFailure records a failed call and opens the circuit if threshold is reached.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFailures++

	if cb.consecutiveFailures >= cb.threshold {
		cb.openUntil = cb.now().Add(cb.resetAfter)
		observability.LLMCircuitOpen.Set(1)

		if cb.logger != nil {
			cb.logger.Warn().
				Int("consecutive_failures", cb.consecutiveFailures).
				Time("open_until", cb.openUntil).
				Msg("completion circuit breaker opened")
		}
	}
}

// IsOpen returns true if the circuit is currently open.
func (cb *CircuitBreaker) IsOpen() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return cb.now().Before(cb.openUntil)
}
