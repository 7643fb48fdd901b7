package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sharpline/sharpline-go/internal/utils"
)

// ErrCircuitOpen is the cause carried by the ProviderUnavailableError a
// tripped breaker returns.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerState represents the current state of the circuit breaker
type CircuitBreakerState int

const (
	Closed CircuitBreakerState = iota
	Open
	HalfOpen
)

// CircuitBreakerConfig holds thresholds for one provider's breaker
type CircuitBreakerConfig struct {
	FailureThreshold int           `json:"failure_threshold"` // Consecutive failures before opening
	SuccessThreshold int           `json:"success_threshold"` // Successes to close from half-open
	Timeout          time.Duration `json:"timeout"`           // Time open before trying half-open
	MaxRequests      int           `json:"max_requests"`      // Probe requests allowed in half-open
	ResetTimeout     time.Duration `json:"reset_timeout"`     // Quiet time before failure count resets
}

// CircuitBreakerStats holds call statistics for one provider's breaker
type CircuitBreakerStats struct {
	TotalRequests      int64     `json:"total_requests"`
	SuccessfulRequests int64     `json:"successful_requests"`
	FailedRequests     int64     `json:"failed_requests"`
	RateLimitedSkips   int64     `json:"rate_limited_skips"`
	LastFailureTime    time.Time `json:"last_failure_time"`
	LastSuccessTime    time.Time `json:"last_success_time"`
	StateChanges       int64     `json:"state_changes"`
}

// CircuitBreaker shields one upstream odds or score feed. Repeated
// failures stop the pipeline from hammering a dead provider; a tripped
// breaker surfaces as ProviderUnavailable so the cycle skips the sport
// instead of erroring out. Rate-limit responses are counted separately
// and never trip the breaker, since a 429 is the quota talking, not the
// feed breaking.
type CircuitBreaker struct {
	name            string
	config          CircuitBreakerConfig
	logger          *logrus.Logger
	mu              sync.RWMutex
	state           CircuitBreakerState
	failureCount    int
	successCount    int
	lastFailureTime time.Time
	lastStateChange time.Time
	requestCount    int
	stats           CircuitBreakerStats
}

// NewCircuitBreaker creates a breaker for the named provider with
// workable defaults for unset thresholds.
func NewCircuitBreaker(name string, config CircuitBreakerConfig, logger *logrus.Logger) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 2
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	if config.MaxRequests <= 0 {
		config.MaxRequests = 3
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 300 * time.Second
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &CircuitBreaker{
		name:            name,
		config:          config,
		logger:          logger,
		state:           Closed,
		lastStateChange: time.Now(),
	}
}

// Execute runs the provider call under breaker protection. When the
// breaker is open the call is rejected with a ProviderUnavailableError
// carrying ErrCircuitOpen.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	cb.mu.Lock()

	cb.stats.TotalRequests++

	if !cb.canExecute() {
		cb.logger.WithFields(logrus.Fields{
			"provider":      cb.name,
			"state":         cb.getStateName(),
			"failure_count": cb.failureCount,
		}).Warn("Circuit breaker open, rejecting provider call")
		cb.mu.Unlock()
		return utils.NewProviderUnavailableError(cb.name, ErrCircuitOpen)
	}
	if cb.state == HalfOpen {
		cb.requestCount++
	}
	cb.mu.Unlock()

	start := time.Now()
	err := fn(ctx)
	duration := time.Since(start)

	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch {
	case err == nil:
		cb.onSuccess(duration)
	case utils.IsProviderRateLimited(err):
		// The feed answered; it just told us to slow down.
		cb.stats.RateLimitedSkips++
		cb.logger.WithFields(logrus.Fields{
			"provider":    cb.name,
			"duration_ms": duration.Milliseconds(),
		}).Warn("Provider rate limited, skipping without tripping breaker")
	default:
		cb.onFailure(err, duration)
	}

	return err
}

// canExecute determines whether the breaker admits the call. Callers
// hold cb.mu.
func (cb *CircuitBreaker) canExecute() bool {
	now := time.Now()

	switch cb.state {
	case Closed:
		if now.Sub(cb.lastFailureTime) > cb.config.ResetTimeout {
			cb.failureCount = 0
		}
		return true

	case Open:
		if now.Sub(cb.lastStateChange) > cb.config.Timeout {
			cb.setState(HalfOpen)
			cb.requestCount = 0
			cb.successCount = 0
			return true
		}
		return false

	case HalfOpen:
		return cb.requestCount < cb.config.MaxRequests

	default:
		return false
	}
}

// onSuccess records a successful provider call. Callers hold cb.mu.
func (cb *CircuitBreaker) onSuccess(duration time.Duration) {
	cb.stats.SuccessfulRequests++
	cb.stats.LastSuccessTime = time.Now()

	switch cb.state {
	case Closed:
		cb.failureCount = 0

	case HalfOpen:
		cb.successCount++
		if cb.successCount >= cb.config.SuccessThreshold {
			cb.setState(Closed)
			cb.failureCount = 0
			cb.successCount = 0
			cb.requestCount = 0
		}
	}

	cb.logger.WithFields(logrus.Fields{
		"provider":    cb.name,
		"state":       cb.getStateName(),
		"duration_ms": duration.Milliseconds(),
	}).Debug("Provider call succeeded")
}

// onFailure records a failed provider call. Callers hold cb.mu.
func (cb *CircuitBreaker) onFailure(err error, duration time.Duration) {
	cb.stats.FailedRequests++
	cb.stats.LastFailureTime = time.Now()
	cb.lastFailureTime = time.Now()

	switch cb.state {
	case Closed:
		cb.failureCount++
		if cb.failureCount >= cb.config.FailureThreshold {
			cb.setState(Open)
		}

	case HalfOpen:
		// One bad probe reopens the circuit.
		cb.setState(Open)
		cb.failureCount++
		cb.successCount = 0
		cb.requestCount = 0
	}

	cb.logger.WithFields(logrus.Fields{
		"provider":      cb.name,
		"state":         cb.getStateName(),
		"error":         err.Error(),
		"duration_ms":   duration.Milliseconds(),
		"failure_count": cb.failureCount,
	}).Warn("Provider call failed")
}

// setState changes the breaker state. Callers hold cb.mu.
func (cb *CircuitBreaker) setState(newState CircuitBreakerState) {
	if cb.state != newState {
		oldState := cb.state
		cb.state = newState
		cb.lastStateChange = time.Now()
		cb.stats.StateChanges++

		cb.logger.WithFields(logrus.Fields{
			"provider":  cb.name,
			"old_state": cb.getStateNameForState(oldState),
			"new_state": cb.getStateName(),
		}).Info("Circuit breaker state changed")
	}
}

// GetState returns the current breaker state.
func (cb *CircuitBreaker) GetState() CircuitBreakerState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// GetStats returns a copy of the call statistics.
func (cb *CircuitBreaker) GetStats() CircuitBreakerStats {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.stats
}

// IsOpen returns true if the breaker is rejecting calls.
func (cb *CircuitBreaker) IsOpen() bool {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state == Open
}

// Reset manually closes the breaker and clears its counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.setState(Closed)
	cb.failureCount = 0
	cb.successCount = 0
	cb.requestCount = 0

	cb.logger.WithField("provider", cb.name).Info("Circuit breaker manually reset")
}

func (cb *CircuitBreaker) getStateName() string {
	return cb.getStateNameForState(cb.state)
}

func (cb *CircuitBreaker) getStateNameForState(state CircuitBreakerState) string {
	switch state {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerManager keeps one breaker per upstream feed so the odds
// and score providers trip independently.
type CircuitBreakerManager struct {
	breakers map[string]*CircuitBreaker
	logger   *logrus.Logger
	mu       sync.RWMutex
}

// NewCircuitBreakerManager creates an empty breaker registry.
func NewCircuitBreakerManager(logger *logrus.Logger) *CircuitBreakerManager {
	return &CircuitBreakerManager{
		breakers: make(map[string]*CircuitBreaker),
		logger:   logger,
	}
}

// GetOrCreate returns the named provider's breaker, creating it on
// first use.
func (cbm *CircuitBreakerManager) GetOrCreate(name string, config CircuitBreakerConfig) *CircuitBreaker {
	cbm.mu.Lock()
	defer cbm.mu.Unlock()

	if breaker, exists := cbm.breakers[name]; exists {
		return breaker
	}

	breaker := NewCircuitBreaker(name, config, cbm.logger)
	cbm.breakers[name] = breaker
	return breaker
}

// GetAllStats returns statistics for every registered breaker.
func (cbm *CircuitBreakerManager) GetAllStats() map[string]CircuitBreakerStats {
	cbm.mu.RLock()
	defer cbm.mu.RUnlock()

	stats := make(map[string]CircuitBreakerStats)
	for name, breaker := range cbm.breakers {
		stats[name] = breaker.GetStats()
	}
	return stats
}

// ResetAll closes every registered breaker.
func (cbm *CircuitBreakerManager) ResetAll() {
	cbm.mu.RLock()
	defer cbm.mu.RUnlock()

	for _, breaker := range cbm.breakers {
		breaker.Reset()
	}
}
