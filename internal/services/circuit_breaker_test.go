package services

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharpline/sharpline-go/internal/utils"
)

func newTestBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewCircuitBreaker("the-odds-api", config, logger)
}

func failingCall(ctx context.Context) error {
	return errors.New("connection refused")
}

func succeedingCall(ctx context.Context) error {
	return nil
}

func TestCircuitBreakerDefaults(t *testing.T) {
	breaker := newTestBreaker(CircuitBreakerConfig{})

	assert.Equal(t, 5, breaker.config.FailureThreshold)
	assert.Equal(t, 2, breaker.config.SuccessThreshold)
	assert.Equal(t, 60*time.Second, breaker.config.Timeout)
	assert.Equal(t, 3, breaker.config.MaxRequests)
	assert.Equal(t, Closed, breaker.GetState())
	assert.False(t, breaker.IsOpen())
}

func TestCircuitBreakerPassesResultsThrough(t *testing.T) {
	breaker := newTestBreaker(CircuitBreakerConfig{FailureThreshold: 3})

	err := breaker.Execute(context.Background(), succeedingCall)
	assert.NoError(t, err)

	err = breaker.Execute(context.Background(), failingCall)
	require.Error(t, err)
	assert.Equal(t, "connection refused", err.Error())

	stats := breaker.GetStats()
	assert.Equal(t, int64(2), stats.TotalRequests)
	assert.Equal(t, int64(1), stats.SuccessfulRequests)
	assert.Equal(t, int64(1), stats.FailedRequests)
}

func TestCircuitBreakerOpensAtThreshold(t *testing.T) {
	breaker := newTestBreaker(CircuitBreakerConfig{FailureThreshold: 3, Timeout: time.Hour})

	for i := 0; i < 3; i++ {
		_ = breaker.Execute(context.Background(), failingCall)
	}
	assert.True(t, breaker.IsOpen())

	// The next call is rejected with the provider taxonomy, not the raw
	// breaker error.
	err := breaker.Execute(context.Background(), succeedingCall)
	require.Error(t, err)
	assert.True(t, utils.IsProviderUnavailable(err))
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Contains(t, err.Error(), "the-odds-api")
}

func TestCircuitBreakerSuccessResetsFailureCount(t *testing.T) {
	breaker := newTestBreaker(CircuitBreakerConfig{FailureThreshold: 3})

	_ = breaker.Execute(context.Background(), failingCall)
	_ = breaker.Execute(context.Background(), failingCall)
	require.NoError(t, breaker.Execute(context.Background(), succeedingCall))

	// Two more failures stay under the threshold again.
	_ = breaker.Execute(context.Background(), failingCall)
	_ = breaker.Execute(context.Background(), failingCall)
	assert.False(t, breaker.IsOpen())
}

func TestCircuitBreakerRateLimitDoesNotTrip(t *testing.T) {
	breaker := newTestBreaker(CircuitBreakerConfig{FailureThreshold: 2})

	rateLimited := func(ctx context.Context) error {
		return utils.NewProviderRateLimitedError("the-odds-api", 30*time.Second)
	}
	for i := 0; i < 5; i++ {
		err := breaker.Execute(context.Background(), rateLimited)
		assert.True(t, utils.IsProviderRateLimited(err))
	}

	assert.False(t, breaker.IsOpen())
	stats := breaker.GetStats()
	assert.Equal(t, int64(5), stats.RateLimitedSkips)
	assert.Zero(t, stats.FailedRequests)
}

func TestCircuitBreakerHalfOpenRecovery(t *testing.T) {
	breaker := newTestBreaker(CircuitBreakerConfig{
		FailureThreshold: 2,
		SuccessThreshold: 2,
		Timeout:          20 * time.Millisecond,
		MaxRequests:      5,
	})

	_ = breaker.Execute(context.Background(), failingCall)
	_ = breaker.Execute(context.Background(), failingCall)
	require.True(t, breaker.IsOpen())

	time.Sleep(30 * time.Millisecond)

	// First probe flips the breaker to half-open; two successes close it.
	require.NoError(t, breaker.Execute(context.Background(), succeedingCall))
	assert.Equal(t, HalfOpen, breaker.GetState())
	require.NoError(t, breaker.Execute(context.Background(), succeedingCall))
	assert.Equal(t, Closed, breaker.GetState())
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	breaker := newTestBreaker(CircuitBreakerConfig{
		FailureThreshold: 2,
		SuccessThreshold: 2,
		Timeout:          20 * time.Millisecond,
	})

	_ = breaker.Execute(context.Background(), failingCall)
	_ = breaker.Execute(context.Background(), failingCall)
	require.True(t, breaker.IsOpen())

	time.Sleep(30 * time.Millisecond)

	_ = breaker.Execute(context.Background(), failingCall)
	assert.True(t, breaker.IsOpen())
}

func TestCircuitBreakerReset(t *testing.T) {
	breaker := newTestBreaker(CircuitBreakerConfig{FailureThreshold: 1, Timeout: time.Hour})

	_ = breaker.Execute(context.Background(), failingCall)
	require.True(t, breaker.IsOpen())

	breaker.Reset()
	assert.False(t, breaker.IsOpen())
	assert.NoError(t, breaker.Execute(context.Background(), succeedingCall))
}

func TestCircuitBreakerConcurrentCalls(t *testing.T) {
	breaker := newTestBreaker(CircuitBreakerConfig{FailureThreshold: 100})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = breaker.Execute(context.Background(), succeedingCall)
		}()
	}
	wg.Wait()

	stats := breaker.GetStats()
	assert.Equal(t, int64(20), stats.TotalRequests)
	assert.Equal(t, int64(20), stats.SuccessfulRequests)
}

func TestCircuitBreakerManagerSharesBreakers(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	manager := NewCircuitBreakerManager(logger)

	odds := manager.GetOrCreate("the-odds-api", CircuitBreakerConfig{FailureThreshold: 1, Timeout: time.Hour})
	scores := manager.GetOrCreate("scores-feed", CircuitBreakerConfig{FailureThreshold: 1, Timeout: time.Hour})
	assert.Same(t, odds, manager.GetOrCreate("the-odds-api", CircuitBreakerConfig{}))

	// Tripping one feed leaves the other usable.
	_ = odds.Execute(context.Background(), failingCall)
	assert.True(t, odds.IsOpen())
	assert.False(t, scores.IsOpen())

	stats := manager.GetAllStats()
	require.Len(t, stats, 2)
	assert.Equal(t, int64(1), stats["the-odds-api"].FailedRequests)

	manager.ResetAll()
	assert.False(t, odds.IsOpen())
}
