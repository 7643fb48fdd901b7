package services

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharpline/sharpline-go/internal/utils"
)

func newTestRecoveryManager() *ErrorRecoveryManager {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	erm := NewErrorRecoveryManager(logger)
	erm.RegisterRetryPolicy("provider_fetch", &RetryPolicy{
		MaxRetries:    3,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2.0,
	})
	return erm
}

func TestExecuteWithRetryRecoversAfterTransientFailure(t *testing.T) {
	erm := newTestRecoveryManager()

	attempts := 0
	err := erm.ExecuteWithRetry(context.Background(), "provider_fetch", func() error {
		attempts++
		if attempts < 3 {
			return errors.New("connection reset")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestExecuteWithRetryExhaustsAttempts(t *testing.T) {
	erm := newTestRecoveryManager()

	attempts := 0
	err := erm.ExecuteWithRetry(context.Background(), "provider_fetch", func() error {
		attempts++
		return errors.New("connection reset")
	})

	require.Error(t, err)
	assert.Equal(t, "connection reset", err.Error())
	assert.Equal(t, 4, attempts)
}

func TestExecuteWithRetryHonorsRateLimit(t *testing.T) {
	erm := newTestRecoveryManager()

	// A 429 must not be retried; the next cycle picks the sport up again.
	attempts := 0
	err := erm.ExecuteWithRetry(context.Background(), "provider_fetch", func() error {
		attempts++
		return utils.NewProviderRateLimitedError("the-odds-api", 30*time.Second)
	})

	require.Error(t, err)
	assert.True(t, utils.IsProviderRateLimited(err))
	assert.Equal(t, 1, attempts)
}

func TestExecuteWithRetryStopsAtOpenCircuit(t *testing.T) {
	erm := newTestRecoveryManager()

	// An open breaker rejects instantly until its timeout elapses, so
	// retrying inside one cycle can never succeed.
	attempts := 0
	err := erm.ExecuteWithRetry(context.Background(), "provider_fetch", func() error {
		attempts++
		return utils.NewProviderUnavailableError("the-odds-api", ErrCircuitOpen)
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 1, attempts)
}

func TestExecuteWithRetrySkipsPermanentFailures(t *testing.T) {
	erm := newTestRecoveryManager()

	attempts := 0
	err := erm.ExecuteWithRetry(context.Background(), "provider_fetch", func() error {
		attempts++
		return utils.NewTeamMatchError("Bufalo Bils", "the-odds-api")
	})

	require.Error(t, err)
	assert.True(t, utils.IsTeamMatchFailure(err))
	assert.Equal(t, 1, attempts)
}

func TestExecuteWithRetryUnknownOperationUsesFallbackPolicy(t *testing.T) {
	erm := newTestRecoveryManager()

	err := erm.ExecuteWithRetry(context.Background(), "unregistered", func() error {
		return nil
	})
	assert.NoError(t, err)
}

func TestExecuteWithRetryStopsOnContextCancel(t *testing.T) {
	erm := newTestRecoveryManager()
	erm.RegisterRetryPolicy("slow", &RetryPolicy{
		MaxRetries:    5,
		InitialDelay:  50 * time.Millisecond,
		MaxDelay:      time.Second,
		BackoffFactor: 2.0,
	})

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := erm.ExecuteWithRetry(ctx, "slow", func() error {
		attempts++
		return errors.New("still failing")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestDefaultRetryPoliciesCoverPipelineOperations(t *testing.T) {
	policies := DefaultRetryPolicies()

	for _, name := range []string{"provider_fetch", "database_operation", "redis_operation", "telegram_send"} {
		policy, ok := policies[name]
		require.True(t, ok, "missing policy %s", name)
		assert.Greater(t, policy.MaxRetries, 0)
		assert.Greater(t, policy.BackoffFactor, 1.0)
		assert.LessOrEqual(t, policy.InitialDelay, policy.MaxDelay)
	}
}
