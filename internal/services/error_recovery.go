package services

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sharpline/sharpline-go/internal/utils"
)

// RetryPolicy defines retry behavior for one class of failed operation.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	JitterEnabled bool
}

// ErrorRecoveryManager holds the named retry policies the pipeline runs
// its provider, database and Redis calls under.
type ErrorRecoveryManager struct {
	logger   *logrus.Logger
	policies map[string]*RetryPolicy
	mu       sync.RWMutex
}

// NewErrorRecoveryManager creates a manager preloaded with the default
// policies.
func NewErrorRecoveryManager(logger *logrus.Logger) *ErrorRecoveryManager {
	if logger == nil {
		logger = logrus.New()
	}
	return &ErrorRecoveryManager{
		logger:   logger,
		policies: DefaultRetryPolicies(),
	}
}

// RegisterRetryPolicy adds or replaces the policy for an operation name.
func (erm *ErrorRecoveryManager) RegisterRetryPolicy(name string, policy *RetryPolicy) {
	erm.mu.Lock()
	defer erm.mu.Unlock()

	erm.policies[name] = policy
}

// ExecuteWithRetry runs the operation under the named policy, backing
// off exponentially between attempts. Permanent failures are returned
// immediately: a rate-limited provider is honored rather than hammered,
// and validation or team-match failures will not pass on a second try.
func (erm *ErrorRecoveryManager) ExecuteWithRetry(ctx context.Context, operationName string, operation func() error) error {
	start := time.Now()

	erm.mu.RLock()
	policy := erm.policies[operationName]
	erm.mu.RUnlock()

	if policy == nil {
		policy = &RetryPolicy{
			MaxRetries:    3,
			InitialDelay:  100 * time.Millisecond,
			MaxDelay:      5 * time.Second,
			BackoffFactor: 2.0,
			JitterEnabled: true,
		}
	}

	delay := policy.InitialDelay
	var lastErr error

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := operation()
		if err == nil {
			if attempt > 0 {
				erm.logger.WithFields(logrus.Fields{
					"operation": operationName,
					"attempts":  attempt + 1,
					"duration":  time.Since(start),
				}).Info("Operation recovered after retry")
			}
			return nil
		}

		lastErr = err

		if isPermanent(err) {
			erm.logger.WithFields(logrus.Fields{
				"operation": operationName,
				"error":     err.Error(),
			}).Warn("Operation failed permanently, not retrying")
			return err
		}

		if attempt == policy.MaxRetries {
			break
		}

		erm.logger.WithFields(logrus.Fields{
			"operation": operationName,
			"attempt":   attempt + 1,
			"error":     err.Error(),
			"delay":     delay,
		}).Warn("Operation failed, retrying")

		if err := sleepContext(ctx, erm.jittered(delay, policy)); err != nil {
			return err
		}
		delay = time.Duration(float64(delay) * policy.BackoffFactor)
		if delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}

	erm.logger.WithFields(logrus.Fields{
		"operation": operationName,
		"attempts":  policy.MaxRetries + 1,
		"duration":  time.Since(start),
		"error":     lastErr.Error(),
	}).Error("Operation failed after all retries")

	return lastErr
}

// isPermanent reports whether retrying the error is pointless or
// actively harmful. An open circuit counts: the breaker rejects
// instantly until its timeout elapses, which outlives any retry budget.
func isPermanent(err error) bool {
	if utils.IsProviderRateLimited(err) {
		return true
	}
	if utils.IsValidationError(err) {
		return true
	}
	if utils.IsTeamMatchFailure(err) {
		return true
	}
	if errors.Is(err, ErrCircuitOpen) {
		return true
	}
	return false
}

// jittered spreads the delay by up to ±25% so synchronized retries
// don't stampede a recovering upstream.
func (erm *ErrorRecoveryManager) jittered(baseDelay time.Duration, policy *RetryPolicy) time.Duration {
	if !policy.JitterEnabled {
		return baseDelay
	}

	jitter := time.Duration((rand.Float64() - 0.5) * 0.5 * float64(baseDelay))
	return baseDelay + jitter
}

// sleepContext waits out the delay unless the context ends first.
func sleepContext(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// DefaultRetryPolicies returns the retry policies for the pipeline's
// operation classes.
func DefaultRetryPolicies() map[string]*RetryPolicy {
	return map[string]*RetryPolicy{
		"provider_fetch": {
			MaxRetries:    3,
			InitialDelay:  100 * time.Millisecond,
			MaxDelay:      5 * time.Second,
			BackoffFactor: 2.0,
			JitterEnabled: true,
		},
		"database_operation": {
			MaxRetries:    5,
			InitialDelay:  50 * time.Millisecond,
			MaxDelay:      2 * time.Second,
			BackoffFactor: 1.5,
			JitterEnabled: true,
		},
		"redis_operation": {
			MaxRetries:    3,
			InitialDelay:  25 * time.Millisecond,
			MaxDelay:      1 * time.Second,
			BackoffFactor: 2.0,
			JitterEnabled: false,
		},
		"telegram_send": {
			MaxRetries:    2,
			InitialDelay:  200 * time.Millisecond,
			MaxDelay:      3 * time.Second,
			BackoffFactor: 2.5,
			JitterEnabled: true,
		},
	}
}
