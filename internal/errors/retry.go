package errors

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"
)

// Retry configuration constants
const (
	defaultMaxAttempts  = 5
	defaultInitialDelay = 500 * time.Millisecond
	defaultMaxDelay     = 10 * time.Second
	defaultMultiplier   = 2.0

	// Jitter calculation constants
	jitterPercentage = 0.25 // 25% jitter range
	jitterMultiplier = 2    // For symmetric jitter calculation
	jitterOffset     = 0.5  // Center offset for symmetric distribution
)

// RetryConfig configures retry behavior
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	Multiplier    float64
	Jitter        bool
	RetryableFunc func(error) bool // nil retries every error except client errors
}

// DefaultRetryConfig returns the backoff used while waiting for the database
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:  defaultMaxAttempts,
		InitialDelay: defaultInitialDelay,
		MaxDelay:     defaultMaxDelay,
		Multiplier:   defaultMultiplier,
		Jitter:       true,
	}
}

// RetryableOperation represents an operation that can be retried
type RetryableOperation func(ctx context.Context, attempt int) error

// Retryer handles retry logic with exponential backoff
type Retryer struct {
	config *RetryConfig
	logger *slog.Logger
}

// NewRetryer creates a new retryer with the given configuration
func NewRetryer(config *RetryConfig, logger *slog.Logger) *Retryer {
	if config == nil {
		config = DefaultRetryConfig()
	}
	return &Retryer{config: config, logger: logger}
}

// Execute runs the operation until it succeeds, fails with a
// non-retryable error, runs out of attempts or ctx is done
func (r *Retryer) Execute(ctx context.Context, operation RetryableOperation) error {
	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Wrap(ErrCodeInternalError, "operation canceled", err)
		}

		err := operation(ctx, attempt)
		if err == nil {
			if attempt > 1 {
				r.logger.Info("Operation succeeded after retry", "attempt", attempt)
			}
			return nil
		}
		lastErr = err

		if !r.isRetryable(err) {
			r.logger.Debug("Error is not retryable, stopping retry attempts",
				"error", err,
				"attempt", attempt)
			return err
		}

		// Don't wait after the last attempt
		if attempt == r.config.MaxAttempts {
			break
		}

		delay := r.calculateDelay(attempt)
		r.logger.Warn("Operation failed, retrying",
			"error", err,
			"attempt", attempt,
			"max_attempts", r.config.MaxAttempts,
			"delay_ms", delay.Milliseconds())

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Wrap(ErrCodeInternalError, "operation canceled during retry delay", ctx.Err())
		case <-timer.C:
		}
	}

	r.logger.Error("Operation failed after all retry attempts",
		"error", lastErr,
		"total_attempts", r.config.MaxAttempts)

	if _, ok := As(lastErr); ok {
		return lastErr
	}
	return Wrap(ErrCodeInternalError, "operation failed after retries", lastErr).
		WithContext("attempts", r.config.MaxAttempts)
}

// calculateDelay calculates the delay for the next retry attempt
func (r *Retryer) calculateDelay(attempt int) time.Duration {
	// Exponential backoff: delay = initial_delay * (multiplier ^ (attempt - 1))
	delay := float64(r.config.InitialDelay) * math.Pow(r.config.Multiplier, float64(attempt-1))

	if delay > float64(r.config.MaxDelay) {
		delay = float64(r.config.MaxDelay)
	}

	// Add jitter if enabled (±25% random variation)
	if r.config.Jitter {
		jitterRange := delay * jitterPercentage
		delay += (rand.Float64() - jitterOffset) * jitterMultiplier * jitterRange
	}

	if delay < 0 {
		delay = float64(r.config.InitialDelay)
	}

	return time.Duration(delay)
}

// isRetryable determines if an error should be retried
func (r *Retryer) isRetryable(err error) bool {
	if r.config.RetryableFunc != nil {
		return r.config.RetryableFunc(err)
	}
	if se, ok := As(err); ok {
		return !se.IsClientError()
	}
	return true
}
