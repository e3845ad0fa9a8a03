package client

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for retry operations.
var (
	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collector_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collector_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the initial request).
	MaxAttempts int

	// Delay is the fixed wait between two attempts.
	Delay time.Duration
}

// DefaultRetryConfig returns the default retry configuration: five attempts,
// two seconds apart.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 5,
		Delay:       2 * time.Second,
	}
}

// retryWithDelay runs fn until it succeeds, returns a non-retriable error, or
// MaxAttempts is reached. It returns the number of attempts made.
// The wait between attempts is fixed and respects context cancellation.
func retryWithDelay(ctx context.Context, config RetryConfig, logger zerolog.Logger, fn func(attempt int) error) (int, error) {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}

	var lastErr error
	var errClass ErrorClass

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		err := fn(attempt)
		if err == nil {
			if attempt > 1 {
				logger.Debug().
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return attempt, nil
		}

		lastErr = err
		errClass = errorClassOf(err)

		if !shouldRetry(errClass) {
			return attempt, lastErr
		}

		// If this was the last attempt, don't wait
		if attempt >= config.MaxAttempts {
			break
		}

		retriesTotal.WithLabelValues(string(errClass)).Inc()

		logger.Debug().
			Str("error_class", string(errClass)).
			Int("attempt", attempt).
			Dur("delay", config.Delay).
			Msg("Retrying request after delay")

		if config.Delay <= 0 {
			if ctx.Err() != nil {
				return attempt, fmt.Errorf("%w: %w", ErrContextCancelled, lastErr)
			}
			continue
		}

		timer := time.NewTimer(config.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Warn().
				Str("error_class", string(errClass)).
				Int("attempt", attempt).
				Msg("Context cancelled during retry delay")
			return attempt, fmt.Errorf("%w: %w", ErrContextCancelled, lastErr)
		case <-timer.C:
		}
	}

	retryExhaustedTotal.WithLabelValues(string(errClass)).Inc()
	logger.Warn().
		Err(lastErr).
		Str("error_class", string(errClass)).
		Int("max_attempts", config.MaxAttempts).
		Msg("Retry attempts exhausted")

	return config.MaxAttempts, fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, config.MaxAttempts, lastErr)
}
