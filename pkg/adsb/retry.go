package adsb

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/unklstewy/skyroute/pkg/logger"
)

// RetryConfig configures retry behavior with exponential backoff.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts (default: 3)
	MaxRetries int

	// InitialDelay is the initial backoff delay (default: 1 second)
	InitialDelay time.Duration

	// MaxDelay is the maximum backoff delay (default: 60 seconds)
	MaxDelay time.Duration

	// Multiplier is the backoff multiplier (default: 2.0 for exponential)
	Multiplier float64

	// RespectRetryAfter uses Retry-After header if available (default: true)
	RespectRetryAfter bool

	// Logger receives rate limit notices. May be nil.
	Logger *logger.Logger
}

// DefaultRetryConfig returns sensible defaults for retry behavior.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        3,
		InitialDelay:      time.Second,
		MaxDelay:          60 * time.Second,
		Multiplier:        2.0,
		RespectRetryAfter: true,
	}
}

// RetryWithBackoffResult executes a function with exponential backoff and returns a result.
// Rate limit errors (HTTP 429) wait for their Retry-After when RespectRetryAfter is set.
// On failure the zero value of T is returned together with the last error.
//
// Example usage:
//
//	aircraft, err := RetryWithBackoffResult(ctx, DefaultRetryConfig(), func() ([]Aircraft, error) {
//	    return client.GetAircraft(ctx, lat, lon, radius)
//	})
func RetryWithBackoffResult[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		// First attempt (no delay)
		if attempt > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, fmt.Errorf("retry cancelled: %w", ctx.Err())
			case <-timer.C:
			}
		} else if err := ctx.Err(); err != nil {
			return zero, fmt.Errorf("retry cancelled: %w", err)
		}

		res, err := fn()
		if err == nil {
			return res, nil
		}
		lastErr = err

		// Last attempt - don't calculate next delay
		if attempt == cfg.MaxRetries {
			break
		}

		// delay = min(InitialDelay * Multiplier^attempt, MaxDelay)
		delay = time.Duration(float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(attempt)))
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}

		if rle, ok := IsRateLimitError(err); ok {
			if cfg.RespectRetryAfter && rle.RetryAfter > 0 {
				delay = rle.RetryAfter
			}
			if cfg.Logger != nil && rle.Headers.Remaining >= 0 {
				cfg.Logger.Warn("Rate limit hit",
					logger.Int("remaining", rle.Headers.Remaining),
					logger.Int("limit", rle.Headers.Limit),
					logger.Time("reset", rle.Headers.Reset),
					logger.Duration("retry_in", delay))
			}
		}
	}

	return zero, fmt.Errorf("max retries (%d) exceeded: %w", cfg.MaxRetries, lastErr)
}
