// Package retry provides bounded retry logic for external API calls.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	berrors "github.com/harmonikprz/malibu-bot/internal/errors"
)

// Config holds retry configuration.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      bool

	// RetryAll retries every error instead of only retryable ones. Used for
	// best-effort platform calls like the webhook clear.
	RetryAll bool
}

// DefaultConfig returns sensible exponential-backoff defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
		Jitter:      true,
	}
}

// Fixed returns a config with constant spacing between attempts.
func Fixed(attempts int, delay time.Duration) Config {
	return Config{
		MaxAttempts: attempts,
		BaseDelay:   delay,
		MaxDelay:    delay,
		RetryAll:    true,
	}
}

// Do executes fn, retrying with backoff. Unless RetryAll is set, only
// retryable errors are retried.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !cfg.RetryAll && !berrors.IsRetryable(lastErr) {
			return lastErr
		}
		if attempt == cfg.MaxAttempts-1 {
			break
		}

		delay := time.Duration(float64(cfg.BaseDelay) * math.Pow(2, float64(attempt)))
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
		if cfg.Jitter {
			delay = time.Duration(float64(delay) * (0.5 + rand.Float64()*0.5))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}
