package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/jpillora/backoff"
)

// RetryConfig controls WithRetry.
type RetryConfig struct {
	MaxAttempts int
	MinDelay    time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryConfig returns three attempts with growing delays.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		MinDelay:    time.Second,
		MaxDelay:    10 * time.Second,
	}
}

// WithRetry runs op until it succeeds, the attempt budget is exhausted or
// the context is cancelled. Delays between attempts grow exponentially
// with jitter.
func WithRetry(ctx context.Context, cfg RetryConfig, op func(ctx context.Context) error) error {
	def := DefaultRetryConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.MinDelay <= 0 {
		cfg.MinDelay = def.MinDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = def.MaxDelay
	}

	b := &backoff.Backoff{
		Min:    cfg.MinDelay,
		Max:    cfg.MaxDelay,
		Factor: 2,
		Jitter: true,
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == cfg.MaxAttempts {
			break
		}
		select {
		case <-time.After(b.Duration()):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("all %d attempts failed: %w", cfg.MaxAttempts, lastErr)
}
