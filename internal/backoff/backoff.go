// Package backoff implements the small exponential-backoff retry helper
// used by the SyftBox Adapter's start sequence: a bounded-attempt retry
// loop for a local subprocess start. The context is checked before each
// attempt and during each wait; an attempt itself is not given a deadline.
package backoff

import (
	"context"
	"time"
)

// Config controls Retry's schedule.
type Config struct {
	MaxAttempts int
	Base        time.Duration
	Max         time.Duration
}

// DefaultConfig returns the SyftBox Adapter's default retry schedule: 3
// attempts, doubling from 500ms, capped at 5s.
func DefaultConfig() Config {
	return Config{MaxAttempts: 3, Base: 500 * time.Millisecond, Max: 5 * time.Second}
}

// Retry calls fn until it succeeds, cfg.MaxAttempts is exhausted, or ctx is
// done, sleeping an exponentially increasing delay between attempts. It
// returns the last error on exhaustion.
func Retry(ctx context.Context, cfg Config, fn func(attempt int) error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	var lastErr error
	delay := cfg.Base
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}
		if attempt == cfg.MaxAttempts {
			break
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
		if delay > cfg.Max {
			delay = cfg.Max
		}
	}
	return lastErr
}
