// Package retry provides exponential backoff with jitter for storage and
// gateway operations.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// Config holds configuration for retry with backoff.
type Config struct {
	// MaxAttempts is the maximum number of attempts (including initial).
	// Default: 5
	MaxAttempts int

	// InitialBackoff is the initial backoff duration.
	// Default: 100ms
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration.
	// Default: 5s
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier applied to backoff after each attempt.
	// Default: 2.0
	BackoffMultiplier float64

	// JitterFraction is the fraction of backoff to randomize (0.0 to 1.0).
	// Default: 0.1 (10% jitter)
	JitterFraction float64
}

// DefaultConfig returns the default retry configuration.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:       5,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
		JitterFraction:    0.1,
	}
}

// Backoff yields successive sleep durations for a Config.
type Backoff struct {
	cfg     Config
	current time.Duration
}

// NewBackoff starts a backoff sequence at cfg.InitialBackoff.
func NewBackoff(cfg Config) *Backoff {
	return &Backoff{cfg: cfg, current: cfg.InitialBackoff}
}

// Next returns the next sleep duration (with jitter) and grows the base
// duration for the following call.
func (b *Backoff) Next() time.Duration {
	base := b.current
	jitter := time.Duration(float64(base) * b.cfg.JitterFraction * (rand.Float64()*2 - 1))
	d := base + jitter
	if d < 0 {
		d = base
	}

	if b.cfg.BackoffMultiplier > 0 {
		b.current = time.Duration(float64(b.current) * b.cfg.BackoffMultiplier)
	}
	if b.cfg.MaxBackoff > 0 && b.current > b.cfg.MaxBackoff {
		b.current = b.cfg.MaxBackoff
	}
	return d
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Do executes the operation with exponential backoff on failure.
// It respects context cancellation and returns the last error if all attempts fail.
func Do(ctx context.Context, cfg Config, operation func() error) error {
	return DoIf(ctx, cfg, IsRetryableError, operation)
}

// DoIf is Do with a caller-supplied predicate deciding which errors are retried.
func DoIf(ctx context.Context, cfg Config, retryable func(error) bool, operation func() error) error {
	var lastErr error
	backoff := NewBackoff(cfg)

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		lastErr = operation()
		if lastErr == nil {
			return nil
		}

		if !retryable(lastErr) {
			return lastErr
		}

		// Check if we've exhausted attempts
		if attempt >= cfg.MaxAttempts {
			break
		}

		if err := Sleep(ctx, backoff.Next()); err != nil {
			return err
		}
	}

	return lastErr
}

// IsRetryableError determines if an error is worth retrying.
// Returns false for errors that indicate permanent failures.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// Context errors are not retryable
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	// Errors that know their own nature decide for themselves.
	var temp interface{ Temporary() bool }
	if errors.As(err, &temp) {
		return temp.Temporary()
	}

	// Most database and network errors are potentially transient.
	return true
}
