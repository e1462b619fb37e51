package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// RetryConfig controls Retry.
type RetryConfig struct {
	// Attempts is the total number of tries. Default 2.
	Attempts int
	// Backoff is the delay before the first retry. Default 500ms.
	Backoff time.Duration
	// MaxBackoff caps the delay. Default 5s.
	MaxBackoff time.Duration
	// Jitter is the random fraction applied to each delay (0 disables).
	Jitter float64
	// Retryable decides whether an error is worth another try. Nil uses
	// IsTransient.
	Retryable func(err error) bool
	// Name labels retry log lines.
	Name string
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.Attempts <= 0 {
		c.Attempts = 2
	}
	if c.Backoff <= 0 {
		c.Backoff = 500 * time.Millisecond
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 5 * time.Second
	}
	if c.Jitter < 0 {
		c.Jitter = 0
	}
	if c.Retryable == nil {
		c.Retryable = IsTransient
	}
	return c
}

// delay returns the wait before retry number attempt (0-based), doubling
// each time.
func (c RetryConfig) delay(attempt int) time.Duration {
	d := float64(c.Backoff) * math.Pow(2, float64(attempt))
	if d > float64(c.MaxBackoff) {
		d = float64(c.MaxBackoff)
	}
	if c.Jitter > 0 {
		d += (rand.Float64()*2 - 1) * d * c.Jitter
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// Retry calls fn until it succeeds, returns a non-retryable error, the
// attempts run out or ctx is done. The last error is returned.
func Retry[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg = cfg.withDefaults()

	var zero T
	var lastErr error
	for attempt := range cfg.Attempts {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if ctx.Err() != nil || !cfg.Retryable(err) || attempt == cfg.Attempts-1 {
			break
		}

		wait := cfg.delay(attempt)
		zap.L().Debug("resilience: retrying",
			zap.String("name", cfg.Name),
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", wait),
			zap.Error(err),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}
	return zero, lastErr
}
