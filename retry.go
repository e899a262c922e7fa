package vigil

import (
	"context"
	"math/rand"
	"time"
)

// RetryConfig controls retry behavior for outbound deliveries.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff caps the exponential backoff.
	MaxBackoff time.Duration

	// Multiplier scales the backoff after each failed attempt.
	Multiplier float64

	// Jitter adds up to this fraction of random variation to each delay.
	Jitter float64

	// RetryIf decides whether an error is retryable. Nil retries all errors.
	RetryIf func(error) bool
}

// DefaultRetryConfig returns the delivery retry defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		Multiplier:     2.0,
		Jitter:         0.2,
	}
}

// Retryer runs an operation with exponential backoff.
type Retryer struct {
	config RetryConfig
}

// NewRetryer creates a Retryer, filling in zero-valued config fields.
func NewRetryer(config RetryConfig) *Retryer {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = 500 * time.Millisecond
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = 10 * time.Second
	}
	if config.Multiplier <= 1 {
		config.Multiplier = 2.0
	}
	return &Retryer{config: config}
}

// Do runs fn until it succeeds, the attempts are exhausted, or the context
// is canceled. It returns the last error observed.
func (r *Retryer) Do(ctx context.Context, fn func() error) error {
	var lastErr error
	backoff := r.config.InitialBackoff
	for attempt := 0; attempt < r.config.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := backoff
			if r.config.Jitter > 0 {
				delay += time.Duration(rand.Float64() * r.config.Jitter * float64(backoff))
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			backoff = time.Duration(float64(backoff) * r.config.Multiplier)
			if backoff > r.config.MaxBackoff {
				backoff = r.config.MaxBackoff
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if r.config.RetryIf != nil && !r.config.RetryIf(lastErr) {
			return lastErr
		}
	}
	return lastErr
}
