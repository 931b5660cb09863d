package services

import (
	"context"
	"errors"
	"time"

	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
)

// RetryPolicy is a bounded retry schedule applied uniformly to embedding and
// generation calls. Attempts are sequential; each attempt gets its own timeout.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts including the first.
	MaxAttempts int

	// InitialBackoff is the delay before the second attempt.
	InitialBackoff time.Duration

	// MaxBackoff caps the delay between attempts.
	MaxBackoff time.Duration

	// Multiplier grows the delay after each attempt.
	Multiplier float64

	// Timeout bounds each attempt. Zero means no per-attempt timeout.
	Timeout time.Duration

	// sleep waits between attempts; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetryPolicy creates a policy from settings and a per-attempt timeout.
// Non-positive attempts are raised to one.
func NewRetryPolicy(s domain.RetrySettings, timeout time.Duration) RetryPolicy {
	p := RetryPolicy{
		MaxAttempts:    s.MaxAttempts,
		InitialBackoff: s.InitialBackoff,
		MaxBackoff:     s.MaxBackoff,
		Multiplier:     s.Multiplier,
		Timeout:        timeout,
	}
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Multiplier < 1 {
		p.Multiplier = 1
	}
	return p
}

// Backoff returns the delay after the given failed attempt (1-based).
// The delay is InitialBackoff * Multiplier^(attempt-1), capped at MaxBackoff.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 || p.InitialBackoff <= 0 {
		return 0
	}

	multiplier := 1.0
	for i := 1; i < attempt; i++ {
		multiplier *= p.Multiplier
	}

	backoff := time.Duration(float64(p.InitialBackoff) * multiplier)
	if p.MaxBackoff > 0 && backoff > p.MaxBackoff {
		backoff = p.MaxBackoff
	}
	return backoff
}

// Operation is one attempt of a retried call.
type Operation func(ctx context.Context, attempt int) error

// Do runs op until it succeeds, returns a non-retryable error, or attempts run out.
// retryable decides which errors are retried; nil retries every error.
// Cancellation of ctx is never retried and is returned as ctx.Err().
// An attempt that exceeds Timeout returns an error matching context.DeadlineExceeded.
// Do returns the number of attempts made and the last error.
func (p RetryPolicy) Do(ctx context.Context, op Operation, retryable func(error) bool) (int, error) {
	maxAttempts := max(p.MaxAttempts, 1)

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return attempt - 1, ctxErr
		}

		err = p.attempt(ctx, op, attempt)
		if err == nil {
			return attempt, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return attempt, ctxErr
		}
		if retryable != nil && !retryable(err) {
			return attempt, err
		}
		if attempt == maxAttempts {
			break
		}

		if sleepErr := p.wait(ctx, p.Backoff(attempt)); sleepErr != nil {
			return attempt, sleepErr
		}
	}

	return maxAttempts, err
}

func (p RetryPolicy) attempt(ctx context.Context, op Operation, attempt int) error {
	callCtx := ctx
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	err := op(callCtx, attempt)
	if err != nil && callCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil &&
		!errors.Is(err, context.DeadlineExceeded) {
		// A timed-out request may surface as a plain transport error.
		return errors.Join(err, context.DeadlineExceeded)
	}
	return err
}

func (p RetryPolicy) wait(ctx context.Context, d time.Duration) error {
	if p.sleep != nil {
		return p.sleep(ctx, d)
	}
	return sleepContext(ctx, d)
}

// IsTimeout reports whether err is a per-call timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, domain.ErrGenerationTimeout)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
