// Package ratelimit provides a token bucket limiter for calls to AI providers.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
	"github.com/custodia-labs/earnings-tldr/internal/core/ports/driven"
)

// Ensure Limiter implements the interface.
var _ driven.RateLimiter = (*Limiter)(nil)

// DefaultBurst is the number of calls allowed back to back before throttling.
const DefaultBurst = 4

// Limiter throttles external calls to a per-minute budget.
// It is safe for concurrent use by the indexer workers and tier analyzers.
type Limiter struct {
	bucket    *rate.Limiter
	perMinute int
}

// New creates a limiter allowing perMinute calls with the given burst.
// A non-positive perMinute disables limiting.
func New(perMinute, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
	}
	return &Limiter{
		bucket:    rate.NewLimiter(limit, burst),
		perMinute: perMinute,
	}
}

// Wait blocks until a call may proceed.
// Returns an error wrapping domain.ErrRateLimited when ctx ends first or the
// wait would outlast the context deadline.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.bucket.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %v", domain.ErrRateLimited, err)
	}
	return nil
}

// PerMinute returns the configured budget, or 0 when unlimited.
func (l *Limiter) PerMinute() int {
	return l.perMinute
}
