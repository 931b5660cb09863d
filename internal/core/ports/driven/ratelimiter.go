package driven

import "context"

// RateLimiter throttles calls to external services.
type RateLimiter interface {
	// Wait blocks until a call may proceed or ctx is done.
	Wait(ctx context.Context) error
}
