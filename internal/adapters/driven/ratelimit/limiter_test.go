package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
)

func TestLimiter_AllowsBurst(t *testing.T) {
	l := New(60, 3)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Wait(ctx))
	}
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, 60, l.PerMinute())
}

func TestLimiter_Unlimited(t *testing.T) {
	l := New(0, 0)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		require.NoError(t, l.Wait(ctx))
	}
	assert.Equal(t, 0, l.PerMinute())
}

func TestLimiter_CancelledContext(t *testing.T) {
	l := New(1, 1)
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := l.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLimiter_DeadlineTooShort(t *testing.T) {
	l := New(1, 1)
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// The next token is a minute away, so the limiter refuses immediately.
	err := l.Wait(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrRateLimited) || errors.Is(err, context.DeadlineExceeded))
}
