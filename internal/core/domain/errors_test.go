package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrUnsupportedType", ErrUnsupportedType},
		{"ErrLLMUnavailable", ErrLLMUnavailable},
		{"ErrEmbeddingUnavailable", ErrEmbeddingUnavailable},
		{"ErrRateLimited", ErrRateLimited},
		{"ErrChunking", ErrChunking},
		{"ErrEmptyIndex", ErrEmptyIndex},
		{"ErrGenerationTimeout", ErrGenerationTimeout},
		{"ErrMalformedOutput", ErrMalformedOutput},
		{"ErrValidationFailure", ErrValidationFailure},
		{"ErrReconciliationConflict", ErrReconciliationConflict},
		{"ErrInvalidContract", ErrInvalidContract},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestErrors_Wrapping(t *testing.T) {
	wrapped := fmt.Errorf("embedding chunk 3: %w", ErrEmbeddingUnavailable)

	assert.True(t, errors.Is(wrapped, ErrEmbeddingUnavailable))
	assert.False(t, errors.Is(wrapped, ErrChunking))
	assert.Contains(t, wrapped.Error(), "embedding service unavailable")
}

func TestValidationError(t *testing.T) {
	err := NewValidationError(TierA, "finding 2 cites chunk x", "too few findings")

	assert.ErrorIs(t, err, ErrValidationFailure)
	assert.Contains(t, err.Error(), "tier A")
	assert.Contains(t, err.Error(), "finding 2 cites chunk x; too few findings")

	var ve *ValidationError
	wrapped := fmt.Errorf("tier A: %w", err)
	assert.True(t, errors.As(wrapped, &ve))
	assert.Len(t, ve.Violations, 2)
}
