package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors represent pipeline failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown provider or processor type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrLLMUnavailable indicates the LLM service is not configured or unreachable.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates embeddings could not be produced.
	// Returned by the indexer after retries are exhausted; a chunk is never skipped.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// Pipeline Errors.

	// ErrChunking indicates the transcript could not be split into chunks.
	// Raised for empty text after normalisation or inconsistent size bounds.
	ErrChunking = errors.New("chunking failed")

	// ErrEmptyIndex indicates retrieval was attempted against an index with no chunks.
	ErrEmptyIndex = errors.New("index has no chunks")

	// ErrGenerationTimeout indicates a generation call exceeded its deadline.
	// It is retryable up to the tier's attempt budget.
	ErrGenerationTimeout = errors.New("generation timed out")

	// ErrMalformedOutput indicates generated output could not be parsed
	// into the tier's schema. It is retryable like a timeout.
	ErrMalformedOutput = errors.New("malformed generation output")

	// ErrValidationFailure indicates generated output failed grounding checks:
	// citations to chunks that were not retrieved, or numbers with no textual evidence.
	ErrValidationFailure = errors.New("validation failed")

	// ErrReconciliationConflict marks a cross-tier contradiction.
	// It is recorded on the bundle as an annotation and never returned.
	ErrReconciliationConflict = errors.New("reconciliation conflict")

	// ErrInvalidContract indicates a tier contract failed validation.
	ErrInvalidContract = errors.New("invalid tier contract")
)

// ValidationError lists the violations found while validating a tier's output.
type ValidationError struct {
	// Tier is the tier whose output was rejected.
	Tier Tier

	// Violations describes each failed check.
	Violations []string
}

// NewValidationError creates a validation error for the given tier.
func NewValidationError(tier Tier, violations ...string) *ValidationError {
	return &ValidationError{Tier: tier, Violations: violations}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("tier %s: %s: %s", e.Tier, ErrValidationFailure, strings.Join(e.Violations, "; "))
}

// Unwrap allows errors.Is(err, ErrValidationFailure).
func (e *ValidationError) Unwrap() error {
	return ErrValidationFailure
}
