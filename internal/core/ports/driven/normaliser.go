package driven

import (
	"context"

	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
)

// Normaliser cleans transcript text before chunking.
// Implementations strip extraction artefacts (timestamps, page markers)
// and normalise whitespace; they never reorder content.
type Normaliser interface {
	// SupportedFormats returns the source formats this normaliser handles.
	// Empty slice means all formats.
	SupportedFormats() []domain.SourceFormat

	// Normalise returns a cleaned copy of the transcript.
	// Returns domain.ErrChunking if nothing remains after cleaning.
	Normalise(ctx context.Context, t domain.Transcript) (domain.Transcript, error)
}
