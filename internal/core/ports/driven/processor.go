package driven

import (
	"context"

	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
)

// ChunkProcessor is one stage of the chunking pipeline (e.g. splitting, speaker tagging).
type ChunkProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process takes a normalised transcript and returns chunks.
	// The first processor receives nil chunks and creates them.
	// Later processors annotate chunks; they must not change spans or ordinals.
	Process(ctx context.Context, t *domain.Transcript, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// ChunkPipeline chains ChunkProcessors.
type ChunkPipeline interface {
	// Process runs the transcript through all processors in order.
	Process(ctx context.Context, t *domain.Transcript) ([]domain.Chunk, error)
}
