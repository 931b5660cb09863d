// Package postprocessors provides the transcript chunking pipeline.
package postprocessors

import (
	"context"
	"fmt"

	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
	"github.com/custodia-labs/earnings-tldr/internal/core/ports/driven"
)

// Ensure Pipeline implements the interface.
var _ driven.ChunkPipeline = (*Pipeline)(nil)

// Pipeline chains multiple ChunkProcessors and runs them in order.
type Pipeline struct {
	processors []driven.ChunkProcessor
}

// NewPipeline creates a new processing pipeline with the given processors.
// Processors are executed in the order provided.
func NewPipeline(processors ...driven.ChunkProcessor) *Pipeline {
	return &Pipeline{
		processors: processors,
	}
}

// Process runs the transcript through all processors in order.
// The first processor receives nil chunks and should create them.
// Later processors may only annotate chunks; a processor that changes the
// number of chunks or their spans is rejected.
func (p *Pipeline) Process(ctx context.Context, t *domain.Transcript) ([]domain.Chunk, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: transcript is nil", domain.ErrChunking)
	}

	var chunks []domain.Chunk

	for i, processor := range p.processors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		out, err := processor.Process(ctx, t, chunks)
		if err != nil {
			return nil, fmt.Errorf("processor %s: %w", processor.Name(), err)
		}
		if i > 0 && !sameSpans(chunks, out) {
			return nil, fmt.Errorf("%w: processor %s changed chunk spans", domain.ErrChunking, processor.Name())
		}
		chunks = out
	}

	if len(p.processors) > 0 && len(chunks) == 0 {
		return nil, fmt.Errorf("%w: pipeline produced no chunks", domain.ErrChunking)
	}

	return chunks, nil
}

// Add appends a processor to the pipeline.
func (p *Pipeline) Add(processor driven.ChunkProcessor) {
	p.processors = append(p.processors, processor)
}

// Len returns the number of processors in the pipeline.
func (p *Pipeline) Len() int {
	return len(p.processors)
}

// Names returns the processor names in execution order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.processors))
	for i, processor := range p.processors {
		names[i] = processor.Name()
	}
	return names
}

func sameSpans(a, b []domain.Chunk) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Ordinal != b[i].Ordinal ||
			a[i].Start != b[i].Start || a[i].End != b[i].End {
			return false
		}
	}
	return true
}
