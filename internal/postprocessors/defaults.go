package postprocessors

import (
	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
	"github.com/custodia-labs/earnings-tldr/internal/core/ports/driven"
	"github.com/custodia-labs/earnings-tldr/internal/postprocessors/chunker"
	"github.com/custodia-labs/earnings-tldr/internal/postprocessors/section"
	"github.com/custodia-labs/earnings-tldr/internal/postprocessors/speaker"
)

// RegisterDefaults registers all built-in processors with the registry.
// Call this during application initialisation to enable standard processors.
func RegisterDefaults(r *Registry) {
	r.Register("chunker", buildChunker)
	r.Register("speaker", func(domain.PipelineConfig) (driven.ChunkProcessor, error) {
		return speaker.New(), nil
	})
	r.Register("section", func(domain.PipelineConfig) (driven.ChunkProcessor, error) {
		return section.New(), nil
	})
}

// DefaultPipeline builds the pipeline described by cfg using the built-in processors.
func DefaultPipeline(cfg domain.PipelineConfig) (*Pipeline, error) {
	r := NewRegistry()
	RegisterDefaults(r)
	return r.BuildPipeline(cfg)
}

// buildChunker creates a chunker processor from pipeline config.
// Bounds are validated by the chunker itself when it runs.
func buildChunker(cfg domain.PipelineConfig) (driven.ChunkProcessor, error) {
	return chunker.New(
		chunker.WithMaxSize(cfg.MaxChunkSize),
		chunker.WithMinSize(cfg.MinChunkSize),
		chunker.WithOverlap(cfg.ChunkOverlap),
	), nil
}
