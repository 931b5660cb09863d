package mcp

import (
	"context"

	"github.com/custodia-labs/earnings-tldr/internal/core/ports/driving"
)

// PromptWatcher reports prompt templates changed on disk.
type PromptWatcher interface {
	Watch(ctx context.Context) (<-chan string, error)
}

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Analysis runs the analysis pipeline.
	Analysis driving.AnalysisService

	// Bundles reads stored results. Optional; without it bundle resources are not found.
	Bundles driving.BundleService

	// Prompts is watched while the server runs so template edits apply
	// to the next request. Optional.
	Prompts PromptWatcher
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p == nil || p.Analysis == nil {
		return ErrMissingAnalysisService
	}
	return nil
}
