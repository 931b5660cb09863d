package driving

import (
	"context"

	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
)

// AnalysisRequest is the input of a single analysis.
type AnalysisRequest struct {
	// Transcript is the raw transcript to analyse.
	Transcript domain.Transcript

	// Market is the optional pre-fetched market reaction.
	// Without it Tier A runs in reduced-confidence mode.
	Market *domain.MarketReaction

	// Progress receives state transitions. Optional.
	Progress domain.ProgressFunc
}

// AnalysisService runs the transcript analysis pipeline.
type AnalysisService interface {
	// Analyze normalises, chunks and indexes the transcript, runs the three tiers
	// and reconciles them. Document-level failures (empty text, index build) are
	// returned as errors; tier failures are marked on the returned bundle.
	Analyze(ctx context.Context, req AnalysisRequest) (*domain.AnalysisBundle, error)
}

// BundleService provides access to stored analysis results.
type BundleService interface {
	// Get retrieves a bundle by analysis ID.
	Get(ctx context.Context, id string) (*domain.AnalysisBundle, error)

	// List returns stored bundles, newest first.
	List(ctx context.Context, limit int) ([]domain.AnalysisBundle, error)

	// Delete removes a stored bundle.
	Delete(ctx context.Context, id string) error
}
