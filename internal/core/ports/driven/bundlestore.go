package driven

import (
	"context"

	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
)

// BundleStore persists analysis bundles.
type BundleStore interface {
	// Save inserts or replaces a bundle by ID.
	Save(ctx context.Context, bundle *domain.AnalysisBundle) error

	// Get retrieves a bundle by ID. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, id string) (*domain.AnalysisBundle, error)

	// List returns stored bundles, newest first.
	List(ctx context.Context, limit int) ([]domain.AnalysisBundle, error)

	// Delete removes a bundle by ID.
	Delete(ctx context.Context, id string) error
}
