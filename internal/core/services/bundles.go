package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
	"github.com/custodia-labs/earnings-tldr/internal/core/ports/driven"
	"github.com/custodia-labs/earnings-tldr/internal/core/ports/driving"
)

// Ensure BundleService implements the interface.
var _ driving.BundleService = (*BundleService)(nil)

// DefaultListLimit is the number of bundles returned when no limit is given.
const DefaultListLimit = 20

// BundleService provides access to stored analysis results.
type BundleService struct {
	store driven.BundleStore
}

// NewBundleService creates a new bundle service.
func NewBundleService(store driven.BundleStore) *BundleService {
	return &BundleService{store: store}
}

// Get retrieves a bundle by analysis ID.
func (s *BundleService) Get(ctx context.Context, id string) (*domain.AnalysisBundle, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: bundle id is required", domain.ErrInvalidInput)
	}
	return s.store.Get(ctx, id)
}

// List returns stored bundles, newest first.
func (s *BundleService) List(ctx context.Context, limit int) ([]domain.AnalysisBundle, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	return s.store.List(ctx, limit)
}

// Delete removes a stored bundle.
func (s *BundleService) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: bundle id is required", domain.ErrInvalidInput)
	}
	return s.store.Delete(ctx, id)
}
