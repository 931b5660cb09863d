package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
	"github.com/custodia-labs/earnings-tldr/internal/core/ports/driven"
)

// Ensure BundleStore implements the interface.
var _ driven.BundleStore = (*BundleStore)(nil)

// BundleStore is an in-memory implementation of driven.BundleStore.
type BundleStore struct {
	mu      sync.RWMutex
	bundles map[string]domain.AnalysisBundle
}

// NewBundleStore creates a new in-memory bundle store.
func NewBundleStore() *BundleStore {
	return &BundleStore{
		bundles: make(map[string]domain.AnalysisBundle),
	}
}

// Save inserts or replaces a bundle by ID.
func (s *BundleStore) Save(_ context.Context, bundle *domain.AnalysisBundle) error {
	if bundle == nil || bundle.ID == "" {
		return fmt.Errorf("%w: bundle id is required", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bundles[bundle.ID] = *bundle
	return nil
}

// Get retrieves a bundle by ID.
func (s *BundleStore) Get(_ context.Context, id string) (*domain.AnalysisBundle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bundles[id]
	if !ok {
		return nil, fmt.Errorf("%w: bundle %s", domain.ErrNotFound, id)
	}
	return &b, nil
}

// List returns stored bundles, newest first. A non-positive limit returns all.
func (s *BundleStore) List(_ context.Context, limit int) ([]domain.AnalysisBundle, error) {
	s.mu.RLock()
	result := make([]domain.AnalysisBundle, 0, len(s.bundles))
	for _, b := range s.bundles {
		result = append(result, b)
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Delete removes a bundle by ID.
func (s *BundleStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bundles[id]; !ok {
		return fmt.Errorf("%w: bundle %s", domain.ErrNotFound, id)
	}
	delete(s.bundles, id)
	return nil
}
