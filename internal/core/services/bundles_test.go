package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
)

// mapBundleStore is an in-memory BundleStore for tests.
type mapBundleStore struct {
	bundles   map[string]*domain.AnalysisBundle
	order     []string
	lastLimit int
}

func newMapBundleStore() *mapBundleStore {
	return &mapBundleStore{bundles: make(map[string]*domain.AnalysisBundle)}
}

func (s *mapBundleStore) Save(_ context.Context, b *domain.AnalysisBundle) error {
	if _, ok := s.bundles[b.ID]; !ok {
		s.order = append([]string{b.ID}, s.order...)
	}
	s.bundles[b.ID] = b
	return nil
}

func (s *mapBundleStore) Get(_ context.Context, id string) (*domain.AnalysisBundle, error) {
	b, ok := s.bundles[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return b, nil
}

func (s *mapBundleStore) List(_ context.Context, limit int) ([]domain.AnalysisBundle, error) {
	s.lastLimit = limit
	var out []domain.AnalysisBundle
	for _, id := range s.order {
		if len(out) == limit {
			break
		}
		out = append(out, *s.bundles[id])
	}
	return out, nil
}

func (s *mapBundleStore) Delete(_ context.Context, id string) error {
	if _, ok := s.bundles[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.bundles, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func TestBundleService(t *testing.T) {
	store := newMapBundleStore()
	svc := NewBundleService(store)
	ctx := context.Background()

	for _, id := range []string{"AAPL_Q3", "MSFT_Q2"} {
		require.NoError(t, store.Save(ctx, &domain.AnalysisBundle{ID: id}))
	}

	got, err := svc.Get(ctx, " AAPL_Q3 ")
	require.NoError(t, err)
	assert.Equal(t, "AAPL_Q3", got.ID)

	_, err = svc.Get(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Get(ctx, "NVDA_Q1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err := svc.List(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultListLimit, store.lastLimit)
	require.Len(t, list, 2)
	assert.Equal(t, "MSFT_Q2", list[0].ID, "newest first")

	require.NoError(t, svc.Delete(ctx, "MSFT_Q2"))
	assert.ErrorIs(t, svc.Delete(ctx, "MSFT_Q2"), domain.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "  "), domain.ErrInvalidInput)
}
