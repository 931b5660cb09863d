package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
)

func buildIndex(t *testing.T, transcriptID string, n int) *domain.Index {
	t.Helper()
	entries := make([]domain.IndexEntry, n)
	for i := range entries {
		entries[i] = domain.IndexEntry{
			Chunk: domain.Chunk{
				ID:           fmt.Sprintf("%s-%d", transcriptID, i),
				TranscriptID: transcriptID,
				Ordinal:      i,
				Text:         fmt.Sprintf("chunk %d", i),
				Start:        i * 10,
				End:          i*10 + 7,
			},
			Embedding: domain.Embedding{float32(i), 1, 0},
		}
	}
	idx, err := domain.NewIndex(transcriptID, entries)
	require.NoError(t, err)
	return idx
}

func TestIndexCache_PutAndGet(t *testing.T) {
	cache := NewIndexCache(4, time.Hour)
	ctx := context.Background()

	idx := buildIndex(t, "ACME_Q3-2025", 3)
	require.NoError(t, cache.Put(ctx, idx))

	got, err := cache.Get(ctx, "ACME_Q3-2025", idx.Fingerprint())
	require.NoError(t, err)
	assert.Same(t, idx, got)
}

func TestIndexCache_OtherModelMisses(t *testing.T) {
	cache := NewIndexCache(4, time.Hour)
	ctx := context.Background()

	idx, err := domain.NewModelIndex("ACME_Q3-2025", "fake-embed", buildIndex(t, "ACME_Q3-2025", 3).Snapshot().Entries)
	require.NoError(t, err)
	require.NoError(t, cache.Put(ctx, idx))

	_, err = cache.Get(ctx, "ACME_Q3-2025", domain.IndexFingerprint("other-model", idx.Chunks()))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIndexCache_Miss(t *testing.T) {
	cache := NewIndexCache(4, time.Hour)

	_, err := cache.Get(context.Background(), "ACME_Q3-2025", "fp")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIndexCache_FingerprintMismatch(t *testing.T) {
	cache := NewIndexCache(4, time.Hour)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, buildIndex(t, "ACME_Q3-2025", 3)))

	_, err := cache.Get(ctx, "ACME_Q3-2025", buildIndex(t, "ACME_Q3-2025", 2).Fingerprint())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIndexCache_EvictsLeastRecentlyUsed(t *testing.T) {
	cache := NewIndexCache(2, time.Hour)
	ctx := context.Background()

	a := buildIndex(t, "A_Q1-2025", 1)
	b := buildIndex(t, "B_Q1-2025", 1)
	c := buildIndex(t, "C_Q1-2025", 1)

	require.NoError(t, cache.Put(ctx, a))
	require.NoError(t, cache.Put(ctx, b))

	// Touch A so B becomes the oldest.
	_, err := cache.Get(ctx, "A_Q1-2025", a.Fingerprint())
	require.NoError(t, err)

	require.NoError(t, cache.Put(ctx, c))

	assert.Equal(t, 2, cache.Len())
	_, err = cache.Get(ctx, "B_Q1-2025", b.Fingerprint())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = cache.Get(ctx, "A_Q1-2025", a.Fingerprint())
	assert.NoError(t, err)
}

func TestIndexCache_Expiry(t *testing.T) {
	cache := NewIndexCache(4, 50*time.Millisecond)
	ctx := context.Background()

	idx := buildIndex(t, "ACME_Q3-2025", 2)
	require.NoError(t, cache.Put(ctx, idx))

	assert.Eventually(t, func() bool {
		_, err := cache.Get(ctx, "ACME_Q3-2025", idx.Fingerprint())
		return err != nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestIndexCache_Evict(t *testing.T) {
	cache := NewIndexCache(4, time.Hour)
	ctx := context.Background()

	idx := buildIndex(t, "ACME_Q3-2025", 2)
	require.NoError(t, cache.Put(ctx, idx))
	require.NoError(t, cache.Evict(ctx, "ACME_Q3-2025"))
	require.NoError(t, cache.Evict(ctx, "ACME_Q3-2025"))

	_, err := cache.Get(ctx, "ACME_Q3-2025", idx.Fingerprint())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIndexCache_PutNil(t *testing.T) {
	cache := NewIndexCache(0, 0)

	assert.ErrorIs(t, cache.Put(context.Background(), nil), domain.ErrInvalidInput)
}

func TestIndexCache_ConcurrentAccess(t *testing.T) {
	cache := NewIndexCache(8, time.Hour)
	ctx := context.Background()
	idx := buildIndex(t, "ACME_Q3-2025", 4)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_ = cache.Put(ctx, idx)
			} else {
				_, _ = cache.Get(ctx, "ACME_Q3-2025", idx.Fingerprint())
			}
		}(i)
	}
	wg.Wait()

	got, err := cache.Get(ctx, "ACME_Q3-2025", idx.Fingerprint())
	require.NoError(t, err)
	assert.Equal(t, 4, got.Len())
}
