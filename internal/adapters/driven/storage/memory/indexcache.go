package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
	"github.com/custodia-labs/earnings-tldr/internal/core/ports/driven"
)

// Ensure IndexCache implements the interface.
var _ driven.IndexCache = (*IndexCache)(nil)

// DefaultIndexCacheCapacity bounds the cache when no capacity is configured.
const DefaultIndexCacheCapacity = 32

// IndexCache is an in-process LRU of built indexes keyed by transcript.
// Entries expire after the configured TTL; a non-positive TTL never expires.
// Indexes are immutable, so cached values are shared without copying.
type IndexCache struct {
	lru *expirable.LRU[string, *domain.Index]
}

// NewIndexCache creates a cache holding at most capacity indexes.
func NewIndexCache(capacity int, ttl time.Duration) *IndexCache {
	if capacity <= 0 {
		capacity = DefaultIndexCacheCapacity
	}
	return &IndexCache{
		lru: expirable.NewLRU[string, *domain.Index](capacity, nil, ttl),
	}
}

// Get returns the cached index if its fingerprint matches.
func (c *IndexCache) Get(_ context.Context, transcriptID, fingerprint string) (*domain.Index, error) {
	idx, ok := c.lru.Get(transcriptID)
	if !ok || idx.Fingerprint() != fingerprint {
		return nil, domain.ErrNotFound
	}
	return idx, nil
}

// Put stores a complete index, replacing any previous entry for the transcript.
func (c *IndexCache) Put(_ context.Context, idx *domain.Index) error {
	if idx == nil {
		return fmt.Errorf("%w: index is nil", domain.ErrInvalidInput)
	}
	c.lru.Add(idx.TranscriptID(), idx)
	return nil
}

// Evict removes the transcript's index, if cached.
func (c *IndexCache) Evict(_ context.Context, transcriptID string) error {
	c.lru.Remove(transcriptID)
	return nil
}

// Len returns the number of cached indexes.
func (c *IndexCache) Len() int {
	return c.lru.Len()
}
