// Package redis provides a Redis-backed index cache shared between processes.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
	"github.com/custodia-labs/earnings-tldr/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.IndexCache = (*IndexCache)(nil)

// DefaultKeyPrefix namespaces cached indexes.
const DefaultKeyPrefix = "tldr:index:"

// IndexCache implements driven.IndexCache using Redis.
// Each index is one JSON snapshot; Redis TTL handles expiry.
type IndexCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewIndexCache creates a Redis-backed IndexCache.
// A non-positive ttl stores indexes without expiry.
func NewIndexCache(client *redis.Client, ttl time.Duration) *IndexCache {
	return &IndexCache{client: client, ttl: ttl, prefix: DefaultKeyPrefix}
}

// SetKeyPrefix overrides the key namespace.
func (c *IndexCache) SetKeyPrefix(prefix string) {
	c.prefix = prefix
}

// Get returns the cached index if its fingerprint matches.
func (c *IndexCache) Get(ctx context.Context, transcriptID, fingerprint string) (*domain.Index, error) {
	data, err := c.client.Get(ctx, c.key(transcriptID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached index: %w", err)
	}

	var snap domain.IndexSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached index: %w", err)
	}
	if snap.Fingerprint != fingerprint {
		return nil, domain.ErrNotFound
	}

	return domain.FromSnapshot(snap)
}

// Put stores a complete index, replacing any previous entry for the transcript.
func (c *IndexCache) Put(ctx context.Context, idx *domain.Index) error {
	if idx == nil {
		return fmt.Errorf("%w: index is nil", domain.ErrInvalidInput)
	}

	data, err := json.Marshal(idx.Snapshot())
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}

	ttl := c.ttl
	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, c.key(idx.TranscriptID()), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache index: %w", err)
	}
	return nil
}

// Evict removes the transcript's index, if cached.
func (c *IndexCache) Evict(ctx context.Context, transcriptID string) error {
	if err := c.client.Del(ctx, c.key(transcriptID)).Err(); err != nil {
		return fmt.Errorf("failed to evict cached index: %w", err)
	}
	return nil
}

// Ping checks that the Redis server is reachable.
func (c *IndexCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis unreachable: %w", err)
	}
	return nil
}

func (c *IndexCache) key(transcriptID string) string {
	return c.prefix + transcriptID
}
