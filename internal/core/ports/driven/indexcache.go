package driven

import (
	"context"

	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
)

// IndexCache keeps built indexes across requests.
// Implementations own the eviction policy (TTL, capacity) and must only
// ever store complete indexes.
type IndexCache interface {
	// Get returns the cached index for a transcript if its fingerprint matches.
	// Returns domain.ErrNotFound on a miss.
	Get(ctx context.Context, transcriptID, fingerprint string) (*domain.Index, error)

	// Put stores a complete index, replacing any previous entry for the transcript.
	Put(ctx context.Context, idx *domain.Index) error

	// Evict removes the transcript's index, if cached.
	Evict(ctx context.Context, transcriptID string) error
}
