package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
	"github.com/custodia-labs/earnings-tldr/internal/core/ports/driven"
	"github.com/custodia-labs/earnings-tldr/internal/logger"
)

// Indexer embeds chunks and builds the read-only retrieval index of a transcript.
type Indexer struct {
	embedder    driven.EmbeddingService
	cache       driven.IndexCache
	limiter     driven.RateLimiter
	retry       RetryPolicy
	concurrency int
}

// NewIndexer creates an indexer using the pipeline's embedding retry and concurrency settings.
func NewIndexer(embedder driven.EmbeddingService, cfg domain.PipelineConfig) *Indexer {
	return &Indexer{
		embedder:    embedder,
		retry:       NewRetryPolicy(cfg.EmbedRetry, cfg.EmbedTimeout),
		concurrency: max(cfg.EmbedConcurrency, 1),
	}
}

// SetCache sets the optional cross-request index cache.
func (i *Indexer) SetCache(cache driven.IndexCache) {
	i.cache = cache
}

// SetRateLimiter sets the optional limiter gating every embedding call.
func (i *Indexer) SetRateLimiter(limiter driven.RateLimiter) {
	i.limiter = limiter
}

// ForCorpus returns an indexer whose embedder is fitted to the chunks, for
// embedders that need one. Other embedders are shared unchanged.
// Chunks and queries of one transcript must go through the same returned indexer.
func (i *Indexer) ForCorpus(chunks []domain.Chunk) (*Indexer, error) {
	aware, ok := i.embedder.(driven.CorpusAware)
	if !ok {
		return i, nil
	}

	corpus := make([]string, len(chunks))
	for n, c := range chunks {
		corpus[n] = c.Text
	}
	fitted, err := aware.Fit(corpus)
	if err != nil {
		return nil, fmt.Errorf("%w: fit embedder: %v", domain.ErrEmbeddingUnavailable, err)
	}

	clone := *i
	clone.embedder = fitted
	return &clone, nil
}

// Embed embeds one text through the retry policy.
// After the retry budget is spent it returns an error wrapping
// domain.ErrEmbeddingUnavailable. Cancellation is returned as is.
func (i *Indexer) Embed(ctx context.Context, text string) (domain.Embedding, error) {
	if i.embedder == nil {
		return nil, fmt.Errorf("%w: no embedding service configured", domain.ErrEmbeddingUnavailable)
	}

	var vec []float32
	attempts, err := i.retry.Do(ctx, func(callCtx context.Context, _ int) error {
		if i.limiter != nil {
			if err := i.limiter.Wait(callCtx); err != nil {
				return err
			}
		}
		v, err := i.embedder.Embed(callCtx, text)
		if err != nil {
			return err
		}
		if len(v) == 0 {
			return errors.New("empty embedding returned")
		}
		vec = v
		return nil
	}, nil)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w after %d attempts: %v", domain.ErrEmbeddingUnavailable, attempts, err)
	}

	return vec, nil
}

// BuildIndex embeds every chunk and returns the complete index.
//
// Chunks are embedded concurrently by a bounded worker pool. The first failure
// cancels outstanding calls and fails the build; no chunk is ever skipped.
// The index is returned only after every embedding has arrived, and is written
// to the cache only then. A cached index with the same fingerprint is reused.
func (i *Indexer) BuildIndex(ctx context.Context, transcriptID string, chunks []domain.Chunk) (*domain.Index, error) {
	logger.Section("Index Build")

	model := i.modelName()
	fingerprint := domain.IndexFingerprint(model, chunks)
	if i.cache != nil {
		cached, err := i.cache.Get(ctx, transcriptID, fingerprint)
		switch {
		case err == nil && i.matchesEmbedder(cached):
			logger.Debug("Index cache hit for %s (%d chunks)", transcriptID, cached.Len())
			return cached, nil
		case err == nil:
			logger.Debug("Ignoring cached index for %s: built by %q with %d dimensions",
				transcriptID, cached.Model(), cached.Dimensions())
		case !errors.Is(err, domain.ErrNotFound):
			logger.Warn("Index cache lookup failed for %s: %v", transcriptID, err)
		}
	}

	vectors, err := i.embedAll(ctx, chunks)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.IndexEntry, len(chunks))
	for n, c := range chunks {
		entries[n] = domain.IndexEntry{Chunk: c, Embedding: vectors[n]}
	}
	idx, err := domain.NewModelIndex(transcriptID, model, entries)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
	}
	if dims := i.embedder.Dimensions(); dims > 0 && idx.Len() > 0 && idx.Dimensions() != dims {
		return nil, fmt.Errorf("%w: embeddings have %d dimensions, model reports %d",
			domain.ErrEmbeddingUnavailable, idx.Dimensions(), dims)
	}

	logger.Debug("Indexed %d chunks (%d dimensions) with %s", idx.Len(), idx.Dimensions(), i.embedder.ModelName())

	if i.cache != nil {
		if err := i.cache.Put(ctx, idx); err != nil {
			logger.Warn("Failed to cache index for %s: %v", transcriptID, err)
		}
	}

	return idx, nil
}

// embedAll embeds chunks with at most i.concurrency calls in flight.
func (i *Indexer) embedAll(ctx context.Context, chunks []domain.Chunk) ([]domain.Embedding, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	vectors := make([]domain.Embedding, len(chunks))
	sem := make(chan struct{}, i.concurrency)

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)

	for n := range chunks {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			defer func() { <-sem }()

			vec, err := i.Embed(ctx, chunks[n].Text)
			if err != nil {
				errOnce.Do(func() {
					firstErr = fmt.Errorf("embed chunk %d: %w", chunks[n].Ordinal, err)
					cancel()
				})
				return
			}
			vectors[n] = vec
		}(n)
	}

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// matchesEmbedder reports whether a cached index could have come from the current embedder.
// The recorded model must match; dimensions are checked too when the embedder knows them.
func (i *Indexer) matchesEmbedder(idx *domain.Index) bool {
	if i.embedder == nil {
		return true
	}
	if idx.Model() != i.embedder.ModelName() {
		return false
	}
	dims := i.embedder.Dimensions()
	return dims == 0 || idx.Len() == 0 || idx.Dimensions() == dims
}

func (i *Indexer) modelName() string {
	if i.embedder == nil {
		return ""
	}
	return i.embedder.ModelName()
}
