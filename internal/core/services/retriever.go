package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
)

// QueryEmbedder embeds retrieval queries. It must be the embedding function
// the index was built with.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) (domain.Embedding, error)
}

// Retriever selects the chunks of an index most relevant to a query.
type Retriever struct {
	embedder     QueryEmbedder
	dedupOverlap float64
}

// NewRetriever creates a retriever.
// Two selected chunks overlapping by more than dedupOverlap (a fraction of the
// shorter span) are duplicates; zero disables deduplication.
func NewRetriever(embedder QueryEmbedder, dedupOverlap float64) *Retriever {
	return &Retriever{
		embedder:     embedder,
		dedupOverlap: dedupOverlap,
	}
}

// Retrieve returns up to topK chunks ranked by cosine similarity to the query.
// Exact score ties go to the lower ordinal. A candidate overlapping an
// already selected chunk beyond the dedup fraction is skipped and the next
// candidate takes its place.
func (r *Retriever) Retrieve(ctx context.Context, idx *domain.Index, query string, topK int) (domain.RetrievalResult, error) {
	result := domain.RetrievalResult{Query: query, Hits: []domain.ScoredChunk{}}

	if idx.Len() == 0 {
		return result, domain.ErrEmptyIndex
	}
	if topK < 0 {
		return result, fmt.Errorf("%w: top_k must not be negative, got %d", domain.ErrInvalidInput, topK)
	}
	if topK == 0 {
		return result, nil
	}
	if strings.TrimSpace(query) == "" {
		return result, fmt.Errorf("%w: query is empty", domain.ErrInvalidInput)
	}

	qvec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return result, fmt.Errorf("embed query: %w", err)
	}
	if len(qvec) != idx.Dimensions() {
		return result, fmt.Errorf("%w: query has %d dimensions, index has %d",
			domain.ErrInvalidInput, len(qvec), idx.Dimensions())
	}

	candidates := make([]domain.ScoredChunk, idx.Len())
	for n := range candidates {
		e := idx.Entry(n)
		candidates[n] = domain.ScoredChunk{Chunk: e.Chunk, Score: Cosine(qvec, e.Embedding)}
	}
	domain.SortHits(candidates)

	for _, c := range candidates {
		if len(result.Hits) == topK {
			break
		}
		if r.duplicates(c, result.Hits) {
			continue
		}
		result.Hits = append(result.Hits, c)
	}

	return result, nil
}

// RetrieveAll runs several queries and merges their hits, keeping each
// chunk's best score. The merged result is labelled with label.
func (r *Retriever) RetrieveAll(ctx context.Context, idx *domain.Index, label string, queries []string, topK int) (domain.RetrievalResult, error) {
	results := make([]domain.RetrievalResult, 0, len(queries))
	for _, q := range queries {
		res, err := r.Retrieve(ctx, idx, q, topK)
		if err != nil {
			return domain.RetrievalResult{Query: label}, err
		}
		results = append(results, res)
	}
	return domain.Merge(label, results...), nil
}

func (r *Retriever) duplicates(c domain.ScoredChunk, selected []domain.ScoredChunk) bool {
	if r.dedupOverlap <= 0 {
		return false
	}
	for _, s := range selected {
		if c.Chunk.OverlapFraction(s.Chunk) > r.dedupOverlap {
			return true
		}
	}
	return false
}

// Cosine returns the cosine similarity of two vectors in [-1, 1].
// A zero vector has similarity 0 with everything.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return math.Max(-1, math.Min(1, sim))
}
