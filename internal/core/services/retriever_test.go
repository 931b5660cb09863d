package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
	"github.com/custodia-labs/earnings-tldr/internal/postprocessors/chunker"
)

// vecEmbedder returns fixed vectors keyed by exact text.
type vecEmbedder map[string][]float32

func (v vecEmbedder) Embed(_ context.Context, text string) (domain.Embedding, error) {
	return v[text], nil
}

func buildIndex(t *testing.T, chunks []domain.Chunk, vectors ...[]float32) *domain.Index {
	t.Helper()
	entries := make([]domain.IndexEntry, len(chunks))
	for i := range chunks {
		entries[i] = domain.IndexEntry{Chunk: chunks[i], Embedding: vectors[i]}
	}
	idx, err := domain.NewIndex(chunks[0].TranscriptID, entries)
	require.NoError(t, err)
	return idx
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-3, 0}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Zero(t, Cosine([]float32{0, 0}, []float32{1, 1}))
	assert.Zero(t, Cosine([]float32{1}, []float32{1, 1}))
}

func TestRetriever_Scenario_RevenueRanksFirst(t *testing.T) {
	text := "Revenue grew 5% to $97.3B. EPS was $1.53, up 9%. CEO: 'We are cautious about next quarter.'"
	chunks, err := chunker.Chunk("AAPL_Q3", text, 50, 20, 10)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(chunks), 2)

	indexer := NewIndexer(newFakeEmbedder(), testPipelineConfig())
	idx, err := indexer.BuildIndex(context.Background(), "AAPL_Q3", chunks)
	require.NoError(t, err)

	result, err := NewRetriever(indexer, 0.5).Retrieve(context.Background(), idx, "revenue growth", 3)
	require.NoError(t, err)
	require.NotEmpty(t, result.Hits)
	assert.True(t, strings.Contains(result.Hits[0].Chunk.Text, "Revenue grew 5%"),
		"expected revenue chunk first, got %q", result.Hits[0].Chunk.Text)
}

func TestRetriever_Retrieve_Properties(t *testing.T) {
	indexer := NewIndexer(newFakeEmbedder(), testPipelineConfig())
	chunks := sampleChunks()
	idx, err := indexer.BuildIndex(context.Background(), "AAPL_Q3", chunks)
	require.NoError(t, err)

	retriever := NewRetriever(indexer, 0.5)
	for _, k := range []int{1, 3, 6, 10} {
		result, err := retriever.Retrieve(context.Background(), idx, "revenue margin quarter", k)
		require.NoError(t, err)

		assert.LessOrEqual(t, result.Len(), k)
		for i, h := range result.Hits {
			_, ok := idx.Chunk(h.Chunk.ID)
			assert.True(t, ok, "hit must belong to the index")
			assert.Equal(t, "AAPL_Q3", h.Chunk.TranscriptID)
			assert.GreaterOrEqual(t, h.Score, -1.0)
			assert.LessOrEqual(t, h.Score, 1.0)
			if i > 0 {
				assert.GreaterOrEqual(t, result.Hits[i-1].Score, h.Score, "scores must be non-increasing")
			}
		}
	}
}

func TestRetriever_Retrieve_TiesPreferLowerOrdinal(t *testing.T) {
	chunks := makeChunks("T", "alpha", "beta", "gamma")
	idx := buildIndex(t, chunks, []float32{1, 0}, []float32{1, 0}, []float32{0, 1})

	result, err := NewRetriever(vecEmbedder{"q": {1, 0}}, 0).Retrieve(context.Background(), idx, "q", 2)
	require.NoError(t, err)
	require.Len(t, result.Hits, 2)
	assert.Equal(t, 0, result.Hits[0].Chunk.Ordinal)
	assert.Equal(t, 1, result.Hits[1].Chunk.Ordinal)
}

func TestRetriever_Retrieve_DedupBackfills(t *testing.T) {
	chunks := []domain.Chunk{
		{ID: "a", TranscriptID: "T", Ordinal: 0, Text: strings.Repeat("a", 100), Start: 0, End: 100},
		{ID: "b", TranscriptID: "T", Ordinal: 1, Text: strings.Repeat("b", 100), Start: 20, End: 120},
		{ID: "c", TranscriptID: "T", Ordinal: 2, Text: strings.Repeat("c", 100), Start: 110, End: 210},
		{ID: "d", TranscriptID: "T", Ordinal: 3, Text: strings.Repeat("d", 100), Start: 200, End: 300},
	}
	idx := buildIndex(t, chunks,
		[]float32{1, 0},
		[]float32{0.99, 0.1},
		[]float32{0.5, 0.5},
		[]float32{0, 1},
	)
	emb := vecEmbedder{"q": {1, 0}}

	t.Run("overlapping chunk is replaced", func(t *testing.T) {
		result, err := NewRetriever(emb, 0.5).Retrieve(context.Background(), idx, "q", 2)
		require.NoError(t, err)
		require.Len(t, result.Hits, 2)
		assert.Equal(t, "a", result.Hits[0].Chunk.ID)
		assert.Equal(t, "c", result.Hits[1].Chunk.ID, "b overlaps a by 80 percent and must be backfilled")
	})

	t.Run("disabled dedup keeps overlap", func(t *testing.T) {
		result, err := NewRetriever(emb, 0).Retrieve(context.Background(), idx, "q", 2)
		require.NoError(t, err)
		assert.Equal(t, "b", result.Hits[1].Chunk.ID)
	})

	t.Run("returns fewer when candidates run out", func(t *testing.T) {
		// d overlaps c by 10 percent, b overlaps a by 80 percent.
		result, err := NewRetriever(emb, 0.05).Retrieve(context.Background(), idx, "q", 4)
		require.NoError(t, err)
		require.Len(t, result.Hits, 2)
		assert.Equal(t, "a", result.Hits[0].Chunk.ID)
		assert.Equal(t, "c", result.Hits[1].Chunk.ID)
	})
}

func TestRetriever_Retrieve_EmptyIndex(t *testing.T) {
	idx, err := domain.NewIndex("T", nil)
	require.NoError(t, err)

	_, err = NewRetriever(vecEmbedder{}, 0.5).Retrieve(context.Background(), idx, "q", 3)
	assert.ErrorIs(t, err, domain.ErrEmptyIndex)

	_, err = NewRetriever(vecEmbedder{}, 0.5).Retrieve(context.Background(), nil, "q", 3)
	assert.ErrorIs(t, err, domain.ErrEmptyIndex)
}

func TestRetriever_Retrieve_TopKZero(t *testing.T) {
	emb := newFakeEmbedder()
	indexer := NewIndexer(emb, testPipelineConfig())
	idx, err := indexer.BuildIndex(context.Background(), "AAPL_Q3", sampleChunks())
	require.NoError(t, err)
	calls := emb.calls.Load()

	result, err := NewRetriever(indexer, 0.5).Retrieve(context.Background(), idx, "revenue", 0)
	require.NoError(t, err)
	assert.Empty(t, result.Hits)
	assert.Equal(t, calls, emb.calls.Load(), "query must not be embedded")
}

func TestRetriever_Retrieve_InvalidInput(t *testing.T) {
	chunks := makeChunks("T", "alpha")
	idx := buildIndex(t, chunks, []float32{1, 0})

	_, err := NewRetriever(vecEmbedder{"q": {1, 0}}, 0).Retrieve(context.Background(), idx, "q", -1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = NewRetriever(vecEmbedder{}, 0).Retrieve(context.Background(), idx, "  ", 1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = NewRetriever(vecEmbedder{"q": {1, 0, 0}}, 0).Retrieve(context.Background(), idx, "q", 1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "dimension mismatch")
}

func TestRetriever_RetrieveAll_MergesBestScore(t *testing.T) {
	chunks := makeChunks("T", "alpha", "beta", "gamma")
	idx := buildIndex(t, chunks, []float32{1, 0}, []float32{0.7, 0.7}, []float32{0, 1})
	emb := vecEmbedder{"x": {1, 0}, "y": {0, 1}}

	result, err := NewRetriever(emb, 0).RetrieveAll(context.Background(), idx, "digest", []string{"x", "y"}, 1)
	require.NoError(t, err)

	assert.Equal(t, "digest", result.Query)
	require.Len(t, result.Hits, 2)
	assert.ElementsMatch(t, []string{chunks[0].ID, chunks[2].ID},
		[]string{result.Hits[0].Chunk.ID, result.Hits[1].Chunk.ID})
	assert.Equal(t, chunks[0].ID, result.Hits[0].Chunk.ID, "equal scores fall back to ordinal")
}
