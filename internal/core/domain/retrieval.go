package domain

import "sort"

// ScoredChunk is a retrieved chunk with its relevance score.
type ScoredChunk struct {
	// Chunk is the retrieved chunk.
	Chunk Chunk `json:"chunk"`

	// Score is the cosine similarity between query and chunk, in [-1, 1].
	Score float64 `json:"score"`
}

// RetrievalResult is the ranked output of a single retrieval.
// Hits are ordered by descending score, ties by ascending ordinal.
type RetrievalResult struct {
	// Query is the natural-language question that was retrieved for.
	Query string `json:"query"`

	// Hits are the selected chunks, at most top-K.
	Hits []ScoredChunk `json:"hits"`
}

// Len returns the number of hits.
func (r RetrievalResult) Len() int {
	return len(r.Hits)
}

// ChunkIDs returns the set of retrieved chunk ids.
func (r RetrievalResult) ChunkIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(r.Hits))
	for _, h := range r.Hits {
		ids[h.Chunk.ID] = struct{}{}
	}
	return ids
}

// Contains returns true if the chunk was retrieved.
func (r RetrievalResult) Contains(chunkID string) bool {
	for _, h := range r.Hits {
		if h.Chunk.ID == chunkID {
			return true
		}
	}
	return false
}

// Score returns the score of a retrieved chunk, or false if it was not retrieved.
func (r RetrievalResult) Score(chunkID string) (float64, bool) {
	for _, h := range r.Hits {
		if h.Chunk.ID == chunkID {
			return h.Score, true
		}
	}
	return 0, false
}

// Merge combines results of several queries, keeping the best score per chunk.
// The merged hits are ordered by descending score, then ascending ordinal.
func Merge(query string, results ...RetrievalResult) RetrievalResult {
	best := make(map[string]ScoredChunk)
	for _, r := range results {
		for _, h := range r.Hits {
			if cur, ok := best[h.Chunk.ID]; !ok || h.Score > cur.Score {
				best[h.Chunk.ID] = h
			}
		}
	}

	hits := make([]ScoredChunk, 0, len(best))
	for _, h := range best {
		hits = append(hits, h)
	}
	SortHits(hits)

	return RetrievalResult{Query: query, Hits: hits}
}

// SortHits orders hits by descending score, breaking exact ties by lower ordinal.
func SortHits(hits []ScoredChunk) {
	sort.SliceStable(hits, func(i, j int) bool {
		return RanksBefore(hits[i], hits[j])
	})
}

// RanksBefore reports whether a should be ranked ahead of b.
func RanksBefore(a, b ScoredChunk) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Chunk.Ordinal < b.Chunk.Ordinal
}
