package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalysisState_CanTransition(t *testing.T) {
	tests := []struct {
		from, to AnalysisState
		want     bool
	}{
		{StatePending, StateRetrieving, true},
		{StatePending, StateGenerating, false},
		{StateRetrieving, StateGenerating, true},
		{StateGenerating, StateValidating, true},
		{StateGenerating, StateGenerating, true},
		{StateValidating, StateDone, true},
		{StateValidating, StateGenerating, true},
		{StateRetrieving, StateFailed, true},
		{StateDone, StateFailed, false},
		{StateFailed, StatePending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestNewAnalysisBundle(t *testing.T) {
	b := NewAnalysisBundle("req-1", Transcript{ID: "AAPL_Q3_2024", Ticker: "aapl", Period: "Q3 2024"})

	assert.Equal(t, "AAPL_Q3_2024", b.ID)
	assert.Equal(t, StatePending, b.State)
	for _, tier := range AllTiers() {
		assert.Equal(t, tier, b.Result(tier).Tier)
		assert.Equal(t, StatePending, b.Result(tier).Status)
	}
	assert.False(t, b.Partial())

	b.TierC.Status = StateFailed
	assert.True(t, b.Partial())
	assert.Equal(t, []Tier{TierC}, b.FailedTiers())
}

func TestPolarity_Opposes(t *testing.T) {
	assert.True(t, PolarityPositive.Opposes(PolarityNegative))
	assert.True(t, PolarityNegative.Opposes(PolarityPositive))
	assert.False(t, PolarityNeutral.Opposes(PolarityNegative))
	assert.False(t, PolarityPositive.Opposes(PolarityPositive))
}

func TestTierFinding_Annotate(t *testing.T) {
	f := TierFinding{Text: "revenue beat"}
	f.Annotate(AnnotationConflict)
	f.Annotate(AnnotationConflict)

	assert.Equal(t, []Annotation{AnnotationConflict}, f.Annotations)
	assert.True(t, f.HasAnnotation(AnnotationConflict))
	assert.False(t, f.HasAnnotation(AnnotationLowConfidence))
}

func TestMerge_KeepsBestScore(t *testing.T) {
	c0 := Chunk{ID: "c0", Ordinal: 0}
	c1 := Chunk{ID: "c1", Ordinal: 1}
	c2 := Chunk{ID: "c2", Ordinal: 2}

	merged := Merge("all",
		RetrievalResult{Hits: []ScoredChunk{{Chunk: c1, Score: 0.4}, {Chunk: c2, Score: 0.3}}},
		RetrievalResult{Hits: []ScoredChunk{{Chunk: c1, Score: 0.9}, {Chunk: c0, Score: 0.3}}},
	)

	assert.Equal(t, "all", merged.Query)
	assert.Len(t, merged.Hits, 3)
	assert.Equal(t, "c1", merged.Hits[0].Chunk.ID)
	assert.Equal(t, 0.9, merged.Hits[0].Score)
	// Equal scores: lower ordinal first.
	assert.Equal(t, "c0", merged.Hits[1].Chunk.ID)
	assert.Equal(t, "c2", merged.Hits[2].Chunk.ID)
	assert.True(t, merged.Contains("c2"))
	_, ok := merged.Score("missing")
	assert.False(t, ok)
}

func TestConflict_Err(t *testing.T) {
	c := Conflict{
		ChunkID:         "tr-1:3",
		Finding:         "Cloud revenue grew",
		FindingPolarity: PolarityPositive,
		Metric:          "Cloud revenue -4%",
		MetricPolarity:  PolarityNegative,
	}

	err := c.Err()

	assert.ErrorIs(t, err, ErrReconciliationConflict)
	assert.Contains(t, err.Error(), `"Cloud revenue grew"`)
	assert.Contains(t, err.Error(), "on chunk tr-1:3")
}
