package services

import (
	"math"

	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
)

// Confidence weights.
const (
	weightRetrieval = 0.4
	weightModel     = 0.4
	weightSupport   = 0.2

	// statedDefault stands in for a model that gave no confidence.
	statedDefault = 0.5
)

// Confidence scores a generated claim from three signals: how strongly its
// cited chunks matched the retrieval query relative to the best hit, the
// confidence the model stated, and how many retrieved chunks support it.
// Citations outside the retrieval result contribute nothing.
func Confidence(stated *float64, chunkIDs []string, retrieved domain.RetrievalResult) float64 {
	model := statedDefault
	if stated != nil {
		model = clamp01(*stated)
	}

	top := 0.0
	for _, h := range retrieved.Hits {
		top = math.Max(top, h.Score)
	}

	var strength float64
	supported := 0
	for _, id := range chunkIDs {
		score, ok := retrieved.Score(id)
		if !ok {
			continue
		}
		supported++
		if top > 0 {
			strength += clamp01(score / top)
		}
	}
	if supported > 0 {
		strength /= float64(supported)
	}
	support := math.Min(float64(supported), 2) / 2

	return round3(weightRetrieval*strength + weightModel*model + weightSupport*support)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
