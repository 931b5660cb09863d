package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/earnings-tldr/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
)

func sampleBundle() *domain.AnalysisBundle {
	b := domain.NewAnalysisBundle("req-1", domain.Transcript{ID: "ACME_Q3-2025", Ticker: "ACME", Period: "Q3-2025"})
	b.State = domain.StateDone
	b.Stats = domain.TranscriptStats{TotalTokens: 5400, NumChunks: 14, NumSpeakers: 5}
	b.Market = &domain.MarketReaction{AfterHoursMove: -3.2, NextDayGap: -1.1}

	b.TierA.Status = domain.StateDone
	b.TierA.Findings = []domain.TierFinding{
		{Text: "Guidance cut on weaker enterprise demand", Polarity: domain.PolarityNegative, Confidence: 0.81, ChunkIDs: []string{"c1"}},
		{Text: "Margins expanded", Polarity: domain.PolarityPositive, Confidence: 0.42, ChunkIDs: []string{"c2"},
			Annotations: []domain.Annotation{domain.AnnotationLowConfidence}},
	}

	b.TierB.Status = domain.StateDone
	b.TierB.Summary = "ACME grew revenue but lowered its outlook."

	b.TierC.Status = domain.StateDone
	b.TierC.Metrics = []domain.MetricExtract{
		{Category: domain.MetricRevenue, Name: "Revenue", Value: "$4.1B", Change: "+6% YoY", Polarity: domain.PolarityPositive, Verified: true},
		{Category: domain.MetricGuidance, Name: "FY guidance", Value: "$16B", Polarity: domain.PolarityNegative},
	}
	b.TierC.Risks = []domain.TierFinding{{Text: "FX headwinds", Polarity: domain.PolarityNegative, Confidence: 0.6}}

	b.Conflicts = []domain.Conflict{{
		ChunkID: "c2", Finding: "Margins expanded", FindingPolarity: domain.PolarityPositive,
		Metric: "Gross margin", MetricPolarity: domain.PolarityNegative,
	}}
	return b
}

func TestRender_FullBundle(t *testing.T) {
	out := Render(sampleBundle(), styles.Plain(), 100)

	for _, want := range []string{
		"ACME Q3-2025  done",
		"5400 tokens · 14 chunks · 5 speakers",
		"after-hours -3.2%, next day -1.1%",
		"A · Why the stock moved  done",
		"▼ Guidance cut on weaker enterprise demand",
		"(0.81)",
		"[low confidence]",
		"B · Summary",
		"ACME grew revenue but lowered its outlook.",
		"C · Expert digest",
		"revenue",
		"▲ Revenue: $4.1B  +6% YoY  verified",
		"FY guidance: $16B  unverified",
		"risks",
		"FX headwinds",
		"Conflicts",
		"Gross margin",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "margins\n", "empty categories are skipped")
}

func TestRender_MetricCategoryOrder(t *testing.T) {
	out := Render(sampleBundle(), styles.Plain(), 100)

	assert.Less(t, strings.Index(out, "  revenue"), strings.Index(out, "  guidance"))
}

func TestRender_FailedTier(t *testing.T) {
	b := sampleBundle()
	b.TierB = domain.TierBResult{TierResult: domain.TierResult{
		Tier: domain.TierB, Status: domain.StateFailed, Error: "generation timed out",
	}}

	out := Render(b, styles.Plain(), 100)

	assert.Contains(t, out, "B · Summary  failed")
	assert.Contains(t, out, "generation timed out")
	assert.Contains(t, out, "Why the stock moved", "other tiers still render")
}

func TestRender_ReducedConfidence(t *testing.T) {
	b := sampleBundle()
	b.Market = nil
	b.TierA.ReducedConfidence = true

	out := Render(b, styles.Plain(), 100)

	assert.Contains(t, out, "reduced confidence")
	assert.NotContains(t, out, "after-hours")
}

func TestRender_EmptyTiers(t *testing.T) {
	b := sampleBundle()
	b.TierA.Findings = nil
	b.TierC.Metrics = nil
	b.TierC.Risks = nil
	b.Conflicts = nil

	out := Render(b, styles.Plain(), 100)

	assert.Contains(t, out, "No findings.")
	assert.Contains(t, out, "No metrics.")
	assert.NotContains(t, out, "Conflicts")
}

func TestRender_WrapsLongText(t *testing.T) {
	b := sampleBundle()
	b.TierB.Summary = strings.Repeat("revenue grew strongly ", 20)

	out := Render(b, styles.Plain(), 40)

	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "revenue grew") {
			assert.LessOrEqual(t, len(line), 40)
		}
	}
}

func TestRender_Defaults(t *testing.T) {
	assert.Empty(t, Render(nil, nil, 0))
	assert.Contains(t, Render(sampleBundle(), nil, 0), "ACME")
}
