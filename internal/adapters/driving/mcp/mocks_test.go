package mcp

import (
	"context"
	"time"

	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
	"github.com/custodia-labs/earnings-tldr/internal/core/ports/driving"
)

// mockAnalysisService is a mock implementation of driving.AnalysisService.
type mockAnalysisService struct {
	bundle  *domain.AnalysisBundle
	err     error
	lastReq driving.AnalysisRequest
}

func (m *mockAnalysisService) Analyze(_ context.Context, req driving.AnalysisRequest) (*domain.AnalysisBundle, error) {
	m.lastReq = req
	return m.bundle, m.err
}

// mockBundleService is a mock implementation of driving.BundleService.
type mockBundleService struct {
	bundles []domain.AnalysisBundle
	bundle  *domain.AnalysisBundle
	err     error
	limit   int
}

func (m *mockBundleService) Get(_ context.Context, _ string) (*domain.AnalysisBundle, error) {
	return m.bundle, m.err
}

func (m *mockBundleService) List(_ context.Context, limit int) ([]domain.AnalysisBundle, error) {
	m.limit = limit
	return m.bundles, m.err
}

func (m *mockBundleService) Delete(_ context.Context, _ string) error {
	return m.err
}

// mockPromptWatcher is a mock implementation of PromptWatcher.
type mockPromptWatcher struct {
	changes chan string
	err     error
}

func (m *mockPromptWatcher) Watch(_ context.Context) (<-chan string, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.changes, nil
}

// testBundle returns a completed bundle with one result per tier.
func testBundle() *domain.AnalysisBundle {
	b := domain.NewAnalysisBundle("req-1", domain.Transcript{
		ID:     "tr-1",
		Ticker: "ACME",
		Period: "Q3-2025",
	})
	b.State = domain.StateDone
	b.CreatedAt = time.Date(2025, 10, 21, 20, 0, 0, 0, time.UTC)
	b.TierA.Status = domain.StateDone
	b.TierA.Findings = []domain.TierFinding{{
		Text:        "Cloud revenue beat guidance",
		Polarity:    domain.PolarityPositive,
		Confidence:  0.82,
		ChunkIDs:    []string{"tr-1:3"},
		Annotations: []domain.Annotation{domain.AnnotationConflict},
	}}
	b.TierB.Status = domain.StateDone
	b.TierB.Summary = "ACME grew revenue 12% on cloud demand."
	b.TierC.Status = domain.StateDone
	b.TierC.Metrics = []domain.MetricExtract{{
		Category: domain.MetricRevenue,
		Name:     "Cloud revenue",
		Value:    "$4.1B",
		Change:   "+12% YoY",
		Polarity: domain.PolarityNegative,
		Verified: true,
		ChunkIDs: []string{"tr-1:3"},
	}}
	b.Conflicts = []domain.Conflict{{
		ChunkID:         "tr-1:3",
		Finding:         "Cloud revenue beat guidance",
		FindingPolarity: domain.PolarityPositive,
		Metric:          "Cloud revenue",
		MetricPolarity:  domain.PolarityNegative,
	}}
	return b
}
