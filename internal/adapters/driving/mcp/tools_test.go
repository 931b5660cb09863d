package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
)

func TestServer_handleAnalyze(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the analysis", func(t *testing.T) {
		mockAnalysis := &mockAnalysisService{bundle: testBundle()}
		server, err := NewServer(&Ports{Analysis: mockAnalysis})
		require.NoError(t, err)

		input := AnalyzeInput{Ticker: "ACME", Period: "Q3-2025", Text: "Operator: welcome."}
		_, output, err := server.handleAnalyze(ctx, nil, input)

		require.NoError(t, err)
		assert.Equal(t, "ACME_Q3-2025", output.ID)
		assert.Equal(t, "done", output.State)
		assert.False(t, output.Partial)
		assert.Empty(t, output.Errors)
		require.Len(t, output.WhyItMoved, 1)
		assert.Equal(t, "Cloud revenue beat guidance", output.WhyItMoved[0].Text)
		assert.Equal(t, "positive", output.WhyItMoved[0].Polarity)
		assert.Equal(t, []string{"tr-1:3"}, output.WhyItMoved[0].ChunkIDs)
		assert.Equal(t, []string{"conflict"}, output.WhyItMoved[0].Annotations)
		assert.Equal(t, "ACME grew revenue 12% on cloud demand.", output.Summary)
		require.Len(t, output.Metrics, 1)
		assert.Equal(t, "revenue", output.Metrics[0].Category)
		assert.Equal(t, "$4.1B", output.Metrics[0].Value)
		assert.True(t, output.Metrics[0].Verified)
		require.Len(t, output.Conflicts, 1)
		assert.Contains(t, output.Conflicts[0], "Cloud revenue")
		assert.Contains(t, output.Conflicts[0], "tr-1:3")
	})

	t.Run("maps the request", func(t *testing.T) {
		mockAnalysis := &mockAnalysisService{bundle: testBundle()}
		server, err := NewServer(&Ports{Analysis: mockAnalysis})
		require.NoError(t, err)

		move := -3.2
		input := AnalyzeInput{
			Ticker:         "ACME",
			Period:         "Q3-2025",
			Text:           "text",
			SourceFormat:   "PDF",
			AfterHoursMove: &move,
		}
		_, _, err = server.handleAnalyze(ctx, nil, input)

		require.NoError(t, err)
		req := mockAnalysis.lastReq
		assert.Equal(t, "ACME", req.Transcript.Ticker)
		assert.Equal(t, domain.SourceFormatPDF, req.Transcript.SourceFormat)
		require.NotNil(t, req.Market)
		assert.InDelta(t, -3.2, req.Market.AfterHoursMove, 1e-9)
		assert.Zero(t, req.Market.NextDayGap)
	})

	t.Run("defaults to txt without market data", func(t *testing.T) {
		mockAnalysis := &mockAnalysisService{bundle: testBundle()}
		server, err := NewServer(&Ports{Analysis: mockAnalysis})
		require.NoError(t, err)

		_, _, err = server.handleAnalyze(ctx, nil, AnalyzeInput{Ticker: "ACME", Period: "Q1", Text: "text"})

		require.NoError(t, err)
		assert.Equal(t, domain.SourceFormatTXT, mockAnalysis.lastReq.Transcript.SourceFormat)
		assert.Nil(t, mockAnalysis.lastReq.Market)
	})

	t.Run("reports failed tiers", func(t *testing.T) {
		bundle := testBundle()
		bundle.TierB.Status = domain.StateFailed
		bundle.TierB.Error = "generation timed out"
		server, err := NewServer(&Ports{Analysis: &mockAnalysisService{bundle: bundle}})
		require.NoError(t, err)

		_, output, err := server.handleAnalyze(ctx, nil, AnalyzeInput{Ticker: "ACME", Period: "Q1", Text: "text"})

		require.NoError(t, err)
		assert.True(t, output.Partial)
		assert.Equal(t, map[string]string{"B": "generation timed out"}, output.Errors)
	})

	t.Run("empty text is rejected", func(t *testing.T) {
		mockAnalysis := &mockAnalysisService{}
		server, err := NewServer(&Ports{Analysis: mockAnalysis})
		require.NoError(t, err)

		_, _, err = server.handleAnalyze(ctx, nil, AnalyzeInput{Ticker: "ACME", Text: "   "})

		require.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("unknown format is rejected", func(t *testing.T) {
		server, err := NewServer(&Ports{Analysis: &mockAnalysisService{}})
		require.NoError(t, err)

		_, _, err = server.handleAnalyze(ctx, nil, AnalyzeInput{Text: "text", SourceFormat: "html"})

		require.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Contains(t, err.Error(), "html")
	})

	t.Run("returns error on analysis failure", func(t *testing.T) {
		mockAnalysis := &mockAnalysisService{err: domain.ErrEmbeddingUnavailable}
		server, err := NewServer(&Ports{Analysis: mockAnalysis})
		require.NoError(t, err)

		_, _, err = server.handleAnalyze(ctx, nil, AnalyzeInput{Text: "text"})

		require.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	})
}

func TestServer_handleList(t *testing.T) {
	ctx := context.Background()

	t.Run("returns stored analyses", func(t *testing.T) {
		failed := testBundle()
		failed.ID = "ACME_Q2-2025"
		failed.TierC.Status = domain.StateFailed
		mockBundles := &mockBundleService{bundles: []domain.AnalysisBundle{*testBundle(), *failed}}

		server, err := NewServer(&Ports{Analysis: &mockAnalysisService{}, Bundles: mockBundles})
		require.NoError(t, err)

		_, output, err := server.handleList(ctx, nil, ListInput{Limit: 5})

		require.NoError(t, err)
		assert.Equal(t, 5, mockBundles.limit)
		assert.Equal(t, 2, output.Count)
		assert.Equal(t, "ACME_Q3-2025", output.Analyses[0].ID)
		assert.Equal(t, "bundle://ACME_Q3-2025", output.Analyses[0].URI)
		assert.Equal(t, "2025-10-21T20:00:00Z", output.Analyses[0].CreatedAt)
		assert.Empty(t, output.Analyses[0].FailedTiers)
		assert.Equal(t, []string{"C"}, output.Analyses[1].FailedTiers)
	})

	t.Run("returns error on list failure", func(t *testing.T) {
		mockBundles := &mockBundleService{err: errors.New("database locked")}
		server, err := NewServer(&Ports{Analysis: &mockAnalysisService{}, Bundles: mockBundles})
		require.NoError(t, err)

		_, _, err = server.handleList(ctx, nil, ListInput{})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "database locked")
	})
}
