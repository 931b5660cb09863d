package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
	"github.com/custodia-labs/earnings-tldr/internal/core/ports/driving"
)

// AnalyzeInput is the input schema for the analyze_transcript tool.
type AnalyzeInput struct {
	Ticker         string   `json:"ticker" jsonschema:"the company's stock symbol"`
	Period         string   `json:"period" jsonschema:"the fiscal period, e.g. Q3-2025"`
	Text           string   `json:"text" jsonschema:"the full transcript text"`
	SourceFormat   string   `json:"source_format,omitempty" jsonschema:"format the text was extracted from: txt, pdf or docx (default txt)"`
	AfterHoursMove *float64 `json:"after_hours_move,omitempty" jsonschema:"after-hours price move in percent, e.g. -3.2"`
	NextDayGap     *float64 `json:"next_day_gap,omitempty" jsonschema:"next-day opening gap in percent"`
}

// AnalyzeOutput is the output schema for the analyze_transcript tool.
type AnalyzeOutput struct {
	ID                string            `json:"id"`
	State             string            `json:"state"`
	Partial           bool              `json:"partial"`
	Errors            map[string]string `json:"errors,omitempty"`
	ReducedConfidence bool              `json:"reduced_confidence"`
	WhyItMoved        []FindingOutput   `json:"why_it_moved"`
	Summary           string            `json:"summary"`
	Metrics           []MetricOutput    `json:"metrics"`
	Risks             []FindingOutput   `json:"risks"`
	Conflicts         []string          `json:"conflicts,omitempty"`
}

// FindingOutput is a single claim with its supporting chunks.
type FindingOutput struct {
	Text        string   `json:"text"`
	Polarity    string   `json:"polarity"`
	Confidence  float64  `json:"confidence"`
	ChunkIDs    []string `json:"chunk_ids"`
	Annotations []string `json:"annotations,omitempty"`
}

// MetricOutput is a single extracted metric.
type MetricOutput struct {
	Category string   `json:"category"`
	Name     string   `json:"name"`
	Value    string   `json:"value"`
	Change   string   `json:"change,omitempty"`
	Polarity string   `json:"polarity"`
	Verified bool     `json:"verified"`
	ChunkIDs []string `json:"chunk_ids"`
}

// ListInput is the input schema for the list_analyses tool.
type ListInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of analyses to return (default 20)"`
}

// ListOutput is the output schema for the list_analyses tool.
type ListOutput struct {
	Analyses []AnalysisSummary `json:"analyses"`
	Count    int               `json:"count"`
}

// AnalysisSummary identifies a stored analysis.
type AnalysisSummary struct {
	ID          string   `json:"id"`
	URI         string   `json:"uri"`
	Ticker      string   `json:"ticker"`
	Period      string   `json:"period"`
	State       string   `json:"state"`
	FailedTiers []string `json:"failed_tiers,omitempty"`
	CreatedAt   string   `json:"created_at"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "analyze_transcript",
		Description: "Analyse an earnings-call transcript: why the stock moved, a plain summary, " +
			"and an expert digest of metrics and risks, each grounded in transcript passages",
	}, s.handleAnalyze)

	if s.ports.Bundles != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "list_analyses",
			Description: "List stored transcript analyses, newest first",
		}, s.handleList)
	}
}

// handleAnalyze handles the analyze_transcript tool invocation.
func (s *Server) handleAnalyze(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AnalyzeInput,
) (*mcp.CallToolResult, AnalyzeOutput, error) {
	if strings.TrimSpace(input.Text) == "" {
		return nil, AnalyzeOutput{}, fmt.Errorf("%w: text is required", domain.ErrInvalidInput)
	}

	format := domain.SourceFormat(strings.ToLower(input.SourceFormat))
	if format == "" {
		format = domain.SourceFormatTXT
	}
	if !format.IsValid() {
		return nil, AnalyzeOutput{}, fmt.Errorf("%w: unsupported source format %q", domain.ErrInvalidInput, input.SourceFormat)
	}

	req := driving.AnalysisRequest{
		Transcript: domain.Transcript{
			Ticker:       input.Ticker,
			Period:       input.Period,
			Text:         input.Text,
			SourceFormat: format,
		},
	}
	if input.AfterHoursMove != nil || input.NextDayGap != nil {
		req.Market = &domain.MarketReaction{}
		if input.AfterHoursMove != nil {
			req.Market.AfterHoursMove = *input.AfterHoursMove
		}
		if input.NextDayGap != nil {
			req.Market.NextDayGap = *input.NextDayGap
		}
	}

	bundle, err := s.ports.Analysis.Analyze(ctx, req)
	if err != nil {
		return nil, AnalyzeOutput{}, err
	}

	return nil, toAnalyzeOutput(bundle), nil
}

// handleList handles the list_analyses tool invocation.
func (s *Server) handleList(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListInput,
) (*mcp.CallToolResult, ListOutput, error) {
	bundles, err := s.ports.Bundles.List(ctx, input.Limit)
	if err != nil {
		return nil, ListOutput{}, err
	}

	output := ListOutput{
		Analyses: make([]AnalysisSummary, len(bundles)),
		Count:    len(bundles),
	}
	for i := range bundles {
		b := &bundles[i]
		output.Analyses[i] = AnalysisSummary{
			ID:          b.ID,
			URI:         bundleURI(b.ID),
			Ticker:      b.Ticker,
			Period:      b.Period,
			State:       string(b.State),
			FailedTiers: tierNames(b.FailedTiers()),
			CreatedAt:   b.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		}
	}
	return nil, output, nil
}

func toAnalyzeOutput(b *domain.AnalysisBundle) AnalyzeOutput {
	out := AnalyzeOutput{
		ID:                b.ID,
		State:             string(b.State),
		Partial:           b.Partial(),
		ReducedConfidence: b.TierA.ReducedConfidence,
		WhyItMoved:        toFindings(b.TierA.Findings),
		Summary:           b.TierB.Summary,
		Risks:             toFindings(b.TierC.Risks),
		Metrics:           make([]MetricOutput, len(b.TierC.Metrics)),
	}

	for _, t := range b.FailedTiers() {
		if out.Errors == nil {
			out.Errors = make(map[string]string)
		}
		out.Errors[string(t)] = b.Result(t).Error
	}

	for i, m := range b.TierC.Metrics {
		out.Metrics[i] = MetricOutput{
			Category: string(m.Category),
			Name:     m.Name,
			Value:    m.Value,
			Change:   m.Change,
			Polarity: string(m.Polarity),
			Verified: m.Verified,
			ChunkIDs: m.ChunkIDs,
		}
	}

	for _, c := range b.Conflicts {
		out.Conflicts = append(out.Conflicts, c.Err().Error())
	}

	return out
}

func toFindings(findings []domain.TierFinding) []FindingOutput {
	out := make([]FindingOutput, len(findings))
	for i, f := range findings {
		var notes []string
		for _, a := range f.Annotations {
			notes = append(notes, string(a))
		}
		out[i] = FindingOutput{
			Text:        f.Text,
			Polarity:    string(f.Polarity),
			Confidence:  f.Confidence,
			ChunkIDs:    f.ChunkIDs,
			Annotations: notes,
		}
	}
	return out
}

func tierNames(tiers []domain.Tier) []string {
	if len(tiers) == 0 {
		return nil
	}
	names := make([]string, len(tiers))
	for i, t := range tiers {
		names[i] = string(t)
	}
	return names
}
