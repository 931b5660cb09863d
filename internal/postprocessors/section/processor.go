// Package section tags chunks with the transcript section they fall in.
package section

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
)

// Section names.
const (
	General          = "general"
	PreparedRemarks  = "prepared_remarks"
	QASection        = "qa_section"
	Guidance         = "guidance"
	FinancialMetrics = "financial_metrics"
	BusinessUpdate   = "business_update"
)

// A line matching a rule starts a new section. Rules are checked in order.
var rules = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{PreparedRemarks, regexp.MustCompile(`prepared remarks|opening remarks|prepared statement`)},
	{QASection, regexp.MustCompile(`question.?and.?answer|question.?answer|q.?&.?a|questions`)},
	{Guidance, regexp.MustCompile(`guidance|outlook|forward.?looking`)},
	{FinancialMetrics, regexp.MustCompile(`financial|revenue|earnings|\beps\b|margin`)},
	{BusinessUpdate, regexp.MustCompile(`business update|operational|strategy`)},
}

// Boundary marks where a section starts.
type Boundary struct {
	// Name is the section name.
	Name string

	// Offset is the byte offset of the line starting the section.
	Offset int
}

// Boundaries scans text line by line and returns the section starts.
// Text before the first matching line belongs to the general section.
func Boundaries(text string) []Boundary {
	bounds := []Boundary{{Name: General, Offset: 0}}
	offset := 0
	for _, line := range strings.SplitAfter(text, "\n") {
		lower := strings.ToLower(line)
		for _, r := range rules {
			if r.pattern.MatchString(lower) {
				if bounds[len(bounds)-1].Name != r.name {
					bounds = append(bounds, Boundary{Name: r.name, Offset: offset})
				}
				break
			}
		}
		offset += len(line)
	}
	return bounds
}

// Processor tags chunks with their section.
type Processor struct{}

// New creates a section tagging processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "section"
}

// Process sets Section on each chunk to the section active at the chunk start.
func (p *Processor) Process(_ context.Context, t *domain.Transcript, chunks []domain.Chunk) ([]domain.Chunk, error) {
	if t == nil || len(chunks) == 0 {
		return chunks, nil
	}

	bounds := Boundaries(t.Text)
	out := make([]domain.Chunk, len(chunks))
	for i, c := range chunks {
		n := sort.Search(len(bounds), func(j int) bool { return bounds[j].Offset > c.Start })
		c.Section = bounds[n-1].Name
		out[i] = c
	}

	return out, nil
}
