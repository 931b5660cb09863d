// Package transcript provides the earnings-call transcript normaliser.
package transcript

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
	"github.com/custodia-labs/earnings-tldr/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

var (
	// bracketed asides such as [00:12:31] or [Operator Instructions]
	bracketPattern = regexp.MustCompile(`\[[^\]\n]*\]`)
	pageMarker     = regexp.MustCompile(`(?mi)^[ \t]*page[ \t]+\d+[ \t]+of[ \t]+\d+[ \t]*$`)
	horizontalRun  = regexp.MustCompile(`[ \t\f\v]+`)
	blankLines     = regexp.MustCompile(`\n{3,}`)
)

// Normaliser cleans transcript text extracted from any source format.
type Normaliser struct{}

// New creates a new transcript normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedFormats returns the formats this normaliser handles.
func (n *Normaliser) SupportedFormats() []domain.SourceFormat {
	return nil // All formats
}

// Normalise returns a cleaned copy of the transcript.
// Paragraph breaks are preserved as a single blank line so the chunker can
// split on them; everything else collapses to single spaces.
func (n *Normaliser) Normalise(_ context.Context, t domain.Transcript) (domain.Transcript, error) {
	if t.SourceFormat == "" {
		t.SourceFormat = domain.SourceFormatTXT
	}
	if !t.SourceFormat.IsValid() {
		return domain.Transcript{}, fmt.Errorf("%w: unknown source format %q", domain.ErrInvalidInput, t.SourceFormat)
	}

	t.Text = Clean(t.Text)
	if t.Text == "" {
		return domain.Transcript{}, fmt.Errorf("%w: transcript text is empty after normalization", domain.ErrChunking)
	}

	if t.ID == "" {
		t.ID = domain.AnalysisID(t.Ticker, t.Period)
	}
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	t.Metadata = copyMetadata(t.Metadata)

	return t, nil
}

// Clean strips timestamps, bracketed asides and page markers and normalises whitespace.
func Clean(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = bracketPattern.ReplaceAllString(text, "")
	text = pageMarker.ReplaceAllString(text, "")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(horizontalRun.ReplaceAllString(line, " "))
	}
	text = strings.Join(lines, "\n")
	text = blankLines.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}

// CountTokens returns the whitespace-delimited word count.
func CountTokens(text string) int {
	return len(strings.Fields(text))
}

// copyMetadata creates a shallow copy of metadata.
func copyMetadata(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
