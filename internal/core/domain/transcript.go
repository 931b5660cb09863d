package domain

import (
	"strings"
)

// SourceFormat identifies the format a transcript was extracted from.
type SourceFormat string

// Supported source formats.
const (
	// SourceFormatPDF is text extracted from a PDF.
	SourceFormatPDF SourceFormat = "pdf"

	// SourceFormatTXT is a plain text transcript.
	SourceFormatTXT SourceFormat = "txt"

	// SourceFormatDOCX is text extracted from a Word document.
	SourceFormatDOCX SourceFormat = "docx"
)

// IsValid returns true if the source format is recognised.
func (f SourceFormat) IsValid() bool {
	switch f {
	case SourceFormatPDF, SourceFormatTXT, SourceFormatDOCX:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (f SourceFormat) String() string {
	return string(f)
}

// Transcript is an ingested earnings-call transcript.
// Immutable once ingested; normalisation produces a new value.
type Transcript struct {
	// ID uniquely identifies the transcript. Defaults to AnalysisID(Ticker, Period).
	ID string `json:"id"`

	// Ticker is the company's stock symbol.
	Ticker string `json:"ticker"`

	// Period is the fiscal period label (e.g. "Q3 2024").
	Period string `json:"period"`

	// Text is the transcript content.
	Text string `json:"-"`

	// SourceFormat records the format the text was extracted from.
	SourceFormat SourceFormat `json:"source_format"`

	// Metadata holds additional caller-supplied properties.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// AnalysisID builds the stable analysis identifier for a ticker and period.
// Format is TICKER_period with spaces replaced by underscores.
// Returns an empty string if both parts are empty.
func AnalysisID(ticker, period string) string {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	period = strings.TrimSpace(period)
	if ticker == "" && period == "" {
		return ""
	}
	return strings.ReplaceAll(ticker+"_"+period, " ", "_")
}

// TranscriptStats summarises a normalised and chunked transcript.
type TranscriptStats struct {
	// TotalTokens is the whitespace-delimited word count.
	TotalTokens int `json:"total_tokens"`

	// NumChunks is the number of chunks produced.
	NumChunks int `json:"num_chunks"`

	// NumSpeakers is the number of distinct speakers tagged.
	NumSpeakers int `json:"num_speakers"`
}

// MarketReaction is the pre-fetched price reaction around the call.
// Moves are percentages, e.g. -3.2 for a 3.2% drop.
type MarketReaction struct {
	// AfterHoursMove is the after-hours price change following the call.
	AfterHoursMove float64 `json:"after_hours_move"`

	// NextDayGap is the opening gap on the next trading day.
	NextDayGap float64 `json:"next_day_gap"`
}

// Direction returns the overall direction of the reaction.
// Combined moves within ±0.5% are treated as neutral.
func (m MarketReaction) Direction() Polarity {
	total := m.AfterHoursMove + m.NextDayGap
	switch {
	case total > 0.5:
		return PolarityPositive
	case total < -0.5:
		return PolarityNegative
	default:
		return PolarityNeutral
	}
}
