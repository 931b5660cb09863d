// Package messages defines Bubbletea message types for the TUI.
// Messages represent events that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
)

// ProgressReceived carries one state transition of the running analysis.
type ProgressReceived struct {
	Event domain.ProgressEvent
}

// AnalysisCompleted carries the final bundle, or the document-level error.
type AnalysisCompleted struct {
	Bundle *domain.AnalysisBundle
	Err    error
}

// AnalysisCancelled is sent when the user stops a running analysis.
type AnalysisCancelled struct{}

// Phase identifies what the app is showing.
type Phase int

const (
	// PhaseRunning shows the progress view.
	PhaseRunning Phase = iota
	// PhaseReport shows the finished bundle.
	PhaseReport
	// PhaseFailed shows a document-level failure.
	PhaseFailed
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseRunning:
		return "running"
	case PhaseReport:
		return "report"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}
