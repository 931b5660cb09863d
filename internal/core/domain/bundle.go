package domain

import (
	"fmt"
	"time"
)

// Tier identifies an analysis altitude.
type Tier string

// Analysis tiers.
const (
	// TierA is the causal "why the stock moved" bullets.
	TierA Tier = "A"

	// TierB is the plain-language summary.
	TierB Tier = "B"

	// TierC is the expert digest with metrics.
	TierC Tier = "C"
)

// AllTiers returns the tiers in report order.
func AllTiers() []Tier {
	return []Tier{TierA, TierB, TierC}
}

// IsValid returns true if the tier is recognised.
func (t Tier) IsValid() bool {
	return t == TierA || t == TierB || t == TierC
}

// String returns the string representation.
func (t Tier) String() string {
	return string(t)
}

// AnalysisState is a step of the per-request and per-tier state machine.
//
//	PENDING -> RETRIEVING -> GENERATING -> VALIDATING -> DONE | FAILED
type AnalysisState string

// Analysis states.
const (
	StatePending    AnalysisState = "pending"
	StateRetrieving AnalysisState = "retrieving"
	StateGenerating AnalysisState = "generating"
	StateValidating AnalysisState = "validating"
	StateDone       AnalysisState = "done"
	StateFailed     AnalysisState = "failed"
)

// IsTerminal returns true for DONE and FAILED.
func (s AnalysisState) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

// CanTransition reports whether moving from s to next is allowed.
// VALIDATING may return to GENERATING for a regeneration attempt,
// and any non-terminal state may fail.
func (s AnalysisState) CanTransition(next AnalysisState) bool {
	if s.IsTerminal() {
		return false
	}
	if next == StateFailed {
		return true
	}
	switch s {
	case StatePending:
		return next == StateRetrieving
	case StateRetrieving:
		return next == StateGenerating
	case StateGenerating:
		return next == StateValidating || next == StateGenerating
	case StateValidating:
		return next == StateDone || next == StateGenerating
	default:
		return false
	}
}

// TierResult is the status shared by every tier result.
type TierResult struct {
	// Tier identifies the tier.
	Tier Tier `json:"tier"`

	// Status is the tier's terminal state, or its current state while in flight.
	Status AnalysisState `json:"status"`

	// Error is the failure message when Status is FAILED.
	Error string `json:"error,omitempty"`

	// Attempts is the number of generation calls made.
	Attempts int `json:"attempts"`

	// Raw holds the raw model output of the last attempt.
	Raw string `json:"raw,omitempty"`
}

// Failed returns true if the tier failed.
func (r TierResult) Failed() bool {
	return r.Status == StateFailed
}

// TierAResult holds the causal findings.
type TierAResult struct {
	TierResult

	// Findings are ordered by descending confidence after reconciliation.
	Findings []TierFinding `json:"findings"`

	// ReducedConfidence is true when no market record was available.
	ReducedConfidence bool `json:"reduced_confidence"`
}

// TierBResult holds the plain summary.
type TierBResult struct {
	TierResult

	// Summary is the narrative text.
	Summary string `json:"summary"`
}

// TierCResult holds the expert digest.
type TierCResult struct {
	TierResult

	// Metrics are the verified quantitative extracts.
	Metrics []MetricExtract `json:"metrics"`

	// Risks are risk findings from the risk sub-query.
	Risks []TierFinding `json:"risks"`
}

// Conflict records a cross-tier contradiction on shared evidence.
type Conflict struct {
	// ChunkID is the supporting chunk both claims cite.
	ChunkID string `json:"chunk_id"`

	// Finding is the Tier A claim text.
	Finding string `json:"finding"`

	// FindingPolarity is the Tier A claim direction.
	FindingPolarity Polarity `json:"finding_polarity"`

	// Metric is the Tier C metric name.
	Metric string `json:"metric"`

	// MetricPolarity is the Tier C metric direction.
	MetricPolarity Polarity `json:"metric_polarity"`
}

// Err describes the conflict as an error wrapping ErrReconciliationConflict.
func (c Conflict) Err() error {
	return fmt.Errorf("%w: %q (%s) contradicts %s (%s) on chunk %s",
		ErrReconciliationConflict, c.Finding, c.FindingPolarity, c.Metric, c.MetricPolarity, c.ChunkID)
}

// AnalysisBundle is the combined result of one analysis request.
// It is always returned with every tier present; failed tiers are marked, never omitted.
type AnalysisBundle struct {
	// ID is the analysis id (TICKER_period).
	ID string `json:"id"`

	// RequestID identifies the request that produced the bundle.
	RequestID string `json:"request_id"`

	// TranscriptID references the analysed transcript.
	TranscriptID string `json:"transcript_id"`

	// Ticker is the company's stock symbol.
	Ticker string `json:"ticker"`

	// Period is the fiscal period label.
	Period string `json:"period"`

	// State is the request's overall state.
	State AnalysisState `json:"state"`

	// TierA is the causal tier.
	TierA TierAResult `json:"tier_a"`

	// TierB is the summary tier.
	TierB TierBResult `json:"tier_b"`

	// TierC is the digest tier.
	TierC TierCResult `json:"tier_c"`

	// Conflicts lists cross-tier contradictions found by reconciliation.
	Conflicts []Conflict `json:"conflicts,omitempty"`

	// Market is the market record used, if any.
	Market *MarketReaction `json:"market,omitempty"`

	// Stats summarises the transcript.
	Stats TranscriptStats `json:"stats"`

	// CreatedAt is when the request started.
	CreatedAt time.Time `json:"created_at"`

	// CompletedAt is when the bundle was reconciled.
	CompletedAt time.Time `json:"completed_at"`
}

// NewAnalysisBundle creates a pending bundle for a transcript.
func NewAnalysisBundle(requestID string, t Transcript) *AnalysisBundle {
	return &AnalysisBundle{
		ID:           AnalysisID(t.Ticker, t.Period),
		RequestID:    requestID,
		TranscriptID: t.ID,
		Ticker:       t.Ticker,
		Period:       t.Period,
		State:        StatePending,
		TierA:        TierAResult{TierResult: TierResult{Tier: TierA, Status: StatePending}},
		TierB:        TierBResult{TierResult: TierResult{Tier: TierB, Status: StatePending}},
		TierC:        TierCResult{TierResult: TierResult{Tier: TierC, Status: StatePending}},
		CreatedAt:    time.Now(),
	}
}

// Result returns the shared status of a tier.
func (b *AnalysisBundle) Result(t Tier) TierResult {
	switch t {
	case TierA:
		return b.TierA.TierResult
	case TierB:
		return b.TierB.TierResult
	default:
		return b.TierC.TierResult
	}
}

// FailedTiers returns the tiers that failed.
func (b *AnalysisBundle) FailedTiers() []Tier {
	var failed []Tier
	for _, t := range AllTiers() {
		if b.Result(t).Failed() {
			failed = append(failed, t)
		}
	}
	return failed
}

// Partial returns true if at least one tier failed.
func (b *AnalysisBundle) Partial() bool {
	return len(b.FailedTiers()) > 0
}
