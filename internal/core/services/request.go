package services

import (
	"fmt"
	"sync"

	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
	"github.com/custodia-labs/earnings-tldr/internal/logger"
)

// RequestContext carries the state of one analysis request.
// It is created per call to Analyze and passed explicitly to every stage;
// nothing about a request lives in package or service state.
//
// The index and retriever are set once before the tiers start and are only
// read afterwards. Each tier writes only its own result on the bundle.
type RequestContext struct {
	// ID identifies the request in logs and progress events.
	ID string

	// Transcript is the normalised transcript.
	Transcript domain.Transcript

	// Market is the optional market reaction record.
	Market *domain.MarketReaction

	// Index is the transcript's complete index.
	Index *domain.Index

	// Retriever queries Index with the index's embedding function.
	Retriever *Retriever

	// Bundle is the result being assembled.
	Bundle *domain.AnalysisBundle

	// Log tags messages with the request ID.
	Log *logger.Logger

	mu       sync.Mutex
	progress domain.ProgressFunc
}

// NewRequestContext creates the context of a request.
func NewRequestContext(id string, t domain.Transcript, market *domain.MarketReaction, progress domain.ProgressFunc) *RequestContext {
	bundle := domain.NewAnalysisBundle(id, t)
	bundle.Market = market

	short := id
	if len(short) > 8 {
		short = short[:8]
	}

	return &RequestContext{
		ID:         id,
		Transcript: t,
		Market:     market,
		Bundle:     bundle,
		Log:        logger.With(short),
		progress:   progress,
	}
}

// Advance moves the request to the next state.
func (rc *RequestContext) Advance(next domain.AnalysisState, message string) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	cur := rc.Bundle.State
	if !cur.CanTransition(next) {
		return fmt.Errorf("%w: request cannot move from %s to %s", domain.ErrInvalidInput, cur, next)
	}
	rc.Bundle.State = next
	rc.emitLocked(domain.ProgressEvent{RequestID: rc.ID, State: next, Message: message})
	return nil
}

// emit reports a progress event. Observers are called one at a time.
func (rc *RequestContext) emit(ev domain.ProgressEvent) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.emitLocked(ev)
}

func (rc *RequestContext) emitLocked(ev domain.ProgressEvent) {
	if rc.progress == nil {
		return
	}
	ev.RequestID = rc.ID
	rc.progress(ev)
}

// tierState tracks the state machine of one tier and reports its transitions.
type tierState struct {
	rc     *RequestContext
	tier   domain.Tier
	result *domain.TierResult
}

func newTierState(rc *RequestContext, tier domain.Tier) *tierState {
	var result *domain.TierResult
	switch tier {
	case domain.TierA:
		result = &rc.Bundle.TierA.TierResult
	case domain.TierB:
		result = &rc.Bundle.TierB.TierResult
	default:
		result = &rc.Bundle.TierC.TierResult
	}
	return &tierState{rc: rc, tier: tier, result: result}
}

// to moves the tier to next. Invalid transitions are programming errors and panic.
func (s *tierState) to(next domain.AnalysisState, attempt int, message string) {
	if !s.result.Status.CanTransition(next) {
		panic(fmt.Sprintf("tier %s: invalid transition %s -> %s", s.tier, s.result.Status, next))
	}
	s.result.Status = next
	s.rc.emit(domain.ProgressEvent{Tier: s.tier, State: next, Attempt: attempt, Message: message})
}

// fail marks the tier failed with err.
func (s *tierState) fail(err error) {
	s.result.Error = err.Error()
	if !s.result.Status.IsTerminal() {
		s.to(domain.StateFailed, s.result.Attempts, err.Error())
	}
}
