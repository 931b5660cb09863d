package domain

// ProgressEvent reports a state transition of an analysis request.
type ProgressEvent struct {
	// RequestID identifies the request.
	RequestID string

	// Tier is the tier that changed state. Empty for request-level events.
	Tier Tier

	// State is the new state.
	State AnalysisState

	// Attempt is the generation attempt number, when relevant.
	Attempt int

	// Message is a short human-readable detail (e.g. an error).
	Message string
}

// ProgressFunc receives progress events. It may be called from several goroutines.
type ProgressFunc func(ProgressEvent)
