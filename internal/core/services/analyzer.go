package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
	"github.com/custodia-labs/earnings-tldr/internal/core/ports/driven"
	"github.com/custodia-labs/earnings-tldr/internal/core/ports/driving"
)

// Ensure Analyzer implements the interface.
var _ driving.AnalysisService = (*Analyzer)(nil)

// Analyzer runs the analysis pipeline: normalise, chunk, index, the three
// tiers in parallel, then reconciliation.
type Analyzer struct {
	normaliser driven.Normaliser
	pipeline   driven.ChunkPipeline
	indexer    *Indexer
	llm        driven.LLMService
	prompts    *promptRenderer
	reconciler *Reconciler
	store      driven.BundleStore
	limiter    driven.RateLimiter

	cfg       domain.PipelineConfig
	contracts domain.Contracts
	retry     RetryPolicy
}

// NewAnalyzer creates an analyzer. The prompt store is optional; built-in
// templates are used for any prompt it cannot provide.
// Returns an error wrapping domain.ErrInvalidContract if a contract is invalid.
func NewAnalyzer(
	normaliser driven.Normaliser,
	pipeline driven.ChunkPipeline,
	indexer *Indexer,
	llm driven.LLMService,
	prompts driven.PromptStore,
	cfg domain.PipelineConfig,
	contracts domain.Contracts,
) (*Analyzer, error) {
	switch {
	case normaliser == nil:
		return nil, fmt.Errorf("%w: normaliser is required", domain.ErrInvalidInput)
	case pipeline == nil:
		return nil, fmt.Errorf("%w: chunk pipeline is required", domain.ErrInvalidInput)
	case indexer == nil:
		return nil, fmt.Errorf("%w: indexer is required", domain.ErrInvalidInput)
	}
	if err := ValidateContracts(contracts); err != nil {
		return nil, err
	}

	return &Analyzer{
		normaliser: normaliser,
		pipeline:   pipeline,
		indexer:    indexer,
		llm:        llm,
		prompts:    newPromptRenderer(prompts),
		reconciler: NewReconciler(cfg),
		cfg:        cfg,
		contracts:  contracts,
		retry:      NewRetryPolicy(cfg.GenerateRetry, cfg.GenerateTimeout),
	}, nil
}

// SetBundleStore sets the optional store completed bundles are saved to.
func (a *Analyzer) SetBundleStore(store driven.BundleStore) {
	a.store = store
}

// SetRateLimiter sets the optional limiter gating every generation call.
func (a *Analyzer) SetRateLimiter(limiter driven.RateLimiter) {
	a.limiter = limiter
}

// Contracts returns the tier contracts in use.
func (a *Analyzer) Contracts() domain.Contracts {
	return a.contracts
}

// Analyze runs one analysis request.
//
// Document-level failures (empty text, chunking, index build) and
// cancellation are returned as errors. Otherwise a bundle is always
// returned, with any failed tier marked on it.
func (a *Analyzer) Analyze(ctx context.Context, req driving.AnalysisRequest) (*domain.AnalysisBundle, error) {
	if a.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}

	transcript, err := a.normaliser.Normalise(ctx, req.Transcript)
	if err != nil {
		return nil, fmt.Errorf("normalise transcript: %w", err)
	}

	rc := NewRequestContext(uuid.NewString(), transcript, req.Market, req.Progress)
	rc.Log.Info("Analysing %s (%d characters)", transcript.ID, len(transcript.Text))

	if err := a.prepare(ctx, rc); err != nil {
		_ = rc.Advance(domain.StateFailed, err.Error())
		return nil, err
	}

	_ = rc.Advance(domain.StateGenerating, "running tiers")
	a.runTiers(ctx, rc)

	if err := ctx.Err(); err != nil {
		_ = rc.Advance(domain.StateFailed, err.Error())
		return nil, err
	}

	_ = rc.Advance(domain.StateValidating, "reconciling tiers")
	bundle := a.reconciler.Reconcile(rc.Bundle)
	bundle.CompletedAt = time.Now()

	final := domain.StateDone
	if len(bundle.FailedTiers()) == len(domain.AllTiers()) {
		final = domain.StateFailed
	}
	_ = rc.Advance(final, "")

	if a.store != nil {
		if err := a.store.Save(ctx, bundle); err != nil {
			rc.Log.Warn("Failed to save bundle %s: %v", bundle.ID, err)
		}
	}

	for _, t := range bundle.FailedTiers() {
		rc.Log.Error("Tier %s failed: %s", t, bundle.Result(t).Error)
	}
	return bundle, nil
}

// prepare chunks and indexes the transcript. The index is complete when it returns.
func (a *Analyzer) prepare(ctx context.Context, rc *RequestContext) error {
	if err := rc.Advance(domain.StateRetrieving, "chunking and indexing"); err != nil {
		return err
	}

	chunks, err := a.pipeline.Process(ctx, &rc.Transcript)
	if err != nil {
		return fmt.Errorf("chunk transcript: %w", err)
	}
	rc.Bundle.Stats = transcriptStats(rc.Transcript.Text, chunks)
	rc.Log.Debug("Chunked into %d chunks", len(chunks))

	indexer, err := a.indexer.ForCorpus(chunks)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	idx, err := indexer.BuildIndex(ctx, rc.Transcript.ID, chunks)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	if idx.Len() == 0 {
		return fmt.Errorf("build index: %w", domain.ErrEmptyIndex)
	}

	rc.Index = idx
	rc.Retriever = NewRetriever(indexer, a.cfg.DedupOverlap)
	return nil
}

// runTiers runs the three tiers concurrently and waits for all of them.
// A tier's failure is recorded on its result and never stops the others.
func (a *Analyzer) runTiers(ctx context.Context, rc *RequestContext) {
	runners := map[domain.Tier]func(context.Context, *RequestContext, *tierState) error{
		domain.TierA: a.runTierA,
		domain.TierB: a.runTierB,
		domain.TierC: a.runTierC,
	}

	var wg sync.WaitGroup
	for _, tier := range domain.AllTiers() {
		run := runners[tier]
		wg.Add(1)
		go func(tier domain.Tier) {
			defer wg.Done()
			st := newTierState(rc, tier)
			if err := run(ctx, rc, st); err != nil {
				rc.Log.Warn("Tier %s: %v", tier, err)
				st.fail(err)
				return
			}
			st.to(domain.StateDone, st.result.Attempts, "")
		}(tier)
	}
	wg.Wait()
}

// retrieve runs the contract's queries and merges their hits.
func (a *Analyzer) retrieve(ctx context.Context, rc *RequestContext, label string, queries []domain.ContractQuery, topK int) (domain.RetrievalResult, error) {
	if len(queries) == 1 {
		return rc.Retriever.Retrieve(ctx, rc.Index, queries[0].Text, topK)
	}
	texts := make([]string, len(queries))
	for i, q := range queries {
		texts[i] = q.Text
	}
	return rc.Retriever.RetrieveAll(ctx, rc.Index, label, texts, topK)
}

// generation describes one tier's generate-and-validate cycle.
type generation struct {
	// render builds the prompt, including feedback from a rejected attempt.
	render func(feedback []string) (string, error)

	// parse decodes raw output. Errors wrapping domain.ErrMalformedOutput are retried.
	parse func(raw string) error

	// check validates the parsed output and returns its violations.
	check func() []string
}

// generate renders, generates and validates until the output passes or the
// contract's regeneration budget is spent. Generation errors (timeouts,
// malformed output) are retried by the retry policy within each round.
func (a *Analyzer) generate(ctx context.Context, st *tierState, contract domain.TierContract, g generation) error {
	opts := driven.GenerateOptions{
		System:      a.prompts.system(),
		MaxTokens:   contract.MaxTokens,
		Temperature: contract.Temperature,
		JSON:        contract.Schema != domain.SchemaSummary,
	}

	var feedback []string
	for round := 0; round <= contract.Regenerations; round++ {
		prompt, err := g.render(feedback)
		if err != nil {
			return err
		}

		if st.result.Status != domain.StateGenerating {
			st.to(domain.StateGenerating, st.result.Attempts+1, "")
		}

		_, err = a.retry.Do(ctx, func(callCtx context.Context, attempt int) error {
			st.result.Attempts++
			if attempt > 1 {
				st.to(domain.StateGenerating, st.result.Attempts, "retrying generation")
			}
			raw, err := a.complete(ctx, callCtx, prompt, opts)
			if err != nil {
				return err
			}
			st.result.Raw = raw
			return g.parse(raw)
		}, retryableGeneration)
		if err != nil {
			return err
		}

		st.to(domain.StateValidating, st.result.Attempts, "")
		feedback = g.check()
		if len(feedback) == 0 {
			return nil
		}
		st.rc.Log.Debug("Tier %s output rejected: %s", st.tier, strings.Join(feedback, "; "))
	}

	return domain.NewValidationError(st.tier, feedback...)
}

// complete makes one rate-limited generation call.
// A call that outlives its own deadline, while ctx is still live, is a generation timeout.
func (a *Analyzer) complete(ctx, callCtx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(callCtx); err != nil {
			return "", err
		}
	}
	raw, err := a.llm.Generate(callCtx, prompt, opts)
	if err != nil {
		if ctx.Err() == nil && (errors.Is(err, context.DeadlineExceeded) || callCtx.Err() == context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %w", domain.ErrGenerationTimeout, err)
		}
		return "", err
	}
	return raw, nil
}

// retryableGeneration reports whether a generation error is worth another attempt.
func retryableGeneration(err error) bool {
	return !errors.Is(err, domain.ErrInvalidInput) && !errors.Is(err, domain.ErrUnsupportedType)
}

// transcriptStats counts tokens, chunks and distinct speakers.
func transcriptStats(text string, chunks []domain.Chunk) domain.TranscriptStats {
	speakers := make(map[string]struct{})
	for _, c := range chunks {
		if c.Speaker != "" {
			speakers[strings.ToLower(c.Speaker)] = struct{}{}
		}
	}
	return domain.TranscriptStats{
		TotalTokens: len(strings.Fields(text)),
		NumChunks:   len(chunks),
		NumSpeakers: len(speakers),
	}
}
