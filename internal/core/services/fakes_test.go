package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode"

	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
	"github.com/custodia-labs/earnings-tldr/internal/core/ports/driven"
)

// --- Fake embedding service ---

const fakeDims = 512

// fakeEmbedder is a bag-of-words embedder. Each distinct word gets its own
// dimension on first sight, so vectors never collide.
type fakeEmbedder struct {
	mu    sync.Mutex
	vocab map[string]int

	calls    atomic.Int32
	inFlight atomic.Int32
	peak     atomic.Int32

	// failFor makes Embed fail for texts containing the substring.
	failFor string
	// failTimes fails that many calls before succeeding (0 = always when failFor matches).
	failTimes int32
	failed    atomic.Int32
	// delay is applied to every call; respects ctx.
	delay time.Duration
	// dims overrides the vector size.
	dims int
	// model overrides the reported model name.
	model string
	// lazyDims reports 0 dimensions, like a provider that learns them on first call.
	lazyDims bool
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{vocab: make(map[string]int)}
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}

	if f.failFor != "" && strings.Contains(text, f.failFor) {
		if f.failTimes == 0 || f.failed.Add(1) <= f.failTimes {
			return nil, errors.New("embedding backend unavailable")
		}
	}

	size := fakeDims
	if f.dims > 0 {
		size = f.dims
	}
	vec := make([]float32, size)
	for _, w := range words(text) {
		vec[f.slot(w)%size]++
	}
	return vec, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int {
	if f.lazyDims {
		return 0
	}
	if f.dims > 0 {
		return f.dims
	}
	return fakeDims
}

func (f *fakeEmbedder) ModelName() string {
	if f.model != "" {
		return f.model
	}
	return "fake-embed"
}

func (f *fakeEmbedder) Ping(_ context.Context) error { return nil }
func (f *fakeEmbedder) Close() error                 { return nil }

func (f *fakeEmbedder) slot(word string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n, ok := f.vocab[word]; ok {
		return n
	}
	n := len(f.vocab)
	f.vocab[word] = n
	return n
}

func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// fittingEmbedder records Fit calls and returns a distinct fitted embedder.
type fittingEmbedder struct {
	*fakeEmbedder
	fits   atomic.Int32
	corpus []string
	fitErr error
	fitted *fakeEmbedder
}

func (f *fittingEmbedder) Fit(corpus []string) (driven.EmbeddingService, error) {
	f.fits.Add(1)
	if f.fitErr != nil {
		return nil, f.fitErr
	}
	f.corpus = corpus
	f.fitted = newFakeEmbedder()
	return f.fitted, nil
}

// --- Fake index cache ---

type mapCache struct {
	mu      sync.Mutex
	entries map[string]*domain.Index
	puts    int
	getErr  error
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string]*domain.Index)}
}

func (c *mapCache) Get(_ context.Context, transcriptID, fingerprint string) (*domain.Index, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	idx, ok := c.entries[transcriptID]
	if !ok || idx.Fingerprint() != fingerprint {
		return nil, domain.ErrNotFound
	}
	return idx, nil
}

func (c *mapCache) Put(_ context.Context, idx *domain.Index) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.puts++
	c.entries[idx.TranscriptID()] = idx
	return nil
}

func (c *mapCache) Evict(_ context.Context, transcriptID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, transcriptID)
	return nil
}

// --- Fake rate limiter ---

type countingLimiter struct {
	waits atomic.Int32
	err   error
}

func (l *countingLimiter) Wait(_ context.Context) error {
	l.waits.Add(1)
	return l.err
}

// --- Test helpers ---

func testPipelineConfig() domain.PipelineConfig {
	cfg := domain.DefaultPipelineConfig()
	cfg.EmbedRetry.InitialBackoff = time.Millisecond
	cfg.EmbedRetry.MaxBackoff = 2 * time.Millisecond
	cfg.GenerateRetry.InitialBackoff = time.Millisecond
	cfg.GenerateRetry.MaxBackoff = 2 * time.Millisecond
	cfg.EmbedTimeout = 2 * time.Second
	cfg.GenerateTimeout = 2 * time.Second
	cfg.RateLimitPerMinute = 0
	return cfg
}

// makeChunks builds adjacent non-overlapping chunks for the given texts.
func makeChunks(transcriptID string, texts ...string) []domain.Chunk {
	chunks := make([]domain.Chunk, len(texts))
	offset := 0
	for i, text := range texts {
		chunks[i] = domain.Chunk{
			ID:           transcriptID + "-c" + string(rune('0'+i)),
			TranscriptID: transcriptID,
			Ordinal:      i,
			Text:         text,
			Start:        offset,
			End:          offset + len(text),
		}
		offset += len(text) + 1
	}
	return chunks
}
