// Package chunker provides a boundary-aware transcript chunking processor.
package chunker

import (
	"context"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
)

// DefaultMaxSize is the default maximum number of characters per chunk.
const DefaultMaxSize = 1200

// DefaultMinSize is the default minimum size of every non-final chunk.
const DefaultMinSize = 500

// DefaultOverlap is the default number of characters shared by adjacent chunks.
const DefaultOverlap = 100

// chunkNamespace seeds deterministic chunk ids.
var chunkNamespace = uuid.MustParse("6f1c2a53-8d0e-4c8e-9a57-3b1f0e5d2c41")

// boundary classes in order of preference
const (
	boundaryNone = iota
	boundaryWord
	boundarySentence
	boundaryLine
	boundaryParagraph
)

// Processor splits transcript text into overlapping, size-bounded chunks.
// It implements the ChunkProcessor interface.
type Processor struct {
	maxSize int
	minSize int
	overlap int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithMaxSize sets the maximum chunk size in characters.
func WithMaxSize(size int) Option {
	return func(p *Processor) {
		p.maxSize = size
	}
}

// WithMinSize sets the minimum size of every non-final chunk.
func WithMinSize(size int) Option {
	return func(p *Processor) {
		p.minSize = size
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		p.overlap = overlap
	}
}

// New creates a new chunker processor with the given options.
// Bounds are checked when chunking so a bad configuration surfaces as ErrChunking.
func New(opts ...Option) *Processor {
	p := &Processor{
		maxSize: DefaultMaxSize,
		minSize: DefaultMinSize,
		overlap: DefaultOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Process splits the transcript text into chunks.
// Input chunks are ignored; this processor creates new chunks.
func (p *Processor) Process(_ context.Context, t *domain.Transcript, _ []domain.Chunk) ([]domain.Chunk, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: transcript is nil", domain.ErrChunking)
	}
	return Chunk(t.ID, t.Text, p.maxSize, p.minSize, p.overlap)
}

// Chunk splits text into chunks whose spans cover the whole text.
//
// Every chunk except the last has a length in [minSize, maxSize]. The next
// chunk starts overlap bytes before the previous one ended, moved forward to
// the first word start inside that overlap when there is one. Split points
// prefer, in order: paragraph breaks, line starts (speaker turns), sentence
// ends, whitespace; a hard cut is used only when none fits the window.
// A hard cut that cannot land on a rune start inside the window fails with
// ErrChunking. Identical input always yields identical chunks and ids.
func Chunk(transcriptID, text string, maxSize, minSize, overlap int) ([]domain.Chunk, error) {
	switch {
	case maxSize <= 0:
		return nil, fmt.Errorf("%w: max size must be positive, got %d", domain.ErrChunking, maxSize)
	case minSize < 0:
		return nil, fmt.Errorf("%w: min size must not be negative, got %d", domain.ErrChunking, minSize)
	case minSize > maxSize:
		return nil, fmt.Errorf("%w: min size %d exceeds max size %d", domain.ErrChunking, minSize, maxSize)
	case overlap < 0 || overlap >= maxSize:
		return nil, fmt.Errorf("%w: overlap %d must be in [0, %d)", domain.ErrChunking, overlap, maxSize)
	case isBlank(text):
		return nil, fmt.Errorf("%w: transcript text is empty after normalization", domain.ErrChunking)
	}

	// A chunk must be longer than the overlap or the next one would not advance.
	floor := max(minSize, overlap+1)

	n := len(text)
	var chunks []domain.Chunk
	start := 0
	for {
		end := n
		if n-start > maxSize {
			var ok bool
			end, ok = splitPoint(text, start+floor, start+maxSize)
			if !ok {
				return nil, fmt.Errorf("%w: no character boundary in [%d, %d] for chunk %d",
					domain.ErrChunking, start+floor, start+maxSize, len(chunks))
			}
		}

		chunks = append(chunks, newChunk(transcriptID, text, len(chunks), start, end))
		if end == n {
			break
		}

		next := wordStart(text, runeStart(text, end-overlap), end)
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks, nil
}

// splitPoint picks the best end offset in [lo, hi].
// Within the best boundary class the latest position wins. Without any
// boundary the cut is the last rune start in the window; false means the
// window holds no rune start at all.
func splitPoint(text string, lo, hi int) (int, bool) {
	best, bestClass := hi, boundaryNone
	for pos := hi; pos >= lo; pos-- {
		class := boundaryAt(text, pos)
		if class > bestClass {
			best, bestClass = pos, class
			if class == boundaryParagraph {
				break
			}
		}
	}
	if bestClass != boundaryNone {
		return best, true
	}
	cut := runeStart(text, hi)
	if cut < lo {
		cut = nextRuneStart(text, lo)
	}
	return cut, cut <= hi
}

// boundaryAt classifies the split position pos (the chunk would end before text[pos]).
func boundaryAt(text string, pos int) int {
	if pos <= 1 || pos >= len(text) {
		return boundaryNone
	}
	prev := text[pos-1]
	switch {
	case prev == '\n' && text[pos-2] == '\n':
		return boundaryParagraph
	case prev == '\n':
		return boundaryLine
	case prev == ' ' && isSentenceEnd(text[pos-2]):
		return boundarySentence
	case prev == ' ' || prev == '\t':
		return boundaryWord
	default:
		return boundaryNone
	}
}

func isSentenceEnd(b byte) bool {
	return b == '.' || b == '!' || b == '?' || b == '"'
}

// runeStart moves pos back to the start of the UTF-8 sequence it falls in.
func runeStart(text string, pos int) int {
	if pos <= 0 {
		return 0
	}
	for pos > 0 && pos < len(text) && !utf8.RuneStart(text[pos]) {
		pos--
	}
	return pos
}

// nextRuneStart moves pos forward to the start of the next UTF-8 sequence.
func nextRuneStart(text string, pos int) int {
	for pos < len(text) && !utf8.RuneStart(text[pos]) {
		pos++
	}
	return pos
}

// wordStart returns the first word start in [pos, end), or pos when the
// range lies inside a single word.
func wordStart(text string, pos, end int) int {
	for q := pos; q < end; q++ {
		if isSpace(text[q]) {
			continue
		}
		if q == 0 || isSpace(text[q-1]) {
			return q
		}
	}
	return pos
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	}
	return false
}

func newChunk(transcriptID, text string, ordinal, start, end int) domain.Chunk {
	name := transcriptID + ":" + strconv.Itoa(ordinal) + ":" + strconv.Itoa(start) + ":" + strconv.Itoa(end)
	return domain.Chunk{
		ID:           uuid.NewSHA1(chunkNamespace, []byte(name)).String(),
		TranscriptID: transcriptID,
		Ordinal:      ordinal,
		Text:         text[start:end],
		Start:        start,
		End:          end,
	}
}

func isBlank(text string) bool {
	for i := 0; i < len(text); i++ {
		if !isSpace(text[i]) {
			return false
		}
	}
	return true
}
