// Package speaker tags chunks with the speaker whose turn is active at the chunk start.
package speaker

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
)

// turnPattern matches a speaker label at the start of a line, e.g.
// "Tim Cook: ...", "TIM COOK -- CEO: ..." or "Operator: ...".
var turnPattern = regexp.MustCompile(
	`(?m)^([A-Z][A-Za-z.'\-]*(?: [A-Z][A-Za-z.'\-]*){0,3})(?: -{1,2} [^:\n]{1,60})?:[ \t]`)

// Turn is a speaker turn starting at Offset.
type Turn struct {
	// Speaker is the speaker label.
	Speaker string

	// Offset is the byte offset where the turn starts.
	Offset int
}

// Turns returns the speaker turns of text in order.
func Turns(text string) []Turn {
	matches := turnPattern.FindAllStringSubmatchIndex(text, -1)
	turns := make([]Turn, 0, len(matches))
	for _, m := range matches {
		turns = append(turns, Turn{
			Speaker: strings.TrimSpace(text[m[2]:m[3]]),
			Offset:  m[0],
		})
	}
	return turns
}

// CountSpeakers returns the number of distinct speakers in text.
func CountSpeakers(text string) int {
	seen := make(map[string]struct{})
	for _, t := range Turns(text) {
		seen[strings.ToLower(t.Speaker)] = struct{}{}
	}
	return len(seen)
}

// Processor tags chunks with their active speaker.
type Processor struct{}

// New creates a speaker tagging processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "speaker"
}

// Process sets Speaker on each chunk to the turn active at the chunk start,
// or the first turn inside the chunk when no turn precedes it.
func (p *Processor) Process(_ context.Context, t *domain.Transcript, chunks []domain.Chunk) ([]domain.Chunk, error) {
	if t == nil || len(chunks) == 0 {
		return chunks, nil
	}

	turns := Turns(t.Text)
	if len(turns) == 0 {
		return chunks, nil
	}

	out := make([]domain.Chunk, len(chunks))
	for i, c := range chunks {
		// first turn starting after the chunk start
		n := sort.Search(len(turns), func(j int) bool { return turns[j].Offset > c.Start })
		switch {
		case n > 0:
			c.Speaker = turns[n-1].Speaker
		case turns[0].Offset < c.End:
			c.Speaker = turns[0].Speaker
		}
		out[i] = c
	}

	return out, nil
}
