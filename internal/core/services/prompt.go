package services

import (
	"bytes"
	"fmt"
	"sync"
	"text/template"

	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
	"github.com/custodia-labs/earnings-tldr/internal/core/ports/driven"
)

// PromptData is the data tier prompt templates are rendered with.
type PromptData struct {
	// Ticker and Period identify the call.
	Ticker string
	Period string

	// Label and Query are the retrieval question the context answers.
	Label string
	Query string

	// Contract is the tier's contract.
	Contract domain.TierContract

	// Context is the retrieved chunks in rank order.
	Context []PromptChunk

	// Market is the market reaction record, nil in reduced-confidence mode.
	Market *domain.MarketReaction

	// Feedback lists the violations of the previous attempt, if any.
	Feedback []string
}

// PromptChunk is a retrieved chunk as shown to the model.
type PromptChunk struct {
	ID      string
	Speaker string
	Section string
	Text    string
}

// promptRenderer loads templates from the prompt store and caches parsed
// templates by source text, so edited prompts take effect after a reload.
type promptRenderer struct {
	store driven.PromptStore

	mu     sync.Mutex
	parsed map[string]*template.Template
}

func newPromptRenderer(store driven.PromptStore) *promptRenderer {
	return &promptRenderer{store: store, parsed: make(map[string]*template.Template)}
}

// source returns the template text for name, falling back to the defaults.
func (r *promptRenderer) source(name string) (string, error) {
	if r.store != nil {
		if text, err := r.store.Load(name); err == nil && text != "" {
			return text, nil
		}
	}
	text, ok := domain.DefaultPrompts()[name]
	if !ok {
		return "", fmt.Errorf("%w: prompt %q", domain.ErrNotFound, name)
	}
	return text, nil
}

// system returns the shared system instruction.
func (r *promptRenderer) system() string {
	text, err := r.source(domain.PromptSystem)
	if err != nil {
		return ""
	}
	return text
}

// render executes the named template with data.
func (r *promptRenderer) render(name string, data PromptData) (string, error) {
	text, err := r.source(name)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	tmpl, ok := r.parsed[text]
	if !ok {
		tmpl, err = template.New(name).Option("missingkey=zero").Parse(text)
		if err == nil {
			r.parsed[text] = tmpl
		}
	}
	r.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("parse prompt %q: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt %q: %w", name, err)
	}
	return buf.String(), nil
}

// promptChunks converts retrieval hits for a prompt.
func promptChunks(result domain.RetrievalResult) []PromptChunk {
	out := make([]PromptChunk, len(result.Hits))
	for i, h := range result.Hits {
		out[i] = PromptChunk{
			ID:      h.Chunk.ID,
			Speaker: h.Chunk.Speaker,
			Section: h.Chunk.Section,
			Text:    h.Chunk.Text,
		}
	}
	return out
}
