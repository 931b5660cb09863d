// Package tfidf provides an offline embedding service fitted to each transcript.
package tfidf

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
	"github.com/custodia-labs/earnings-tldr/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interfaces.
var (
	_ driven.EmbeddingService = (*EmbeddingService)(nil)
	_ driven.CorpusAware      = (*EmbeddingService)(nil)
)

// ModelName is the name reported for the TF-IDF model.
const ModelName = "tfidf"

// tokenPattern keeps words and figures such as 97.3 or 1,200 whole.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’.,][\p{L}\p{N}]+)*`)

// EmbeddingService embeds text as L2-normalised TF-IDF vectors over the
// vocabulary of one transcript. The zero value is unfitted; Fit returns a
// fitted copy and never modifies the receiver, so one service can be shared
// by concurrent requests.
type EmbeddingService struct {
	vocabulary map[string]int
	idf        []float64
}

// New creates an unfitted TF-IDF embedding service.
func New() *EmbeddingService {
	return &EmbeddingService{}
}

// Fit builds the vocabulary and smoothed IDF weights from corpus.
func (s *EmbeddingService) Fit(corpus []string) (driven.EmbeddingService, error) {
	if len(corpus) == 0 {
		return nil, fmt.Errorf("tfidf: empty corpus")
	}

	df := make(map[string]int)
	for _, text := range corpus {
		seen := make(map[string]struct{})
		for _, tok := range tokenize(text) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}
	if len(df) == 0 {
		return nil, fmt.Errorf("tfidf: no terms found in corpus")
	}

	// Sorted terms give a stable vector layout.
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	fitted := &EmbeddingService{
		vocabulary: make(map[string]int, len(terms)),
		idf:        make([]float64, len(terms)),
	}
	n := float64(len(corpus))
	for i, term := range terms {
		fitted.vocabulary[term] = i
		fitted.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	return fitted, nil
}

// Embed computes the TF-IDF vector of text. Terms outside the fitted
// vocabulary are ignored, so text with none yields a zero vector.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(s.idf) == 0 {
		return nil, fmt.Errorf("tfidf: %w: embedder has not been fitted", domain.ErrEmbeddingUnavailable)
	}

	tf := make(map[int]int)
	total := 0
	for _, tok := range tokenize(text) {
		if idx, ok := s.vocabulary[tok]; ok {
			tf[idx]++
			total++
		}
	}

	vec := make([]float32, len(s.idf))
	if total == 0 {
		return vec, nil
	}

	weights := make([]float64, len(s.idf))
	norm := 0.0
	for idx, count := range tf {
		w := float64(count) / float64(total) * s.idf[idx]
		weights[idx] = w
		norm += w * w
	}
	norm = math.Sqrt(norm)
	for idx := range tf {
		vec[idx] = float32(weights[idx] / norm)
	}
	return vec, nil
}

// EmbedBatch embeds each text in order.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := s.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// Dimensions returns the vocabulary size, zero before fitting.
func (s *EmbeddingService) Dimensions() int {
	return len(s.idf)
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return ModelName
}

// Ping always succeeds; the service runs in process.
func (s *EmbeddingService) Ping(_ context.Context) error {
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}

// tokenize lower-cases text, drops stopwords and folds simple plurals.
func tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, tok := range raw {
		tok = strings.TrimSuffix(strings.TrimSuffix(tok, "'s"), "’s")
		if _, stop := stopwords[tok]; stop {
			continue
		}
		out = append(out, stem(tok))
	}
	return out
}

// stem folds regular plurals ("margins", "headwinds") onto the singular.
func stem(tok string) string {
	if len(tok) > 3 && strings.HasSuffix(tok, "s") && !strings.HasSuffix(tok, "ss") && !strings.HasSuffix(tok, "us") {
		return tok[:len(tok)-1]
	}
	return tok
}

var stopwords = func() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at",
		"by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "its", "this", "that",
		"these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such",
		"into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off",
		"own", "same", "too", "very", "can", "will", "just", "should", "now", "we", "our", "you", "your",
		"they", "their", "i", "us", "have", "has", "had", "do", "does", "did", "not", "no",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()
