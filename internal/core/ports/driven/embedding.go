// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// EmbeddingService generates vector embeddings from text.
// Chunks and retrieval queries must be embedded by the same service so
// that both live in the same vector space.
//
// Implementations may include:
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Ollama (nomic-embed-text, all-minilm)
//   - Gemini (text-embedding-004)
//   - TF-IDF (offline, corpus-fitted)
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	// Results are in the same order as texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 1536, 3072).
	// Zero means the size is only known after the first call.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// CorpusAware is an optional interface for embedders that must be fitted
// to the document before embedding (e.g. TF-IDF vocabularies).
// The indexer fits once per transcript and uses the returned service for both
// chunks and queries of that transcript.
type CorpusAware interface {
	// Fit returns an embedder fitted to corpus. The receiver is not modified.
	Fit(corpus []string) (EmbeddingService, error)
}
