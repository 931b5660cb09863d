package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderGemini is Google Gemini cloud API.
	AIProviderGemini AIProvider = "gemini"

	// AIProviderTFIDF is the offline TF-IDF embedder. Embeddings only.
	AIProviderTFIDF AIProvider = "tfidf"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderGemini, AIProviderTFIDF:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic || p == AIProviderGemini
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama || p == AIProviderTFIDF
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderGemini:
		return "Google Gemini (cloud)"
	case AIProviderTFIDF:
		return "TF-IDF (offline)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama and compatible servers).
	BaseURL string

	// APIKey is the API key (for cloud providers).
	APIKey string

	// Dimensions overrides the model's default output size, if supported.
	Dimensions int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderAnthropic {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama and compatible servers).
	BaseURL string

	// APIKey is the API key (for cloud providers).
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() || l.Provider == AIProviderTFIDF {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// CacheBackend selects the index cache implementation.
type CacheBackend string

// Available cache backends.
const (
	// CacheNone disables cross-request index caching.
	CacheNone CacheBackend = "none"

	// CacheMemory is an in-process LRU cache with TTL.
	CacheMemory CacheBackend = "memory"

	// CacheRedis stores index snapshots in Redis with TTL.
	CacheRedis CacheBackend = "redis"

	// CacheSQLite stores index snapshots in the local database with TTL.
	CacheSQLite CacheBackend = "sqlite"
)

// IsValid returns true if the backend is recognised.
func (b CacheBackend) IsValid() bool {
	switch b {
	case CacheNone, CacheMemory, CacheRedis, CacheSQLite:
		return true
	default:
		return false
	}
}

// CacheSettings holds index cache configuration.
type CacheSettings struct {
	// Backend is the cache implementation.
	Backend CacheBackend

	// TTL is how long an index stays cached after being stored.
	TTL time.Duration

	// Capacity is the maximum number of indexes held in memory.
	Capacity int

	// RedisAddr is the Redis server address (host:port).
	RedisAddr string

	// RedisPassword is the Redis password, if any.
	RedisPassword string

	// RedisDB selects the Redis logical database.
	RedisDB int
}

// RetrySettings configures the bounded retry policy for external calls.
type RetrySettings struct {
	// MaxAttempts is the total number of attempts including the first.
	MaxAttempts int

	// InitialBackoff is the delay before the second attempt.
	InitialBackoff time.Duration

	// MaxBackoff caps the delay between attempts.
	MaxBackoff time.Duration

	// Multiplier grows the delay after each attempt.
	Multiplier float64
}

// PipelineConfig holds analysis pipeline configuration.
type PipelineConfig struct {
	// MaxChunkSize is the maximum chunk length in characters.
	MaxChunkSize int

	// MinChunkSize is the minimum length of every non-final chunk.
	MinChunkSize int

	// ChunkOverlap is the number of characters shared by adjacent chunks.
	ChunkOverlap int

	// Processors is the ordered list of chunk processors to run.
	Processors []string

	// EmbedConcurrency bounds concurrent embedding calls.
	EmbedConcurrency int

	// EmbedTimeout bounds a single embedding call.
	EmbedTimeout time.Duration

	// GenerateTimeout bounds a single generation call.
	GenerateTimeout time.Duration

	// EmbedRetry is the retry policy for embedding calls.
	EmbedRetry RetrySettings

	// GenerateRetry is the retry policy for generation calls within a tier.
	GenerateRetry RetrySettings

	// DedupOverlap is the overlap fraction above which two retrieved chunks are duplicates.
	DedupOverlap float64

	// ConfidenceThreshold annotates findings below it as low confidence.
	ConfidenceThreshold float64

	// ReducedConfidenceFactor scales Tier A confidence when no market record is supplied.
	ReducedConfidenceFactor float64

	// ConflictPenalty scales the confidence of contradicting claims.
	ConflictPenalty float64

	// RateLimitPerMinute caps external calls per minute. Zero disables limiting.
	RateLimitPerMinute int
}

// DefaultPipelineConfig returns the default pipeline configuration.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		MaxChunkSize:     1200,
		MinChunkSize:     500,
		ChunkOverlap:     100,
		Processors:       []string{"chunker", "speaker", "section"},
		EmbedConcurrency: 4,
		EmbedTimeout:     30 * time.Second,
		GenerateTimeout:  120 * time.Second,
		EmbedRetry: RetrySettings{
			MaxAttempts:    3,
			InitialBackoff: 200 * time.Millisecond,
			MaxBackoff:     5 * time.Second,
			Multiplier:     2,
		},
		GenerateRetry: RetrySettings{
			MaxAttempts:    2,
			InitialBackoff: 500 * time.Millisecond,
			MaxBackoff:     5 * time.Second,
			Multiplier:     2,
		},
		DedupOverlap:            0.5,
		ConfidenceThreshold:     0.7,
		ReducedConfidenceFactor: 0.8,
		ConflictPenalty:         0.5,
		RateLimitPerMinute:      60,
	}
}

// AppSettings holds all application settings.
type AppSettings struct {
	// Embedding holds embedding provider settings.
	Embedding EmbeddingSettings

	// LLM holds LLM provider settings.
	LLM LLMSettings

	// Cache holds index cache settings.
	Cache CacheSettings

	// Pipeline holds pipeline tuning.
	Pipeline PipelineConfig
}

// DefaultAppSettings returns settings with sensible defaults.
// Embeddings default to the offline TF-IDF provider; the LLM is left
// unconfigured and must be set in the config file or environment.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{Provider: AIProviderTFIDF},
		LLM:       LLMSettings{},
		Cache: CacheSettings{
			Backend:  CacheMemory,
			TTL:      time.Hour,
			Capacity: 16,
		},
		Pipeline: DefaultPipelineConfig(),
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderGemini,
		AIProviderTFIDF,
	}
}

// AllLLMProviders returns providers that support generation.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
		AIProviderGemini,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
		AIProviderGemini: "text-embedding-004",
		AIProviderTFIDF:  "tfidf",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
		AIProviderGemini:    "gemini-2.0-flash",
	}
}
