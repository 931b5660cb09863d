package services

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
	"github.com/custodia-labs/earnings-tldr/internal/core/ports/driven"
	"github.com/custodia-labs/earnings-tldr/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider   = "embedding.provider"
	keyEmbedModel      = "embedding.model"
	keyEmbedBaseURL    = "embedding.base_url"
	keyEmbedAPIKey     = "embedding.api_key"
	keyEmbedDimensions = "embedding.dimensions"
	keyLLMProvider     = "llm.provider"
	keyLLMModel        = "llm.model"
	keyLLMBaseURL      = "llm.base_url"
	keyLLMAPIKey       = "llm.api_key"
	keyCacheBackend    = "cache.backend"
	keyCacheTTL        = "cache.ttl"
	keyCacheCapacity   = "cache.capacity"
	keyRedisAddr       = "cache.redis_addr"
	keyRedisPassword   = "cache.redis_password"
	keyRedisDB         = "cache.redis_db"

	keyMaxChunkSize       = "pipeline.max_chunk_size"
	keyMinChunkSize       = "pipeline.min_chunk_size"
	keyChunkOverlap       = "pipeline.chunk_overlap"
	keyProcessors         = "pipeline.processors"
	keyEmbedConcurrency   = "pipeline.embed_concurrency"
	keyEmbedTimeout       = "pipeline.embed_timeout"
	keyGenerateTimeout    = "pipeline.generate_timeout"
	keyDedupOverlap       = "pipeline.dedup_overlap"
	keyConfidence         = "pipeline.confidence_threshold"
	keyReducedConfidence  = "pipeline.reduced_confidence_factor"
	keyConflictPenalty    = "pipeline.conflict_penalty"
	keyRateLimitPerMinute = "pipeline.rate_limit_per_minute"
	keyEmbedRetry         = "pipeline.embed_retry"
	keyGenerateRetry      = "pipeline.generate_retry"
)

const defaultOllamaURL = "http://localhost:11434"

// apiKeyEnv lists the environment variables consulted for each provider's API key.
var apiKeyEnv = map[domain.AIProvider][]string{
	domain.AIProviderOpenAI:    {"OPENAI_API_KEY"},
	domain.AIProviderAnthropic: {"ANTHROPIC_API_KEY"},
	domain.AIProviderGemini:    {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
}

// SettingsService manages application settings.
// Values come from the config store, overlaid by environment variables.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	lookupEnv   func(string) (string, bool)
}

// NewSettingsService creates a new settings service.
// Environment overrides are disabled until SetEnv is called.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// SetEnv sets the environment lookup used for overrides, typically os.LookupEnv.
func (s *SettingsService) SetEnv(lookup func(string) (string, bool)) {
	s.lookupEnv = lookup
}

// Get retrieves current application settings, including environment overrides.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	return s.load(true), nil
}

// load reads settings from the config store. Set* methods load without the
// environment so that env-provided keys are never written back to disk.
func (s *SettingsService) load(withEnv bool) *domain.AppSettings {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider:   s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:      s.configStore.GetString(keyEmbedModel),
			BaseURL:    s.configStore.GetString(keyEmbedBaseURL),
			APIKey:     s.configStore.GetString(keyEmbedAPIKey),
			Dimensions: s.configStore.GetInt(keyEmbedDimensions),
		},
		LLM: domain.LLMSettings{
			Provider: s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			Model:    s.configStore.GetString(keyLLMModel),
			BaseURL:  s.configStore.GetString(keyLLMBaseURL),
			APIKey:   s.configStore.GetString(keyLLMAPIKey),
		},
		Cache: domain.CacheSettings{
			Backend:       s.getCacheBackend(defaults.Cache.Backend),
			TTL:           s.getDuration(keyCacheTTL, defaults.Cache.TTL),
			Capacity:      s.getInt(keyCacheCapacity, defaults.Cache.Capacity),
			RedisAddr:     s.configStore.GetString(keyRedisAddr),
			RedisPassword: s.configStore.GetString(keyRedisPassword),
			RedisDB:       s.configStore.GetInt(keyRedisDB),
		},
		Pipeline: s.GetPipelineConfig(),
	}

	if withEnv {
		s.applyEnv(settings)
	}
	fillProviderDefaults(&settings.Embedding.Model, &settings.Embedding.BaseURL,
		settings.Embedding.Provider, domain.DefaultEmbeddingModels())
	fillProviderDefaults(&settings.LLM.Model, &settings.LLM.BaseURL,
		settings.LLM.Provider, domain.DefaultLLMModels())

	return settings
}

// Save persists application settings.
// Secrets are only written when set.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedDimensions, settings.Embedding.Dimensions},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyCacheBackend, string(settings.Cache.Backend)},
		{keyCacheTTL, settings.Cache.TTL.String()},
		{keyCacheCapacity, settings.Cache.Capacity},
		{keyRedisAddr, settings.Cache.RedisAddr},
		{keyRedisDB, settings.Cache.RedisDB},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	secrets := map[string]string{
		keyEmbedAPIKey:   settings.Embedding.APIKey,
		keyLLMAPIKey:     settings.LLM.APIKey,
		keyRedisPassword: settings.Cache.RedisPassword,
	}
	for key, value := range secrets {
		if value == "" {
			continue
		}
		if err := s.configStore.Set(key, value); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
	}

	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid embedding provider: %s", domain.ErrInvalidInput, provider)
	}
	if !slices.Contains(domain.AllEmbeddingProviders(), provider) {
		return fmt.Errorf("%w: provider %s does not support embeddings", domain.ErrInvalidInput, provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" && s.envAPIKey(provider) == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}

	settings := s.load(false)
	settings.Embedding = domain.EmbeddingSettings{
		Provider: provider,
		Model:    model,
		APIKey:   apiKey,
	}
	fillProviderDefaults(&settings.Embedding.Model, &settings.Embedding.BaseURL,
		provider, domain.DefaultEmbeddingModels())

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid LLM provider: %s", domain.ErrInvalidInput, provider)
	}
	if !slices.Contains(domain.AllLLMProviders(), provider) {
		return fmt.Errorf("%w: provider %s does not support generation", domain.ErrInvalidInput, provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" && s.envAPIKey(provider) == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}

	settings := s.load(false)
	settings.LLM = domain.LLMSettings{
		Provider: provider,
		Model:    model,
		APIKey:   apiKey,
	}
	fillProviderDefaults(&settings.LLM.Model, &settings.LLM.BaseURL,
		provider, domain.DefaultLLMModels())

	return s.Save(settings)
}

// Set stores a single raw config value by key.
// Durations and numbers are accepted as strings and checked by Validate.
func (s *SettingsService) Set(key string, value any) error {
	if key == "" {
		return fmt.Errorf("%w: empty config key", domain.ErrInvalidInput)
	}
	return s.configStore.Set(key, value)
}

// Validate checks that current settings can run an analysis.
// All problems are reported together.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	var errs []error
	if !settings.Embedding.IsConfigured() {
		errs = append(errs, fmt.Errorf("embedding provider %q is not configured", settings.Embedding.Provider))
	}
	if !settings.LLM.IsConfigured() {
		errs = append(errs, fmt.Errorf("llm provider %q is not configured", settings.LLM.Provider))
	}
	if !settings.Cache.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("unknown cache backend %q", settings.Cache.Backend))
	}
	if settings.Cache.Backend == domain.CacheRedis && settings.Cache.RedisAddr == "" {
		errs = append(errs, errors.New("cache backend redis requires cache.redis_addr"))
	}
	if err := ValidatePipelineConfig(settings.Pipeline); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, errors.Join(errs...))
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// GetPipelineConfig returns the pipeline configuration.
// Unset or malformed keys keep their defaults.
func (s *SettingsService) GetPipelineConfig() domain.PipelineConfig {
	cfg := domain.DefaultPipelineConfig()

	cfg.MaxChunkSize = s.getInt(keyMaxChunkSize, cfg.MaxChunkSize)
	cfg.MinChunkSize = s.getInt(keyMinChunkSize, cfg.MinChunkSize)
	cfg.ChunkOverlap = s.getInt(keyChunkOverlap, cfg.ChunkOverlap)
	if processors := s.configStore.GetStringSlice(keyProcessors); len(processors) > 0 {
		cfg.Processors = processors
	}
	cfg.EmbedConcurrency = s.getInt(keyEmbedConcurrency, cfg.EmbedConcurrency)
	cfg.EmbedTimeout = s.getDuration(keyEmbedTimeout, cfg.EmbedTimeout)
	cfg.GenerateTimeout = s.getDuration(keyGenerateTimeout, cfg.GenerateTimeout)
	cfg.EmbedRetry = s.getRetry(keyEmbedRetry, cfg.EmbedRetry)
	cfg.GenerateRetry = s.getRetry(keyGenerateRetry, cfg.GenerateRetry)
	cfg.DedupOverlap = s.getFloat(keyDedupOverlap, cfg.DedupOverlap)
	cfg.ConfidenceThreshold = s.getFloat(keyConfidence, cfg.ConfidenceThreshold)
	cfg.ReducedConfidenceFactor = s.getFloat(keyReducedConfidence, cfg.ReducedConfidenceFactor)
	cfg.ConflictPenalty = s.getFloat(keyConflictPenalty, cfg.ConflictPenalty)
	if _, ok := s.configStore.Get(keyRateLimitPerMinute); ok {
		cfg.RateLimitPerMinute = s.configStore.GetInt(keyRateLimitPerMinute)
	}

	return cfg
}

// ValidatePipelineConfig checks pipeline bounds that would otherwise fail deep in a run.
func ValidatePipelineConfig(cfg domain.PipelineConfig) error {
	var errs []error
	if cfg.MaxChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("max_chunk_size must be positive, got %d", cfg.MaxChunkSize))
	}
	if cfg.MinChunkSize < 0 || cfg.MinChunkSize > cfg.MaxChunkSize {
		errs = append(errs, fmt.Errorf("min_chunk_size must be in [0, %d], got %d", cfg.MaxChunkSize, cfg.MinChunkSize))
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.MaxChunkSize {
		errs = append(errs, fmt.Errorf("chunk_overlap must be in [0, %d), got %d", cfg.MaxChunkSize, cfg.ChunkOverlap))
	}
	if cfg.EmbedConcurrency < 1 {
		errs = append(errs, fmt.Errorf("embed_concurrency must be at least 1, got %d", cfg.EmbedConcurrency))
	}
	if cfg.DedupOverlap <= 0 || cfg.DedupOverlap > 1 {
		errs = append(errs, fmt.Errorf("dedup_overlap must be in (0, 1], got %g", cfg.DedupOverlap))
	}
	for name, v := range map[string]float64{
		"confidence_threshold":      cfg.ConfidenceThreshold,
		"reduced_confidence_factor": cfg.ReducedConfidenceFactor,
		"conflict_penalty":          cfg.ConflictPenalty,
	} {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("%s must be in [0, 1], got %g", name, v))
		}
	}
	if cfg.RateLimitPerMinute < 0 {
		errs = append(errs, fmt.Errorf("rate_limit_per_minute must not be negative, got %d", cfg.RateLimitPerMinute))
	}
	return errors.Join(errs...)
}

// applyEnv overlays TLDR_* variables and provider API keys.
func (s *SettingsService) applyEnv(settings *domain.AppSettings) {
	if s.lookupEnv == nil {
		return
	}

	if v := s.env("TLDR_EMBEDDING_PROVIDER"); v != "" && domain.AIProvider(v).IsValid() {
		settings.Embedding.Provider = domain.AIProvider(v)
	}
	if v := s.env("TLDR_EMBEDDING_MODEL"); v != "" {
		settings.Embedding.Model = v
	}
	if v := s.env("TLDR_LLM_PROVIDER"); v != "" && domain.AIProvider(v).IsValid() {
		settings.LLM.Provider = domain.AIProvider(v)
	}
	if v := s.env("TLDR_LLM_MODEL"); v != "" {
		settings.LLM.Model = v
	}
	if v := s.env("TLDR_CACHE_BACKEND"); v != "" && domain.CacheBackend(v).IsValid() {
		settings.Cache.Backend = domain.CacheBackend(v)
	}
	if v := s.env("TLDR_REDIS_ADDR"); v != "" {
		settings.Cache.RedisAddr = v
	}
	if v := s.env("OLLAMA_HOST"); v != "" {
		if settings.Embedding.Provider == domain.AIProviderOllama && settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = v
		}
		if settings.LLM.Provider == domain.AIProviderOllama && settings.LLM.BaseURL == "" {
			settings.LLM.BaseURL = v
		}
	}

	if settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = s.envAPIKey(settings.Embedding.Provider)
	}
	if settings.LLM.APIKey == "" {
		settings.LLM.APIKey = s.envAPIKey(settings.LLM.Provider)
	}
}

func (s *SettingsService) env(key string) string {
	if s.lookupEnv == nil {
		return ""
	}
	v, _ := s.lookupEnv(key)
	return strings.TrimSpace(v)
}

func (s *SettingsService) envAPIKey(provider domain.AIProvider) string {
	for _, key := range apiKeyEnv[provider] {
		if v := s.env(key); v != "" {
			return v
		}
	}
	return ""
}

// fillProviderDefaults sets the default model and the local base URL when unset.
func fillProviderDefaults(model, baseURL *string, provider domain.AIProvider, models map[domain.AIProvider]string) {
	if *model == "" {
		*model = models[provider]
	}
	if provider == domain.AIProviderOllama && *baseURL == "" {
		*baseURL = defaultOllamaURL
	}
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	val, exists := s.configStore.Get(key)
	if !exists {
		return defaultVal
	}
	switch v := val.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return defaultVal
	}
}

// getDuration reads a duration string like "45s" or "1h".
func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	str := s.configStore.GetString(key)
	if str == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(str)
	if err != nil {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getRetry(prefix string, defaults domain.RetrySettings) domain.RetrySettings {
	return domain.RetrySettings{
		MaxAttempts:    s.getInt(prefix+".max_attempts", defaults.MaxAttempts),
		InitialBackoff: s.getDuration(prefix+".initial_backoff", defaults.InitialBackoff),
		MaxBackoff:     s.getDuration(prefix+".max_backoff", defaults.MaxBackoff),
		Multiplier:     s.getFloat(prefix+".multiplier", defaults.Multiplier),
	}
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	provider := domain.AIProvider(s.configStore.GetString(key))
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getCacheBackend(defaultVal domain.CacheBackend) domain.CacheBackend {
	backend := domain.CacheBackend(s.configStore.GetString(keyCacheBackend))
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}
