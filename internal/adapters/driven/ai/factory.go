// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	geminiembed "github.com/custodia-labs/earnings-tldr/internal/adapters/driven/embedding/gemini"
	ollamaembed "github.com/custodia-labs/earnings-tldr/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/earnings-tldr/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/earnings-tldr/internal/adapters/driven/embedding/tfidf"
	anthropicllm "github.com/custodia-labs/earnings-tldr/internal/adapters/driven/llm/anthropic"
	geminillm "github.com/custodia-labs/earnings-tldr/internal/adapters/driven/llm/gemini"
	ollamallm "github.com/custodia-labs/earnings-tldr/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/earnings-tldr/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
	"github.com/custodia-labs/earnings-tldr/internal/core/ports/driven"
	"github.com/custodia-labs/earnings-tldr/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// InitResult contains the result of AI service initialisation.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	LLMService       driven.LLMService
	Warnings         []string // Non-fatal issues that caused fallback.
	FellBack         bool     // True if embeddings fell back to TF-IDF.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.LLMService != nil {
		r.LLMService.Close()
	}
}

// Init creates the services named by settings.
//
// An unreachable embedding provider falls back to the offline TF-IDF
// embedder with a warning, so analysis can still run. An unreachable or
// unconfigured LLM leaves LLMService nil; the analyzer reports
// domain.ErrLLMUnavailable when asked to run.
func Init(settings domain.AppSettings, validate bool) *InitResult {
	result := &InitResult{}

	create := CreateEmbeddingService
	if validate {
		create = CreateAndValidateEmbeddingService
	}
	embedder, err := create(&settings.Embedding)
	switch {
	case err != nil:
		result.Warnings = append(result.Warnings, err.Error())
		fallthrough
	case embedder == nil:
		logger.Debug("Embeddings: falling back to %s", domain.AIProviderTFIDF.Description())
		embedder = tfidf.New()
		result.FellBack = settings.Embedding.Provider != domain.AIProviderTFIDF
	}
	result.EmbeddingService = embedder

	createLLM := CreateLLMService
	if validate {
		createLLM = CreateAndValidateLLMService
	}
	llm, err := createLLM(&settings.LLM)
	if err != nil {
		result.Warnings = append(result.Warnings, err.Error())
	}
	result.LLMService = llm

	return result
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'tldr config show' to check settings",
			domain.ErrEmbeddingUnavailable, err)
	}

	if svc == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'tldr config show' to check settings",
			domain.ErrEmbeddingUnavailable, err)
	}

	return svc, nil
}

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateLLMService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'tldr config show' to check settings",
			domain.ErrLLMUnavailable, err)
	}

	if svc == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'tldr config show' to check settings",
			domain.ErrLLMUnavailable, err)
	}

	return svc, nil
}

// ValidateEmbeddingConfig validates an embedding configuration by creating a service and pinging it.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	return pingOnce(CreateEmbeddingService, settings)
}

// ValidateLLMConfig validates an LLM configuration by creating a service and pinging it.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	return pingOnce(CreateLLMService, settings)
}

// pinger is the part of a service pingOnce needs.
type pinger interface {
	Ping(ctx context.Context) error
	Close() error
}

// pingOnce creates a service, pings it and closes it.
// An unconfigured provider creates nothing and passes.
func pingOnce[S any, T pinger](create func(S) (T, error), settings S) error {
	svc, err := create(settings)
	if err != nil {
		return err
	}
	if any(svc) == nil {
		return nil
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		}), nil

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		})

	case domain.AIProviderGemini:
		return geminiembed.NewEmbeddingService(context.Background(), geminiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		})

	case domain.AIProviderTFIDF:
		return tfidf.New(), nil

	default:
		return nil, fmt.Errorf("%w: embedding provider %s", domain.ErrUnsupportedType, settings.Provider)
	}
}

// CreateLLMService creates the appropriate LLM service based on settings.
// Returns nil if the provider is not configured.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderAnthropic:
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderGemini:
		return geminillm.NewLLMService(context.Background(), geminillm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	default:
		return nil, fmt.Errorf("%w: LLM provider %s", domain.ErrUnsupportedType, settings.Provider)
	}
}
