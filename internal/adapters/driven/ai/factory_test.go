package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/earnings-tldr/internal/adapters/driven/embedding/tfidf"
	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
	"github.com/custodia-labs/earnings-tldr/internal/core/ports/driven"
)

func TestInitResult_Close(t *testing.T) {
	t.Run("close with nil services", func(t *testing.T) {
		result := &InitResult{}
		result.Close()
	})

	t.Run("close with services", func(t *testing.T) {
		result := &InitResult{EmbeddingService: tfidf.New()}
		result.Close()
	})
}

func TestCreateEmbeddingService(t *testing.T) {
	tests := []struct {
		name      string
		settings  *domain.EmbeddingSettings
		wantModel string
		wantErr   bool
	}{
		{name: "nil settings returns nil", settings: nil},
		{name: "unconfigured settings returns nil", settings: &domain.EmbeddingSettings{}},
		{
			name:     "anthropic has no embeddings",
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderAnthropic, APIKey: "k"},
		},
		{
			name:     "cloud provider without key is not configured",
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI},
		},
		{
			name:      "ollama",
			settings:  &domain.EmbeddingSettings{Provider: domain.AIProviderOllama, Model: "nomic-embed-text"},
			wantModel: "nomic-embed-text",
		},
		{
			name:      "openai",
			settings:  &domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI, APIKey: "k", Model: "text-embedding-3-large"},
			wantModel: "text-embedding-3-large",
		},
		{
			name:      "tfidf",
			settings:  &domain.EmbeddingSettings{Provider: domain.AIProviderTFIDF},
			wantModel: tfidf.ModelName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateEmbeddingService(tt.settings)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.wantModel == "" {
				assert.Nil(t, svc)
				return
			}
			require.NotNil(t, svc)
			defer svc.Close()
			assert.Equal(t, tt.wantModel, svc.ModelName())
		})
	}
}

func TestCreateLLMService(t *testing.T) {
	tests := []struct {
		name      string
		settings  *domain.LLMSettings
		wantModel string
	}{
		{name: "nil settings returns nil", settings: nil},
		{name: "unconfigured settings returns nil", settings: &domain.LLMSettings{}},
		{name: "tfidf cannot generate", settings: &domain.LLMSettings{Provider: domain.AIProviderTFIDF}},
		{name: "unknown provider", settings: &domain.LLMSettings{Provider: "unknown", APIKey: "k"}},
		{
			name:      "ollama",
			settings:  &domain.LLMSettings{Provider: domain.AIProviderOllama, Model: "llama3.2"},
			wantModel: "llama3.2",
		},
		{
			name:      "openai",
			settings:  &domain.LLMSettings{Provider: domain.AIProviderOpenAI, APIKey: "k", Model: "gpt-4o-mini"},
			wantModel: "gpt-4o-mini",
		},
		{
			name:      "anthropic",
			settings:  &domain.LLMSettings{Provider: domain.AIProviderAnthropic, APIKey: "k"},
			wantModel: "claude-3-5-sonnet-latest",
		},
		{
			name:      "gemini",
			settings:  &domain.LLMSettings{Provider: domain.AIProviderGemini, APIKey: "k"},
			wantModel: "gemini-2.0-flash",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateLLMService(tt.settings)
			require.NoError(t, err)
			if tt.wantModel == "" {
				assert.Nil(t, svc)
				return
			}
			require.NotNil(t, svc)
			defer svc.Close()
			assert.Equal(t, tt.wantModel, svc.ModelName())
		})
	}
}

func TestCreateAndValidateLLMService_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	svc, err := CreateAndValidateLLMService(&domain.LLMSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  srv.URL,
	})
	assert.Nil(t, svc)
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestCreateAndValidateEmbeddingService_Reachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	defer srv.Close()

	svc, err := CreateAndValidateEmbeddingService(&domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  srv.URL,
	})
	require.NoError(t, err)
	require.NotNil(t, svc)
	svc.Close()
}

func TestValidateConfig_Unconfigured(t *testing.T) {
	assert.NoError(t, ValidateEmbeddingConfig(nil))
	assert.NoError(t, ValidateEmbeddingConfig(&domain.EmbeddingSettings{}))
	assert.NoError(t, ValidateLLMConfig(nil))
	assert.NoError(t, ValidateLLMConfig(&domain.LLMSettings{Provider: "unknown"}))
}

func TestInit_FallsBackToTFIDF(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	settings := domain.DefaultAppSettings()
	settings.Embedding = domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: srv.URL}

	result := Init(settings, true)
	defer result.Close()

	assert.True(t, result.FellBack)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], domain.ErrEmbeddingUnavailable.Error())
	_, ok := result.EmbeddingService.(driven.CorpusAware)
	assert.True(t, ok, "fallback embedder must be corpus-aware")
	assert.Nil(t, result.LLMService, "no LLM configured by default")
}

func TestInit_DefaultsWithoutValidation(t *testing.T) {
	settings := domain.DefaultAppSettings()
	settings.LLM = domain.LLMSettings{Provider: domain.AIProviderOllama}

	result := Init(settings, false)
	defer result.Close()

	assert.False(t, result.FellBack)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, tfidf.ModelName, result.EmbeddingService.ModelName())
	require.NotNil(t, result.LLMService)
	assert.NoError(t, result.EmbeddingService.Ping(context.Background()))
}
