package ai

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

func TestInitResult_Close(t *testing.T) {
	t.Run("close with nil services", func(t *testing.T) {
		result := &InitResult{}
		// Should not panic
		result.Close()
	})
}

func TestCreateEmbeddingService(t *testing.T) {
	tests := []struct {
		name      string
		settings  *domain.EmbeddingSettings
		wantNil   bool
		wantErr   bool
		wantModel string
		wantDims  int
	}{
		{
			name:     "nil settings returns nil",
			settings: nil,
			wantNil:  true,
		},
		{
			name:     "unconfigured settings returns nil",
			settings: &domain.EmbeddingSettings{},
			wantNil:  true,
		},
		{
			name: "ollama provider creates service without key",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOllama,
			},
			wantModel: "nomic-embed-text",
			wantDims:  768,
		},
		{
			name: "openai provider creates service",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOpenAI,
				APIKey:   "test-key",
				Model:    "text-embedding-3-large",
			},
			wantModel: "text-embedding-3-large",
			wantDims:  3072,
		},
		{
			name: "explicit dimensions win",
			settings: &domain.EmbeddingSettings{
				Provider:   domain.AIProviderOpenAI,
				APIKey:     "test-key",
				Dimensions: 256,
			},
			wantModel: "text-embedding-3-small",
			wantDims:  256,
		},
		{
			name: "openai without key is not configured",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOpenAI,
			},
			wantNil: true,
		},
		{
			name: "unknown provider returns nil",
			settings: &domain.EmbeddingSettings{
				Provider: "unknown",
				APIKey:   "test-key",
			},
			wantNil: true,
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
			if tt.wantNil {
				assert.Nil(t, svc)
				return
			}
			require.NotNil(t, svc)
			assert.Equal(t, tt.wantModel, svc.ModelName())
			assert.Equal(t, tt.wantDims, svc.Dimensions())
		})
	}
}

func TestCreateLLMService(t *testing.T) {
	svc, err := CreateLLMService(&domain.LLMSettings{Provider: domain.AIProviderOllama})
	require.NoError(t, err)
	require.NotNil(t, svc)
	assert.Equal(t, "llama3.2", svc.ModelName())

	svc, err = CreateLLMService(&domain.LLMSettings{Provider: domain.AIProviderOpenAI, APIKey: "k", Model: "gpt-4o"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", svc.ModelName())

	svc, err = CreateLLMService(&domain.LLMSettings{})
	require.NoError(t, err)
	assert.Nil(t, svc)
}

func TestInitialise(t *testing.T) {
	settings := domain.DefaultAppSettings()
	settings.Embedding.Provider = domain.AIProviderOllama

	result := Initialise(&settings)
	defer result.Close()

	assert.NotNil(t, result.EmbeddingService)
	assert.Nil(t, result.LLMService)
	assert.Equal(t, []string{"LLM provider not configured"}, result.Warnings)
}

func newModelsServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status == http.StatusOK {
			_, _ = w.Write([]byte(`{"object":"list","data":[]}`))
			return
		}
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key","type":"auth"}}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCreateAndValidateEmbeddingService(t *testing.T) {
	ok := newModelsServer(t, http.StatusOK)
	svc, err := CreateAndValidateEmbeddingService(&domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  ok.URL + "/v1",
	})
	require.NoError(t, err)
	require.NotNil(t, svc)

	bad := newModelsServer(t, http.StatusUnauthorized)
	svc, err = CreateAndValidateEmbeddingService(&domain.EmbeddingSettings{
		Provider: domain.AIProviderOpenAI,
		APIKey:   "wrong",
		BaseURL:  bad.URL + "/v1",
	})
	assert.Nil(t, svc)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Contains(t, err.Error(), "docchat settings embedding")
}

func TestCreateAndValidateLLMService(t *testing.T) {
	bad := newModelsServer(t, http.StatusUnauthorized)
	svc, err := CreateAndValidateLLMService(&domain.LLMSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  bad.URL + "/v1",
	})
	assert.Nil(t, svc)
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)

	svc, err = CreateAndValidateLLMService(nil)
	assert.NoError(t, err)
	assert.Nil(t, svc)
}

func TestValidateConfig(t *testing.T) {
	ok := newModelsServer(t, http.StatusOK)

	assert.NoError(t, ValidateEmbeddingConfig(&domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  ok.URL + "/v1",
	}))
	assert.NoError(t, ValidateLLMConfig(&domain.LLMSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  ok.URL + "/v1",
	}))
}
