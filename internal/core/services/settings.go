package services

import (
	"fmt"
	"os"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyChunkSize        = "chunking.size"
	keyChunkOverlap     = "chunking.overlap"
	keyTopK             = "retrieval.top_k"
	keyMultiplier       = "retrieval.candidate_multiplier"
	keyEmbedProvider    = "embedding.provider"
	keyEmbedModel       = "embedding.model"
	keyEmbedBaseURL     = "embedding.base_url"
	keyEmbedAPIKey      = "embedding.api_key"
	keyEmbedDims        = "embedding.dimensions"
	keyEmbedBatchSize   = "embedding.batch_size"
	keyEmbedConcurrency = "embedding.concurrency"
	keyEmbedRPS         = "embedding.requests_per_second"
	keyLLMProvider      = "llm.provider"
	keyLLMModel         = "llm.model"
	keyLLMBaseURL       = "llm.base_url"
	keyLLMAPIKey        = "llm.api_key"
	keyLLMTemperature   = "llm.temperature"
	keyLLMMaxTokens     = "llm.max_tokens"
	keyTimeoutEmbedding = "timeouts.embedding"
	keyTimeoutLLM       = "timeouts.llm"
	keyServerAddr       = "server.addr"
)

// Environment variables that override stored API keys.
//
//nolint:gosec // G101: variable names, not credentials.
const (
	EnvEmbeddingAPIKey = "DOCCHAT_EMBEDDING_API_KEY"
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	EnvLLMAPIKey       = "DOCCHAT_LLM_API_KEY"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	lookupEnv   func(string) (string, bool)
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		lookupEnv:   os.LookupEnv,
	}
}

// Get retrieves current application settings.
// API keys from the environment take precedence over stored keys.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Chunking: domain.ChunkingSettings{
			Size:    s.getInt(keyChunkSize, defaults.Chunking.Size),
			Overlap: s.getIntAllowZero(keyChunkOverlap, defaults.Chunking.Overlap),
		},
		Retrieval: domain.RetrievalSettings{
			TopK:                s.getInt(keyTopK, defaults.Retrieval.TopK),
			CandidateMultiplier: s.getInt(keyMultiplier, defaults.Retrieval.CandidateMultiplier),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:          s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:             s.configStore.GetString(keyEmbedModel),
			BaseURL:           s.configStore.GetString(keyEmbedBaseURL),
			APIKey:            s.apiKey(keyEmbedAPIKey, EnvEmbeddingAPIKey, EnvOpenAIAPIKey),
			Dimensions:        s.configStore.GetInt(keyEmbedDims),
			BatchSize:         s.getInt(keyEmbedBatchSize, defaults.Embedding.BatchSize),
			Concurrency:       s.getInt(keyEmbedConcurrency, defaults.Embedding.Concurrency),
			RequestsPerSecond: s.configStore.GetFloat(keyEmbedRPS),
		},
		LLM: domain.LLMSettings{
			Provider:    s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			Model:       s.configStore.GetString(keyLLMModel),
			BaseURL:     s.configStore.GetString(keyLLMBaseURL),
			APIKey:      s.apiKey(keyLLMAPIKey, EnvLLMAPIKey, EnvOpenAIAPIKey),
			Temperature: s.getFloatAllowZero(keyLLMTemperature, defaults.LLM.Temperature),
			MaxTokens:   s.configStore.GetInt(keyLLMMaxTokens),
		},
		Timeouts: domain.TimeoutSettings{
			Embedding: s.getDuration(keyTimeoutEmbedding, defaults.Timeouts.Embedding),
			LLM:       s.getDuration(keyTimeoutLLM, defaults.Timeouts.LLM),
		},
		Server: domain.ServerSettings{
			Addr: s.getString(keyServerAddr, defaults.Server.Addr),
		},
	}

	if settings.Embedding.Model == "" {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[settings.Embedding.Provider]
	}
	if settings.LLM.Model == "" {
		settings.LLM.Model = domain.DefaultLLMModels()[settings.LLM.Provider]
	}

	return settings, nil
}

// Save persists application settings.
// API keys are written only when set and not supplied by the environment.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if err := settings.Chunking.Validate(); err != nil {
		return fmt.Errorf("%w: chunk overlap must be below chunk size", err)
	}

	values := []struct {
		key   string
		value any
	}{
		{keyChunkSize, settings.Chunking.Size},
		{keyChunkOverlap, settings.Chunking.Overlap},
		{keyTopK, settings.Retrieval.TopK},
		{keyMultiplier, settings.Retrieval.CandidateMultiplier},
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedDims, settings.Embedding.Dimensions},
		{keyEmbedBatchSize, settings.Embedding.BatchSize},
		{keyEmbedConcurrency, settings.Embedding.Concurrency},
		{keyEmbedRPS, settings.Embedding.RequestsPerSecond},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyLLMTemperature, settings.LLM.Temperature},
		{keyLLMMaxTokens, settings.LLM.MaxTokens},
		{keyTimeoutEmbedding, settings.Timeouts.Embedding.String()},
		{keyTimeoutLLM, settings.Timeouts.LLM.String()},
		{keyServerAddr, settings.Server.Addr},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	if k := settings.Embedding.APIKey; k != "" && !s.fromEnv(k, EnvEmbeddingAPIKey, EnvOpenAIAPIKey) {
		if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save embedding api_key: %w", err)
		}
	}
	if k := settings.LLM.APIKey; k != "" && !s.fromEnv(k, EnvLLMAPIKey, EnvOpenAIAPIKey) {
		if err := s.configStore.Set(keyLLMAPIKey, settings.LLM.APIKey); err != nil {
			return fmt.Errorf("save llm api_key: %w", err)
		}
	}

	return s.configStore.Save()
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid embedding provider: %s", domain.ErrInvalidInput, provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	settings.Embedding.Model = model
	if model == "" {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[provider]
	}
	settings.Embedding.BaseURL = provider.DefaultBaseURL()
	settings.Embedding.APIKey = apiKey
	settings.Embedding.Dimensions = domain.EmbeddingDimensions()[settings.Embedding.Model]

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid LLM provider: %s", domain.ErrInvalidInput, provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider
	settings.LLM.Model = model
	if model == "" {
		settings.LLM.Model = domain.DefaultLLMModels()[provider]
	}
	settings.LLM.BaseURL = provider.DefaultBaseURL()
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// SetChunking updates chunk size and overlap.
// Already ingested documents keep their chunks.
func (s *SettingsService) SetChunking(size, overlap int) error {
	next := domain.ChunkingSettings{Size: size, Overlap: overlap}
	if err := next.Validate(); err != nil {
		return fmt.Errorf("%w: need size > 0 and 0 <= overlap < size, got %d/%d", err, size, overlap)
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	settings.Chunking = next
	return s.Save(settings)
}

// SetRetrieval updates top-k and the candidate multiplier.
func (s *SettingsService) SetRetrieval(topK, multiplier int) error {
	if topK < 1 || multiplier < 1 {
		return fmt.Errorf("%w: top_k and candidate_multiplier must be at least 1", domain.ErrInvalidInput)
	}
	if topK > domain.MaxTopK {
		return fmt.Errorf("%w: top_k must be at most %d", domain.ErrInvalidInput, domain.MaxTopK)
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	settings.Retrieval = domain.RetrievalSettings{TopK: topK, CandidateMultiplier: multiplier}
	return s.Save(settings)
}

// Validate checks that both AI providers are configured.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("%w: run `docchat settings embedding`", domain.ErrEmbeddingUnavailable)
	}
	if !settings.LLM.IsConfigured() {
		return fmt.Errorf("%w: run `docchat settings llm`", domain.ErrLLMUnavailable)
	}
	return settings.Chunking.Validate()
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

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getIntAllowZero(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloatAllowZero(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	if d := s.configStore.GetDuration(key); d > 0 {
		return d
	}
	return defaultVal
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	provider := domain.AIProvider(s.configStore.GetString(key))
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

// apiKey returns the first non-empty environment variable, else the stored key.
func (s *SettingsService) apiKey(key string, envVars ...string) string {
	for _, name := range envVars {
		if v, ok := s.lookupEnv(name); ok && v != "" {
			return v
		}
	}
	return s.configStore.GetString(key)
}

// fromEnv reports whether value is the one an environment variable supplies.
func (s *SettingsService) fromEnv(value string, envVars ...string) bool {
	for _, name := range envVars {
		if v, ok := s.lookupEnv(name); ok && v == value {
			return true
		}
	}
	return false
}
