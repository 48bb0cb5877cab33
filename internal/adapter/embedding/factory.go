package embedding

import (
	"fmt"

	"docindex/config"
	"docindex/internal/port"
)

// New builds the embedder selected by cfg.Provider.
func New(cfg config.EmbeddingConfig) (port.Embedder, error) {
	switch cfg.Provider {
	case config.ProviderOllama:
		return NewOllamaEmbedder(cfg.Model, cfg.BaseURL, cfg.Timeout), nil
	case config.ProviderOpenAI:
		baseURL := cfg.BaseURL
		if baseURL == config.DefaultConfig().Embedding.BaseURL {
			baseURL = ""
		}
		return NewOpenAIEmbedder(cfg.APIKeyEnv, cfg.Model, baseURL, cfg.Timeout)
	case config.ProviderMock:
		return NewMockEmbedder(cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}
