package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/agenthands/chronicle/internal/config"
)

// NewClient builds the LLM and embedder clients for the configured provider.
// The embedder may be nil when the provider has no embedding endpoint.
func NewClient(ctx context.Context, cfg config.LLMConfig) (LLMClient, EmbedderClient, error) {
	provider := strings.ToLower(cfg.Provider)

	switch provider {
	case "openai":
		c := NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.EmbeddingModel, cfg.BaseURL)
		return c, c, nil

	case "gemini":
		c, err := NewGeminiClient(ctx, cfg.APIKey, cfg.Model, cfg.EmbeddingModel)
		if err != nil {
			return nil, nil, err
		}
		return c, c, nil

	case "claude":
		// Claude has no embedding endpoint; callers pair it with another
		// embedder or run without embeddings.
		c := NewClaudeClient(cfg.APIKey, cfg.Model, cfg.BaseURL)
		return c, nil, nil

	case "ollama":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		c, err := NewOllamaClient(cfg.Model, baseURL)
		if err != nil {
			return nil, nil, err
		}
		return c, c, nil

	default:
		return nil, nil, fmt.Errorf("unsupported llm provider: %s", provider)
	}
}
