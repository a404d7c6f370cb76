package llm

import (
	"context"
	"fmt"

	"github.com/XiaoConstantine/dspy-go/pkg/core"
	"github.com/XiaoConstantine/dspy-go/pkg/llms"
)

// OllamaClient talks to a local Ollama instance through dspy-go's
// OpenAI-compatible mode.
type OllamaClient struct {
	llm *llms.OllamaLLM
}

func NewOllamaClient(modelName, baseURL string) (*OllamaClient, error) {
	opts := []llms.OllamaOption{
		llms.WithBaseURL(baseURL),
		llms.WithOpenAIAPI(),
	}

	ollamaLLM, err := llms.NewOllamaLLM(core.ModelID(modelName), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama llm: %w", err)
	}

	return &OllamaClient{llm: ollamaLLM}, nil
}

func (c *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	response, err := c.llm.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	return response.Content, nil
}

func (c *OllamaClient) Embed(ctx context.Context, text string) ([]float32, error) {
	result, err := c.llm.CreateEmbedding(ctx, text)
	if err != nil {
		return nil, err
	}
	return result.Vector, nil
}
