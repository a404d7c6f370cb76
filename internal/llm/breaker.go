package llm

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"github.com/agenthands/chronicle/internal/config"
)

// BreakerClient wraps an LLMClient and EmbedderClient with a shared circuit
// breaker so a flapping collaborator stops receiving calls instead of
// stalling every ingest and search.
type BreakerClient struct {
	llm      LLMClient
	embedder EmbedderClient
	cb       *gobreaker.CircuitBreaker
}

func NewBreakerClient(llmClient LLMClient, embedderClient EmbedderClient, cfg config.BreakerConfig) *BreakerClient {
	st := gobreaker.Settings{
		Name:        "llm",
		MaxRequests: cfg.MaxRequests,
		Interval:    time.Duration(cfg.Interval) * time.Second,
		Timeout:     time.Duration(cfg.Timeout) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= cfg.ReadyToTripRatio
		},
	}

	return &BreakerClient{
		llm:      llmClient,
		embedder: embedderClient,
		cb:       gobreaker.NewCircuitBreaker(st),
	}
}

func (c *BreakerClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.cb.Execute(func() (interface{}, error) {
		return c.llm.Generate(ctx, prompt)
	})
	if err != nil {
		return "", err
	}
	return resp.(string), nil
}

func (c *BreakerClient) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.cb.Execute(func() (interface{}, error) {
		return c.embedder.Embed(ctx, text)
	})
	if err != nil {
		return nil, err
	}
	return resp.([]float32), nil
}
