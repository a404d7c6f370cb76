//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/chronicle/internal/config"
	"github.com/agenthands/chronicle/internal/core"
	"github.com/agenthands/chronicle/internal/driver"
	"github.com/agenthands/chronicle/internal/llm"
)

// setup builds a Chronicle against the live stack configured by
// config/config.toml and the environment. Requires a reachable graph engine
// and LLM provider; run with -tags integration.
func setup(t *testing.T) *core.Chronicle {
	t.Helper()
	_ = godotenv.Load("../../.env")

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "../../config/config.toml"
	}
	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)

	if v := os.Getenv("GRAPH_URI"); v != "" {
		cfg.Graph.URI = v
	}
	if v := os.Getenv("GRAPH_PASSWORD"); v != "" {
		cfg.Graph.Password = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}

	d, err := driver.NewFalkorDriver(cfg.Graph.URI, cfg.Graph.User, cfg.Graph.Password)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close(context.Background()) })

	require.NoError(t, d.BuildIndices(context.Background()))

	llmClient, embedder, err := llm.NewClient(context.Background(), cfg.LLM)
	require.NoError(t, err)

	return core.New(d, llmClient, embedder, cfg, nil)
}

func freshGroup(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
