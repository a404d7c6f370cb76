package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/agenthands/chronicle/internal/config"
	"github.com/agenthands/chronicle/internal/core"
	"github.com/agenthands/chronicle/internal/driver"
	"github.com/agenthands/chronicle/internal/llm"
	"github.com/agenthands/chronicle/internal/server"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, using environment as-is")
	}

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.toml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Error("failed to load configuration", "path", cfgPath, "error", err)
		os.Exit(1)
	}
	applyEnvOverrides(cfg)

	ctx := context.Background()

	d, err := driver.NewFalkorDriver(cfg.Graph.URI, cfg.Graph.User, cfg.Graph.Password)
	if err != nil {
		logger.Error("failed to connect to graph engine", "uri", cfg.Graph.URI, "error", err)
		os.Exit(1)
	}
	defer d.Close(ctx)

	if err := d.BuildIndices(ctx); err != nil {
		logger.Warn("index bootstrap failed", "error", err)
	}

	llmClient, embedderClient, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		logger.Error("failed to initialize llm client", "provider", cfg.LLM.Provider, "error", err)
		os.Exit(1)
	}
	if cfg.Breaker.Enabled {
		breaker := llm.NewBreakerClient(llmClient, embedderClient, cfg.Breaker)
		llmClient = breaker
		if embedderClient != nil {
			embedderClient = breaker
		}
	}

	chronicle := core.New(d, llmClient, embedderClient, cfg, logger)
	srv := server.NewServer(chronicle, cfg, logger)

	logger.Info("starting server", "port", cfg.Server.Port, "graph_uri", cfg.Graph.URI)
	if err := srv.Run(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func applyEnvOverrides(cfg *config.Config) {
	if v := os.Getenv("GRAPH_URI"); v != "" {
		cfg.Graph.URI = v
	}
	if v := os.Getenv("GRAPH_USER"); v != "" {
		cfg.Graph.User = v
	}
	if v := os.Getenv("GRAPH_PASSWORD"); v != "" {
		cfg.Graph.Password = v
	}
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("LLM_EMBEDDING_MODEL"); v != "" {
		cfg.LLM.EmbeddingModel = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
}
