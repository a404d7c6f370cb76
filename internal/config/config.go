package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

type LLMConfig struct {
	Provider       string `toml:"provider"`
	Model          string `toml:"model"`
	EmbeddingModel string `toml:"embedding_model"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
}

type GraphConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

type ServerConfig struct {
	Port string `toml:"port"`
	Mode string `toml:"mode"` // gin mode: debug or release
}

type BreakerConfig struct {
	Enabled          bool    `toml:"enabled"`
	MaxRequests      uint32  `toml:"max_requests"`
	Interval         int     `toml:"interval"` // seconds
	Timeout          int     `toml:"timeout"`  // seconds
	ReadyToTripRatio float64 `toml:"ready_to_trip_ratio"`
}

type ExtractionPrompts struct {
	Entities string `toml:"entities"`
	Facts    string `toml:"facts"`
}

type DeduplicationPrompts struct {
	Nodes string `toml:"nodes"`
	Facts string `toml:"facts"`
}

type SummaryPrompts struct {
	Nodes       string `toml:"nodes"`
	Communities string `toml:"communities"`
}

type IngestConfig struct {
	Deduplicate bool `toml:"deduplicate"`
	Summarize   bool `toml:"summarize"`
}

type Config struct {
	LLM           LLMConfig            `toml:"llm"`
	Graph         GraphConfig          `toml:"graph"`
	Server        ServerConfig         `toml:"server"`
	Breaker       BreakerConfig        `toml:"breaker"`
	Extraction    ExtractionPrompts    `toml:"extraction"`
	Deduplication DeduplicationPrompts `toml:"deduplication"`
	Summary       SummaryPrompts       `toml:"summary"`
	Ingest        IngestConfig         `toml:"ingest"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	return &cfg, nil
}
