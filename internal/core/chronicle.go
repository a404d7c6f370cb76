package core

import (
	"context"
	"log/slog"

	"github.com/agenthands/chronicle/internal/config"
	"github.com/agenthands/chronicle/internal/core/community"
	"github.com/agenthands/chronicle/internal/core/dedupe"
	"github.com/agenthands/chronicle/internal/core/episodes"
	"github.com/agenthands/chronicle/internal/core/extraction"
	"github.com/agenthands/chronicle/internal/core/facts"
	"github.com/agenthands/chronicle/internal/core/nodes"
	"github.com/agenthands/chronicle/internal/core/retrieval"
	"github.com/agenthands/chronicle/internal/core/summary"
	"github.com/agenthands/chronicle/internal/core/versioning"
	"github.com/agenthands/chronicle/internal/driver"
	"github.com/agenthands/chronicle/internal/llm"
)

// Chronicle wires the stores and services over one graph connection. It owns
// the driver: Close tears the connection down.
type Chronicle struct {
	Driver driver.GraphDriver

	Facts       *facts.Store
	Nodes       *nodes.Registry
	Episodes    *episodes.Ledger
	Versioning  *versioning.Protocol
	Retrieval   *retrieval.Engine
	Communities *community.Service

	Logger *slog.Logger
}

// New assembles a Chronicle from its collaborators. llmClient and embedder
// may be nil; ingestion then skips extraction-dependent enrichment and
// retrieval reports the embedder as unavailable.
func New(d driver.GraphDriver, llmClient llm.LLMClient, embedder llm.EmbedderClient,
	cfg *config.Config, logger *slog.Logger) *Chronicle {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = &config.Config{}
	}

	factStore := facts.NewStore(d, logger)
	registry := nodes.NewRegistry(d, logger)
	extractor := extraction.NewExtractor(llmClient, cfg.Extraction)
	summarizer := summary.NewSummarizer(llmClient, cfg.Summary)

	ledger := episodes.NewLedger(d, factStore, registry, extractor, logger)
	ledger.Embedder = embedder
	if cfg.Ingest.Deduplicate && llmClient != nil {
		ledger.Deduplicator = dedupe.NewDeduplicator(llmClient, cfg.Deduplication)
	}
	if cfg.Ingest.Summarize && llmClient != nil {
		ledger.Summarizer = summarizer
	}

	communities := community.NewService(d, registry, logger)
	if cfg.Ingest.Summarize && llmClient != nil {
		communities.Summarizer = summarizer
	}

	return &Chronicle{
		Driver:      d,
		Facts:       factStore,
		Nodes:       registry,
		Episodes:    ledger,
		Versioning:  versioning.NewProtocol(factStore, embedder, logger),
		Retrieval:   retrieval.NewEngine(d, embedder, logger),
		Communities: communities,
		Logger:      logger,
	}
}

func (c *Chronicle) BuildIndices(ctx context.Context) error {
	return c.Driver.BuildIndices(ctx)
}

func (c *Chronicle) Close(ctx context.Context) error {
	return c.Driver.Close(ctx)
}
