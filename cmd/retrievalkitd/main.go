package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/windlass-ai/retrievalkit/config"
	"github.com/windlass-ai/retrievalkit/nlp"
	embedinmemory "github.com/windlass-ai/retrievalkit/rag/embedding/providers/inmemory"
	vectorinmemory "github.com/windlass-ai/retrievalkit/rag/vectorstore/providers/inmemory"
	"github.com/windlass-ai/retrievalkit/retrieval"
	graphinmemory "github.com/windlass-ai/retrievalkit/retrieval/graphstore/providers/inmemory"
)

func main() {
	configPath := flag.String("config", "", "path to a pipeline config YAML file")
	host := flag.String("host", "localhost", "listen host")
	port := flag.Int("port", 8090, "listen port")
	flag.Parse()

	logger := slog.Default()

	cfg, err := config.LoadPipelineConfig(*configPath)
	if err != nil {
		logger.Error("retrievalkitd.config_load_failed", "error", err)
		os.Exit(1)
	}

	pipeline := buildPipeline(cfg)

	server := NewServer(pipeline, WithAddr(*host, *port), WithServerLogger(logger))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx); err != nil {
		logger.Error("retrievalkitd.server_failed", "error", err)
		os.Exit(1)
	}
}

// buildPipeline wires a pipeline from cfg using in-memory embedder, vector
// store, and graph store providers. Real deployments register a
// production embedding provider and vector/graph store instead; this
// keeps the daemon runnable standalone for local development.
func buildPipeline(cfg *config.PipelineConfig) *retrieval.Pipeline {
	embedder, err := embedinmemory.New(configProviderConfig())
	if err != nil {
		panic(err)
	}
	vectorStage := retrieval.NewVectorRetrieverStage(embedder, vectorinmemory.New(),
		retrieval.VectorOptionsFromConfig(cfg.Vector)...)

	var graphStage *retrieval.GraphRetrieverStage
	if cfg.Graph.Enabled {
		graphStage = retrieval.NewGraphRetrieverStage(graphinmemory.New(), nlp.NewSimpleNER(),
			retrieval.GraphOptionsFromConfig(cfg.Graph)...)
	}

	fusion := retrieval.NewFusionStage(retrieval.FusionOptionsFromConfig(cfg.Fusion)...)

	var diversity *retrieval.DiversityFilterStage
	if cfg.Diversity.Enabled {
		diversity = retrieval.NewDiversityFilterStage(retrieval.DiversityOptionsFromConfig(cfg.Diversity)...)
	}

	return retrieval.NewHybridPipeline(cfg.Name,
		retrieval.HybridStages{Vector: vectorStage, Graph: graphStage},
		fusion, nil, nil, diversity)
}

func configProviderConfig() config.ProviderConfig {
	return config.ProviderConfig{Provider: "inmemory"}
}
