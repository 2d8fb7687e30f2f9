package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/seifer44/lexigraph/internal/app"
	"github.com/seifer44/lexigraph/internal/extract"
	"github.com/seifer44/lexigraph/internal/graph"
	"github.com/seifer44/lexigraph/internal/llm"
	"github.com/seifer44/lexigraph/internal/pipeline"
	"github.com/seifer44/lexigraph/internal/platform/envutil"
	"github.com/seifer44/lexigraph/internal/platform/logger"
	"github.com/seifer44/lexigraph/internal/platform/neo4jdb"
)

func main() {
	log, err := logger.New(os.Getenv("APP_MODE"))
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()

	var (
		configPath = flag.String("config", envutil.String("CONFIG_PATH", ""), "path to config file")
		inputDir   = flag.String("input", "", "input directory override")
		watch      = flag.Bool("watch", false, "keep watching the input directory for new files")
	)
	flag.Parse()

	cfg, err := app.LoadConfig(*configPath, log)
	if err != nil {
		log.Fatal("Failed to load config", "error", err)
	}
	if *inputDir != "" {
		cfg.Pipeline.InputDir = *inputDir
	}
	if *watch {
		cfg.Pipeline.Watch = true
	}
	if cfg.Pipeline.InputDir == "" {
		log.Fatal("No input directory configured (use -input, pipeline.inputDir, or PIPELINE_INPUT_DIR)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	graphClient, err := neo4jdb.New(neo4jdb.Config{
		URI:      cfg.Graph.URI,
		User:     cfg.Graph.User,
		Password: cfg.Graph.Password,
		Database: cfg.Graph.Database,
	}, log)
	if err != nil {
		log.Fatal("Failed to connect to graph database", "error", err)
	}
	defer graphClient.Close(context.Background())

	extractor := extract.NewExtractor(nil, log)

	scorer := buildScorer(ctx, cfg, log)

	var source pipeline.Source
	if cfg.Pipeline.Watch {
		source = pipeline.NewWatchSource(cfg.Pipeline.InputDir, log)
	} else {
		source = pipeline.NewDirSource(cfg.Pipeline.InputDir, log)
	}

	sinks := func(ctx context.Context) (pipeline.WriteSink, error) {
		s := graph.NewSink(graphClient, graph.SinkOptions{
			BatchSize:  cfg.Graph.BatchSize,
			MaxRetries: cfg.Graph.MaxRetries,
		}, log)
		if err := s.Open(ctx); err != nil {
			return nil, err
		}
		return s, nil
	}

	p := pipeline.New(source, extractor, scorer, sinks,
		cfg.Pipeline.Parallelism, cfg.Relation.Cooccur.MinPMI, log)

	if err := p.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error("Ingest failed", "error", err)
		os.Exit(1)
	}
}

// buildScorer wires relation scoring when an LLM endpoint is configured and
// answering. A missing or unreachable endpoint downgrades the run to
// extraction-only rather than failing it.
func buildScorer(ctx context.Context, cfg app.Config, log *logger.Logger) pipeline.RelationScorer {
	if cfg.LLM.Endpoint == "" {
		log.Warn("No LLM endpoint configured, relation scoring disabled")
		return nil
	}

	client := llm.NewClient(llm.Options{
		Endpoint:    cfg.LLM.Endpoint,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
		MaxRetries:  cfg.LLM.MaxRetries,
	}, log)

	if !client.Available(ctx) {
		log.Warn("LLM endpoint unavailable, relation scoring disabled",
			"endpoint", cfg.LLM.Endpoint)
		return nil
	}

	log.Info("Relation scoring enabled",
		"endpoint", cfg.LLM.Endpoint, "model", cfg.LLM.Model)
	return llm.NewScorer(client, cfg.Relation.LLM.PredicateSet, cfg.Relation.LLM.MinConfidence, log)
}
