package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/seifer44/lexigraph/internal/app"
	redisclient "github.com/seifer44/lexigraph/internal/clients/redis"
	"github.com/seifer44/lexigraph/internal/graph"
	"github.com/seifer44/lexigraph/internal/http/handlers"
	"github.com/seifer44/lexigraph/internal/observability"
	"github.com/seifer44/lexigraph/internal/platform/envutil"
	"github.com/seifer44/lexigraph/internal/platform/logger"
	"github.com/seifer44/lexigraph/internal/platform/neo4jdb"
	"github.com/seifer44/lexigraph/internal/server"
)

func main() {
	log, err := logger.New(os.Getenv("APP_MODE"))
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()

	configPath := flag.String("config", envutil.String("CONFIG_PATH", ""), "path to config file")
	flag.Parse()

	cfg, err := app.LoadConfig(*configPath, log)
	if err != nil {
		log.Fatal("Failed to load config", "error", err)
	}

	if stopTracing := observability.InitTracing(context.Background(), log, observability.Config{
		ServiceName: "lexigraph-query",
		Environment: os.Getenv("APP_MODE"),
	}); stopTracing != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = stopTracing(ctx)
		}()
	}

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

	cache, err := redisclient.NewQueryCache(log)
	if err != nil {
		log.Fatal("Failed to connect to redis", "error", err)
	}
	if cache != nil {
		log.Info("Query cache enabled")
		defer cache.Close()
	}

	queries := graph.NewQueryService(graphClient, log)

	router := server.NewRouter(server.Handlers{
		Health:  handlers.NewHealthHandler(),
		Concept: handlers.NewConceptHandler(queries, cache, log),
	})

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("Query API listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Shutdown incomplete", "error", err)
	}
}
