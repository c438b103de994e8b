// Package main provides the chat API server entrypoint.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/samyotech/catalog-assistant/cmd/chat-api/handlers"
	"github.com/samyotech/catalog-assistant/internal/cache"
	"github.com/samyotech/catalog-assistant/internal/catalog"
	"github.com/samyotech/catalog-assistant/internal/chat"
	"github.com/samyotech/catalog-assistant/internal/config"
	"github.com/samyotech/catalog-assistant/internal/history"
	"github.com/samyotech/catalog-assistant/internal/intent"
	"github.com/samyotech/catalog-assistant/internal/llm"
	"github.com/samyotech/catalog-assistant/internal/observability"
	"github.com/samyotech/catalog-assistant/internal/retrieval"
	"github.com/samyotech/catalog-assistant/internal/store"
	"github.com/samyotech/catalog-assistant/internal/structured"
	"github.com/samyotech/catalog-assistant/internal/synthesis"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if len(os.Args) > 2 && os.Args[1] == "--config" {
		cfgPath = os.Args[2]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: "chat-api",
	})

	logger.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("database", cfg.Mongo.Database).
		Str("vector_store", cfg.VectorStore.Dir).
		Msg("Starting chat API")

	ctx := context.Background()

	recordStore, err := store.NewMongoStore(ctx, store.MongoConfig{
		URI:            cfg.Mongo.URI,
		Database:       cfg.Mongo.Database,
		ConnectTimeout: cfg.Mongo.ConnectTimeout,
		QueryTimeout:   cfg.Mongo.QueryTimeout,
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to connect to record store")
		os.Exit(1)
	}
	defer func() {
		_ = recordStore.Close(context.Background())
	}()

	completer, err := llm.NewCompletionClient(llm.CompletionConfig{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create completion client")
		os.Exit(1)
	}

	embedder, err := llm.NewEmbeddingClient(llm.EmbeddingConfig{
		APIKey:    cfg.LLM.APIKey,
		BaseURL:   cfg.LLM.BaseURL,
		Model:     cfg.LLM.EmbeddingModel,
		Dimension: cfg.VectorStore.Dimension,
		Timeout:   cfg.LLM.Timeout,
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create embedding client")
		os.Exit(1)
	}

	var cacheClient cache.Client
	switch cfg.Cache.Driver {
	case "redis":
		cacheClient, err = cache.NewRedisClient(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			PoolSize: cfg.Cache.Redis.PoolSize,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("Redis unavailable, falling back to memory cache")
			cacheClient = cache.NewMemoryClient(cfg.Cache.MaxEntries)
		}
	default:
		cacheClient = cache.NewMemoryClient(cfg.Cache.MaxEntries)
	}
	defer func() {
		_ = cacheClient.Close()
	}()

	mapping := catalog.DefaultMapping()
	normalizer := catalog.NewNormalizer(mapping)
	recorder := history.NewMongoRecorder(recordStore.Database())

	orchestrator := chat.NewOrchestrator(
		logger,
		intent.NewClassifier(normalizer),
		structured.NewExecutor(logger, recordStore, mapping),
		retrieval.NewPlanner(mapping),
		retrieval.NewDiskProvider(logger, cfg.VectorStore.Dir, embedder),
		retrieval.NewAggregator(logger, cfg.VectorStore.TopK),
		synthesis.NewSynthesizer(logger, embedder, completer, cfg.VectorStore.RerankK),
		recorder,
		cache.NewAnswerCache(cacheClient, logger, cfg.Cache.TTL),
	)

	chatHandler := handlers.NewChatHandler(logger, orchestrator, recorder)
	router := NewRouter(logger, chatHandler, cfg.Server.RequestTimeout)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("HTTP server listening")
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error().Err(err).Msg("Server error")
	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
		if err := srv.Close(); err != nil {
			logger.Error().Err(err).Msg("Forced shutdown failed")
		}
	}

	logger.Info().Msg("Server stopped")
}
