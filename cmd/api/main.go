// Package main implements the contract engine API server: ingestion,
// raw semantic search, and grounded question answering over the
// contract vector index.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rentora/rentora-engine/engine/ingest"
	"github.com/rentora/rentora-engine/engine/rag"
	"github.com/rentora/rentora-engine/engine/semantic"
	"github.com/rentora/rentora-engine/pkg/metrics"
	"github.com/rentora/rentora-engine/pkg/mid"
	"github.com/rentora/rentora-engine/pkg/openai"
)

// Config holds all environment-based configuration.
type Config struct {
	Port          string
	QdrantURL     string
	Collection    string
	OpenAIBaseURL string
	OpenAIKey     string
	EmbedModel    string
	ChatModel     string
	EmbedDims     int
	CORSOrigin    string
}

func loadConfig() Config {
	return Config{
		Port:          envOr("PORT", "8080"),
		QdrantURL:     envOr("QDRANT_URL", "localhost:6334"),
		Collection:    envOr("QDRANT_COLLECTION", "contract_vectors"),
		OpenAIBaseURL: envOr("OPENAI_BASE_URL", openai.DefaultBaseURL),
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		EmbedModel:    envOr("EMBED_MODEL", openai.DefaultEmbedModel),
		ChatModel:     envOr("CHAT_MODEL", openai.DefaultChatModel),
		EmbedDims:     envIntOr("EMBED_DIMS", 1536),
		CORSOrigin:    envOr("CORS_ORIGIN", "*"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Embedding and generation gateway ---
	ai, err := openai.New(openai.Config{
		BaseURL:    cfg.OpenAIBaseURL,
		APIKey:     cfg.OpenAIKey,
		EmbedModel: cfg.EmbedModel,
		ChatModel:  cfg.ChatModel,
	})
	if err != nil {
		return fmt.Errorf("openai client: %w", err)
	}

	// --- Connect to Qdrant ---
	store, err := semantic.New(cfg.QdrantURL, cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer store.Close()

	if err := store.EnsureCollection(ctx, cfg.EmbedDims); err != nil {
		logger.Warn("collection check failed at startup, continuing", "err", err)
	}

	// --- Build pipeline and RAG service ---
	opts := ingest.DefaultOptions()
	opts.Dims = cfg.EmbedDims
	pipeline := ingest.NewPipeline(ai, store, opts, logger)

	ragSvc := rag.New(ai, store, ai, rag.NewTokenCounter(cfg.ChatModel), rag.DefaultOptions(), logger)

	// --- HTTP server ---
	met := metrics.New()
	api := newAPI(pipeline, ragSvc, met, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", api.handleHealth)
	mux.HandleFunc("POST /api/ingest", api.handleIngest)
	mux.HandleFunc("POST /api/query", api.handleQuery)
	mux.HandleFunc("POST /api/search", api.handleSearch)
	mux.Handle("GET /metrics", met.Handler())

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.RequestID(),
		mid.Logger(logger),
		mid.OTel("contract-engine-api"),
		mid.CORS(cfg.CORSOrigin),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}
