// Command ingest-worker consumes lease documents from NATS and runs them
// through the ingestion pipeline into Qdrant. Enrichment outcomes are
// published back on the result subject so the uploader can surface soft
// failures next to the saved primary record.
package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/rentora/rentora-engine/engine/ingest"
	"github.com/rentora/rentora-engine/engine/semantic"
	"github.com/rentora/rentora-engine/pkg/metrics"
	"github.com/rentora/rentora-engine/pkg/openai"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	natsURL := envOr("NATS_URL", nats.DefaultURL)
	qdrantURL := envOr("QDRANT_URL", "localhost:6334")
	collection := envOr("QDRANT_COLLECTION", "contract_vectors")

	met := metrics.New()
	met.ServeAsync(9091)

	ai, err := openai.New(openai.Config{
		BaseURL:           envOr("OPENAI_BASE_URL", openai.DefaultBaseURL),
		APIKey:            os.Getenv("OPENAI_API_KEY"),
		EmbedModel:        envOr("EMBED_MODEL", openai.DefaultEmbedModel),
		RequestsPerSecond: 5,
	})
	if err != nil {
		logger.Error("openai client", "err", err)
		os.Exit(1)
	}

	store, err := semantic.New(qdrantURL, collection)
	if err != nil {
		logger.Error("qdrant connect", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	nc, err := nats.Connect(natsURL)
	if err != nil {
		logger.Error("nats connect", "err", err)
		os.Exit(1)
	}
	defer nc.Drain()

	pipeline := ingest.NewPipeline(ai, store, ingest.DefaultOptions(), logger)

	sub, err := ingest.StartConsumer(nc, pipeline, logger)
	if err != nil {
		logger.Error("subscribe", "err", err)
		os.Exit(1)
	}
	defer sub.Unsubscribe()

	logger.Info("ingest worker running", "subject", ingest.IngestSubject)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")
}
