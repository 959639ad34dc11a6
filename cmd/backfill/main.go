// Command backfill re-indexes every lease that has OCR text. It reads
// lease rows from Postgres and runs each through the ingestion pipeline
// with bounded concurrency. Safe to re-run: ingestion supersedes a
// lease's previous points.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/rentora/rentora-engine/engine/ingest"
	"github.com/rentora/rentora-engine/engine/semantic"
	"github.com/rentora/rentora-engine/pkg/fn"
	"github.com/rentora/rentora-engine/pkg/openai"
	"github.com/rentora/rentora-engine/pkg/repo"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	_ = godotenv.Load()

	var (
		workers    = flag.Int("workers", 2, "concurrent lease ingestions")
		qdrantAddr = flag.String("qdrant", envOr("QDRANT_URL", "localhost:6334"), "Qdrant gRPC address")
		collection = flag.String("collection", envOr("QDRANT_COLLECTION", "contract_vectors"), "Qdrant collection name")
		dsn        = flag.String("dsn", os.Getenv("DATABASE_URL"), "Postgres connection string")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *dsn == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	leases, err := repo.NewLeaseStore(ctx, *dsn)
	if err != nil {
		logger.Error("postgres connect", "err", err)
		os.Exit(1)
	}
	defer leases.Close()

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

	store, err := semantic.New(*qdrantAddr, *collection)
	if err != nil {
		logger.Error("qdrant connect", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	pipeline := ingest.NewPipeline(ai, store, ingest.DefaultOptions(), logger)

	rows, err := leases.ListWithText(ctx)
	if err != nil {
		logger.Error("list leases", "err", err)
		os.Exit(1)
	}
	logger.Info("backfill starting", "leases", len(rows), "workers", *workers)

	results := fn.ParMapResult(rows, *workers, func(_ int, l repo.Lease) fn.Result[ingest.Report] {
		return fn.FromPair(pipeline.Ingest(ctx, l.Document()))
	})

	ok, failed, chunks := 0, 0, 0
	for i, r := range results {
		if r.IsErr() {
			_, err := r.Unwrap()
			logger.Error("lease failed", "lease_id", rows[i].ID, "err", err)
			failed++
			continue
		}
		report, _ := r.Unwrap()
		ok++
		chunks += report.ChunksStored
	}

	fmt.Printf("backfill done: %d ok, %d failed, %d chunks indexed\n", ok, failed, chunks)
	if failed > 0 {
		os.Exit(1)
	}
}
