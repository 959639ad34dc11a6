// Package ingest builds a lease's searchable representation: it chunks
// the OCR text, embeds each chunk, and writes the point batch to the
// vector index with deterministic ids so re-ingestion overwrites instead
// of duplicating.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/rentora/rentora-engine/engine/domain"
	"github.com/rentora/rentora-engine/engine/semantic"
	"github.com/rentora/rentora-engine/pkg/fn"
)

const (
	// PointIDStride reserves this many point ids per lease. The point id
	// for chunk i of lease L is L*PointIDStride + i.
	PointIDStride = 1000
	// MaxChunksPerLease keeps chunk counts inside the reserved id range.
	MaxChunksPerLease = PointIDStride - 1
)

// Embedder turns text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex is the slice of the vector store the pipeline writes through.
type VectorIndex interface {
	EnsureCollection(ctx context.Context, dims int) error
	DeleteByLease(ctx context.Context, leaseID int64) error
	Upsert(ctx context.Context, records []semantic.VectorRecord) error
}

// Options configures the pipeline.
type Options struct {
	ChunkSize    int
	Overlap      int
	Dims         int
	EmbedWorkers int
	Retry        fn.RetryOpts
}

// DefaultOptions returns the production defaults. Dims matches the
// embedding model; the collection is created with the same value.
func DefaultOptions() Options {
	return Options{
		ChunkSize:    DefaultChunkSize,
		Overlap:      DefaultOverlap,
		Dims:         1536,
		EmbedWorkers: 4,
		Retry:        fn.DefaultRetry,
	}
}

// Pipeline orchestrates chunking, embedding, and indexing for one lease
// at a time. It never touches the relational lease record.
type Pipeline struct {
	embedder Embedder
	index    VectorIndex
	opts     Options
	logger   *slog.Logger
}

// NewPipeline wires the pipeline's collaborators.
func NewPipeline(embedder Embedder, index VectorIndex, opts Options, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Dims <= 0 {
		opts.Dims = DefaultOptions().Dims
	}
	if opts.EmbedWorkers <= 0 {
		opts.EmbedWorkers = DefaultOptions().EmbedWorkers
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = fn.DefaultRetry
	}
	return &Pipeline{embedder: embedder, index: index, opts: opts, logger: logger}
}

// Ingest runs the full pipeline for one lease document and returns how
// many points were written. The write is all-or-nothing: nothing reaches
// the index unless every chunk embedded successfully.
func (p *Pipeline) Ingest(ctx context.Context, doc domain.LeaseDocument) (Report, error) {
	report := Report{LeaseID: doc.LeaseID}

	if err := domain.ValidateLeaseDocument(doc); err != nil {
		return report, err
	}
	if strings.TrimSpace(doc.Text) == "" {
		// A lease with no extractable text is not a failure of this stage.
		p.logger.Info("ingest: no text, skipping", "lease_id", doc.LeaseID)
		return report, nil
	}

	chunks := ChunkText(doc.Text, p.opts.ChunkSize, p.opts.Overlap)
	if len(chunks) == 0 {
		return report, nil
	}
	if len(chunks) > MaxChunksPerLease {
		return report, domain.Ef(domain.KindInputTooLarge,
			fmt.Sprintf("ingest: lease %d", doc.LeaseID),
			"%d chunks exceed the %d reserved point ids", len(chunks), MaxChunksPerLease)
	}

	// Embed then store, each under its own span.
	embedStage := fn.TracedStage("ingest.embed", func(ctx context.Context, cs []Chunk) fn.Result[[][]float32] {
		return fn.FromPair(p.embedChunks(ctx, doc.LeaseID, cs))
	})
	storeStage := fn.TracedStage("ingest.store", func(ctx context.Context, embeddings [][]float32) fn.Result[int] {
		return fn.FromPair(p.store(ctx, doc, chunks, embeddings))
	})

	stored, err := fn.Then(embedStage, storeStage)(ctx, chunks).Unwrap()
	if err != nil {
		return report, err
	}

	report.ChunksStored = stored
	p.logger.Info("ingest: stored", "lease_id", doc.LeaseID, "chunks", report.ChunksStored)
	return report, nil
}

// store builds the point batch with deterministic ids and writes it.
// Stale points from a previous version of the lease are removed first so
// a shorter re-upload never leaves high-index chunks behind.
func (p *Pipeline) store(ctx context.Context, doc domain.LeaseDocument, chunks []Chunk, embeddings [][]float32) (int, error) {
	records := make([]semantic.VectorRecord, len(chunks))
	for i, chunk := range chunks {
		records[i] = semantic.VectorRecord{
			ID:        uint64(doc.LeaseID)*PointIDStride + uint64(chunk.Index),
			Embedding: embeddings[i],
			Payload: map[string]any{
				"lease_id":    doc.LeaseID,
				"chunk_index": chunk.Index,
				"chunk_text":  chunk.Text,
				"contract_no": doc.Meta.ContractNo,
				"tenant_id":   doc.Meta.TenantID,
				"property_id": doc.Meta.PropertyID,
				"user_id":     doc.Meta.UserID,
			},
		}
	}

	if err := p.index.EnsureCollection(ctx, p.opts.Dims); err != nil {
		return 0, fmt.Errorf("ingest: lease %d: %w", doc.LeaseID, err)
	}
	if err := p.index.DeleteByLease(ctx, doc.LeaseID); err != nil {
		return 0, fmt.Errorf("ingest: lease %d: %w", doc.LeaseID, err)
	}
	if err := p.index.Upsert(ctx, records); err != nil {
		return 0, fmt.Errorf("ingest: lease %d: %w", doc.LeaseID, err)
	}
	return len(records), nil
}

// embedChunks embeds all chunks with bounded concurrency, preserving the
// chunk-index-to-vector mapping. Identical chunk text is embedded once
// per batch. Transient failures are retried per chunk; any other failure
// aborts the whole document.
func (p *Pipeline) embedChunks(ctx context.Context, leaseID int64, chunks []Chunk) ([][]float32, error) {
	var mu sync.Mutex
	memo := make(map[string][]float32)

	results := fn.ParMapResult(chunks, p.opts.EmbedWorkers, func(_ int, chunk Chunk) fn.Result[[]float32] {
		mu.Lock()
		cached, ok := memo[chunk.Text]
		mu.Unlock()
		if ok {
			return fn.Ok(cached)
		}

		r := fn.RetryIf(ctx, p.opts.Retry, domain.IsTransient, func(ctx context.Context) fn.Result[[]float32] {
			return fn.FromPair(p.embedder.Embed(ctx, chunk.Text))
		})
		if r.IsErr() {
			_, err := r.Unwrap()
			return fn.Err[[]float32](fmt.Errorf("ingest: lease %d chunk %d: %w", leaseID, chunk.Index, err))
		}

		vec, _ := r.Unwrap()
		if len(vec) != p.opts.Dims {
			return fn.Err[[]float32](domain.Ef(domain.KindSchema,
				fmt.Sprintf("ingest: lease %d chunk %d", leaseID, chunk.Index),
				"embedding has %d dimensions, collection expects %d", len(vec), p.opts.Dims))
		}

		mu.Lock()
		memo[chunk.Text] = vec
		mu.Unlock()
		return fn.Ok(vec)
	})

	collected := fn.Collect(results)
	if collected.IsErr() {
		_, err := collected.Unwrap()
		return nil, err
	}
	embeddings, _ := collected.Unwrap()
	return embeddings, nil
}

// Enrich runs Ingest but folds the outcome into an EnrichmentResult so
// the primary-save path can record a soft failure instead of aborting.
func (p *Pipeline) Enrich(ctx context.Context, doc domain.LeaseDocument) EnrichmentResult {
	report, err := p.Ingest(ctx, doc)
	res := EnrichmentResult{LeaseID: doc.LeaseID, ChunksStored: report.ChunksStored}
	if err != nil {
		res.Error = err.Error()
		p.logger.Warn("ingest: enrichment failed", "lease_id", doc.LeaseID, "err", err)
	}
	return res
}
