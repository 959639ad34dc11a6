// Package rag orchestrates retrieval and grounded answering over the
// contract index: it embeds a question, runs a filtered similarity
// search, assembles the hits into a bounded context, and asks the
// generation capability for an answer that cites its sources.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rentora/rentora-engine/engine/domain"
	"github.com/rentora/rentora-engine/engine/semantic"
)

// Embedder turns a query into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher abstracts the vector store's filtered similarity search.
type Searcher interface {
	Search(ctx context.Context, embedding []float32, limit int, filter map[string]string) ([]semantic.SearchResult, error)
}

// Generator is the remote generation capability.
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// Options configures retrieval and composition.
type Options struct {
	// Limit is the default top-K when the caller passes none.
	Limit int
	// ContextBudget bounds the assembled context, in tokens.
	ContextBudget int
	// SearchTimeout bounds the embed+search half of a query.
	SearchTimeout time.Duration
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		Limit:         10,
		ContextBudget: 3000,
		SearchTimeout: 10 * time.Second,
	}
}

// Service is the retrieval and answer-composition service.
type Service struct {
	embed  Embedder
	search Searcher
	gen    Generator
	tokens TokenCounter
	opts   Options
	logger *slog.Logger
}

// New wires the service. A nil counter falls back to the heuristic one.
func New(embed Embedder, search Searcher, gen Generator, tokens TokenCounter, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if tokens == nil {
		tokens = approxCounter{}
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultOptions().Limit
	}
	if opts.ContextBudget <= 0 {
		opts.ContextBudget = DefaultOptions().ContextBudget
	}
	if opts.SearchTimeout <= 0 {
		opts.SearchTimeout = DefaultOptions().SearchTimeout
	}
	return &Service{embed: embed, search: search, gen: gen, tokens: tokens, opts: opts, logger: logger}
}

// Source is a citation backing an answer. ChunkText is the full original
// chunk, not the possibly truncated prompt excerpt.
type Source struct {
	ContractNo string  `json:"contract_no"`
	ChunkText  string  `json:"chunk_text"`
	Score      float32 `json:"relevance_score"`
}

// Answer is the grounded answer plus its provenance.
type Answer struct {
	Text    string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// Retrieve embeds the query and returns the top-K chunks, optionally
// scoped to one owner. An empty result set is not an error; gateway and
// store failures propagate with their kind intact.
func (s *Service) Retrieve(ctx context.Context, query, ownerScope string, limit int) ([]semantic.SearchResult, error) {
	if limit <= 0 {
		limit = s.opts.Limit
	}
	if err := domain.ValidateQuery(query, limit); err != nil {
		return nil, err
	}

	embedding, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("rag: embed query: %w", err)
	}

	var filter map[string]string
	if ownerScope != "" {
		filter = map[string]string{"user_id": ownerScope}
	}

	searchCtx, cancel := context.WithTimeout(ctx, s.opts.SearchTimeout)
	defer cancel()

	results, err := s.search.Search(searchCtx, embedding, limit, filter)
	if err != nil {
		return nil, fmt.Errorf("rag: search: %w", err)
	}
	s.logger.Info("rag: search done", "results", len(results), "scoped", ownerScope != "")
	return results, nil
}

// Answer runs retrieval and composes a grounded answer. With no relevant
// chunks it returns the fixed not-found answer without calling the
// generation capability; a generation failure is an error, never an
// empty answer.
func (s *Service) Answer(ctx context.Context, query, ownerScope string, limit int) (*Answer, error) {
	results, err := s.Retrieve(ctx, query, ownerScope, limit)
	if err != nil {
		return nil, err
	}

	if len(results) == 0 {
		return &Answer{Text: NotFoundAnswer, Sources: []Source{}}, nil
	}

	contextBlock := s.composeContext(results)
	text, err := s.gen.Generate(ctx, systemPrompt+"\n\nContract excerpts:\n"+contextBlock, query)
	if err != nil {
		return nil, fmt.Errorf("rag: generate answer: %w", err)
	}

	sources := make([]Source, len(results))
	for i, r := range results {
		sources[i] = Source{
			ContractNo: r.ContractNo,
			ChunkText:  r.ChunkText,
			Score:      r.Score,
		}
	}
	return &Answer{Text: text, Sources: sources}, nil
}
