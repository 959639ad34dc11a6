package rag

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/rentora/rentora-engine/engine/semantic"
)

// NotFoundAnswer is returned, without any generation call, when no
// relevant chunks exist. It must never be confused with a failure.
const NotFoundAnswer = "I couldn't find any relevant information in your contracts. " +
	"Please make sure you have uploaded contracts and try asking a different question."

const systemPrompt = `You are a helpful assistant that answers questions about rental contracts based on the provided contract excerpts.

Rules:
- Only answer based on the contract information provided
- If the information isn't in the contracts, say so clearly
- Be specific and cite relevant contract details
- If asked about calculations, show your work
- Be helpful but don't make assumptions beyond what's in the contracts`

// composeContext concatenates retrieved chunks in rank order until the
// token budget is reached. Chunks are whole or absent: the tail is
// truncated, never split. The first chunk is always included so the
// prompt never goes out empty.
func (s *Service) composeContext(results []semantic.SearchResult) string {
	var b strings.Builder
	used := 0
	for i, r := range results {
		block := fmt.Sprintf("Contract: %s\nText: %s\n\n", r.ContractNo, r.ChunkText)
		cost := s.tokens.Count(block)
		if i > 0 && used+cost > s.opts.ContextBudget {
			break
		}
		b.WriteString(block)
		used += cost
	}
	return b.String()
}

// TokenCounter counts prompt tokens for context budgeting.
type TokenCounter interface {
	Count(text string) int
}

type tiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

func (c tiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// approxCounter estimates tokens as one per four characters, the usual
// rule of thumb for English text.
type approxCounter struct{}

func (approxCounter) Count(text string) int {
	n := len(text) / 4
	if n == 0 && text != "" {
		n = 1
	}
	return n
}

// NewTokenCounter returns a tiktoken-backed counter for the given model,
// falling back to the character heuristic when the encoding can't be
// loaded (e.g. no vocabulary cache available at startup).
func NewTokenCounter(model string) TokenCounter {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return approxCounter{}
	}
	return tiktokenCounter{enc: enc}
}
