// Package openai wraps the remote embedding and generation capabilities
// behind an OpenAI-compatible HTTP API. Failures are classified into the
// domain error taxonomy so callers know what is retryable.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rentora/rentora-engine/engine/domain"
	"github.com/rentora/rentora-engine/pkg/resilience"
)

const (
	// DefaultBaseURL is the OpenAI API endpoint.
	DefaultBaseURL = "https://api.openai.com/v1"
	// DefaultEmbedModel produces 1536-dimensional vectors.
	DefaultEmbedModel = "text-embedding-ada-002"
	// DefaultChatModel is used for grounded answer generation.
	DefaultChatModel = "gpt-4"
)

// Config configures the gateway client.
type Config struct {
	BaseURL    string
	APIKey     string
	EmbedModel string
	ChatModel  string
	Timeout    time.Duration
	// RequestsPerSecond caps the outbound call rate; 0 disables the cap.
	RequestsPerSecond float64
}

// Client is the embedding and generation gateway.
type Client struct {
	cfg     Config
	httpc   *http.Client
	limiter *resilience.Limiter
	breaker *resilience.Breaker
}

// New creates a Client. An empty API key is a configuration error.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, domain.E(domain.KindConfig, "openai: new client", errors.New("api key is empty"))
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = DefaultEmbedModel
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = DefaultChatModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:     cfg,
		httpc:   &http.Client{Timeout: cfg.Timeout},
		limiter: resilience.NewLimiter(cfg.RequestsPerSecond, 1),
		breaker: resilience.NewBreaker(resilience.DefaultBreakerOpts),
	}, nil
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed turns text into a fixed-length vector. Empty input is rejected
// locally rather than submitted to the remote capability.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	const op = "openai: embed"
	if strings.TrimSpace(text) == "" {
		return nil, domain.NewValidationError("text", "", domain.ErrEmptyText)
	}

	var out embedResponse
	if err := c.post(ctx, op, "/embeddings", embedRequest{Model: c.cfg.EmbedModel, Input: text}, &out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, domain.Ef(domain.KindUnknown, op, "response contains no embedding")
	}
	return out.Data[0].Embedding, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate produces a grounded answer from a system instruction and a
// user message. Temperature is kept low so answers stay close to the
// supplied context.
func (c *Client) Generate(ctx context.Context, system, user string) (string, error) {
	const op = "openai: generate"

	req := chatRequest{
		Model: c.cfg.ChatModel,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.1,
	}

	var out chatResponse
	if err := c.post(ctx, op, "/chat/completions", req, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", domain.Ef(domain.KindUnknown, op, "response contains no choices")
	}
	return out.Choices[0].Message.Content, nil
}

// post runs one rate-limited, breaker-guarded API call and decodes the
// response into out.
func (c *Client) post(ctx context.Context, op, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.E(domain.KindTransient, op, err)
	}

	err := c.breaker.Call(ctx, func(ctx context.Context) error {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("%s: build request: %w", op, err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

		resp, err := c.httpc.Do(req)
		if err != nil {
			return domain.E(domain.KindTransient, op, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return classifyStatus(op, resp)
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%s: decode response: %w", op, err)
		}
		return nil
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return domain.E(domain.KindTransient, op, err)
	}
	return err
}

// classifyStatus maps an HTTP error status onto the error taxonomy.
func classifyStatus(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(raw))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return domain.Ef(domain.KindConfig, op, "status %d: %s", resp.StatusCode, msg)
	case resp.StatusCode == http.StatusRequestEntityTooLarge:
		return domain.Ef(domain.KindInputTooLarge, op, "status %d: %s", resp.StatusCode, msg)
	case resp.StatusCode == http.StatusBadRequest && strings.Contains(msg, "maximum context length"):
		return domain.Ef(domain.KindInputTooLarge, op, "status %d: %s", resp.StatusCode, msg)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return domain.Ef(domain.KindTransient, op, "status %d: %s", resp.StatusCode, msg)
	default:
		return domain.Ef(domain.KindUnknown, op, "status %d: %s", resp.StatusCode, msg)
	}
}
