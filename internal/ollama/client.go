// Package ollama provides an HTTP client for an Ollama-compatible provider
// exposing embedding, completion and chat endpoints.
//
// The client is the single outbound surface of pgrag: every embedding and
// every generated answer goes through it. It deliberately performs a single
// attempt per call — retry policy belongs to the caller.
//
// Failure modes are typed:
//   - ErrUnavailable: the provider could not be reached (transport failure)
//   - *ProviderError: the provider replied with a non-2xx status or a
//     payload missing the expected field
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Conversational roles accepted by the chat endpoint.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultTimeout bounds a single provider call. Generation on large models
// is slow, so this is generous.
const DefaultTimeout = 120 * time.Second

// Message is a single turn of a conversation. Order of messages is
// semantically significant and preserved on the wire.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerateRequest is a single-prompt completion request.
type GenerateRequest struct {
	Model       string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// ChatRequest is a multi-turn chat completion request.
//
// Seed is a pointer so that "unset" and "zero" remain distinguishable:
// a nil Seed is omitted from the outbound payload, an explicit 0 is sent.
type ChatRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
	Seed        *int64
}

// Config configures the provider client.
type Config struct {
	// Host is the provider base URL, e.g. "http://localhost:11434".
	Host string

	// Timeout bounds each call. Default: DefaultTimeout.
	Timeout time.Duration
}

// Client talks to an Ollama-compatible provider over HTTP.
// It reuses a single http.Client across calls and is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a provider client. logger may be nil.
func New(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.Host, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// CloseIdleConnections releases keep-alive connections held by the
// underlying HTTP client. Call it on shutdown; the client remains usable
// afterwards.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

// Embed converts text to a fixed-length vector using the given model.
//
// The text is passed through unchanged — empty input is the provider's
// problem to accept or reject. Dimensionality and scale of the returned
// vector are determined entirely by the provider.
func (c *Client) Embed(ctx context.Context, model, text string) ([]float32, error) {
	body := struct {
		Model string `json:"model"`
		Input string `json:"input"`
	}{Model: model, Input: text}

	var out struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := c.post(ctx, "/embed", body, &out); err != nil {
		return nil, err
	}

	if len(out.Embedding) == 0 {
		return nil, &ProviderError{Endpoint: "/embed", Message: "response missing embedding field"}
	}

	c.logger.Debug("embedded text", "model", model, "dimension", len(out.Embedding))
	return out.Embedding, nil
}

// Generate produces a completion for a single prompt.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	body := struct {
		Model       string  `json:"model"`
		Prompt      string  `json:"prompt"`
		Temperature float64 `json:"temperature"`
		MaxTokens   int     `json:"max_tokens"`
	}{
		Model:       req.Model,
		Prompt:      req.Prompt,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	var out struct {
		Response *string `json:"response"`
	}
	if err := c.post(ctx, "/generate", body, &out); err != nil {
		return "", err
	}

	if out.Response == nil {
		return "", &ProviderError{Endpoint: "/generate", Message: "response missing response field"}
	}

	c.logger.Debug("generated completion", "model", req.Model, "prompt_length", len(req.Prompt))
	return *out.Response, nil
}

// Chat forwards a conversation to the provider's chat endpoint and returns
// the first choice's message content. Message order and content are
// forwarded unmodified.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (string, error) {
	body := struct {
		Model       string    `json:"model"`
		Messages    []Message `json:"messages"`
		Temperature float64   `json:"temperature"`
		Seed        *int64    `json:"seed,omitempty"`
	}{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		Seed:        req.Seed,
	}

	var out struct {
		Choices []struct {
			Message struct {
				Role    string  `json:"role"`
				Content *string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := c.post(ctx, "/chat/completions", body, &out); err != nil {
		return "", err
	}

	if len(out.Choices) == 0 || out.Choices[0].Message.Content == nil {
		return "", &ProviderError{Endpoint: "/chat/completions", Message: "response missing choices"}
	}

	c.logger.Debug("chat completion", "model", req.Model, "messages", len(req.Messages))
	return *out.Choices[0].Message.Content, nil
}

// post executes a JSON POST against the provider and decodes the response
// into out. Transport failures map to ErrUnavailable, non-2xx statuses and
// undecodable payloads to *ProviderError.
func (c *Client) post(ctx context.Context, endpoint string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling %s request: %w", endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building %s request: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, endpoint, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Debug("closing provider response body", "error", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Read a bounded slice of the body for the error message.
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &ProviderError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(msg)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ProviderError{Endpoint: endpoint, Message: fmt.Sprintf("decoding response: %v", err)}
	}

	return nil
}
