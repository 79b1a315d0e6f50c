package llm

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
)

const (
	defaultEndpoint = "https://api.openai.com/v1/chat/completions"
	defaultTimeout  = 120 * time.Second
)

// Config captures the settings for an OpenAI-compatible endpoint. BaseURL is
// the full chat completions URL.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
	RetryAttempts  int
}

// Client wraps an OpenAI-compatible chat completion API (OpenAI, OpenRouter
// or a local gateway).
type Client struct {
	cfg     Config
	http    *http.Client
	backoff backoff
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithRetryMaxAttempts overrides Config.RetryAttempts.
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) { c.backoff.attempts = attempts }
}

// WithRetryBackoff overrides the retry delays.
func WithRetryBackoff(base, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.backoff.base = base
		c.backoff.max = maxDelay
	}
}

// WithSleeper replaces the retry sleep, for tests.
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) { c.backoff.sleep = sleeper }
}

// NewClient constructs a client. Blank fields fall back to the OpenAI
// endpoint, a 120s timeout and three attempts.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.Model = strings.TrimSpace(cfg.Model)
	cfg.Referer = strings.TrimSpace(cfg.Referer)
	cfg.Title = strings.TrimSpace(cfg.Title)
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultEndpoint
	}
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: timeout},
		backoff: defaultBackoff(cfg.RetryAttempts),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Name identifies the backend in logs and run history.
func (c *Client) Name() string {
	return "openai"
}

// Generate issues a chat completion. Request.Model overrides the configured
// default model; JSON requests ask the endpoint for a json_object response.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	if c.cfg.APIKey == "" {
		return "", errors.New("llm generate: api key required")
	}
	if len(req.Messages) == 0 {
		return "", errors.New("llm generate: messages required")
	}
	body := completionRequest{
		Model:       firstNonEmpty(req.Model, c.cfg.Model),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	for _, msg := range req.Messages {
		body.Messages = append(body.Messages, completionMessage{Role: string(msg.Role), Content: msg.Content})
	}
	if req.JSON {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	return c.complete(ctx, "llm generate", body)
}

// HealthCheck sends a one-line readiness prompt and expects a JSON reply.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return errors.New("llm health: api key required")
	}
	reply, err := c.complete(ctx, "llm health", completionRequest{
		Model: c.cfg.Model,
		Messages: []completionMessage{
			{Role: string(RoleSystem), Content: "Answer with JSON only."},
			{Role: string(RoleUser), Content: `Is the morning broadcast desk ready? Reply {"ready":true}.`},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
	if err != nil {
		return err
	}
	var parsed struct {
		Ready bool `json:"ready"`
	}
	if err := DecodeReply(reply, &parsed); err != nil {
		return fmt.Errorf("llm health: parse reply: %w", err)
	}
	if !parsed.Ready {
		return fmt.Errorf("llm health: unexpected reply %s", Snippet(reply))
	}
	return nil
}

type completionRequest struct {
	Model          string              `json:"model"`
	Messages       []completionMessage `json:"messages"`
	Temperature    float64             `json:"temperature"`
	MaxTokens      int                 `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat     `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type completionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Refusal string `json:"refusal,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Message      completionMessage `json:"message"`
		FinishReason string            `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// reply returns the first non-empty choice, or an emptyReplyError describing
// why there was none.
func (r completionResponse) reply(op string, raw []byte) (string, error) {
	if len(r.Choices) == 0 {
		return "", fmt.Errorf("%s: no choices in response", op)
	}
	for _, choice := range r.Choices {
		if text := strings.TrimSpace(choice.Message.Content); text != "" {
			return text, nil
		}
	}
	first := r.Choices[0]
	return "", &emptyReplyError{
		op:           op,
		finishReason: first.FinishReason,
		refusal:      first.Message.Refusal,
		body:         Snippet(string(raw)),
	}
}

func (c *Client) complete(ctx context.Context, op string, body completionRequest) (string, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("%s: encode request: %w", op, err)
	}
	return c.backoff.run(ctx, op, func() (string, error) {
		resp, raw, err := c.post(ctx, encoded)
		if err != nil {
			return "", err
		}
		return resp.reply(op, raw)
	})
}

func (c *Client) post(ctx context.Context, encoded []byte) (completionResponse, []byte, error) {
	var parsed completionResponse
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return parsed, nil, fmt.Errorf("llm request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	// OpenRouter attribution headers.
	if c.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.Referer)
	}
	if c.cfg.Title != "" {
		req.Header.Set("X-Title", c.cfg.Title)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return parsed, nil, fmt.Errorf("llm request (timeout %s): %w", c.http.Timeout, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return parsed, nil, fmt.Errorf("llm request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return parsed, raw, &apiError{
			status:     resp.StatusCode,
			body:       strings.TrimSpace(string(raw)),
			retryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return parsed, raw, fmt.Errorf("llm request: decode response: %w", err)
	}
	if parsed.Error != nil {
		return parsed, raw, fmt.Errorf("llm request: api error: %s", strings.TrimSpace(parsed.Error.Message))
	}
	return parsed, raw, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
