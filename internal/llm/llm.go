package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/time/rate"
)

const (
	// DefaultModel is the canonical supported model; deprecated identifiers
	// are remapped onto it.
	DefaultModel = "anthropic/claude-3.5-sonnet"

	// DefaultTemperature applies when the generator node omits temperature.
	DefaultTemperature = 0.7

	// MaxOutputTokens is the hard cap on generated tokens per request. This
	// is a cost control, not a provider limit: it holds even when the caller
	// requests more.
	MaxOutputTokens = 512

	// systemPrompt is sent as the system message on every request.
	systemPrompt = "You are a helpful assistant."

	// noContextSentinel substitutes for {{context}} when no context was
	// assembled.
	noContextSentinel = "No additional context provided."
)

// ErrMissingAPIKey indicates neither the request nor the process
// configuration supplied a usable credential.
var ErrMissingAPIKey = errors.New("OpenRouter API key is required")

// deprecatedModels are identifiers removed from the catalog; any prefix
// match on "gpt" is remapped as well (the whole legacy vendor family).
var deprecatedModels = map[string]bool{
	"gpt-4o-mini":                true,
	"gpt-4o":                     true,
	"gpt-4-turbo":                true,
	"gpt-3.5-turbo":              true,
	"claude-3-5-sonnet-latest":   true,
	"claude-sonnet-4-5-thinking": true,
}

// resolveModel maps a requested model id to the id actually dispatched.
// Reports whether a remap happened.
func resolveModel(model string) (string, bool) {
	if model == "" {
		return DefaultModel, false
	}
	if strings.HasPrefix(model, "gpt") || deprecatedModels[model] {
		return DefaultModel, true
	}
	return model, false
}

// Request carries one generation call's parameters, resolved by the
// pipeline executor from the workflow graph.
type Request struct {
	// Query is the user's question.
	Query string

	// Context is the assembled knowledge-base/web context. Empty means no
	// context was available.
	Context string

	// PromptTemplate, when non-empty, is substituted verbatim: {{query}}
	// and {{context}} placeholders are replaced, nothing is escaped.
	PromptTemplate string

	// Model is the requested model id; deprecated ids are remapped.
	Model string

	// Temperature of sampling. Nil means DefaultTemperature.
	Temperature *float64

	// MaxTokens requested by the caller. The effective value is
	// min(MaxTokens, MaxOutputTokens); zero means MaxOutputTokens.
	MaxTokens int

	// APIKey overrides the process-wide default credential.
	APIKey string
}

// buildPrompt constructs the user prompt from the request.
func buildPrompt(req Request) string {
	if req.PromptTemplate != "" {
		prompt := req.PromptTemplate
		prompt = strings.ReplaceAll(prompt, "{{query}}", req.Query)
		contextText := req.Context
		if contextText == "" {
			contextText = noContextSentinel
		}
		return strings.ReplaceAll(prompt, "{{context}}", contextText)
	}

	if req.Context != "" {
		return fmt.Sprintf(`Use the following context to answer the question.

Context:
%s

Question: %s

Answer:`, req.Context, req.Query)
	}

	return req.Query
}

// capTokens returns the effective max-output-tokens for a request.
func capTokens(requested int) int {
	if requested <= 0 || requested > MaxOutputTokens {
		return MaxOutputTokens
	}
	return requested
}

// Config configures the Client.
type Config struct {
	// APIKey is the process-wide default credential, used when a request
	// carries none.
	APIKey string

	// BaseURL is the OpenAI-compatible endpoint. Required.
	BaseURL string

	// HTTPClient overrides the transport (used by tests). Optional.
	HTTPClient *http.Client

	// Limiter throttles outbound calls. Nil installs the default
	// (10 req/s sustained, burst 30).
	Limiter *rate.Limiter

	// Logger is required.
	Logger *slog.Logger
}

// Client is the production generation backend.
//
// Client is safe for concurrent use; it holds no per-request state.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewClient creates a Client from the given configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	limiter := cfg.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(10, 30)
	}

	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  httpClient,
		limiter: limiter,
		logger:  cfg.Logger,
	}, nil
}

// ResolveModel returns the model id that will actually be dispatched for
// the requested id, logging a diagnostic when a deprecated id is remapped.
// The remap is never surfaced to the caller as an error.
func (c *Client) ResolveModel(model string) string {
	resolved, remapped := resolveModel(model)
	if remapped {
		c.logger.Warn("model no longer supported, falling back to default",
			"requested", model, "resolved", resolved)
	}
	return resolved
}

// resolveKey applies the credential precedence: request key, then process
// default.
func (c *Client) resolveKey(req Request) (string, error) {
	if req.APIKey != "" {
		return req.APIKey, nil
	}
	if c.apiKey != "" {
		return c.apiKey, nil
	}
	return "", ErrMissingAPIKey
}

// Wire types for the OpenAI-compatible chat completions endpoint.

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// buildChatRequest resolves routing policy (model remap, token cap,
// temperature default) into the wire request.
func (c *Client) buildChatRequest(req Request, stream bool) chatRequest {
	temperature := DefaultTemperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	return chatRequest{
		Model: c.ResolveModel(req.Model),
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(req)},
		},
		Temperature: temperature,
		MaxTokens:   capTokens(req.MaxTokens),
		Stream:      stream,
	}
}

// Generate produces a complete answer in one call.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	apiKey, err := c.resolveKey(req)
	if err != nil {
		return "", err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	body, err := json.Marshal(c.buildChatRequest(req, false))
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("chat completions status %d: %s", resp.StatusCode, respBody)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("unmarshaling response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return parsed.Choices[0].Message.Content, nil
}
