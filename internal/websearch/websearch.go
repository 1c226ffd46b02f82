// Package websearch provides the optional web-search augmentation stage,
// backed by SerpAPI.
//
// Search failures are plain errors; the pipeline executor absorbs them and
// continues without web context. Format is deterministic so prompts built
// from the same results are byte-identical.
package websearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// DefaultNumResults is the number of search results fetched when the caller
// does not specify a count.
const DefaultNumResults = 5

// NoResultsSentinel is returned by Format for an empty result set. It is
// distinguishable from "no web search attempted" only at the call site; the
// caller decides whether to include it in context.
const NoResultsSentinel = "No web search results found."

// ErrMissingAPIKey indicates a search was attempted without a SerpAPI key.
var ErrMissingAPIKey = errors.New("SerpAPI key is required for web search")

const defaultSerpAPIURL = "https://serpapi.com/search"

// Result is a single extracted search hit.
type Result struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Client performs web searches against SerpAPI. The API key is supplied per
// call because it comes from the workflow's generator node, not from server
// configuration.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithBaseURL overrides the SerpAPI endpoint (used by tests).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.client = client }
}

// NewClient creates a search client.
func NewClient(logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		baseURL: defaultSerpAPIURL,
		client:  &http.Client{},
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type serpResponse struct {
	OrganicResults []Result `json:"organic_results"`
}

// Search performs one external query and returns up to numResults hits
// (DefaultNumResults when numResults <= 0).
func (c *Client) Search(ctx context.Context, query, apiKey string, numResults int) ([]Result, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if numResults <= 0 {
		numResults = DefaultNumResults
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("api_key", apiKey)
	params.Set("engine", "google")
	params.Set("num", strconv.Itoa(numResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending search request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading search response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("search API status %d: %s", resp.StatusCode, body)
	}

	var parsed serpResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshaling search response: %w", err)
	}

	results := parsed.OrganicResults
	if len(results) > numResults {
		results = results[:numResults]
	}

	c.logger.Debug("web search completed", "results", len(results))
	return results, nil
}

// Format renders results as the numbered listing injected into generation
// context. Returns NoResultsSentinel for an empty set.
func Format(results []Result) string {
	if len(results) == 0 {
		return NoResultsSentinel
	}

	lines := []string{"Web Search Results:\n"}
	for i, r := range results {
		lines = append(lines,
			fmt.Sprintf("%d. %s", i+1, r.Title),
			fmt.Sprintf("   URL: %s", r.Link),
			fmt.Sprintf("   %s\n", r.Snippet),
		)
	}
	return strings.Join(lines, "\n")
}
