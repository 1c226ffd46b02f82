package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/genstack0/genstack/internal/log"
)

func TestResolveModel(t *testing.T) {
	tests := []struct {
		model     string
		want      string
		wantRemap bool
	}{
		{"", DefaultModel, false},
		{"anthropic/claude-3.5-sonnet", "anthropic/claude-3.5-sonnet", false},
		{"mistralai/mistral-7b", "mistralai/mistral-7b", false},
		{"gpt-4o", DefaultModel, true},
		{"gpt-4o-mini", DefaultModel, true},
		{"gpt-3.5-turbo", DefaultModel, true},
		{"gpt-5", DefaultModel, true}, // prefix match covers the whole family
		{"claude-3-5-sonnet-latest", DefaultModel, true},
		{"claude-sonnet-4-5-thinking", DefaultModel, true},
	}

	for _, tt := range tests {
		got, remapped := resolveModel(tt.model)
		if got != tt.want || remapped != tt.wantRemap {
			t.Errorf("resolveModel(%q) = (%q, %v), want (%q, %v)",
				tt.model, got, remapped, tt.want, tt.wantRemap)
		}
	}
}

func TestCapTokens(t *testing.T) {
	tests := []struct {
		requested int
		want      int
	}{
		{0, MaxOutputTokens},
		{-5, MaxOutputTokens},
		{100, 100},
		{512, 512},
		{513, MaxOutputTokens},
		{9999, MaxOutputTokens},
	}

	for _, tt := range tests {
		if got := capTokens(tt.requested); got != tt.want {
			t.Errorf("capTokens(%d) = %d, want %d", tt.requested, got, tt.want)
		}
	}
}

func TestBuildPrompt(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want string
	}{
		{
			name: "no template no context is the raw query",
			req:  Request{Query: "what is a stack?"},
			want: "what is a stack?",
		},
		{
			name: "no template with context uses the default template",
			req:  Request{Query: "what is a stack?", Context: "a stack is a workflow"},
			want: "Use the following context to answer the question.\n\nContext:\na stack is a workflow\n\nQuestion: what is a stack?\n\nAnswer:",
		},
		{
			name: "template substitutes query and context",
			req: Request{
				Query:          "Q",
				Context:        "C",
				PromptTemplate: "ctx={{context}} q={{query}}",
			},
			want: "ctx=C q=Q",
		},
		{
			name: "template without context gets the sentinel",
			req: Request{
				Query:          "Q",
				PromptTemplate: "ctx={{context}} q={{query}}",
			},
			want: "ctx=No additional context provided. q=Q",
		},
		{
			name: "template without placeholders passes through",
			req: Request{
				Query:          "ignored by template",
				PromptTemplate: "fixed instructions",
			},
			want: "fixed instructions",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildPrompt(tt.req); got != tt.want {
				t.Errorf("buildPrompt() = %q, want %q", got, tt.want)
			}
		})
	}
}

func newTestClient(t *testing.T, baseURL, apiKey string) *Client {
	t.Helper()
	c, err := NewClient(Config{
		APIKey:  apiKey,
		BaseURL: baseURL,
		Logger:  log.NewNop(),
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{Logger: log.NewNop()}); err == nil {
		t.Error("NewClient() without base URL succeeded")
	}
	if _, err := NewClient(Config{BaseURL: "https://example.com/v1"}); err == nil {
		t.Error("NewClient() without logger succeeded")
	}
}

func TestGenerate(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer node-key" {
			t.Errorf("authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": "A stack is a saved workflow."}},
			},
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "")

	answer, err := c.Generate(context.Background(), Request{
		Query:     "what is a stack?",
		Model:     "gpt-4o",
		MaxTokens: 4000,
		APIKey:    "node-key",
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if answer != "A stack is a saved workflow." {
		t.Errorf("answer = %q", answer)
	}

	if got.Model != DefaultModel {
		t.Errorf("dispatched model = %q, want remapped %q", got.Model, DefaultModel)
	}
	if got.MaxTokens != MaxOutputTokens {
		t.Errorf("max_tokens = %d, want capped %d", got.MaxTokens, MaxOutputTokens)
	}
	if got.Temperature != DefaultTemperature {
		t.Errorf("temperature = %v, want default %v", got.Temperature, DefaultTemperature)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" {
		t.Errorf("messages = %+v", got.Messages)
	}
}

func TestGenerateMissingKey(t *testing.T) {
	c := newTestClient(t, "https://example.invalid/v1", "")

	_, err := c.Generate(context.Background(), Request{Query: "q"})
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("Generate() error = %v, want ErrMissingAPIKey", err)
	}
}

func TestGenerateProcessKeyFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer process-key" {
			t.Errorf("authorization = %q, want process default", auth)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"content": "ok"}}},
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "process-key")
	if _, err := c.Generate(context.Background(), Request{Query: "q"}); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
}

func TestGenerateUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"model overloaded"}`, http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "key")

	_, err := c.Generate(context.Background(), Request{Query: "q"})
	if err == nil || !strings.Contains(err.Error(), "status 502") {
		t.Fatalf("Generate() error = %v, want status 502", err)
	}
}
