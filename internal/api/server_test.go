package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"iter"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/genstack0/genstack/internal/llm"
	"github.com/genstack0/genstack/internal/log"
	"github.com/genstack0/genstack/internal/workflow"
)

// stubGenerator feeds canned chunks through a real executor.
type stubGenerator struct {
	chunks    []string
	streamErr error
}

func (s *stubGenerator) ResolveModel(model string) string {
	if model == "" {
		return llm.DefaultModel
	}
	return model
}

func (s *stubGenerator) Generate(context.Context, llm.Request) (string, error) {
	return strings.Join(s.chunks, ""), nil
}

func (s *stubGenerator) GenerateStream(context.Context, llm.Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, c := range s.chunks {
			if !yield(c, nil) {
				return
			}
		}
		if s.streamErr != nil {
			yield("", s.streamErr)
		}
	}
}

func newTestServer(t *testing.T, gen workflow.Generator) *Server {
	t.Helper()

	exec, err := workflow.NewExecutor(workflow.ExecutorConfig{Generator: gen, Logger: log.NewNop()})
	if err != nil {
		t.Fatalf("NewExecutor() error = %v", err)
	}

	srv, err := NewServer(ServerConfig{
		Logger:   log.NewNop(),
		Executor: exec,
	})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	return srv
}

func TestNewServerRequiresExecutor(t *testing.T) {
	if _, err := NewServer(ServerConfig{Logger: log.NewNop()}); err == nil {
		t.Fatal("NewServer() without executor succeeded, want error")
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &stubGenerator{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /health status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q, want ok", body["status"])
	}
}

func TestReadyWithoutPool(t *testing.T) {
	srv := newTestServer(t, &stubGenerator{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /ready status = %d, want 200", rec.Code)
	}
}

func TestValidateEndpoint(t *testing.T) {
	srv := newTestServer(t, &stubGenerator{})

	body := `{
		"nodes": [
			{"id": "q1", "type": "userQuery", "data": {}},
			{"id": "g1", "type": "llmEngine", "data": {}},
			{"id": "o1", "type": "output", "data": {}}
		],
		"edges": [
			{"id": "e1", "source": "q1", "target": "g1"},
			{"id": "e2", "source": "g1", "target": "o1"}
		]
	}`

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/workflows/validate", strings.NewReader(body))
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var result workflow.ValidationResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if !result.Valid {
		t.Errorf("valid = false, errors = %v", result.Errors)
	}
}

func TestValidateEndpointReportsErrors(t *testing.T) {
	srv := newTestServer(t, &stubGenerator{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/workflows/validate", strings.NewReader(`{"nodes":[],"edges":[]}`))
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var result workflow.ValidationResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if result.Valid {
		t.Error("empty graph reported valid")
	}
	if len(result.Errors) != 3 {
		t.Errorf("got %d errors, want 3: %v", len(result.Errors), result.Errors)
	}
}

func TestValidateEndpointBadJSON(t *testing.T) {
	srv := newTestServer(t, &stubGenerator{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/workflows/validate", strings.NewReader("{not json"))
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func chatBody(query string) string {
	return `{
		"query": "` + query + `",
		"nodes": [
			{"id": "q1", "type": "userQuery", "data": {}},
			{"id": "g1", "type": "llmEngine", "data": {}},
			{"id": "o1", "type": "output", "data": {}}
		],
		"edges": [
			{"id": "e1", "source": "q1", "target": "g1"},
			{"id": "e2", "source": "g1", "target": "o1"}
		]
	}`
}

// decodeNDJSON splits a response body into its JSON lines.
func decodeNDJSON(t *testing.T, body string) []map[string]json.RawMessage {
	t.Helper()
	var events []map[string]json.RawMessage
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var ev map[string]json.RawMessage
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Fatalf("invalid NDJSON line %q: %v", line, err)
		}
		events = append(events, ev)
	}
	return events
}

func TestChatStreaming(t *testing.T) {
	srv := newTestServer(t, &stubGenerator{chunks: []string{"Hello", " world"}})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(chatBody("hi")))
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/x-ndjson" {
		t.Errorf("content type = %q, want application/x-ndjson", ct)
	}

	events := decodeNDJSON(t, rec.Body.String())
	if len(events) != 3 {
		t.Fatalf("got %d events, want metadata + 2 chunks: %s", len(events), rec.Body.String())
	}
	if _, ok := events[0]["metadata"]; !ok {
		t.Errorf("first event = %v, want metadata", events[0])
	}
	var chunk string
	if err := json.Unmarshal(events[1]["chunk"], &chunk); err != nil || chunk != "Hello" {
		t.Errorf("second event = %v, want chunk Hello", events[1])
	}
}

func TestChatStreamError(t *testing.T) {
	srv := newTestServer(t, &stubGenerator{chunks: []string{"partial"}, streamErr: errors.New("upstream closed")})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(chatBody("hi")))
	srv.Handler().ServeHTTP(rec, req)

	events := decodeNDJSON(t, rec.Body.String())
	if len(events) != 3 {
		t.Fatalf("got %d events, want metadata, chunk, error: %s", len(events), rec.Body.String())
	}

	last := events[len(events)-1]
	var msg string
	if err := json.Unmarshal(last["error"], &msg); err != nil {
		t.Fatalf("last event = %v, want error", last)
	}
	if !strings.Contains(msg, "Error generating stream") {
		t.Errorf("error message = %q", msg)
	}
}

func TestChatRequiresQuery(t *testing.T) {
	srv := newTestServer(t, &stubGenerator{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(`{"query":"  ","nodes":[],"edges":[]}`))
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv := newTestServer(t, &stubGenerator{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/workflows/validate", strings.NewReader(`{"nodes":[],"edges":[]}`))
	srv.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want DENY", got)
	}
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	exec, err := workflow.NewExecutor(workflow.ExecutorConfig{Generator: &stubGenerator{}, Logger: log.NewNop()})
	if err != nil {
		t.Fatal(err)
	}
	srv, err := NewServer(ServerConfig{
		Logger:      log.NewNop(),
		Executor:    exec,
		CORSOrigins: []string{"http://localhost:5173"},
	})
	if err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/chat", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}
