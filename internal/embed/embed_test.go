package embed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

// embeddingsStub answers /embeddings with one vector per input, encoding the
// global position so reordering is visible. Results are returned in reverse
// index order to exercise reassembly.
func embeddingsStub(t *testing.T, calls *int, batchSizes *[]int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t.Helper()
		*calls++

		var req embeddingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		*batchSizes = append(*batchSizes, len(req.Input))

		data := make([]map[string]any, len(req.Input))
		for i := range req.Input {
			// Reverse order on the wire; Index must drive placement.
			j := len(req.Input) - 1 - i
			data[i] = map[string]any{
				"index":     j,
				"embedding": []float32{float32(j)},
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	}
}

func TestOpenAIEmbedBatching(t *testing.T) {
	var calls int
	var batchSizes []int
	srv := httptest.NewServer(embeddingsStub(t, &calls, &batchSizes))
	defer srv.Close()

	o, err := NewOpenAI("key", "text-embedding-3-large", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewOpenAI() error = %v", err)
	}

	texts := make([]string, BatchSize+3)
	for i := range texts {
		texts[i] = fmt.Sprintf("chunk %d", i)
	}

	vectors, err := o.Embed(context.Background(), texts)
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}

	if calls != 2 {
		t.Errorf("got %d API calls, want 2", calls)
	}
	if len(batchSizes) != 2 || batchSizes[0] != BatchSize || batchSizes[1] != 3 {
		t.Errorf("batch sizes = %v, want [%d 3]", batchSizes, BatchSize)
	}
	if len(vectors) != len(texts) {
		t.Fatalf("got %d vectors, want %d", len(vectors), len(texts))
	}

	// Position 0 of each batch must hold the index-0 embedding despite the
	// reversed wire order.
	if vectors[0][0] != 0 {
		t.Errorf("vectors[0] = %v, want index-ordered", vectors[0])
	}
	if vectors[BatchSize][0] != 0 {
		t.Errorf("second batch not index-ordered: %v", vectors[BatchSize])
	}
}

func TestOpenAIEmbedUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	o, err := NewOpenAI("bad-key", "text-embedding-3-large", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := o.Embed(context.Background(), []string{"x"}); err == nil {
		t.Fatal("Embed() succeeded on 401")
	}
}

func TestNewOpenAIValidation(t *testing.T) {
	if _, err := NewOpenAI("", "model"); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("NewOpenAI without key error = %v, want ErrMissingAPIKey", err)
	}
	if _, err := NewOpenAI("key", ""); err == nil {
		t.Error("NewOpenAI without model succeeded")
	}
}

func TestNewOllamaValidation(t *testing.T) {
	if _, err := NewOllama("", "all-minilm"); err == nil {
		t.Error("NewOllama without host succeeded")
	}
	if _, err := NewOllama("http://localhost:11434", ""); err == nil {
		t.Error("NewOllama without model succeeded")
	}
}

func TestOllamaEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req ollamaEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		embeddings := make([][]float32, len(req.Input))
		for i := range embeddings {
			embeddings[i] = []float32{0.1, 0.2}
		}
		_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: embeddings})
	}))
	defer srv.Close()

	o, err := NewOllama(srv.URL, "all-minilm")
	if err != nil {
		t.Fatal(err)
	}

	vectors, err := o.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vectors) != 2 || len(vectors[0]) != 2 {
		t.Errorf("vectors = %v", vectors)
	}
}

func TestLocalSharedHandle(t *testing.T) {
	first, err1 := Local("http://localhost:11434", "all-minilm")
	second, err2 := Local("http://other:11434", "nomic-embed-text")

	if err1 != nil || err2 != nil {
		t.Fatalf("Local() errors = %v, %v", err1, err2)
	}
	if first != second {
		t.Error("Local() returned different handles; want one shared instance")
	}
}
