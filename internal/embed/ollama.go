package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// Ollama is the local, credential-free embedding backend. It talks to an
// Ollama server's /api/embed endpoint.
type Ollama struct {
	host   string
	model  string
	client *http.Client
}

// NewOllama creates a local embedding client. host is the Ollama base URL
// (e.g. http://localhost:11434), model the embedding model name.
func NewOllama(host, model string) (*Ollama, error) {
	if host == "" {
		return nil, fmt.Errorf("ollama host is required")
	}
	if model == "" {
		return nil, fmt.Errorf("ollama model is required")
	}
	return &Ollama{
		host:  host,
		model: model,
		// Local model inference can be slow on first use while the model
		// loads into memory.
		client: &http.Client{Timeout: 2 * time.Minute},
	}, nil
}

var (
	localOnce    sync.Once
	localShared  *Ollama
	localInitErr error
)

// Local returns the process-wide shared local embedder, initializing it on
// first call. Initialization is idempotent and safe under concurrent first
// use; every caller observes the same handle (or the same error).
func Local(host, model string) (*Ollama, error) {
	localOnce.Do(func() {
		localShared, localInitErr = NewOllama(host, model)
	})
	return localShared, localInitErr
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed generates embeddings using the local model.
func (o *Ollama) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(ollamaEmbedRequest{Model: o.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.host+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("ollama embed status %d: %s", resp.StatusCode, respBody)
	}

	var parsed ollamaEmbedResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}
	if len(parsed.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(parsed.Embeddings))
	}

	return parsed.Embeddings, nil
}
