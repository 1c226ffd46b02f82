package knowledge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/genstack0/genstack/internal/embed"
)

// similaritySearcher is the slice of Store the retriever depends on.
// Consumer-defined so tests can substitute an in-memory fake.
type similaritySearcher interface {
	QuerySimilar(ctx context.Context, collection string, embedding []float32, topK int) ([]Match, error)
}

// RemoteEmbedderFactory builds a remote embedder bound to a request's API
// key and model. Construction errors surface as retrieval failures.
type RemoteEmbedderFactory func(apiKey, model string) (embed.Embedder, error)

// Retriever resolves queries against indexed collections.
type Retriever struct {
	store  similaritySearcher
	local  embed.Embedder
	remote RemoteEmbedderFactory
	logger *slog.Logger
}

// NewRetriever creates a Retriever.
//   - store: similarity search backend
//   - local: the shared local embedder (see embed.Local)
//   - remote: factory for per-request remote embedders
func NewRetriever(store similaritySearcher, local embed.Embedder, remote RemoteEmbedderFactory, logger *slog.Logger) (*Retriever, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if local == nil {
		return nil, fmt.Errorf("local embedder is required")
	}
	if remote == nil {
		return nil, fmt.Errorf("remote embedder factory is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{store: store, local: local, remote: remote, logger: logger}, nil
}

// SelectBackend reports whether the remote backend is used for the given
// node configuration. The rule is deterministic: remote if and only if an
// API key is present and the model is not the local sentinel.
func SelectBackend(apiKey, embeddingModel string) (remote bool) {
	return apiKey != "" && embeddingModel != "" && embeddingModel != LocalEmbeddingModel
}

// embedder resolves the embedding backend for the given options.
func (r *Retriever) embedder(opts RetrieveOptions) (embed.Embedder, error) {
	if SelectBackend(opts.APIKey, opts.EmbeddingModel) {
		backend, err := r.remote(opts.APIKey, opts.EmbeddingModel)
		if err != nil {
			return nil, fmt.Errorf("creating remote embedder: %w", err)
		}
		return backend, nil
	}
	return r.local, nil
}

// Retrieve embeds the query and returns up to opts.TopK similar passages
// from the collection. Errors are returned to the caller; the pipeline
// executor decides whether to absorb them.
func (r *Retriever) Retrieve(ctx context.Context, query string, opts RetrieveOptions) ([]Match, error) {
	if opts.Collection == "" {
		return nil, fmt.Errorf("collection is required")
	}

	backend, err := r.embedder(opts)
	if err != nil {
		return nil, err
	}

	vectors, err := backend.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("empty query embedding")
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	matches, err := r.store.QuerySimilar(ctx, opts.Collection, vectors[0], topK)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("retrieved passages",
		"collection", opts.Collection, "top_k", topK, "matches", len(matches))
	return matches, nil
}
