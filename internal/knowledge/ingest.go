package knowledge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/genstack0/genstack/internal/embed"
)

// passageWriter is the slice of Store the ingestor depends on.
type passageWriter interface {
	AddPassages(ctx context.Context, collection string, texts []string, embeddings [][]float32, metadatas []map[string]string) (int, error)
}

// Ingestor embeds document chunks and writes them into a collection. It
// shares the retriever's backend-selection rule so a collection is always
// queried with the backend that built it.
type Ingestor struct {
	store  passageWriter
	local  embed.Embedder
	remote RemoteEmbedderFactory
	logger *slog.Logger
}

// NewIngestor creates an Ingestor.
func NewIngestor(store passageWriter, local embed.Embedder, remote RemoteEmbedderFactory, logger *slog.Logger) (*Ingestor, error) {
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
	return &Ingestor{store: store, local: local, remote: remote, logger: logger}, nil
}

// Ingest embeds texts with the backend selected by apiKey and model, then
// stores them under collection. Returns the number of passages stored.
func (i *Ingestor) Ingest(ctx context.Context, collection string, texts []string, apiKey, model string) (int, error) {
	if collection == "" {
		return 0, fmt.Errorf("collection is required")
	}
	if len(texts) == 0 {
		return 0, nil
	}

	var backend embed.Embedder = i.local
	if SelectBackend(apiKey, model) {
		remote, err := i.remote(apiKey, model)
		if err != nil {
			return 0, fmt.Errorf("creating remote embedder: %w", err)
		}
		backend = remote
	}

	vectors, err := backend.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding chunks: %w", err)
	}

	stored, err := i.store.AddPassages(ctx, collection, texts, vectors, nil)
	if err != nil {
		return 0, err
	}

	i.logger.Info("collection indexed", "collection", collection, "passages", stored)
	return stored, nil
}
