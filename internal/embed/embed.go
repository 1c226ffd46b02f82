// Package embed provides the embedding backends used to vectorize document
// passages and queries.
//
// Two backends exist: a remote OpenAI-compatible API client (requires an API
// key) and a local Ollama client (credential-free). Which one is used for a
// given knowledge base is decided by the knowledge package; the two must
// never be mixed within one collection.
package embed

import "context"

// Embedder converts texts into embedding vectors.
type Embedder interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
