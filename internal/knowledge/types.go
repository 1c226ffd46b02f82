package knowledge

// Match is a single similarity search result.
type Match struct {
	// Content is the passage text.
	Content string

	// Metadata carries arbitrary passage annotations (source file, chunk
	// index, ...).
	Metadata map[string]string

	// Distance is the cosine distance between the query and the passage
	// embedding. Smaller is more similar.
	Distance float64
}

// RetrieveOptions configures a retrieval call. Values come from the
// knowledge-base node of the workflow graph.
type RetrieveOptions struct {
	// Collection identifies the set of indexed passages to search.
	Collection string

	// APIKey, when set together with a non-local EmbeddingModel, selects the
	// remote embedding backend.
	APIKey string

	// EmbeddingModel names the embedding model. The literal "local" (or an
	// empty string) forces the local backend.
	EmbeddingModel string

	// TopK is the maximum number of matches to return. Zero means
	// DefaultTopK.
	TopK int
}

// DefaultTopK is the number of passages retrieved when the node does not
// specify topK.
const DefaultTopK = 5

// LocalEmbeddingModel is the sentinel model name selecting the local,
// credential-free embedding backend.
const LocalEmbeddingModel = "local"
