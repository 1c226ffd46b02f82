// Package knowledge provides vector storage and similarity retrieval for
// indexed document passages.
//
// Store persists passage embeddings in PostgreSQL + pgvector, grouped into
// named collections (one collection per uploaded document). Retriever turns
// a query into an embedding (choosing between the local and remote
// embedding backend deterministically from the knowledge-base node
// configuration) and fetches the most similar passages by cosine distance.
//
// The backend choice matters for correctness: passages must be queried with
// the same backend that embedded them, otherwise distances are meaningless.
// The choice is a pure function of (apiKey, embeddingModel), applied
// identically at indexing and query time.
package knowledge
