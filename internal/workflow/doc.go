// Package workflow contains the graph validator and pipeline execution
// engine for user-authored RAG workflows.
//
// A workflow is a graph of typed nodes (user query, optional knowledge base,
// LLM engine, output) connected by edges. Validate checks structural
// well-formedness before execution; Executor.Run executes the pipeline for a
// single chat turn, streaming the generated answer as an ordered sequence of
// events (one metadata event, then content chunks, then either normal end of
// stream or a single terminal error).
//
// The executor owns the degradation policy: failures in the optional
// augmentation stages (knowledge-base retrieval, web search) are absorbed and
// the pipeline proceeds without that context source, while failures in the
// mandatory generation stage terminate the stream with an error event.
//
// All collaborators (retriever, web searcher, generator) are injected at
// construction time; the executor holds no mutable state between runs.
package workflow
