// Package llm provides text generation through a single OpenAI-compatible
// backend (OpenRouter by default).
//
// The client owns model routing policy: deprecated model identifiers are
// remapped to the canonical default before dispatch, the output token count
// is capped at MaxOutputTokens as a cost control, and the prompt is built
// from the query, assembled context and optional user template.
//
// Earlier revisions of the system carried per-vendor code paths; routing has
// since collapsed onto one provider strategy. The Client type is the single
// production implementation; callers depend on the workflow package's
// Generator interface, so a second provider remains pluggable.
package llm
