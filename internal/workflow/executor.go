package workflow

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/genstack0/genstack/internal/knowledge"
	"github.com/genstack0/genstack/internal/llm"
	"github.com/genstack0/genstack/internal/websearch"
)

// errNoGenerator is the terminal message when the graph has no LLM engine.
const errNoGenerator = "No LLM Engine configured in workflow"

// Retriever fetches passages similar to the query from a bound collection.
// Implemented by knowledge.Retriever.
type Retriever interface {
	Retrieve(ctx context.Context, query string, opts knowledge.RetrieveOptions) ([]knowledge.Match, error)
}

// Searcher performs the optional web-search augmentation.
// Implemented by websearch.Client.
type Searcher interface {
	Search(ctx context.Context, query, apiKey string, numResults int) ([]websearch.Result, error)
}

// Generator produces answers. Implemented by llm.Client.
type Generator interface {
	// ResolveModel maps a requested model id to the id actually dispatched.
	ResolveModel(model string) string

	// Generate returns the complete answer.
	Generate(ctx context.Context, req llm.Request) (string, error)

	// GenerateStream yields answer fragments; at most one non-nil error,
	// always last.
	GenerateStream(ctx context.Context, req llm.Request) iter.Seq2[string, error]
}

// ExecutorConfig carries the executor's collaborators.
type ExecutorConfig struct {
	Retriever  Retriever // optional: nil skips knowledge-base retrieval
	Searcher   Searcher  // optional: nil skips web search
	Generator  Generator // required
	SerpAPIKey string    // process-wide default, used when the node carries none
	Logger     *slog.Logger
}

// Executor runs workflow graphs against live queries. It is stateless
// between runs; each Run/RunOnce call builds its own execution state and
// discards it at call end.
type Executor struct {
	retriever Retriever
	searcher  Searcher
	generator Generator
	serpKey   string
	logger    *slog.Logger
}

// NewExecutor creates an Executor.
func NewExecutor(cfg ExecutorConfig) (*Executor, error) {
	if cfg.Generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		retriever: cfg.Retriever,
		searcher:  cfg.Searcher,
		generator: cfg.Generator,
		serpKey:   cfg.SerpAPIKey,
		logger:    logger,
	}, nil
}

// execState is the per-invocation execution context: resolved query inputs,
// accumulated context strings, and the generation request derived from the
// graph. Owned exclusively by one Run/RunOnce call.
type execState struct {
	kbContext  string
	webContext string
	request    llm.Request
	meta       Metadata
}

// prepare runs the pre-generation pipeline stages: knowledge-base retrieval,
// web search, context assembly and generator-config resolution. Failures in
// the two augmentation stages are absorbed here; prepare itself cannot fail.
func (e *Executor) prepare(ctx context.Context, query string, g Graph, genNode Node, collectionID string) execState {
	var st execState

	kbNode, hasKB := g.First(RoleKnowledgeBase)

	// Stage 1: knowledge-base retrieval, only when a collection is bound.
	if hasKB && collectionID != "" && e.retriever != nil {
		matches, err := e.retriever.Retrieve(ctx, query, knowledge.RetrieveOptions{
			Collection:     collectionID,
			APIKey:         kbNode.Data.APIKey,
			EmbeddingModel: kbNode.Data.EmbeddingModel,
			TopK:           kbNode.Data.TopK,
		})
		switch {
		case err != nil:
			e.logger.Warn("knowledge base retrieval failed, continuing without context", "error", err)
		case len(matches) > 0:
			texts := make([]string, len(matches))
			for i, m := range matches {
				texts[i] = m.Content
			}
			st.kbContext = strings.Join(texts, "\n\n")
		}
	}

	// Stage 2: web search, only when the generator node enables it and a
	// key is available. Node key takes precedence over the process default.
	gen := genNode.Data
	serpKey := gen.SerpAPIKey
	if serpKey == "" {
		serpKey = e.serpKey
	}
	if gen.EnableWebSearch && serpKey != "" && e.searcher != nil {
		results, err := e.searcher.Search(ctx, query, serpKey, websearch.DefaultNumResults)
		if err != nil {
			e.logger.Warn("web search failed, continuing without web context", "error", err)
		} else {
			st.webContext = websearch.Format(results)
		}
	}

	// Stage 3: context assembly. Ordering is fixed: knowledge base first.
	fullContext := AssembleContext(st.kbContext, st.webContext)

	// Stage 4: generator configuration. Credential precedence: generator
	// node key, then knowledge-base node key, then the process default
	// (applied inside the llm client).
	apiKey := gen.APIKey
	if apiKey == "" && hasKB {
		apiKey = kbNode.Data.APIKey
	}

	st.request = llm.Request{
		Query:          query,
		Context:        fullContext,
		PromptTemplate: gen.Prompt,
		Model:          gen.Model,
		Temperature:    gen.Temperature,
		MaxTokens:      gen.MaxTokens,
		APIKey:         apiKey,
	}

	st.meta = Metadata{
		Model:        e.generator.ResolveModel(gen.Model),
		HasContext:   st.kbContext != "",
		HasWebSearch: st.webContext != "",
	}

	return st
}

// Run executes the workflow for one chat turn, streaming events.
//
// The sequence is single-pass and consumer-driven: exactly one metadata
// event (if the graph has a generator) followed by zero or more chunks,
// terminated either by normal end of stream or by a single error event.
// Stopping iteration early releases the in-flight generation call.
func (e *Executor) Run(ctx context.Context, query string, g Graph, collectionID string) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		genNode, ok := g.First(RoleGenerator)
		if !ok {
			yield(ErrorEvent(errNoGenerator))
			return
		}

		st := e.prepare(ctx, query, g, genNode, collectionID)

		if !yield(MetadataEvent(st.meta)) {
			return
		}

		for chunk, err := range e.generator.GenerateStream(ctx, st.request) {
			if err != nil {
				e.logger.Error("generation stream failed", "model", st.meta.Model, "error", err)
				yield(ErrorEvent(fmt.Sprintf("Error generating stream: %v", err)))
				return
			}
			if !yield(ChunkEvent(chunk)) {
				return
			}
		}
	}
}

// RunOnce executes the workflow without streaming. Generation failures are
// reported in the result rather than returned as an error, so the caller
// always receives a well-formed Result.
func (e *Executor) RunOnce(ctx context.Context, query string, g Graph, collectionID string) Result {
	genNode, ok := g.First(RoleGenerator)
	if !ok {
		return Result{Success: false, Content: errNoGenerator}
	}

	st := e.prepare(ctx, query, g, genNode, collectionID)

	content, err := e.generator.Generate(ctx, st.request)
	if err != nil {
		e.logger.Error("generation failed", "model", st.meta.Model, "error", err)
		return Result{Success: false, Content: fmt.Sprintf("Error generating response: %v", err)}
	}

	return Result{Success: true, Content: content, Metadata: st.meta}
}
