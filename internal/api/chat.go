package api

import (
	"context"
	"encoding/json"
	"iter"
	"log/slog"
	"net/http"
	"strings"

	"github.com/genstack0/genstack/internal/stack"
	"github.com/genstack0/genstack/internal/workflow"
)

// chatRunner is the slice of workflow.Executor the chat handler depends on.
type chatRunner interface {
	Run(ctx context.Context, query string, g workflow.Graph, collectionID string) iter.Seq[workflow.Event]
}

// chatHistory is the slice of stack.Store the chat handler depends on.
type chatHistory interface {
	FirstCollection(ctx context.Context, stackID string) (string, error)
	SaveExchange(ctx context.Context, stackID, query, answer string) error
	History(ctx context.Context, stackID string) ([]stack.Message, error)
	ClearHistory(ctx context.Context, stackID string) error
}

// chatHandler executes workflows for chat turns and manages chat history.
type chatHandler struct {
	executor chatRunner
	store    chatHistory // optional: nil disables persistence
	logger   *slog.Logger
}

// chatRequest is one chat turn: the query plus the graph to run it through.
// StackID is optional; when present it binds the turn to the stack's
// knowledge collection and persists the exchange.
type chatRequest struct {
	StackID string          `json:"stack_id"`
	Query   string          `json:"query"`
	Nodes   []workflow.Node `json:"nodes"`
	Edges   []workflow.Edge `json:"edges"`
}

// send executes a chat turn, streaming newline-delimited JSON events.
// The exchange is saved to history after the stream completes, and only if
// any content was produced.
func (h *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "query is required")
		return
	}

	ctx := r.Context()

	collection := ""
	if req.StackID != "" && h.store != nil {
		c, err := h.store.FirstCollection(ctx, req.StackID)
		if err != nil {
			// Retrieval still works without a collection; degrade rather
			// than fail the turn.
			h.logger.Warn("collection lookup failed", "stack_id", req.StackID, "error", err)
		} else {
			collection = c
		}
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported", "response writer does not support streaming")
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(w)
	graph := workflow.Graph{Nodes: req.Nodes, Edges: req.Edges}

	var answer strings.Builder
	for event := range h.executor.Run(ctx, req.Query, graph, collection) {
		if event.Kind == workflow.KindChunk {
			answer.WriteString(event.Chunk)
		}
		if err := enc.Encode(event); err != nil {
			h.logger.Debug("client disconnected mid-stream", "error", err)
			return
		}
		flusher.Flush()
	}

	if req.StackID != "" && h.store != nil && answer.Len() > 0 {
		if err := h.store.SaveExchange(ctx, req.StackID, req.Query, answer.String()); err != nil {
			h.logger.Warn("failed to save chat history", "stack_id", req.StackID, "error", err)
		}
	}
}

// history returns a stack's chat messages in chronological order.
func (h *chatHandler) history(w http.ResponseWriter, r *http.Request) {
	stackID := r.PathValue("stackID")

	msgs, err := h.store.History(r.Context(), stackID)
	if err != nil {
		h.logger.Error("loading chat history", "stack_id", stackID, "error", err)
		writeError(w, http.StatusInternalServerError, "history_failed", "failed to load chat history")
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

// clearHistory deletes a stack's chat messages.
func (h *chatHandler) clearHistory(w http.ResponseWriter, r *http.Request) {
	stackID := r.PathValue("stackID")

	if err := h.store.ClearHistory(r.Context(), stackID); err != nil {
		h.logger.Error("clearing chat history", "stack_id", stackID, "error", err)
		writeError(w, http.StatusInternalServerError, "clear_failed", "failed to clear chat history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Chat history cleared"})
}
