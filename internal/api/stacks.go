package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/genstack0/genstack/internal/stack"
)

// stackHandler serves stack CRUD.
type stackHandler struct {
	store  *stack.Store
	logger *slog.Logger
}

// list returns all stacks, most recently updated first.
func (h *stackHandler) list(w http.ResponseWriter, r *http.Request) {
	stacks, err := h.store.ListStacks(r.Context())
	if err != nil {
		h.logger.Error("listing stacks", "error", err)
		writeError(w, http.StatusInternalServerError, "list_failed", "failed to list stacks")
		return
	}
	writeJSON(w, http.StatusOK, stacks)
}

// get returns one stack by id.
func (h *stackHandler) get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	st, err := h.store.GetStack(r.Context(), id)
	if errors.Is(err, stack.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "Stack not found")
		return
	}
	if err != nil {
		h.logger.Error("getting stack", "stack_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "get_failed", "failed to get stack")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type createStackRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Nodes       json.RawMessage `json:"nodes"`
	Edges       json.RawMessage `json:"edges"`
	Config      json.RawMessage `json:"config"`
}

// create inserts a new stack.
func (h *stackHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createStackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	st, err := h.store.CreateStack(r.Context(), stack.CreateStackParams{
		Name:        req.Name,
		Description: req.Description,
		Nodes:       req.Nodes,
		Edges:       req.Edges,
		Config:      req.Config,
	})
	if err != nil {
		h.logger.Error("creating stack", "error", err)
		writeError(w, http.StatusInternalServerError, "create_failed", "failed to create stack")
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

type updateStackRequest struct {
	Name        *string         `json:"name"`
	Description *string         `json:"description"`
	Nodes       json.RawMessage `json:"nodes"`
	Edges       json.RawMessage `json:"edges"`
	Config      json.RawMessage `json:"config"`
}

// update applies a partial stack update.
func (h *stackHandler) update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req updateStackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	st, err := h.store.UpdateStack(r.Context(), id, stack.UpdateStackParams{
		Name:        req.Name,
		Description: req.Description,
		Nodes:       req.Nodes,
		Edges:       req.Edges,
		Config:      req.Config,
	})
	if errors.Is(err, stack.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "Stack not found")
		return
	}
	if err != nil {
		h.logger.Error("updating stack", "stack_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "update_failed", "failed to update stack")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// delete removes a stack and everything attached to it.
func (h *stackHandler) delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	err := h.store.DeleteStack(r.Context(), id)
	if errors.Is(err, stack.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "Stack not found")
		return
	}
	if err != nil {
		h.logger.Error("deleting stack", "stack_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "delete_failed", "failed to delete stack")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Stack deleted successfully"})
}
