package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/genstack0/genstack/internal/workflow"
)

// workflowHandler serves graph validation.
type workflowHandler struct {
	logger *slog.Logger
}

// validateRequest is the wire shape of a validation call: the graph as the
// builder holds it.
type validateRequest struct {
	Nodes []workflow.Node `json:"nodes"`
	Edges []workflow.Edge `json:"edges"`
}

// validate checks a workflow graph and reports every violated rule.
func (h *workflowHandler) validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	result := workflow.Validate(workflow.Graph{Nodes: req.Nodes, Edges: req.Edges})

	h.logger.Debug("workflow validated",
		"valid", result.Valid, "nodes", len(req.Nodes), "edges", len(req.Edges), "errors", len(result.Errors))

	writeJSON(w, http.StatusOK, result)
}
