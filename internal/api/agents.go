package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/insightlab/insighthub/internal/catalog"
)

// agentHandler serves the agent catalog endpoints: listing the available
// agents and running one by name.
type agentHandler struct {
	registry *catalog.Registry
	logger   *slog.Logger
}

type runAgentRequest struct {
	Input   string            `json:"input"`
	Options map[string]string `json:"options"`
}

type runAgentResponse struct {
	Output   string            `json:"output"`
	Sources  []string          `json:"sources,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// list handles GET /api/v1/agents.
func (h *agentHandler) list(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"agents": h.registry.List()})
}

// run handles POST /api/v1/agents/{name}/run.
func (h *agentHandler) run(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	agent, err := h.registry.Lookup(name)
	if err != nil {
		if errors.Is(err, catalog.ErrUnknownAgent) {
			writeError(w, http.StatusNotFound, "unknown_agent", "no agent named "+name, h.logger)
			return
		}
		writeError(w, http.StatusInternalServerError, "lookup_failed", "failed to look up agent", h.logger)
		return
	}

	var req runAgentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body", h.logger)
		return
	}
	if req.Input == "" {
		writeError(w, http.StatusBadRequest, "missing_input", "input is required", h.logger)
		return
	}

	result, err := agent.Run(r.Context(), catalog.Request{Input: req.Input, Options: req.Options})
	if err != nil {
		h.logger.Error("agent run failed", "agent", name, "error", err)
		writeError(w, http.StatusInternalServerError, "run_failed", "agent execution failed", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, runAgentResponse{
		Output:   result.Output,
		Sources:  result.Sources,
		Metadata: result.Metadata,
	})
}
