package api

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/insightlab/insighthub/internal/artifact"
)

// reportHandler serves the saved report artifacts produced by the
// autonomous reporter agent.
type reportHandler struct {
	store  *artifact.Store
	logger *slog.Logger
}

type reportListEntry struct {
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	CreatedAt string `json:"createdAt"`
}

// list handles GET /api/v1/reports.
func (h *reportHandler) list(w http.ResponseWriter, _ *http.Request) {
	artifacts, err := h.store.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list_failed", "failed to list reports", h.logger)
		return
	}

	out := make([]reportListEntry, 0, len(artifacts))
	for _, a := range artifacts {
		out = append(out, reportListEntry{
			Name:      a.Name,
			Size:      a.Size,
			CreatedAt: a.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": out})
}

// get handles GET /api/v1/reports/{name}. Returns the report as markdown.
func (h *reportHandler) get(w http.ResponseWriter, r *http.Request) {
	content, err := h.store.Read(r.PathValue("name"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			writeError(w, http.StatusNotFound, "not_found", "report not found", h.logger)
			return
		}
		writeError(w, http.StatusBadRequest, "read_failed", "failed to read report", h.logger)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if _, err := w.Write([]byte(content)); err != nil {
		h.logger.Debug("failed to write report body", "error", err)
	}
}
