package api

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/insightlab/insighthub/internal/rag"
)

// documentHandler serves the knowledge base ingestion endpoints.
type documentHandler struct {
	indexer *rag.Indexer
	logger  *slog.Logger
}

type ingestRequest struct {
	Path string `json:"path"`
}

type ingestResponse struct {
	FilesAdded   int   `json:"filesAdded"`
	FilesSkipped int   `json:"filesSkipped"`
	FilesFailed  int   `json:"filesFailed"`
	ChunksAdded  int   `json:"chunksAdded"`
	TotalSize    int64 `json:"totalSize"`
}

type documentResponse struct {
	ID       string            `json:"id"`
	Preview  string            `json:"preview"`
	Metadata map[string]string `json:"metadata"`
}

const documentPreviewRunes = 200

// ingest handles POST /api/v1/documents. Accepts a file or directory path;
// directories are walked recursively.
func (h *documentHandler) ingest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body", h.logger)
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "missing_path", "path is required", h.logger)
		return
	}

	info, err := os.Stat(req.Path)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_path", "path does not exist or is not readable", h.logger)
		return
	}

	if info.IsDir() {
		result, err := h.indexer.AddDirectory(r.Context(), req.Path)
		if err != nil {
			h.logger.Error("directory ingestion failed", "path", req.Path, "error", err)
			writeError(w, http.StatusInternalServerError, "ingest_failed", "failed to index directory", h.logger)
			return
		}
		writeJSON(w, http.StatusOK, ingestResponse{
			FilesAdded:   result.FilesAdded,
			FilesSkipped: result.FilesSkipped,
			FilesFailed:  result.FilesFailed,
			ChunksAdded:  result.ChunksAdded,
			TotalSize:    result.TotalSize,
		})
		return
	}

	chunks, err := h.indexer.AddFile(r.Context(), req.Path)
	if err != nil {
		h.logger.Error("file ingestion failed", "path", req.Path, "error", err)
		writeError(w, http.StatusBadRequest, "ingest_failed", err.Error(), h.logger)
		return
	}
	writeJSON(w, http.StatusOK, ingestResponse{
		FilesAdded:  1,
		ChunksAdded: chunks,
		TotalSize:   info.Size(),
	})
}

// list handles GET /api/v1/documents.
func (h *documentHandler) list(w http.ResponseWriter, r *http.Request) {
	docs, err := h.indexer.ListDocuments(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list_failed", "failed to list documents", h.logger)
		return
	}

	out := make([]documentResponse, 0, len(docs))
	for _, d := range docs {
		preview := d.Content
		if runes := []rune(preview); len(runes) > documentPreviewRunes {
			preview = string(runes[:documentPreviewRunes])
		}
		out = append(out, documentResponse{
			ID:       d.ID,
			Preview:  preview,
			Metadata: d.Metadata,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": out})
}

// remove handles DELETE /api/v1/documents/{id}.
func (h *documentHandler) remove(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing_id", "document id is required", h.logger)
		return
	}

	if err := h.indexer.RemoveDocument(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "delete_failed", "failed to delete document", h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
