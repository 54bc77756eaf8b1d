package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/insightlab/insighthub/internal/dataset"
)

// datasetHandler serves the dataset loading and query endpoints.
type datasetHandler struct {
	store  *dataset.Store
	logger *slog.Logger
}

type loadDatasetRequest struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

type datasetResponse struct {
	Name      string           `json:"name"`
	TableName string           `json:"tableName"`
	RowCount  int64            `json:"rowCount"`
	Columns   []columnResponse `json:"columns"`
}

type columnResponse struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type queryRequest struct {
	SQL string `json:"sql"`
}

type queryResponse struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

func toDatasetResponse(ds *dataset.Dataset) datasetResponse {
	cols := make([]columnResponse, 0, len(ds.Columns))
	for _, c := range ds.Columns {
		cols = append(cols, columnResponse{Name: c.Name, Type: c.Type})
	}
	return datasetResponse{
		Name:      ds.Name,
		TableName: ds.TableName,
		RowCount:  ds.RowCount,
		Columns:   cols,
	}
}

// load handles POST /api/v1/datasets. Ingests a CSV file into SQLite and
// registers it under the given name.
func (h *datasetHandler) load(w http.ResponseWriter, r *http.Request) {
	var req loadDatasetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body", h.logger)
		return
	}
	if req.Name == "" || req.Path == "" {
		writeError(w, http.StatusBadRequest, "missing_fields", "name and path are required", h.logger)
		return
	}

	ds, err := h.store.LoadCSV(r.Context(), req.Name, req.Path)
	if err != nil {
		h.logger.Error("dataset load failed", "name", req.Name, "path", req.Path, "error", err)
		writeError(w, http.StatusBadRequest, "load_failed", err.Error(), h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, toDatasetResponse(ds))
}

// list handles GET /api/v1/datasets.
func (h *datasetHandler) list(w http.ResponseWriter, r *http.Request) {
	datasets, err := h.store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list_failed", "failed to list datasets", h.logger)
		return
	}

	out := make([]datasetResponse, 0, len(datasets))
	for i := range datasets {
		out = append(out, toDatasetResponse(&datasets[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"datasets": out})
}

// get handles GET /api/v1/datasets/{name}.
func (h *datasetHandler) get(w http.ResponseWriter, r *http.Request) {
	ds, err := h.store.Get(r.Context(), r.PathValue("name"))
	if err != nil {
		if errors.Is(err, dataset.ErrDatasetNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "dataset not found", h.logger)
			return
		}
		writeError(w, http.StatusInternalServerError, "get_failed", "failed to load dataset", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, toDatasetResponse(ds))
}

// drop handles DELETE /api/v1/datasets/{name}.
func (h *datasetHandler) drop(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Drop(r.Context(), r.PathValue("name")); err != nil {
		if errors.Is(err, dataset.ErrDatasetNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "dataset not found", h.logger)
			return
		}
		writeError(w, http.StatusInternalServerError, "drop_failed", "failed to drop dataset", h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// query handles POST /api/v1/datasets/query. Runs a read-only SQL query
// against the loaded datasets, with the same safety gate the data query
// agent uses.
func (h *datasetHandler) query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body", h.logger)
		return
	}
	if req.SQL == "" {
		writeError(w, http.StatusBadRequest, "missing_sql", "sql is required", h.logger)
		return
	}

	if err := dataset.ValidateQuery(req.SQL); err != nil {
		writeError(w, http.StatusBadRequest, "unsafe_query", err.Error(), h.logger)
		return
	}
	sql := dataset.EnforceLimit(req.SQL, dataset.MaxQueryRows)

	columns, rows, err := h.store.Query(r.Context(), sql)
	if err != nil {
		writeError(w, http.StatusBadRequest, "query_failed", err.Error(), h.logger)
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{Columns: columns, Rows: rows})
}
