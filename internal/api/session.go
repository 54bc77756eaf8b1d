package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/insightlab/insighthub/internal/catalog"
	"github.com/insightlab/insighthub/internal/session"
)

const defaultSessionListLimit = 50

// sessionHandler serves the session CRUD endpoints.
type sessionHandler struct {
	store  *session.Store
	logger *slog.Logger
}

type createSessionRequest struct {
	Title string `json:"title"`
	Agent string `json:"agent"`
}

// applyDefaults fills the optional fields: an untitled session gets a
// placeholder title and an unspecified agent gets the document RAG agent,
// matching the interactive chat default.
func (r *createSessionRequest) applyDefaults() {
	if strings.TrimSpace(r.Title) == "" {
		r.Title = "New conversation"
	}
	if strings.TrimSpace(r.Agent) == "" {
		r.Agent = catalog.NameDocumentRAG
	}
}

type sessionResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Agent     string `json:"agent"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type messageResponse struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Sequence  int32  `json:"sequence"`
	CreatedAt string `json:"createdAt"`
}

func toSessionResponse(s *session.Session) sessionResponse {
	return sessionResponse{
		ID:        s.ID.String(),
		Title:     s.Title,
		Agent:     s.AgentName,
		CreatedAt: s.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt: s.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// createSession handles POST /api/v1/sessions.
func (h *sessionHandler) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body", h.logger)
		return
	}

	req.applyDefaults()

	s, err := h.store.Create(r.Context(), req.Title, req.Agent)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "create_failed", "failed to create session", h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, toSessionResponse(s))
}

// listSessions handles GET /api/v1/sessions.
func (h *sessionHandler) listSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.List(r.Context(), defaultSessionListLimit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list_failed", "failed to list sessions", h.logger)
		return
	}

	out := make([]sessionResponse, 0, len(sessions))
	for i := range sessions {
		out = append(out, toSessionResponse(&sessions[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": out})
}

// getSession handles GET /api/v1/sessions/{id}.
func (h *sessionHandler) getSession(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathSessionID(w, r)
	if !ok {
		return
	}

	s, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "session not found", h.logger)
			return
		}
		writeError(w, http.StatusInternalServerError, "get_failed", "failed to load session", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, toSessionResponse(s))
}

// getSessionMessages handles GET /api/v1/sessions/{id}/messages.
func (h *sessionHandler) getSessionMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathSessionID(w, r)
	if !ok {
		return
	}

	messages, err := h.store.Messages(r.Context(), id, 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "messages_failed", "failed to load messages", h.logger)
		return
	}

	out := make([]messageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, messageResponse{
			Role:      m.Role,
			Content:   m.Content,
			Sequence:  m.Sequence,
			CreatedAt: m.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": out})
}

// deleteSession handles DELETE /api/v1/sessions/{id}.
func (h *sessionHandler) deleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathSessionID(w, r)
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "session not found", h.logger)
			return
		}
		writeError(w, http.StatusInternalServerError, "delete_failed", "failed to delete session", h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// pathSessionID parses the {id} path value. Writes a 400 response and returns
// false when the value is not a UUID.
func (h *sessionHandler) pathSessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_session_id", "session id must be a UUID", h.logger)
		return uuid.Nil, false
	}
	return id, true
}
