package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/firebase/genkit/go/genkit"

	"github.com/insightlab/insighthub/internal/chat"
)

// chatHandler serves the chat endpoints via the Genkit flow.
//
// Endpoints:
//   - POST /api/v1/chat        - Synchronous chat (JSON request/response)
//   - POST /api/v1/chat/stream - Streaming chat (SSE - Server-Sent Events)
//
// The synchronous endpoint uses genkit.Handler; the streaming endpoint is a
// custom SSE writer. Both go through the same flow for consistency.
type chatHandler struct {
	flow   *chat.Flow
	logger *slog.Logger
}

// registerRoutes registers chat routes on the given mux.
// If flow is nil, routes are not registered and requests will return 404.
func (h *chatHandler) registerRoutes(mux *http.ServeMux) {
	if h.flow == nil {
		h.logger.Warn("chat flow not configured, skipping route registration")
		return
	}

	mux.Handle("POST /api/v1/chat", genkit.Handler(h.flow))
	mux.HandleFunc("POST /api/v1/chat/stream", h.stream)
}

// SSE event types for chat streaming.
const (
	eventChunk = "chunk" // Partial response text
	eventDone  = "done"  // Stream completed successfully
	eventError = "error" // Error occurred during streaming
)

// chunkPayload is the SSE data payload for streaming text chunks.
type chunkPayload struct {
	Text string `json:"text"`
}

// donePayload is the SSE data payload when streaming completes successfully.
type donePayload struct {
	Response  string `json:"response"`
	SessionID string `json:"sessionId"`
}

// errorPayload is the SSE data payload when an error occurs.
type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// stream handles SSE streaming chat requests.
// It streams partial responses as they become available from the model.
func (h *chatHandler) stream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	var input chat.Input
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		_ = writeEvent(w, flusher, eventError, errorPayload{
			Code:    "INVALID_REQUEST",
			Message: "invalid request body",
		})
		return
	}

	if input.SessionID == "" {
		_ = writeEvent(w, flusher, eventError, errorPayload{Code: "MISSING_SESSION_ID", Message: "sessionId is required"})
		return
	}
	if input.Query == "" {
		_ = writeEvent(w, flusher, eventError, errorPayload{Code: "MISSING_QUERY", Message: "query is required"})
		return
	}

	ctx := r.Context()
	h.logger.Debug("SSE stream started", "sessionId", input.SessionID)

	var (
		finalOutput chat.Output
		streamErr   error
		hasChunks   bool
	)

	for streamValue, err := range h.flow.Stream(ctx, input) {
		select {
		case <-ctx.Done():
			h.logger.Info("client disconnected", "sessionId", input.SessionID)
			return
		default:
		}

		if err != nil {
			streamErr = err
			break
		}

		if streamValue.Done {
			finalOutput = streamValue.Output
			break
		}

		if streamValue.Stream.Text != "" {
			hasChunks = true
			if err := writeEvent(w, flusher, eventChunk, chunkPayload{
				Text: streamValue.Stream.Text,
			}); err != nil {
				h.logger.Error("failed to write chunk", "error", err)
				return // Write failure usually means connection closed
			}
		}
	}

	if streamErr != nil {
		h.handleStreamError(w, flusher, streamErr)
		return
	}

	_ = writeEvent(w, flusher, eventDone, donePayload{
		Response:  finalOutput.Response,
		SessionID: finalOutput.SessionID,
	})

	h.logger.Info("SSE stream completed", "sessionId", input.SessionID, "chunks", hasChunks)
}

// handleStreamError maps chat errors to SSE error events.
func (*chatHandler) handleStreamError(w io.Writer, f http.Flusher, err error) {
	code := "STREAM_ERROR"

	// Circuit-open errors arrive wrapped in ErrExecutionFailed, so the
	// more specific check has to run first.
	switch {
	case errors.Is(err, chat.ErrInvalidSession):
		code = "INVALID_SESSION"
	case errors.Is(err, chat.ErrCircuitOpen):
		code = "MODEL_UNAVAILABLE"
	case errors.Is(err, chat.ErrExecutionFailed):
		code = "EXECUTION_FAILED"
	}

	_ = writeEvent(w, f, eventError, errorPayload{
		Code:    code,
		Message: err.Error(),
	})
}

// writeEvent writes a single SSE event with JSON-encoded data.
// SSE format: "event: <type>\ndata: <json>\n\n"
func writeEvent[T any](w io.Writer, flusher http.Flusher, event string, data T) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	flusher.Flush()
	return nil
}
