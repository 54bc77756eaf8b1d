package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/insightlab/insighthub/internal/artifact"
	"github.com/insightlab/insighthub/internal/catalog"
	"github.com/insightlab/insighthub/internal/chat"
	"github.com/insightlab/insighthub/internal/dataset"
	"github.com/insightlab/insighthub/internal/rag"
	"github.com/insightlab/insighthub/internal/session"
)

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger       *slog.Logger
	ChatFlow     *chat.Flow        // Optional: nil disables the chat endpoints
	SessionStore *session.Store    // Required
	Registry     *catalog.Registry // Required
	Indexer      *rag.Indexer      // Optional: nil disables document ingestion
	DatasetStore *dataset.Store    // Optional: nil disables dataset endpoints
	Artifacts    *artifact.Store   // Optional: nil disables report endpoints
	Pool         *pgxpool.Pool     // Optional: nil disables pool stats in /ready
	CORSOrigins  []string          // Allowed origins for CORS
	TrustProxy   bool              // Trust X-Real-IP/X-Forwarded-For headers (behind reverse proxy)
	RateBurst    int               // Rate limiter burst size per IP (0 = default 60)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a new API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.SessionStore == nil {
		return nil, errors.New("session store is required")
	}
	if cfg.Registry == nil {
		return nil, errors.New("agent registry is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	// Session CRUD
	sh := &sessionHandler{store: cfg.SessionStore, logger: logger}
	mux.HandleFunc("GET /api/v1/sessions", sh.listSessions)
	mux.HandleFunc("POST /api/v1/sessions", sh.createSession)
	mux.HandleFunc("GET /api/v1/sessions/{id}", sh.getSession)
	mux.HandleFunc("GET /api/v1/sessions/{id}/messages", sh.getSessionMessages)
	mux.HandleFunc("DELETE /api/v1/sessions/{id}", sh.deleteSession)

	// Chat (sync + SSE streaming)
	ch := &chatHandler{flow: cfg.ChatFlow, logger: logger}
	ch.registerRoutes(mux)

	// Agent catalog
	ah := &agentHandler{registry: cfg.Registry, logger: logger}
	mux.HandleFunc("GET /api/v1/agents", ah.list)
	mux.HandleFunc("POST /api/v1/agents/{name}/run", ah.run)

	// Knowledge base ingestion (optional — only registered if indexer is provided)
	if cfg.Indexer != nil {
		dh := &documentHandler{indexer: cfg.Indexer, logger: logger}
		mux.HandleFunc("POST /api/v1/documents", dh.ingest)
		mux.HandleFunc("GET /api/v1/documents", dh.list)
		mux.HandleFunc("DELETE /api/v1/documents/{id}", dh.remove)
	}

	// Datasets
	if cfg.DatasetStore != nil {
		dsh := &datasetHandler{store: cfg.DatasetStore, logger: logger}
		mux.HandleFunc("POST /api/v1/datasets", dsh.load)
		mux.HandleFunc("GET /api/v1/datasets", dsh.list)
		mux.HandleFunc("GET /api/v1/datasets/{name}", dsh.get)
		mux.HandleFunc("DELETE /api/v1/datasets/{name}", dsh.drop)
		mux.HandleFunc("POST /api/v1/datasets/query", dsh.query)
	}

	// Report artifacts
	if cfg.Artifacts != nil {
		rh := &reportHandler{store: cfg.Artifacts, logger: logger}
		mux.HandleFunc("GET /api/v1/reports", rh.list)
		mux.HandleFunc("GET /api/v1/reports/{name}", rh.get)
	}

	// Rate limiter: per-caller token buckets, with a tighter bucket for
	// model-backed endpoints.
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(burst)

	// Build middleware stack (outermost first):
	//   Recovery → RequestID → Logging → CORS → RateLimit → Routes
	// RequestID must be before Logging so request_id is available in log attributes.
	// CORS must be before RateLimit so preflight OPTIONS gets proper CORS headers.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Wrap with security headers
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w)
		handler.ServeHTTP(w, r)
	})

	// Use a top-level mux to separate health probes from middleware stack
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health)
	topMux.Handle("GET /ready", readiness(cfg.Pool))
	topMux.Handle("/", final)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
