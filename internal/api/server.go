// Package api exposes the workflow engine over a JSON HTTP API: graph
// validation, streaming chat execution, stack CRUD and document uploads.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/genstack0/genstack/internal/docproc"
	"github.com/genstack0/genstack/internal/knowledge"
	"github.com/genstack0/genstack/internal/stack"
	"github.com/genstack0/genstack/internal/workflow"
)

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger      *slog.Logger
	Executor    *workflow.Executor  // Required: runs chat turns
	StackStore  *stack.Store        // Optional: nil disables stacks, documents and history
	Processor   *docproc.Processor  // Required when StackStore is set
	Ingestor    *knowledge.Ingestor // Required when StackStore is set
	Collections *knowledge.Store    // Required when StackStore is set
	Pool        *pgxpool.Pool       // Optional: nil disables DB ping in /ready
	CORSOrigins []string            // Allowed origins for CORS
	TrustProxy  bool                // Trust X-Real-IP/X-Forwarded-For headers
	MaxFileSize int64               // Upload size cap in bytes (0 = 10MB)
	RateBurst   int                 // Rate limiter burst size per IP (0 = default 60)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a new API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Executor == nil {
		return nil, errors.New("executor is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	maxFileSize := cfg.MaxFileSize
	if maxFileSize <= 0 {
		maxFileSize = 10 * 1024 * 1024
	}

	mux := http.NewServeMux()

	// Workflow validation
	wh := &workflowHandler{logger: logger}
	mux.HandleFunc("POST /api/v1/workflows/validate", wh.validate)

	// Chat execution and history
	ch := &chatHandler{executor: cfg.Executor, logger: logger}
	if cfg.StackStore != nil {
		ch.store = cfg.StackStore
	}
	mux.HandleFunc("POST /api/v1/chat", ch.send)

	// Persistence-backed routes are only registered with a store.
	if cfg.StackStore != nil {
		if cfg.Processor == nil || cfg.Ingestor == nil || cfg.Collections == nil {
			return nil, errors.New("processor, ingestor and collections are required with a stack store")
		}

		mux.HandleFunc("GET /api/v1/chat/history/{stackID}", ch.history)
		mux.HandleFunc("DELETE /api/v1/chat/history/{stackID}", ch.clearHistory)

		sh := &stackHandler{store: cfg.StackStore, logger: logger}
		mux.HandleFunc("GET /api/v1/stacks", sh.list)
		mux.HandleFunc("POST /api/v1/stacks", sh.create)
		mux.HandleFunc("GET /api/v1/stacks/{id}", sh.get)
		mux.HandleFunc("PUT /api/v1/stacks/{id}", sh.update)
		mux.HandleFunc("DELETE /api/v1/stacks/{id}", sh.delete)

		dh := &documentHandler{
			store:       cfg.StackStore,
			processor:   cfg.Processor,
			ingestor:    cfg.Ingestor,
			collections: cfg.Collections,
			maxFileSize: maxFileSize,
			logger:      logger,
		}
		mux.HandleFunc("POST /api/v1/documents", dh.upload)
		mux.HandleFunc("GET /api/v1/documents/{stackID}", dh.list)
		mux.HandleFunc("DELETE /api/v1/documents/{id}", dh.delete)
	}

	// Rate limiter: per-IP token bucket (1 token/sec refill)
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	// Middleware stack (outermost first):
	//   Recovery → Logging → CORS → RateLimit → Routes
	// CORS must be before RateLimit so preflight OPTIONS gets proper CORS
	// headers.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = recoveryMiddleware(logger)(handler)

	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w)
		handler.ServeHTTP(w, r)
	})

	// Top-level mux separates health probes from the middleware stack.
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
