package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/clearqueue/clearqueue/internal/ratelimit"
	"github.com/clearqueue/clearqueue/internal/storage"
)

// Server is the demo triage backend HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	logger     *slog.Logger
}

// Config holds dependencies and settings for creating a Server.
// DB and Logger are required; Limiter is optional (nil = no rate limit).
type Config struct {
	DB      *storage.DB
	Logger  *slog.Logger
	Limiter ratelimit.Limiter

	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Version      string

	// APIKeys are the accepted keys. Empty disables auth (demo mode).
	APIKeys []string
}

// New creates an HTTP server with all routes configured.
func New(cfg Config) *Server {
	h := NewHandlers(cfg.DB, cfg.Logger, cfg.Version)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tickets", h.HandleListTickets)
	mux.HandleFunc("GET /api/tickets/{id}/trace", h.HandleGetTrace)
	mux.Handle("POST /api/tickets/{id}/override",
		rateLimitMiddleware(cfg.Limiter, http.HandlerFunc(h.HandleOverride)))
	mux.HandleFunc("GET /health", h.HandleHealth)

	keyDigests := make(map[string]bool, len(cfg.APIKeys))
	for _, key := range cfg.APIKeys {
		keyDigests[HashKey(key)] = true
	}

	// Middleware chain (outermost executes first):
	// request ID → security headers → tracing → logging → auth → recovery → handler.
	var handler http.Handler = mux
	handler = recoveryMiddleware(cfg.Logger, handler)
	handler = apiKeyMiddleware(keyDigests, handler)
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = tracingMiddleware(handler)
	handler = securityHeadersMiddleware(handler)
	handler = requestIDMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		handler: handler,
		logger:  cfg.Logger,
	}
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
