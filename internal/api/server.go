// Package api exposes the question-answering service over HTTP.
//
// Endpoints:
//
//	GET  /health            → liveness probe
//	GET  /ready             → readiness probe (database reachable)
//	POST /api/query         → answer a question, JSON response
//	POST /api/query/stream  → answer a question, SSE event stream
//	GET  /api/documents     → list ingested documents
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/docent0/docent/internal/log"
)

const (
	// DefaultAddr is the default address for the HTTP server.
	DefaultAddr = "127.0.0.1:3500"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout is the timeout for reading request headers.
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// IdleTimeout is the maximum time to wait for the next request on
	// keep-alive connections.
	IdleTimeout = 120 * time.Second
)

// Server is the HTTP server for the question-answering API.
type Server struct {
	mux *http.ServeMux

	health  *HealthHandler
	query   *QueryHandler
	limiter *rateLimiter
	logger  log.Logger
}

// NewServer creates a server with all routes registered. A nil logger
// disables request logging.
func NewServer(health *HealthHandler, query *QueryHandler, logger log.Logger) *Server {
	if logger == nil {
		logger = log.NewNop()
	}
	mux := http.NewServeMux()

	s := &Server{
		mux:     mux,
		health:  health,
		query:   query,
		limiter: newRateLimiter(1, 60),
		logger:  logger,
	}

	s.health.RegisterRoutes(mux)
	s.query.RegisterRoutes(mux)

	return s
}

// Handler returns the HTTP handler with middleware applied.
// Middleware order: recovery → logging → rate limit → handler
func (s *Server) Handler() http.Handler {
	return chain(s.mux, recoveryMiddleware(s.logger), loggingMiddleware(s.logger), s.limiter.middleware)
}

// Run starts the HTTP server and blocks until the context is cancelled,
// then shuts down gracefully.
//
// WriteTimeout is deliberately unset: streaming responses stay open for as
// long as generation runs, bounded per-request by the stream ceiling.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
