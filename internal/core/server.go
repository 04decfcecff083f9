// Package core provides the API chassis for the Clearwater service. It wires
// a chi router with the cross-cutting concerns every request passes through
// (panic recovery, request IDs, timeouts, logging, CORS) before reaching the
// domain handlers. The API is public and read-only, so the chassis carries no
// authentication or rate-limiting layers.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"clearwater/internal/config"
)

// Server encapsulates the router and its dependencies, allowing injection
// during testing and distinct configuration per environment.
type Server struct {
	Config *config.Config
	Logger *slog.Logger

	// V1RouteRegistrars are called under /v1 during MountRoutes. The
	// indirection keeps core free of handler-package imports.
	V1RouteRegistrars []func(chi.Router)

	// HealthProbes are checked by GET /health.
	HealthProbes []HealthProbe

	router  *chi.Mux
	closers []func() error
}

// NewServer initializes the router and prepares the server for route
// mounting. The caller mounts routes afterwards so tests can customize
// registration.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	return &Server{
		Config: cfg,
		Logger: logger,
		router: chi.NewRouter(),
	}, nil
}

// Handler returns the http.Handler for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// OnShutdown registers a cleanup function to run during Shutdown, typically
// a connection-pool close.
func (s *Server) OnShutdown(fn func() error) {
	s.closers = append(s.closers, fn)
}

// Shutdown runs the registered cleanup functions in reverse registration
// order. The first failure is returned but all closers still run.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("server shutdown initiated")

	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.Logger.Error("shutdown cleanup failed", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	s.Logger.Info("server shutdown complete")
	return firstErr
}
