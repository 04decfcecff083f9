package core

import (
	"time"

	"github.com/go-chi/chi/v5"
)

// defaultRequestTimeout is the soft deadline applied to request contexts when
// the configuration does not specify one.
const defaultRequestTimeout = 29 * time.Second

// MountRoutes registers the global middleware chain, the /v1 route group,
// and the health endpoint.
func (s *Server) MountRoutes() {
	s.registerGlobalMiddleware()

	s.router.Route("/v1", s.mountV1)
	s.router.Get("/health", s.HandleHealth)
}

// registerGlobalMiddleware applies middleware in strict order:
//
//  1. Recoverer       - outermost so every panic is caught.
//  2. ContextTimeout  - soft deadline before downstream work starts.
//  3. RequestID       - correlation ID for logs and responses.
//  4. RequestLogger   - structured request logging.
//  5. CORS            - browser access for the public dashboard.
func (s *Server) registerGlobalMiddleware() {
	s.router.Use(s.Recoverer)
	s.router.Use(ContextTimeoutMiddleware(s.requestTimeout()))
	s.router.Use(RequestIDMiddleware)
	s.router.Use(RequestLogger(s.Logger))
	s.router.Use(NewCORSMiddleware(s.Config.Server.CorsAllowedOrigins))
}

// mountV1 registers all v1 endpoints via the registrars populated by the
// application entry point. The indirection avoids import cycles between core
// and the handler packages.
func (s *Server) mountV1(r chi.Router) {
	for _, registrar := range s.V1RouteRegistrars {
		registrar(r)
	}
}

func (s *Server) requestTimeout() time.Duration {
	if s.Config.Server.RequestTimeout > 0 {
		return s.Config.Server.RequestTimeout
	}
	return defaultRequestTimeout
}
