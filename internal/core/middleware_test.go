package core

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"clearwater/internal/config"
	"clearwater/internal/types"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:               "8080",
			CorsAllowedOrigins: []string{"*"},
		},
	}
	s, err := NewServer(cfg, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return s
}

func TestRequestIDMiddleware_GeneratesID(t *testing.T) {
	var ctxID string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = types.GetRequestID(r.Context())
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if ctxID == "" {
		t.Error("expected a generated request ID in context")
	}
	if got := w.Header().Get("X-Request-Id"); got != ctxID {
		t.Errorf("response header %q does not match context ID %q", got, ctxID)
	}
}

func TestRequestIDMiddleware_PropagatesIncoming(t *testing.T) {
	var ctxID string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = types.GetRequestID(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Request-Id", "incoming-42")
	handler.ServeHTTP(httptest.NewRecorder(), r)

	if ctxID != "incoming-42" {
		t.Errorf("expected incoming ID to be reused, got %q", ctxID)
	}
}

func TestRecoverer_CatchesPanic(t *testing.T) {
	s := newTestServer(t)

	handler := s.Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("handler exploded")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}

	var body APIErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("recoverer wrote invalid JSON: %v", err)
	}
	if body.Error.Code != string(types.ErrCodeInternalUnexpected) {
		t.Errorf("unexpected error code: %s", body.Error.Code)
	}
}

func TestCORS_Wildcard(t *testing.T) {
	handler := NewCORSMiddleware([]string{"*"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Origin", "https://dashboard.example.org")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected wildcard origin, got %q", got)
	}
}

func TestCORS_Preflight(t *testing.T) {
	handler := NewCORSMiddleware([]string{"https://dashboard.example.org"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("preflight must not reach the handler")
	}))

	r := httptest.NewRequest(http.MethodOptions, "/", nil)
	r.Header.Set("Origin", "https://dashboard.example.org")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204 for preflight, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://dashboard.example.org" {
		t.Errorf("unexpected allowed origin: %q", got)
	}
}

func TestCORS_DisallowedOrigin(t *testing.T) {
	handler := NewCORSMiddleware([]string{"https://dashboard.example.org"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Origin", "https://evil.example.com")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("disallowed origin must not get CORS headers, got %q", got)
	}
}

func TestMountRoutes_HealthEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.MountRoutes()

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected 200 from /health, got %d", w.Code)
	}
}
