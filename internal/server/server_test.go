package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ziadkadry99/flowminds/internal/logging"
)

func TestHealthCheck(t *testing.T) {
	srv := New(Config{Port: 0}, logging.Discard())

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", body["status"])
	}
}

func TestCORSHeaders(t *testing.T) {
	srv := New(Config{Port: 0, AllowAll: true}, logging.Discard())

	req := httptest.NewRequest("OPTIONS", "/healthz", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("expected CORS Allow-Origin header")
	}
}

func TestCORSRestrictedByDefault(t *testing.T) {
	srv := New(Config{Port: 0}, logging.Discard())

	req := httptest.NewRequest("OPTIONS", "/healthz", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unexpected Allow-Origin %q for foreign origin", got)
	}
}

func TestAPITimeout(t *testing.T) {
	srv := New(Config{Port: 0, RequestTimeout: 20 * time.Millisecond}, logging.Discard())

	var apiDeadline, rootDeadline bool
	srv.API().Get("/api", func(w http.ResponseWriter, r *http.Request) {
		_, apiDeadline = r.Context().Deadline()
	})
	srv.Router().Get("/socket", func(w http.ResponseWriter, r *http.Request) {
		_, rootDeadline = r.Context().Deadline()
	})

	for _, path := range []string{"/api", "/socket"} {
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, httptest.NewRequest("GET", path, nil))
	}
	if !apiDeadline {
		t.Error("API routes should carry a deadline")
	}
	if rootDeadline {
		t.Error("root routes should not carry a deadline")
	}
}

func TestShutdownBeforeStart(t *testing.T) {
	srv := New(Config{}, nil)
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}
