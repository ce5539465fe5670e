package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/netseek/netseek/internal/registry"
	"github.com/netseek/netseek/internal/testutil"
	"github.com/netseek/netseek/pkg/plugin"
)

// stubModule exposes one route for mounting tests.
type stubModule struct{}

func (stubModule) Name() string                              { return "stub" }
func (stubModule) Version() string                           { return "0.0.1" }
func (stubModule) Init(_ plugin.Config, _ *zap.Logger) error { return nil }
func (stubModule) Start(context.Context) error               { return nil }
func (stubModule) Stop() error                               { return nil }
func (stubModule) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "/ping", Handler: func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"pong":true}`))
		}},
	}
}

func newTestServer(t *testing.T, metricsHandler http.Handler) *Server {
	t.Helper()
	logger := testutil.Logger()
	reg := registry.New(logger)
	if err := reg.Register(stubModule{}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return New("127.0.0.1:0", reg, metricsHandler, logger)
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("X-NetSeek-Version") == "" {
		t.Error("missing X-NetSeek-Version header")
	}

	var body struct {
		Status  string `json:"status"`
		Service string `json:"service"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("status = %q, want %q", body.Status, "ok")
	}
	if body.Service != "netseek" {
		t.Errorf("service = %q, want %q", body.Service, "netseek")
	}
}

func TestHandleModules(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/modules", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var modules []struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&modules); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(modules) != 1 || modules[0].Name != "stub" {
		t.Errorf("modules = %+v, want [stub]", modules)
	}
}

func TestModuleRouteMounted(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/stub/ping", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != `{"pong":true}` {
		t.Errorf("body = %q, want pong", got)
	}
}

func TestUnknownAPIPathGetsProblem(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("content-type = %q, want problem+json", ct)
	}
	var p Problem
	if err := json.NewDecoder(rec.Body).Decode(&p); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if p.Instance != "/api/v1/nope" {
		t.Errorf("instance = %q, want request path", p.Instance)
	}
}

func TestMetricsMounted(t *testing.T) {
	metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("netseek_up 1"))
	})
	srv := newTestServer(t, metricsHandler)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != "netseek_up 1" {
		t.Errorf("body = %q", got)
	}
}
