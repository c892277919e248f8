package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/intimeai/miroctl/internal/config"
	"github.com/intimeai/miroctl/internal/supervisor"
)

func testRouter(t *testing.T) *Router {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.PIDDir = filepath.Join(dir, "run")
	cfg.Log.Dir = filepath.Join(dir, "logs")
	sup := supervisor.New(cfg, supervisor.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	return NewRouter(sup, "/api")
}

func TestStatusListsBothServices(t *testing.T) {
	h := testRouter(t).Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status code %d", rec.Code)
	}
	var out []supervisor.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d services", len(out))
	}
	if out[0].Service != "miroimage" || out[1].Service != "miroshape" {
		t.Fatalf("unexpected order: %+v", out)
	}
	for _, st := range out {
		if st.Running {
			t.Fatalf("nothing was started: %+v", st)
		}
	}
}

func TestStatusSingleServiceAndUnknown(t *testing.T) {
	h := testRouter(t).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status/miroshape", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status code %d", rec.Code)
	}
	var st supervisor.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Service != "miroshape" {
		t.Fatalf("wrong service: %+v", st)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status/gradio", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown service: status code %d", rec.Code)
	}
}

func TestHealthzAndMetricsRoutes(t *testing.T) {
	h := testRouter(t).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: %d", rec.Code)
	}
}

func TestSanitizeBase(t *testing.T) {
	cases := map[string]string{
		"":      "",
		"/api":  "/api",
		"api":   "/api",
		"/api/": "/api",
	}
	for in, want := range cases {
		if got := sanitizeBase(in); got != want {
			t.Fatalf("sanitizeBase(%q) = %q, want %q", in, got, want)
		}
	}
}
