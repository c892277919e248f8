package miroctl

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	cfg "github.com/intimeai/miroctl/internal/config"
	"github.com/intimeai/miroctl/internal/history"
	"github.com/intimeai/miroctl/internal/history/factory"
	"github.com/intimeai/miroctl/internal/metrics"
	iapi "github.com/intimeai/miroctl/internal/server"
	"github.com/intimeai/miroctl/internal/service"
	"github.com/intimeai/miroctl/internal/supervisor"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Config = cfg.Config

type Status = supervisor.Status

type ServiceName = service.Name

const (
	ImageService = service.Image
	ShapeService = service.Shape
)

// Informational lifecycle conditions, re-exported for errors.Is checks.
var (
	ErrAlreadyRunning = supervisor.ErrAlreadyRunning
	ErrNotRunning     = supervisor.ErrNotRunning
	ErrStartFailed    = supervisor.ErrStartFailed
	ErrUnknownService = service.ErrUnknown
)

// Supervisor is a thin facade over internal/supervisor.Supervisor.
// It provides a stable public API for embedding.
type Supervisor struct{ inner *supervisor.Supervisor }

func New(c Config) *Supervisor {
	return &Supervisor{inner: supervisor.New(c)}
}

// Services returns the managed service names in launch order.
func Services() []ServiceName { return service.All() }

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config { return cfg.Default() }

// LoadConfig reads a TOML config file over the defaults.
func LoadConfig(path string) (Config, error) { return cfg.Load(path) }

func (s *Supervisor) Start(ctx context.Context, name ServiceName) error {
	return s.inner.Start(ctx, name)
}
func (s *Supervisor) Stop(ctx context.Context, name ServiceName) error {
	return s.inner.Stop(ctx, name)
}
func (s *Supervisor) Restart(ctx context.Context, name ServiceName) error {
	return s.inner.Restart(ctx, name)
}
func (s *Supervisor) StartAll(ctx context.Context) error   { return s.inner.StartAll(ctx) }
func (s *Supervisor) StopAll(ctx context.Context) error    { return s.inner.StopAll(ctx) }
func (s *Supervisor) RestartAll(ctx context.Context) error { return s.inner.RestartAll(ctx) }
func (s *Supervisor) Status(name ServiceName) Status       { return s.inner.Status(name) }
func (s *Supervisor) Statuses() []Status                   { return s.inner.Statuses() }

// Monitor redraws status and log tails to w until ctx is cancelled.
func (s *Supervisor) Monitor(ctx context.Context, w io.Writer) error {
	return s.inner.Monitor(ctx, w)
}

// TailLog returns the last n lines of a service's combined log.
func TailLog(c Config, name ServiceName, n int) ([]string, error) {
	return supervisor.Tail(c.LogFile(name), n)
}

// History facade

type HistoryEvent = history.Event

type HistorySink = history.Sink

// NewHistorySink builds a lifecycle event sink from a DSN
// (sqlite path, postgres:// or clickhouse:// URL).
func NewHistorySink(dsn string) (HistorySink, error) { return factory.NewSinkFromDSN(dsn) }

// NewStatusHandler returns a mountable read-only status handler rooted at
// basePath, for embedding into an existing HTTP server.
func NewStatusHandler(basePath string, s *Supervisor) http.Handler {
	return iapi.NewRouter(s.inner, basePath).Handler()
}

// NewStatusServer starts a standalone read-only status HTTP server on addr.
func NewStatusServer(addr, basePath string, s *Supervisor) *http.Server {
	return iapi.NewServer(addr, basePath, s.inner)
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.RegisterDefault() }

// ServeMetrics starts an HTTP server on addr exposing /metrics using the
// default registry. It blocks in the caller goroutine.
func ServeMetrics(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv.ListenAndServe()
}
