package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/intimeai/miroctl/internal/metrics"
	"github.com/intimeai/miroctl/internal/service"
	"github.com/intimeai/miroctl/internal/supervisor"
)

// Router exposes the supervisor's read-only view over HTTP.
// Endpoints:
//
//	GET {basePath}/status            all services
//	GET {basePath}/status/:service   one service
//	GET /healthz                     supervisor liveness
//	GET /metrics                     prometheus exposition
//
// There are deliberately no mutation endpoints; lifecycle changes go through
// the CLI on the host that owns the GPUs.
type Router struct {
	sup      *supervisor.Supervisor
	basePath string
}

func NewRouter(sup *supervisor.Supervisor, basePath string) *Router {
	return &Router{sup: sup, basePath: sanitizeBase(basePath)}
}

func sanitizeBase(bp string) string {
	bp = strings.TrimRight(strings.TrimSpace(bp), "/")
	if bp != "" && !strings.HasPrefix(bp, "/") {
		bp = "/" + bp
	}
	return bp
}

// Handler returns a mountable http.Handler powered by gin.
func (r *Router) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.GET("/status", r.handleStatuses)
	group.GET("/status/:service", r.handleStatus)
	g.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	g.GET("/metrics", gin.WrapH(metrics.Handler()))
	return g
}

type errorResp struct {
	Error string `json:"error"`
}

func (r *Router) handleStatuses(c *gin.Context) {
	c.JSON(http.StatusOK, r.sup.Statuses())
}

func (r *Router) handleStatus(c *gin.Context) {
	name, err := service.Parse(c.Param("service"))
	if err != nil {
		c.JSON(http.StatusNotFound, errorResp{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, r.sup.Status(name))
}

// NewServer starts a standalone HTTP server for the router on addr. Callers
// own shutdown via the returned *http.Server.
func NewServer(addr, basePath string, sup *supervisor.Supervisor) *http.Server {
	r := NewRouter(sup, basePath)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
