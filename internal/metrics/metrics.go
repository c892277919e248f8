package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors, registered via Register. The helpers
// below no-op until registration succeeds so library users who never enable
// metrics pay nothing.
var (
	regOK atomic.Bool

	serviceStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "miroctl",
			Subsystem: "service",
			Name:      "starts_total",
			Help:      "Number of successful service starts.",
		}, []string{"service"},
	)
	startFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "miroctl",
			Subsystem: "service",
			Name:      "start_failures_total",
			Help:      "Number of starts whose child exited within the settle window.",
		}, []string{"service"},
	)
	serviceStops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "miroctl",
			Subsystem: "service",
			Name:      "stops_total",
			Help:      "Number of completed stops, graceful or forced.",
		}, []string{"service"},
	)
	forcedKills = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "miroctl",
			Subsystem: "service",
			Name:      "kills_total",
			Help:      "Number of stops that escalated to SIGKILL.",
		}, []string{"service"},
	)
	running = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "miroctl",
			Subsystem: "service",
			Name:      "running",
			Help:      "Whether the service is currently tracked as running (0 or 1).",
		}, []string{"service"},
	)
)

// Register registers all collectors with r. Safe to call more than once.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{serviceStarts, startFailures, serviceStops, forcedKills, running}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// RegisterDefault registers with the default Prometheus registry.
func RegisterDefault() error { return Register(prometheus.DefaultRegisterer) }

// Handler serves the default gatherer; mount it wherever the server lives.
func Handler() http.Handler { return promhttp.Handler() }

func IncStart(service string) {
	if regOK.Load() {
		serviceStarts.WithLabelValues(service).Inc()
	}
}

func IncStartFailure(service string) {
	if regOK.Load() {
		startFailures.WithLabelValues(service).Inc()
	}
}

func IncStop(service string) {
	if regOK.Load() {
		serviceStops.WithLabelValues(service).Inc()
	}
}

func IncKill(service string) {
	if regOK.Load() {
		forcedKills.WithLabelValues(service).Inc()
	}
}

func SetRunning(service string, up bool) {
	if !regOK.Load() {
		return
	}
	v := 0.0
	if up {
		v = 1.0
	}
	running.WithLabelValues(service).Set(v)
}
