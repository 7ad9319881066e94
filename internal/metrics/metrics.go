// Package metrics exposes mirkvd's Prometheus instrumentation: connection
// counts, per-command throughput, and command latency, served over a
// small HTTP endpoint alongside the TCP listener.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the process-wide instrument set. The zero value is not
// ready for use; construct one with New.
type Metrics struct {
	ConnectionsOpened prometheus.Counter
	ConnectionsActive prometheus.Gauge
	CommandsTotal     *prometheus.CounterVec
	CommandDuration   *prometheus.HistogramVec
	CommandErrors     *prometheus.CounterVec
}

// New registers mirkvd's instruments against reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ConnectionsOpened: factory.NewCounter(prometheus.CounterOpts{
			Name: "mirkv_connections_opened_total",
			Help: "Total number of client connections accepted.",
		}),
		ConnectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "mirkv_connections_active",
			Help: "Number of client connections currently open.",
		}),
		CommandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mirkv_commands_processed_total",
			Help: "Total number of commands processed, labeled by command name.",
		}, []string{"command"}),
		CommandDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mirkv_command_duration_seconds",
			Help:    "Command handling latency, labeled by command name.",
			Buckets: prometheus.DefBuckets,
		}, []string{"command"}),
		CommandErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mirkv_command_errors_total",
			Help: "Total number of commands that resulted in an error reply, labeled by command name.",
		}, []string{"command"}),
	}
}

// Observe records one command's outcome.
func (m *Metrics) Observe(command string, start time.Time, failed bool) {
	m.CommandsTotal.WithLabelValues(command).Inc()
	m.CommandDuration.WithLabelValues(command).Observe(time.Since(start).Seconds())
	if failed {
		m.CommandErrors.WithLabelValues(command).Inc()
	}
}

// Server serves the /metrics endpoint over plain HTTP.
type Server struct {
	http *http.Server
}

// NewServer builds a metrics HTTP server bound to addr, scraping reg.
func NewServer(addr string, reg *prometheus.Registry) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return &Server{http: &http.Server{Addr: addr, Handler: mux}}
}

// ListenAndServe blocks serving metrics until the server is shut down.
func (s *Server) ListenAndServe() error {
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the metrics server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
