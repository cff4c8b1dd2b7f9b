// Package observability holds the Prometheus metrics and the OpenTelemetry
// tracer setup of the server.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "pulsekeeper"

// Metrics is registered on its own registry so several instances (tests,
// embedded servers) never collide on the default one.
type Metrics struct {
	registry *prometheus.Registry

	// RequestsTotal counts HTTP requests. Labels: method, route, status.
	RequestsTotal *prometheus.CounterVec
	// RequestDuration measures HTTP latency. Labels: method, route.
	RequestDuration *prometheus.HistogramVec
	// SamplesTotal counts ingestion attempts. Labels: outcome (recorded, rejected, throttled, failed).
	SamplesTotal *prometheus.CounterVec
	// ConnectionsTotal counts graph mutations. Labels: op (connect, disconnect).
	ConnectionsTotal *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		SamplesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "ingest",
			Name:      "samples_total",
			Help:      "Heart-rate samples by outcome.",
		}, []string{"outcome"}),
		ConnectionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "graph",
			Name:      "mutations_total",
			Help:      "Relationship graph mutations by operation.",
		}, []string{"op"}),
	}
}

func (m *Metrics) ObserveRequest(method, route, status string, d time.Duration) {
	m.RequestsTotal.WithLabelValues(method, route, status).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) Sample(outcome string) {
	m.SamplesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) GraphMutation(op string) {
	m.ConnectionsTotal.WithLabelValues(op).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
