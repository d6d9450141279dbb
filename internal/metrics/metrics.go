package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector of the CLI runtime, registered on one registry.
type Metrics struct {
	registry *prometheus.Registry

	// Transport metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Forwarder metrics
	MessagesReserved  *prometheus.CounterVec
	MessagesForwarded *prometheus.CounterVec
	MessagesReleased  *prometheus.CounterVec
	MessagesSkipped   *prometheus.CounterVec
	SinkFailures      *prometheus.CounterVec
	BatchDuration     *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ironmq_http_requests_total",
				Help: "Total HTTP requests sent to the queue service",
			},
			[]string{"method", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ironmq_http_request_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method"},
		),
		MessagesReserved: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ironmq_forward_reserved_total",
				Help: "Total messages reserved by the forwarder",
			},
			[]string{"queue"},
		),
		MessagesForwarded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ironmq_forward_delivered_total",
				Help: "Total messages delivered to every sink and deleted",
			},
			[]string{"queue"},
		),
		MessagesReleased: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ironmq_forward_released_total",
				Help: "Total messages released back to the queue after a sink failure",
			},
			[]string{"queue"},
		),
		MessagesSkipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ironmq_forward_skipped_total",
				Help: "Total redelivered messages deleted without publishing because the ledger had them",
			},
			[]string{"queue"},
		),
		SinkFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ironmq_forward_sink_failures_total",
				Help: "Total failed sink deliveries",
			},
			[]string{"queue"},
		),
		BatchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ironmq_forward_batch_duration_seconds",
				Help:    "Time spent processing one reserved batch",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"queue"},
		),
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest implements httpclient.Observer. Status 0 marks a transport failure.
func (m *Metrics) ObserveRequest(method string, status int, elapsed time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}
