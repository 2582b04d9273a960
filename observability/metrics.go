package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "access_gateway"

// Metrics exports exchange counters and latencies in the Prometheus format.
// It implements accesslog.Recorder.
//
// Metrics:
//   - access_gateway_exchanges_total: exchanges by method and status code
//   - access_gateway_exchange_duration_seconds: time until the response line was settled
//   - access_gateway_captured_body_bytes: captured body sizes by direction
//   - access_gateway_body_truncations_total: bodies cut at the capture limit by direction
//   - access_gateway_upstream_errors_total: forwarding failures by route
type Metrics struct {
	registry *prometheus.Registry

	exchanges      *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	bodyBytes      *prometheus.HistogramVec
	truncations    *prometheus.CounterVec
	upstreamErrors *prometheus.CounterVec
}

// NewMetrics registers the gateway metrics, plus Go and process collectors, on a new registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		exchanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "exchanges_total",
				Help:      "Total number of proxied exchanges",
			},
			[]string{"method", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "exchange_duration_seconds",
				Help:      "Duration of proxied exchanges in seconds",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method"},
		),
		bodyBytes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "captured_body_bytes",
				Help:      "Size of captured bodies in bytes",
				Buckets:   prometheus.ExponentialBuckets(256, 4, 8), // 256B to 4MB
			},
			[]string{"direction"},
		),
		truncations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "body_truncations_total",
				Help:      "Bodies truncated at the capture limit",
			},
			[]string{"direction"},
		),
		upstreamErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "upstream_errors_total",
				Help:      "Requests that could not be forwarded upstream",
			},
			[]string{"route"},
		),
	}

	m.registry.MustRegister(
		m.exchanges,
		m.duration,
		m.bodyBytes,
		m.truncations,
		m.upstreamErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveExchange(method string, status int, latency time.Duration) {
	m.exchanges.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method).Observe(latency.Seconds())
}

func (m *Metrics) ObserveBody(direction string, size int, truncated bool) {
	m.bodyBytes.WithLabelValues(direction).Observe(float64(size))
	if truncated {
		m.truncations.WithLabelValues(direction).Inc()
	}
}

// UpstreamError counts a forwarding failure for the route.
func (m *Metrics) UpstreamError(route string) {
	m.upstreamErrors.WithLabelValues(route).Inc()
}

// Registry exposes the registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
