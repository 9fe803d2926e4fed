package oai

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors of a Service.
type Metrics struct {
	requests      *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	parseFailures *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oai",
			Name:      "requests_total",
			Help:      "Requests handled, by operation and status.",
		}, []string{"operation", "method", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "oai",
			Name:      "request_duration_seconds",
			Help:      "Time spent handling a request, by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		parseFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oai",
			Name:      "parse_failures_total",
			Help:      "Requests rejected while parsing inputs, by operation and kind.",
		}, []string{"operation", "kind"}),
	}
	reg.MustRegister(m.requests, m.latency, m.parseFailures)
	return m
}

func (m *Metrics) observe(operation, method string, status int, latency time.Duration) {
	m.requests.WithLabelValues(operation, method, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(operation).Observe(latency.Seconds())
}
