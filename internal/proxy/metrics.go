package proxy

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the proxy's Prometheus collectors.
type Metrics struct {
	// RequestsTotal counts proxied requests by method and response status.
	RequestsTotal *prometheus.CounterVec
	// RequestDuration measures time spent serving a request.
	RequestDuration *prometheus.HistogramVec
	// UpstreamErrors counts failed upstream calls by status ("network" for
	// transport errors).
	UpstreamErrors *prometheus.CounterVec
}

// NewMetrics registers the proxy collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "readhubx",
				Subsystem: "proxy",
				Name:      "requests_total",
				Help:      "Total number of proxied requests",
			},
			[]string{"method", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "readhubx",
				Subsystem: "proxy",
				Name:      "request_duration_seconds",
				Help:      "Duration of proxied requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		UpstreamErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "readhubx",
				Subsystem: "proxy",
				Name:      "upstream_errors_total",
				Help:      "Total number of failed upstream calls",
			},
			[]string{"status"},
		),
	}
}

func (m *Metrics) observe(method string, status int, d time.Duration) {
	m.RequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(d.Seconds())
}
