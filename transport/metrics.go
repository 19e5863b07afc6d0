package transport

import "github.com/prometheus/client_golang/prometheus"

// Metrics instruments outbound platform requests.
type Metrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewMetrics registers request metrics with reg. A nil registerer yields
// a no-op Metrics, so library users who do not run Prometheus pay nothing.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "atlas_client_requests_total",
				Help: "Outbound ATLAS API requests by method and status code.",
			},
			[]string{"method", "status"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "atlas_client_request_duration_seconds",
				Help:    "Outbound ATLAS API request latency.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
	}
	reg.MustRegister(m.requests, m.latency)
	return m
}

func (m *Metrics) observe(method, status string, seconds float64) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, status).Inc()
	m.latency.WithLabelValues(method).Observe(seconds)
}
