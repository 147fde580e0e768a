package utils

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the console: every proxied
// backend call, its latency, and notification dispatches.
type Metrics struct {
	BackendRequests   *prometheus.CounterVec   // action, outcome: ok, error, unauthorized, superseded
	BackendDuration   *prometheus.HistogramVec // round-trip time per action
	NotificationsRuns *prometheus.CounterVec   // scope: selected, all
}

// NewMetrics registers the console metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		BackendRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "gatewatch_backend_requests_total",
			Help: "Total backend API calls issued by the console",
		}, []string{"action", "outcome"}),
		BackendDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gatewatch_backend_request_duration_seconds",
			Help:    "Backend round-trip duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"action"}),
		NotificationsRuns: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "gatewatch_notification_runs_total",
			Help: "Notification dispatches triggered from the console",
		}, []string{"scope"}),
	}
}
