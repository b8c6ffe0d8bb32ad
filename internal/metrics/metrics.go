// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobRuns counts scheduled job runs by job name and outcome (ok, error).
	JobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "homebase_job_runs_total",
		Help: "Background job runs by outcome",
	}, []string{"job", "outcome"})

	// JobItems counts items handled by jobs, split by processed, skipped and failed.
	JobItems = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "homebase_job_items_total",
		Help: "Items handled by background jobs",
	}, []string{"job", "result"})

	JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "homebase_job_duration_seconds",
		Help:    "Background job run duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})

	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "homebase_websocket_clients",
		Help: "Currently registered websocket connections",
	})

	// WebSocketDropped counts frames discarded because a client's buffer was full.
	WebSocketDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "homebase_websocket_dropped_total",
		Help: "Websocket frames dropped for slow clients",
	})

	// Deliveries counts notification sends by channel (email, push) and outcome.
	Deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "homebase_notification_deliveries_total",
		Help: "Notification deliveries by channel and outcome",
	}, []string{"channel", "outcome"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "homebase_http_requests_total",
		Help: "HTTP requests by method and status code",
	}, []string{"method", "code"})

	// BreakerState is 0 closed, 1 half-open, 2 open.
	BreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "homebase_circuit_breaker_state",
		Help: "Circuit breaker state per outbound dependency",
	}, []string{"name"})
)

// Outcome maps an error to the "ok" / "error" label value.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
