// Package metrics defines the Prometheus collectors of the API.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for auth events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// HTTPRequests counts handled requests by route template and status code.
var HTTPRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tourbooking_http_requests_total",
		Help: "Total number of handled HTTP requests",
	},
	[]string{"method", "route", "status"},
)

var HTTPDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "tourbooking_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"method", "route"},
)

// AuthEvents counts session transitions: signup, login, password reset and change.
var AuthEvents = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tourbooking_auth_events_total",
		Help: "Total number of authentication events",
	},
	[]string{"event", "outcome"},
)

var ResetTokensCleared = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "tourbooking_reset_tokens_cleared_total",
		Help: "Total number of expired password reset tokens cleared",
	},
)

// RegisterMetrics registers every collector with reg. It panics on a
// duplicate registration, following prometheus convention.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(HTTPRequests)
	reg.MustRegister(HTTPDuration)
	reg.MustRegister(AuthEvents)
	reg.MustRegister(ResetTokensCleared)
}

func RecordRequest(method, route, status string, duration time.Duration) {
	HTTPRequests.WithLabelValues(method, route, status).Inc()
	HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func RecordAuthEvent(event, outcome string) {
	AuthEvents.WithLabelValues(event, outcome).Inc()
}

func RecordResetTokensCleared(n int64) {
	if n > 0 {
		ResetTokensCleared.Add(float64(n))
	}
}
