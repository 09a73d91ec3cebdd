package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const prefix = "hackhub"

var (
	// HTTP request metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// Authentication metrics
	AuthAttemptsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_auth_attempts_total",
			Help: "Login and token checks by outcome",
		},
		[]string{"result"},
	)

	// Tenant scoping metrics
	TenantResolutionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_tenant_resolution_failures_total",
			Help: "Requests rejected while resolving the active organization",
		},
		[]string{"reason"},
	)

	InvitationEventsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_invitation_events_total",
			Help: "Invitation lifecycle transitions",
		},
		[]string{"kind", "event"},
	)

	NotificationDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_notification_deliveries_total",
			Help: "Notification delivery attempts by outcome",
		},
		[]string{"template", "result"},
	)

	DBOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_db_operation_duration_seconds",
			Help:    "Duration of multi-statement database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// RecordAuth increments the auth attempts counter for result.
func RecordAuth(result string) {
	AuthAttemptsCounter.WithLabelValues(result).Inc()
}

// RecordTenantFailure increments the tenant resolution failure counter.
func RecordTenantFailure(reason string) {
	TenantResolutionFailures.WithLabelValues(reason).Inc()
}

// RecordInvitation increments the invitation events counter.
func RecordInvitation(kind, event string) {
	InvitationEventsCounter.WithLabelValues(kind, event).Inc()
}

// RecordDelivery increments the notification delivery counter.
func RecordDelivery(template, result string) {
	NotificationDeliveries.WithLabelValues(template, result).Inc()
}

// TrackDBOperation returns a function that records the duration of a database operation
func TrackDBOperation(operation string) func(startTime time.Time) {
	return func(startTime time.Time) {
		DBOperationDuration.WithLabelValues(operation).Observe(time.Since(startTime).Seconds())
	}
}
