// Package metrics - Prometheus метрики сервиса каталога.
//
// Метрики регистрируются в default registry (promauto) и отдаются на /metrics.
// Слои не создают свои коллекторы, а вызывают Record* функции отсюда.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "catalog"

// HTTP metrics
var (
	// HTTPRequestsTotal counts total HTTP requests
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration measures request latency
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// HTTPRequestsInFlight tracks concurrent requests
	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)

	// HTTPResponseSize measures response body size
	HTTPResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "response_size_bytes",
			Help:      "HTTP response size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 6), // 100B to 10MB
		},
		[]string{"method", "path"},
	)
)

// Business metrics
var (
	// ProductOperationsTotal counts service operations by outcome (success, validation, not_found, database)
	ProductOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "business",
			Name:      "product_operations_total",
			Help:      "Total number of product service operations",
		},
		[]string{"operation", "outcome"},
	)
)

// Database metrics
var (
	// DBQueryDuration measures database query latency
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"operation", "table"},
	)

	// DBConnections tracks database connections
	DBConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "connections",
			Help:      "Number of database connections",
		},
		[]string{"state"}, // idle, in_use, max
	)

	// DBErrorsTotal counts database errors
	DBErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "errors_total",
			Help:      "Total number of database errors",
		},
		[]string{"operation", "code"},
	)
)

// Outbox relay metrics
var (
	// OutboxEventsTotal counts relayed events by result (published, retry, failed)
	OutboxEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "events_total",
			Help:      "Total number of outbox events handled by the relay",
		},
		[]string{"event_type", "result"},
	)

	// OutboxBreakerState - состояние circuit breaker publisher (0 closed, 1 half-open, 2 open)
	OutboxBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "breaker_state",
			Help:      "Circuit breaker state of the outbox publisher (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)
)

// Значения OutboxBreakerState.
const (
	BreakerClosed   = 0
	BreakerHalfOpen = 1
	BreakerOpen     = 2
)

// RecordProductOperation records a service operation outcome.
func RecordProductOperation(operation, outcome string) {
	ProductOperationsTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordDBQuery records a database query metric.
func RecordDBQuery(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// RecordDBError records a database error metric. code - SQLSTATE или "other".
func RecordDBError(operation, code string) {
	DBErrorsTotal.WithLabelValues(operation, code).Inc()
}

// UpdateDBConnections updates database connection metrics.
func UpdateDBConnections(idle, inUse, max int32) {
	DBConnections.WithLabelValues("idle").Set(float64(idle))
	DBConnections.WithLabelValues("in_use").Set(float64(inUse))
	DBConnections.WithLabelValues("max").Set(float64(max))
}

// RecordOutboxEvent records a relay result for one event.
func RecordOutboxEvent(eventType, result string) {
	OutboxEventsTotal.WithLabelValues(eventType, result).Inc()
}

// SetOutboxBreakerState records the publisher circuit breaker state.
func SetOutboxBreakerState(name string, state int) {
	OutboxBreakerState.WithLabelValues(name).Set(float64(state))
}
