// Package metrics defines the Prometheus instrumentation for the chat
// service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Chat pipeline metrics
	ChatRequestsTotal   *prometheus.CounterVec
	ChatDurationSeconds *prometheus.HistogramVec

	// Classifier metrics
	IntentPredictionsTotal *prometheus.CounterVec
	IntentConfidence       prometheus.Histogram

	// Rule handler metrics
	HandlerMatchesTotal *prometheus.CounterVec

	// Handbook fallback metrics
	HandbookSearchesTotal *prometheus.CounterVec

	// HTTP metrics
	HTTPErrorsTotal *prometheus.CounterVec

	// Rate limiter metrics
	RateLimiterDropped *prometheus.CounterVec

	// Session metrics
	ActiveSessions prometheus.Gauge
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	return &Metrics{
		ChatRequestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "kampus_chat_requests_total",
				Help: "Total number of chat requests by answer source and status",
			},
			[]string{"source", "status"}, // source: handler, classifier, handbook, fallback
		),

		ChatDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kampus_chat_duration_seconds",
				Help:    "Chat request duration in seconds by answer source",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
			},
			[]string{"source"},
		),

		IntentPredictionsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "kampus_intent_predictions_total",
				Help: "Total number of intent predictions by tag",
			},
			[]string{"tag"},
		),

		IntentConfidence: promauto.With(registry).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "kampus_intent_confidence",
				Help:    "Distribution of classifier confidence scores",
				Buckets: []float64{0.1, 0.25, 0.5, 0.75, 0.9, 0.95, 0.99, 1},
			},
		),

		HandlerMatchesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "kampus_handler_matches_total",
				Help: "Total number of rule handler matches by handler",
			},
			[]string{"handler"}, // handler: arithmetic, timedate, namememory
		),

		HandbookSearchesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "kampus_handbook_searches_total",
				Help: "Total number of handbook fallback searches by status",
			},
			[]string{"status"}, // status: hit, miss
		),

		HTTPErrorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "kampus_http_errors_total",
				Help: "Total HTTP errors by type",
			},
			[]string{"error_type"}, // error_type: invalid_request, rate_limit, internal
		),

		RateLimiterDropped: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "kampus_rate_limiter_dropped_total",
				Help: "Total requests dropped by rate limiter type",
			},
			[]string{"limiter"}, // limiter: global, user
		),

		ActiveSessions: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "kampus_active_sessions",
				Help: "Number of live chat sessions",
			},
		),
	}
}

// RecordChat records one completed chat request.
func (m *Metrics) RecordChat(source, status string, duration float64) {
	m.ChatRequestsTotal.WithLabelValues(source, status).Inc()
	m.ChatDurationSeconds.WithLabelValues(source).Observe(duration)
}

// RecordPrediction records one classifier prediction.
func (m *Metrics) RecordPrediction(tag string, confidence float64) {
	m.IntentPredictionsTotal.WithLabelValues(tag).Inc()
	m.IntentConfidence.Observe(confidence)
}

// RecordHandlerMatch records a rule handler short-circuit.
func (m *Metrics) RecordHandlerMatch(handler string) {
	m.HandlerMatchesTotal.WithLabelValues(handler).Inc()
}

// RecordHandbookSearch records a handbook fallback search outcome.
func (m *Metrics) RecordHandbookSearch(status string) {
	m.HandbookSearchesTotal.WithLabelValues(status).Inc()
}

// RecordHTTPError records an HTTP-level error.
func (m *Metrics) RecordHTTPError(errorType string) {
	m.HTTPErrorsTotal.WithLabelValues(errorType).Inc()
}

// RecordRateLimiterDrop records a dropped request.
func (m *Metrics) RecordRateLimiterDrop(limiter string) {
	m.RateLimiterDropped.WithLabelValues(limiter).Inc()
}

// SetActiveSessions updates the live session gauge.
func (m *Metrics) SetActiveSessions(n int) {
	m.ActiveSessions.Set(float64(n))
}
