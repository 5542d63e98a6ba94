package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WebhookMetrics records gateway notification processing outcomes.
type WebhookMetrics struct {
	duration *prometheus.HistogramVec
	handled  *prometheus.CounterVec
	failure  *prometheus.CounterVec
}

// NewWebhookMetrics registers the webhook metrics on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webhook_duration_seconds",
		Help:    "Duration of webhook handling in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"status"})
	handled := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_handled",
		Help: "Webhook deliveries handled, by resulting transition.",
	}, []string{"status", "outcome"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_failure",
		Help: "Webhook deliveries that failed processing.",
	}, []string{"status"})
	reg.MustRegister(duration, handled, failure)
	return &WebhookMetrics{
		duration: duration,
		handled:  handled,
		failure:  failure,
	}
}

// ObserveDuration records the handling duration for the given gateway status.
func (m *WebhookMetrics) ObserveDuration(status string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(status)).Observe(duration.Seconds())
}

// IncHandled increments the handled counter for the status/outcome pair.
func (m *WebhookMetrics) IncHandled(status, outcome string) {
	if m == nil || m.handled == nil {
		return
	}
	m.handled.WithLabelValues(normalizeLabel(status), normalizeLabel(outcome)).Inc()
}

// IncFailure increments the failure counter for the given gateway status.
func (m *WebhookMetrics) IncFailure(status string) {
	if m == nil || m.failure == nil {
		return
	}
	m.failure.WithLabelValues(normalizeLabel(status)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
