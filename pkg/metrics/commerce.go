package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WebhookMetrics counts gateway deliveries by outcome.
type WebhookMetrics struct {
	outcomes *prometheus.CounterVec
}

func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_events_total",
		Help:      "Verified gateway webhook deliveries by outcome.",
	}, []string{"gateway", "outcome"})
	reg.MustRegister(outcomes)
	return &WebhookMetrics{outcomes: outcomes}
}

func (w *WebhookMetrics) IncOutcome(gateway, outcome string) {
	if w == nil || w.outcomes == nil {
		return
	}
	w.outcomes.WithLabelValues(normalizeLabel(gateway), normalizeLabel(outcome)).Inc()
}

// GatewayMetrics observes outbound payment gateway calls.
type GatewayMetrics struct {
	latency *prometheus.HistogramVec
}

func NewGatewayMetrics(reg prometheus.Registerer) *GatewayMetrics {
	if reg == nil {
		return &GatewayMetrics{}
	}
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "gateway_request_duration_seconds",
		Help:      "Latency of payment gateway requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "result"})
	reg.MustRegister(latency)
	return &GatewayMetrics{latency: latency}
}

// Observe records one call; result is "ok" or an error class.
func (g *GatewayMetrics) Observe(operation, result string, duration time.Duration) {
	if g == nil || g.latency == nil {
		return
	}
	g.latency.WithLabelValues(normalizeLabel(operation), normalizeLabel(result)).Observe(duration.Seconds())
}

// OutboxMetrics counts publish attempts per sink.
type OutboxMetrics struct {
	published *prometheus.CounterVec
	failed    *prometheus.CounterVec
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_published_total",
		Help:      "Outbox events delivered to the sink.",
	}, []string{"sink", "event_type"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_failed_total",
		Help:      "Outbox publish failures by reason.",
	}, []string{"sink", "reason"})
	reg.MustRegister(published, failed)
	return &OutboxMetrics{published: published, failed: failed}
}

func (o *OutboxMetrics) IncPublished(sink, eventType string) {
	if o == nil || o.published == nil {
		return
	}
	o.published.WithLabelValues(normalizeLabel(sink), normalizeLabel(eventType)).Inc()
}

func (o *OutboxMetrics) IncFailed(sink, reason string) {
	if o == nil || o.failed == nil {
		return
	}
	o.failed.WithLabelValues(normalizeLabel(sink), normalizeLabel(reason)).Inc()
}
