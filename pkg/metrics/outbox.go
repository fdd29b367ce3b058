package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutboxMetrics tracks the publisher loop.
type OutboxMetrics struct {
	published     *prometheus.CounterVec
	failed        *prometheus.CounterVec
	deadLettered  *prometheus.CounterVec
	batchDuration prometheus.Histogram
}

// NewOutboxMetrics registers the publisher metrics on the provided registerer.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	m := &OutboxMetrics{
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hardware_outbox_published_total",
			Help: "Outbox events delivered to Kafka.",
		}, []string{"event_type"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hardware_outbox_failed_total",
			Help: "Outbox publish attempts that will be retried.",
		}, []string{"event_type"}),
		deadLettered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hardware_outbox_dead_lettered_total",
			Help: "Outbox events moved to the DLQ.",
		}, []string{"reason"}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hardware_outbox_batch_duration_seconds",
			Help:    "Time spent processing one outbox batch.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.published, m.failed, m.deadLettered, m.batchDuration)
	return m
}

func (m *OutboxMetrics) IncPublished(eventType string) {
	if m == nil || m.published == nil {
		return
	}
	m.published.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func (m *OutboxMetrics) IncFailed(eventType string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func (m *OutboxMetrics) IncDeadLettered(reason string) {
	if m == nil || m.deadLettered == nil {
		return
	}
	m.deadLettered.WithLabelValues(normalizeLabel(reason)).Inc()
}

func (m *OutboxMetrics) ObserveBatch(d time.Duration) {
	if m == nil || m.batchDuration == nil {
		return
	}
	m.batchDuration.Observe(d.Seconds())
}
