package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CronJobMetrics records outcomes of the maintenance jobs.
type CronJobMetrics struct {
	duration   *prometheus.HistogramVec
	runs       *prometheus.CounterVec
	stockDrift prometheus.Gauge
}

// NewCronJobMetrics registers the cron job metrics on the provided registerer.
func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	m := &CronJobMetrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hardware_cron_job_duration_seconds",
			Help:    "Duration of maintenance jobs in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hardware_cron_job_runs_total",
			Help: "Maintenance job executions by result.",
		}, []string{"job", "result"}),
		stockDrift: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hardware_stock_drift_products",
			Help: "Products whose stock disagrees with the inventory ledger at the last audit.",
		}),
	}
	reg.MustRegister(m.duration, m.runs, m.stockDrift)
	return m
}

// ObserveDuration records the duration for the named job.
func (m *CronJobMetrics) ObserveDuration(job string, d time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(job)).Observe(d.Seconds())
}

func (m *CronJobMetrics) IncSuccess(job string) {
	if m == nil || m.runs == nil {
		return
	}
	m.runs.WithLabelValues(normalizeLabel(job), "success").Inc()
}

func (m *CronJobMetrics) IncFailure(job string) {
	if m == nil || m.runs == nil {
		return
	}
	m.runs.WithLabelValues(normalizeLabel(job), "failure").Inc()
}

// SetStockDrift publishes the number of drifted products found by the audit.
func (m *CronJobMetrics) SetStockDrift(n int) {
	if m == nil || m.stockDrift == nil {
		return
	}
	m.stockDrift.Set(float64(n))
}
