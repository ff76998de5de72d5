package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// JobMetrics records maintenance job runs and the outbox backlog they watch.
type JobMetrics struct {
	duration   *prometheus.HistogramVec
	runs       *prometheus.CounterVec
	deadLetter prometheus.Gauge
}

func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	if reg == nil {
		return &JobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "maintenance_job_duration_seconds",
		Help:    "Duration of maintenance jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "maintenance_job_runs_total",
		Help: "Maintenance job runs by outcome.",
	}, []string{"job", "result"})
	deadLetter := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "outbox_dead_letter_backlog",
		Help: "Outbox events that exhausted their publish attempts.",
	})
	reg.MustRegister(duration, runs, deadLetter)
	return &JobMetrics{
		duration:   duration,
		runs:       runs,
		deadLetter: deadLetter,
	}
}

// ObserveRun records one run of job; a non-nil err counts as a failure.
func (m *JobMetrics) ObserveRun(job string, duration time.Duration, err error) {
	if m == nil || m.runs == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
	m.runs.WithLabelValues(normalizeLabel(job), result).Inc()
}

func (m *JobMetrics) SetDeadLetterBacklog(n int64) {
	if m == nil || m.deadLetter == nil {
		return
	}
	m.deadLetter.Set(float64(n))
}
