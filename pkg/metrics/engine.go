package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values shared across engine metrics.
const (
	ResultIssued     = "issued"
	ResultIneligible = "ineligible"
	ResultFailed     = "failed"

	ResultSettled        = "settled"
	ResultAlreadySettled = "already_settled"
	ResultRejected       = "rejected"
)

// EngineMetrics tracks spin issuance, payment settlement and receipt lookups.
type EngineMetrics struct {
	spins        *prometheus.CounterVec
	settlements  *prometheus.CounterVec
	verification *prometheus.HistogramVec
}

// NewEngineMetrics registers the engine metrics on the provided registerer.
// A nil registerer yields a no-op collector.
func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	if reg == nil {
		return &EngineMetrics{}
	}
	spins := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spins_total",
		Help: "Spin requests by result, reward kind and consumption path.",
	}, []string{"result", "kind", "path"})
	settlements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlements_total",
		Help: "Payment settlement attempts by result.",
	}, []string{"result"})
	verification := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payment_verification_seconds",
		Help:    "Latency of payment receipt verification.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	reg.MustRegister(spins, settlements, verification)
	return &EngineMetrics{
		spins:        spins,
		settlements:  settlements,
		verification: verification,
	}
}

// IncSpin counts one spin request. kind and path may be empty for rejected
// or failed requests.
func (m *EngineMetrics) IncSpin(result, kind, path string) {
	if m == nil || m.spins == nil {
		return
	}
	m.spins.WithLabelValues(normalizeLabel(result), normalizeLabel(kind), normalizeLabel(path)).Inc()
}

func (m *EngineMetrics) IncSettlement(result string) {
	if m == nil || m.settlements == nil {
		return
	}
	m.settlements.WithLabelValues(normalizeLabel(result)).Inc()
}

func (m *EngineMetrics) ObserveVerification(outcome string, duration time.Duration) {
	if m == nil || m.verification == nil {
		return
	}
	m.verification.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}

func normalizeLabel(v string) string {
	if v == "" {
		return "none"
	}
	return v
}
