package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestEngineMetricsCountsSpinsAndSettlements(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewEngineMetrics(reg)

	m.IncSpin(ResultIssued, "nft", "free")
	m.IncSpin(ResultIssued, "nft", "free")
	m.IncSpin(ResultIneligible, "", "")
	m.IncSettlement(ResultSettled)
	m.IncSettlement(ResultAlreadySettled)

	require.Equal(t, float64(2), testutil.ToFloat64(m.spins.WithLabelValues(ResultIssued, "nft", "free")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.spins.WithLabelValues(ResultIneligible, "none", "none")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.settlements.WithLabelValues(ResultAlreadySettled)))
	require.Equal(t, 2, testutil.CollectAndCount(m.settlements))
}

func TestEngineMetricsObservesVerificationLatency(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewEngineMetrics(reg)
	m.ObserveVerification("ok", 300*time.Millisecond)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	sum, ok := histogramSum(mfs, "payment_verification_seconds", "outcome", "ok")
	require.True(t, ok)
	require.InDelta(t, 0.3, sum, 0.0001)
}

func TestNilRegistererIsNoop(t *testing.T) {
	m := NewEngineMetrics(nil)
	require.NotPanics(t, func() {
		m.IncSpin(ResultIssued, "points", "credit")
		m.IncSettlement(ResultRejected)
		m.ObserveVerification("timeout", time.Second)
	})

	var nilMetrics *EngineMetrics
	require.NotPanics(t, func() { nilMetrics.IncSpin(ResultFailed, "", "") })
}

func TestHTTPMetricsCountsByRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	m.IncRequest("POST", "/api/v1/spin", 200)
	m.IncRequest("POST", "/api/v1/spin", 200)
	m.IncRequest("GET", "", 404)

	require.Equal(t, float64(2), testutil.ToFloat64(m.requests.WithLabelValues("POST", "/api/v1/spin", "200")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.requests.WithLabelValues("GET", "none", "404")))
}

func histogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, bool) {
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if pair.GetName() == label && pair.GetValue() == value {
					return metric.GetHistogram().GetSampleSum(), true
				}
			}
		}
	}
	return 0, false
}
