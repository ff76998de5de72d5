package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRelayMetricsCountsByEventType(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRelayMetrics(reg)

	m.IncPublished("spin_issued")
	m.IncPublished("spin_issued")
	m.IncFailed("payment_settled")
	m.IncDeadLettered("")
	m.ObserveBatch(20 * time.Millisecond)

	require.Equal(t, float64(2), testutil.ToFloat64(m.published.WithLabelValues("spin_issued")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.failed.WithLabelValues("payment_settled")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.deadLettered.WithLabelValues("none")))

	count, err := testutil.GatherAndCount(reg, "outbox_relay_batch_duration_seconds")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestRelayMetricsNilSafe(t *testing.T) {
	var m *RelayMetrics
	m.IncPublished("spin_issued")
	m.ObserveBatch(time.Second)

	unregistered := NewRelayMetrics(nil)
	unregistered.IncFailed("spin_issued")
	unregistered.IncDeadLettered("spin_issued")
}
