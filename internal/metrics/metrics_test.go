package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestPrometheusObserverCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := NewPrometheusObserver("test", reg)
	require.NoError(t, err)

	obs.RecordCleanup("permits", "deleted", 20*time.Millisecond)
	obs.RecordCleanup("permits", "skipped", 0)
	obs.RecordVerification("success")
	obs.RecordSweep(3, 1)

	require.Equal(t, 1.0, testutil.ToFloat64(obs.cleanups.WithLabelValues("permits", "deleted")))
	require.Equal(t, 1.0, testutil.ToFloat64(obs.cleanups.WithLabelValues("permits", "skipped")))
	require.Equal(t, 1.0, testutil.ToFloat64(obs.verifications.WithLabelValues("success")))
	require.Equal(t, 3.0, testutil.ToFloat64(obs.sweeps.WithLabelValues("resolved")))
	require.Equal(t, 1.0, testutil.ToFloat64(obs.sweeps.WithLabelValues("failed")))
	require.Equal(t, 1, testutil.CollectAndCount(obs.deleteLatency))
}

func TestPrometheusObserverReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPrometheusObserver("test", reg)
	require.NoError(t, err)
	second, err := NewPrometheusObserver("test", reg)
	require.NoError(t, err)

	first.RecordVerification("rejected")
	second.RecordVerification("rejected")

	require.Equal(t, 2.0, testutil.ToFloat64(second.verifications.WithLabelValues("rejected")))
}

func TestNilObserverIsSafe(t *testing.T) {
	var obs *PrometheusObserver
	require.NotPanics(t, func() {
		obs.RecordCleanup("permits", "failed", time.Second)
		obs.RecordVerification("error")
		obs.RecordSweep(1, 1)
	})
}
