package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCoreMetricsRegisters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m, err := NewCoreMetrics(registry)
	require.NoError(t, err)

	m.RenderUnderruns.WithLabelValues("default").Inc()
	assert.InDelta(t, 1, testutil.ToFloat64(m.RenderUnderruns.WithLabelValues("default")), 0)

	m.ActiveSinkInputs.Set(3)
	assert.InDelta(t, 3, testutil.ToFloat64(m.ActiveSinkInputs), 0)
}

func TestNewCoreMetricsDoubleRegisterFails(t *testing.T) {
	registry := prometheus.NewRegistry()
	_, err := NewCoreMetrics(registry)
	require.NoError(t, err)

	_, err = NewCoreMetrics(registry)
	assert.Error(t, err)
}

func TestSubscriptionMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m, err := NewSubscriptionMetrics(registry)
	require.NoError(t, err)

	m.EventsPublished.WithLabelValues("sink", "new").Inc()
	assert.InDelta(t, 1, testutil.ToFloat64(m.EventsPublished.WithLabelValues("sink", "new")), 0)
}

func TestModuleMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m, err := NewModuleMetrics(registry)
	require.NoError(t, err)

	m.SampleCacheHits.Inc()
	m.SampleCacheMiss.Inc()
	assert.InDelta(t, 1, testutil.ToFloat64(m.SampleCacheHits), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.SampleCacheMiss), 0)
}
