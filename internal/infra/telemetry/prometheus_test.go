package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pysnip/internal/domain"
)

func TestNewPrometheusMetrics(t *testing.T) {
	m := NewPrometheusMetrics(prometheus.NewRegistry())
	assert.NotNil(t, m)
	assert.NotNil(t, m.scanDuration)
	assert.NotNil(t, m.catalogCategories)
	assert.NotNil(t, m.catalogTools)
	assert.NotNil(t, m.executionDuration)
	assert.NotNil(t, m.executionsTotal)
	assert.NotNil(t, m.truncatedOutputs)
	assert.NotNil(t, m.inflight)
}

func TestNewPrometheusMetrics_UsesProvidedRegistry(t *testing.T) {
	registry := prometheus.NewRegistry()

	m := NewPrometheusMetrics(registry)
	m.ObserveScan(domain.ScanOutcomeFresh, 20*time.Millisecond)
	m.SetCatalogSize(3, 12)
	m.ObserveExecution(domain.ExecutionMetric{
		Category:  "utility",
		Status:    domain.ExecutionStatusSuccess,
		Duration:  time.Second,
		Truncated: true,
	})
	m.AddInflightExecutions(1)

	metrics, err := registry.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(metrics))
	for _, m := range metrics {
		names = append(names, m.GetName())
	}

	assert.Contains(t, names, "pysnip_scan_duration_seconds")
	assert.Contains(t, names, "pysnip_catalog_categories")
	assert.Contains(t, names, "pysnip_catalog_tools")
	assert.Contains(t, names, "pysnip_execution_duration_seconds")
	assert.Contains(t, names, "pysnip_executions_total")
	assert.Contains(t, names, "pysnip_execution_truncated_total")
	assert.Contains(t, names, "pysnip_executions_inflight")
}

func TestPrometheusMetrics_Values(t *testing.T) {
	m := NewPrometheusMetrics(prometheus.NewRegistry())

	m.SetCatalogSize(2, 7)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.catalogCategories))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.catalogTools))

	m.ObserveExecution(domain.ExecutionMetric{Category: "utility", Status: domain.ExecutionStatusRejected})
	m.ObserveExecution(domain.ExecutionMetric{Category: "utility", Status: domain.ExecutionStatusTimeout, Duration: time.Minute})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.executionsTotal.WithLabelValues("utility", "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.executionsTotal.WithLabelValues("utility", "timeout")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.truncatedOutputs.WithLabelValues("utility")))

	m.AddInflightExecutions(2)
	m.AddInflightExecutions(-1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inflight))
}

func TestNoopMetrics(t *testing.T) {
	var m domain.Metrics = NewNoopMetrics()
	m.ObserveScan(domain.ScanOutcomeCached, time.Millisecond)
	m.SetCatalogSize(1, 1)
	m.ObserveExecution(domain.ExecutionMetric{})
	m.AddInflightExecutions(1)
}
