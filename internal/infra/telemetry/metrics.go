package telemetry

import (
	"time"

	"pysnip/internal/domain"
)

type NoopMetrics struct{}

func NewNoopMetrics() *NoopMetrics {
	return &NoopMetrics{}
}

func (n *NoopMetrics) ObserveScan(_ domain.ScanOutcome, _ time.Duration) {}

func (n *NoopMetrics) SetCatalogSize(_ int, _ int) {}

func (n *NoopMetrics) ObserveExecution(_ domain.ExecutionMetric) {}

func (n *NoopMetrics) AddInflightExecutions(_ int) {}

var _ domain.Metrics = (*NoopMetrics)(nil)
