package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"pysnip/internal/domain"
)

type PrometheusMetrics struct {
	scanDuration      *prometheus.HistogramVec
	catalogCategories prometheus.Gauge
	catalogTools      prometheus.Gauge
	executionDuration *prometheus.HistogramVec
	executionsTotal   *prometheus.CounterVec
	truncatedOutputs  *prometheus.CounterVec
	inflight          prometheus.Gauge
}

func NewPrometheusMetrics(registerer prometheus.Registerer) *PrometheusMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &PrometheusMetrics{
		scanDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pysnip_scan_duration_seconds",
				Help:    "Duration of catalog scans in seconds",
				Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"outcome"},
		),
		catalogCategories: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "pysnip_catalog_categories",
				Help: "Number of categories in the published catalog",
			},
		),
		catalogTools: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "pysnip_catalog_tools",
				Help: "Number of tools in the published catalog",
			},
		),
		executionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pysnip_execution_duration_seconds",
				Help:    "Wall time of tool executions in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"category", "status"},
		),
		executionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pysnip_executions_total",
				Help: "Total number of tool execution requests",
			},
			[]string{"category", "status"},
		),
		truncatedOutputs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pysnip_execution_truncated_total",
				Help: "Total number of executions whose output was truncated",
			},
			[]string{"category"},
		),
		inflight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "pysnip_executions_inflight",
				Help: "Current number of running tool executions",
			},
		),
	}
}

func (p *PrometheusMetrics) ObserveScan(outcome domain.ScanOutcome, duration time.Duration) {
	p.scanDuration.WithLabelValues(string(outcome)).Observe(duration.Seconds())
}

func (p *PrometheusMetrics) SetCatalogSize(categories int, tools int) {
	p.catalogCategories.Set(float64(categories))
	p.catalogTools.Set(float64(tools))
}

func (p *PrometheusMetrics) ObserveExecution(metric domain.ExecutionMetric) {
	status := string(metric.Status)
	p.executionsTotal.WithLabelValues(metric.Category, status).Inc()
	if metric.Status != domain.ExecutionStatusRejected {
		p.executionDuration.WithLabelValues(metric.Category, status).Observe(metric.Duration.Seconds())
	}
	if metric.Truncated {
		p.truncatedOutputs.WithLabelValues(metric.Category).Inc()
	}
}

func (p *PrometheusMetrics) AddInflightExecutions(delta int) {
	p.inflight.Add(float64(delta))
}

var _ domain.Metrics = (*PrometheusMetrics)(nil)
