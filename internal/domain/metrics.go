package domain

import "time"

// ScanOutcome labels the way a scan request was satisfied.
type ScanOutcome string

const (
	// ScanOutcomeFresh indicates the tree was walked.
	ScanOutcomeFresh ScanOutcome = "fresh"
	// ScanOutcomeCached indicates a valid snapshot was reused.
	ScanOutcomeCached ScanOutcome = "cached"
	// ScanOutcomeError indicates the scan failed.
	ScanOutcomeError ScanOutcome = "error"
)

// ExecutionMetric captures metrics for a finished tool run.
type ExecutionMetric struct {
	Category  string
	Status    ExecutionStatus
	Duration  time.Duration
	Truncated bool
}

// Metrics records catalog and execution telemetry.
type Metrics interface {
	ObserveScan(outcome ScanOutcome, duration time.Duration)
	SetCatalogSize(categories int, tools int)
	ObserveExecution(metric ExecutionMetric)
	AddInflightExecutions(delta int)
}
