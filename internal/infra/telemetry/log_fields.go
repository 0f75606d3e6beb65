package telemetry

import (
	"time"

	"go.uber.org/zap"
)

const (
	FieldEvent      = "event"
	FieldRunID      = "runId"
	FieldTool       = "tool"
	FieldCategory   = "category"
	FieldRoot       = "root"
	FieldDurationMs = "duration_ms"
	FieldRequestID  = "request_id"
)

const (
	EventScan          = "scan"
	EventRefresh       = "refresh"
	EventExecution     = "execution"
	EventPolicyBlocked = "policy_blocked"
	EventWatchError    = "watch_error"
)

func EventField(event string) zap.Field {
	return zap.String(FieldEvent, event)
}

func RunIDField(runID string) zap.Field {
	return zap.String(FieldRunID, runID)
}

func ToolField(toolPath string) zap.Field {
	return zap.String(FieldTool, toolPath)
}

func CategoryField(category string) zap.Field {
	return zap.String(FieldCategory, category)
}

func RootField(root string) zap.Field {
	return zap.String(FieldRoot, root)
}

func DurationField(duration time.Duration) zap.Field {
	return zap.Int64(FieldDurationMs, duration.Milliseconds())
}

func RequestIDField(value string) zap.Field {
	return zap.String(FieldRequestID, value)
}
