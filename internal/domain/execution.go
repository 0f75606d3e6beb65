package domain

import "time"

// TruncationMarker is appended to captured output that exceeded the cap.
const TruncationMarker = "\n... [OUTPUT TRUNCATED] ..."

// IsolationMode names how a tool process is contained.
type IsolationMode string

const (
	IsolationDirect    IsolationMode = "direct"
	IsolationSandboxed IsolationMode = "sandboxed"
)

// ExecutionRequest is a fully resolved run of one tool.
type ExecutionRequest struct {
	ToolPath   string
	ScriptPath string
	Parameters map[string]any
}

// ExecutionResult reports the outcome of one run. It is never persisted.
type ExecutionResult struct {
	RunID           string        `json:"runId"`
	ToolPath        string        `json:"toolPath"`
	Success         bool          `json:"success"`
	ExitCode        int           `json:"exitCode"`
	Command         []string      `json:"command"`
	CommandLine     string        `json:"commandLine"`
	Stdout          string        `json:"stdout"`
	Stderr          string        `json:"stderr"`
	StdoutTruncated bool          `json:"stdoutTruncated"`
	StderrTruncated bool          `json:"stderrTruncated"`
	Duration        time.Duration `json:"duration"`
	Timeout         bool          `json:"timeout"`
	Error           string        `json:"error,omitempty"`
	ErrorKind       ErrorCode     `json:"errorKind,omitempty"`
	Timestamp       time.Time     `json:"timestamp"`
}

// ExecutionStatus labels a finished run for metrics.
type ExecutionStatus string

const (
	ExecutionStatusSuccess  ExecutionStatus = "success"
	ExecutionStatusFailure  ExecutionStatus = "failure"
	ExecutionStatusTimeout  ExecutionStatus = "timeout"
	ExecutionStatusRejected ExecutionStatus = "rejected"
)

// Status classifies the result for metrics.
func (r ExecutionResult) Status() ExecutionStatus {
	switch {
	case r.Success:
		return ExecutionStatusSuccess
	case r.Timeout:
		return ExecutionStatusTimeout
	case r.ErrorKind == CodePolicyViolation, r.ErrorKind == CodeToolNotFound, r.ErrorKind == CodeExecutionDisabled:
		return ExecutionStatusRejected
	default:
		return ExecutionStatusFailure
	}
}
