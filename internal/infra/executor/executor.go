// Package executor runs catalog tools as child processes with a wall-clock
// timeout, capped output capture and best-effort resource limits.
package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"pysnip/internal/domain"
	"pysnip/internal/infra/envutil"
	"pysnip/internal/infra/telemetry"
)

// waitDelay bounds how long Wait keeps draining pipes after the child was
// killed.
const waitDelay = 2 * time.Second

type Options struct {
	Config  domain.ExecutionConfig
	Metrics domain.Metrics
	Logger  *zap.Logger
	Now     func() time.Time
}

// Executor is safe for concurrent use. Each run gets its own scratch
// directory.
type Executor struct {
	interpreter string
	timeout     time.Duration
	maxOutput   int
	cpuSeconds  uint64
	memoryBytes uint64
	workDir     string
	tempDir     string
	env         map[string]string
	isolation   Isolation
	policy      Policy
	sem         *semaphore.Weighted
	metrics     domain.Metrics
	logger      *zap.Logger
	now         func() time.Time
}

// New validates the configuration and returns an executor.
func New(opts Options) (*Executor, error) {
	cfg := opts.Config
	isolation, err := IsolationFor(cfg.Mode)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	interpreter := strings.TrimSpace(cfg.Interpreter)
	if interpreter == "" {
		interpreter = domain.DefaultInterpreter
	}
	maxOutput := cfg.MaxOutputBytes
	if maxOutput <= 0 {
		maxOutput = domain.DefaultMaxOutputBytes
	}
	tempDir := cfg.TempDir
	if tempDir == "" {
		tempDir = domain.DefaultTempDir
	}
	concurrent := cfg.MaxConcurrent
	if concurrent <= 0 {
		concurrent = domain.DefaultExecutionMaxConcurrent
	}
	prohibited := cfg.Prohibited
	if prohibited == nil {
		prohibited = domain.DefaultProhibited
	}
	env := make(map[string]string, len(cfg.Env))
	for key, value := range cfg.Env {
		env[key] = value
	}

	return &Executor{
		interpreter: interpreter,
		timeout:     cfg.Timeout(),
		maxOutput:   maxOutput,
		cpuSeconds:  cfg.CPUSeconds,
		memoryBytes: cfg.MemoryBytes,
		workDir:     cfg.WorkDir,
		tempDir:     tempDir,
		env:         env,
		isolation:   isolation,
		policy:      NewPolicy(prohibited),
		sem:         semaphore.NewWeighted(int64(concurrent)),
		metrics:     opts.Metrics,
		logger:      logger.Named("executor"),
		now:         now,
	}, nil
}

// Policy returns the parameter policy applied before every run.
func (e *Executor) Policy() Policy {
	return e.policy
}

// Mode reports the active isolation mode.
func (e *Executor) Mode() domain.IsolationMode {
	return e.isolation.Mode()
}

// Execute runs one tool. It never returns an error; every failure is reported
// in the result.
func (e *Executor) Execute(ctx context.Context, req domain.ExecutionRequest) domain.ExecutionResult {
	if e.metrics != nil {
		e.metrics.AddInflightExecutions(1)
		defer e.metrics.AddInflightExecutions(-1)
	}
	result := e.execute(ctx, req)
	result.Timestamp = e.now()

	if e.metrics != nil {
		e.metrics.ObserveExecution(domain.ExecutionMetric{
			Category:  categoryOf(req.ToolPath),
			Status:    result.Status(),
			Duration:  result.Duration,
			Truncated: result.StdoutTruncated || result.StderrTruncated,
		})
	}
	event := telemetry.EventExecution
	if result.ErrorKind == domain.CodePolicyViolation {
		event = telemetry.EventPolicyBlocked
	}
	fields := []zap.Field{
		telemetry.EventField(event),
		telemetry.RunIDField(result.RunID),
		telemetry.ToolField(req.ToolPath),
		zap.Int("exitCode", result.ExitCode),
		telemetry.DurationField(result.Duration),
		zap.Bool("timeout", result.Timeout),
	}
	if result.Success {
		e.logger.Info("tool executed", fields...)
	} else {
		e.logger.Warn("tool execution failed", append(fields, zap.String("error", result.Error))...)
	}
	return result
}

func (e *Executor) execute(ctx context.Context, req domain.ExecutionRequest) (result domain.ExecutionResult) {
	result = domain.ExecutionResult{
		RunID:    uuid.NewString(),
		ToolPath: req.ToolPath,
		ExitCode: -1,
	}

	info, err := os.Stat(req.ScriptPath)
	if err != nil || info.IsDir() {
		return fail(result, domain.CodeToolNotFound, fmt.Sprintf("tool not found: %s", req.ToolPath))
	}

	args := BuildArgs(e.interpreter, req.ScriptPath, req.Parameters)
	result.Command = args
	result.CommandLine = CommandLine(args)

	if err := e.policy.Check(req.Parameters); err != nil {
		return fail(result, domain.CodePolicyViolation, err.Error())
	}

	started := time.Now()
	defer func() { result.Duration = time.Since(started) }()

	if err := e.sem.Acquire(ctx, 1); err != nil {
		return fail(result, domain.CodeInternal, fmt.Sprintf("waiting for an execution slot: %v", err))
	}
	defer e.sem.Release(1)

	dir, cleanup, err := e.prepareWorkDir(result.RunID)
	if err != nil {
		return fail(result, domain.CodeIOFailure, fmt.Sprintf("prepare working directory: %v", err))
	}
	defer cleanup()

	e.run(ctx, &result, args, dir)
	return result
}

func (e *Executor) run(ctx context.Context, result *domain.ExecutionResult, args []string, dir string) {
	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	stdout := newCappedBuffer(e.maxOutput)
	stderr := newCappedBuffer(e.maxOutput)

	cmd := exec.CommandContext(runCtx, args[0], args[1:]...)
	cmd.Dir = dir
	cmd.Env = e.buildEnv(dir)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = waitDelay
	killGroupOnCancel(cmd)

	if err := e.isolation.Prepare(cmd); err != nil {
		*result = fail(*result, domain.CodeInternal, fmt.Sprintf("prepare isolation: %v", err))
		return
	}

	if err := cmd.Start(); err != nil {
		err = classifyStartError(err)
		code, ok := domain.CodeFrom(err)
		if !ok {
			code = domain.CodeInternal
		}
		*result = fail(*result, code, fmt.Sprintf("start command: %v", err))
		return
	}
	if err := applyLimits(cmd.Process.Pid, e.cpuSeconds, e.memoryBytes); err != nil {
		e.logger.Warn("resource limits not applied", telemetry.RunIDField(result.RunID), zap.Error(err))
	}

	waitErr := cmd.Wait()
	if err := reapGroup(cmd); err != nil {
		e.logger.Warn("leftover processes not killed", telemetry.RunIDField(result.RunID), zap.Error(err))
	}

	result.Stdout, result.StdoutTruncated = stdout.Result()
	result.Stderr, result.StderrTruncated = stderr.Result()

	switch {
	case errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		result.Timeout = true
		result.ExitCode = -1
		result.ErrorKind = domain.CodeTimeout
		result.Error = fmt.Sprintf("execution timed out after %s", e.timeout)
	case ctx.Err() != nil:
		result.ExitCode = -1
		result.ErrorKind = domain.CodeInternal
		result.Error = fmt.Sprintf("execution cancelled: %v", ctx.Err())
	case waitErr != nil && !errors.Is(waitErr, exec.ErrWaitDelay):
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			result.Error = fmt.Sprintf("process exited with code %d", result.ExitCode)
		} else {
			result.ExitCode = -1
			result.ErrorKind = domain.CodeInternal
			result.Error = waitErr.Error()
		}
	default:
		// ErrWaitDelay means the tool exited cleanly but something it
		// started kept the output pipes open.
		if cmd.ProcessState != nil {
			result.ExitCode = cmd.ProcessState.ExitCode()
		}
		result.Success = result.ExitCode == 0
	}
}

// prepareWorkDir returns the run directory and a cleanup func that removes it
// when it was created for this run.
func (e *Executor) prepareWorkDir(runID string) (string, func(), error) {
	if e.workDir != "" {
		return e.workDir, func() {}, nil
	}
	if err := os.MkdirAll(e.tempDir, 0o755); err != nil {
		return "", nil, err
	}
	dir, err := os.MkdirTemp(e.tempDir, "run-"+runID+"-")
	if err != nil {
		return "", nil, err
	}
	return dir, func() {
		if err := os.RemoveAll(dir); err != nil {
			e.logger.Warn("scratch directory not removed", zap.String("dir", dir), zap.Error(err))
		}
	}, nil
}

// buildEnv inherits the process environment, applies configured overrides
// and puts the run directory first on PYTHONPATH.
func (e *Executor) buildEnv(dir string) []string {
	env := envutil.Merge(os.Environ(), e.env)
	return envutil.PrependList(env, "PYTHONPATH", dir)
}

func fail(result domain.ExecutionResult, code domain.ErrorCode, msg string) domain.ExecutionResult {
	result.Success = false
	result.ErrorKind = code
	result.Error = msg
	return result
}

func classifyStartError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", domain.ErrExecutableNotFound, err.Error())
	}
	if errors.Is(err, os.ErrPermission) {
		return fmt.Errorf("%w: %s", domain.ErrPermissionDenied, err.Error())
	}
	return err
}

func categoryOf(toolPath string) string {
	clean := filepath.ToSlash(toolPath)
	if i := strings.IndexByte(clean, '/'); i > 0 {
		return clean[:i]
	}
	return clean
}
