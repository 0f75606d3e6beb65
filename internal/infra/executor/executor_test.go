package executor

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pysnip/internal/domain"
)

type recordingMetrics struct {
	mu         sync.Mutex
	executions []domain.ExecutionMetric
	inflight   int
}

func (m *recordingMetrics) ObserveScan(domain.ScanOutcome, time.Duration) {}

func (m *recordingMetrics) SetCatalogSize(int, int) {}

func (m *recordingMetrics) ObserveExecution(metric domain.ExecutionMetric) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.executions = append(m.executions, metric)
}

func (m *recordingMetrics) AddInflightExecutions(delta int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inflight += delta
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "utility", "tool")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, "tool.sh")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func newShellExecutor(t *testing.T, mutate func(*domain.ExecutionConfig), metrics domain.Metrics) *Executor {
	t.Helper()
	cfg := domain.ExecutionConfig{
		Enabled:        true,
		Interpreter:    "/bin/sh",
		TimeoutSeconds: 10,
		TempDir:        t.TempDir(),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	exec, err := New(Options{Config: cfg, Metrics: metrics, Logger: zap.NewNop()})
	require.NoError(t, err)
	return exec
}

func request(script string, params map[string]any) domain.ExecutionRequest {
	return domain.ExecutionRequest{ToolPath: "utility/tool/tool.sh", ScriptPath: script, Parameters: params}
}

func TestExecute_Success(t *testing.T) {
	script := writeScript(t, "echo \"$@\"\necho oops >&2\n")
	metrics := &recordingMetrics{}
	exec := newShellExecutor(t, nil, metrics)

	result := exec.Execute(context.Background(), request(script, map[string]any{"name": "x", "verbose": true, "skip": false}))

	require.True(t, result.Success, result.Error)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, "--name x --verbose\n", result.Stdout)
	assert.Equal(t, "oops\n", result.Stderr)
	assert.Equal(t, []string{"/bin/sh", script, "--name", "x", "--verbose"}, result.Command)
	assert.NotEmpty(t, result.RunID)
	assert.False(t, result.Timeout)
	assert.False(t, result.Timestamp.IsZero())
	assert.Positive(t, result.Duration)

	require.Len(t, metrics.executions, 1)
	assert.Equal(t, "utility", metrics.executions[0].Category)
	assert.Equal(t, domain.ExecutionStatusSuccess, metrics.executions[0].Status)
	assert.Equal(t, 0, metrics.inflight)
}

func TestExecute_ToolNotFound(t *testing.T) {
	exec := newShellExecutor(t, nil, nil)

	result := exec.Execute(context.Background(), request(filepath.Join(t.TempDir(), "missing.sh"), nil))

	assert.False(t, result.Success)
	assert.Equal(t, domain.CodeToolNotFound, result.ErrorKind)
	assert.Zero(t, result.Duration)
	assert.Equal(t, domain.ExecutionStatusRejected, result.Status())
}

func TestExecute_NonZeroExit(t *testing.T) {
	script := writeScript(t, "echo partial\nexit 3\n")
	result := newShellExecutor(t, nil, nil).Execute(context.Background(), request(script, nil))

	assert.False(t, result.Success)
	assert.Equal(t, 3, result.ExitCode)
	assert.Equal(t, "partial\n", result.Stdout)
	assert.Contains(t, result.Error, "code 3")
	assert.Equal(t, domain.ExecutionStatusFailure, result.Status())
}

func TestExecute_CleanExitWithBackgroundChild(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "child.pid")
	script := writeScript(t, "echo hi\nsleep 30 &\necho $! > \"$CHILD_PID_FILE\"\nexit 0\n")
	exec := newShellExecutor(t, func(cfg *domain.ExecutionConfig) {
		cfg.Env = map[string]string{"CHILD_PID_FILE": pidFile}
	}, nil)

	begin := time.Now()
	result := exec.Execute(context.Background(), request(script, nil))
	elapsed := time.Since(begin)

	require.True(t, result.Success, result.Error)
	assert.Equal(t, 0, result.ExitCode)
	assert.Empty(t, result.ErrorKind)
	assert.Equal(t, "hi\n", result.Stdout)
	assert.Less(t, elapsed, waitDelay+5*time.Second)

	if runtime.GOOS != "linux" {
		return
	}
	raw, err := os.ReadFile(pidFile)
	require.NoError(t, err)
	pid := strings.TrimSpace(string(raw))
	require.Eventually(t, func() bool {
		stat, err := os.ReadFile(filepath.Join("/proc", pid, "stat"))
		if err != nil {
			return true
		}
		// A killed child that nobody reaped yet shows up as a zombie.
		fields := strings.Fields(string(stat[strings.LastIndexByte(string(stat), ')')+1:]))
		return len(fields) > 0 && fields[0] == "Z"
	}, 5*time.Second, 50*time.Millisecond, "background child outlived the run")
}

func TestExecute_Timeout(t *testing.T) {
	script := writeScript(t, "echo started\nsleep 30\necho finished\n")
	exec := newShellExecutor(t, func(cfg *domain.ExecutionConfig) { cfg.TimeoutSeconds = 1 }, nil)

	begin := time.Now()
	result := exec.Execute(context.Background(), request(script, nil))
	elapsed := time.Since(begin)

	assert.False(t, result.Success)
	assert.True(t, result.Timeout)
	assert.Equal(t, -1, result.ExitCode)
	assert.Equal(t, domain.CodeTimeout, result.ErrorKind)
	assert.Equal(t, "started\n", result.Stdout)
	assert.Less(t, elapsed, 1*time.Second+waitDelay+2*time.Second)
}

func TestExecute_OutputTruncated(t *testing.T) {
	script := writeScript(t, "i=0\nwhile [ $i -lt 200 ]; do printf 'aaaaaaaaaa'; i=$((i+1)); done\n")
	exec := newShellExecutor(t, func(cfg *domain.ExecutionConfig) { cfg.MaxOutputBytes = 100 }, nil)

	result := exec.Execute(context.Background(), request(script, nil))

	require.True(t, result.Success, result.Error)
	assert.True(t, result.StdoutTruncated)
	assert.False(t, result.StderrTruncated)
	assert.Equal(t, strings.Repeat("a", 100)+domain.TruncationMarker, result.Stdout)
}

func TestExecute_PolicyViolationSpawnsNothing(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "ran")
	script := writeScript(t, "touch '"+marker+"'\n")
	metrics := &recordingMetrics{}
	exec := newShellExecutor(t, nil, metrics)

	result := exec.Execute(context.Background(), request(script, map[string]any{"target": "rm -rf /"}))

	assert.False(t, result.Success)
	assert.Equal(t, domain.CodePolicyViolation, result.ErrorKind)
	assert.NoFileExists(t, marker)
	require.Len(t, metrics.executions, 1)
	assert.Equal(t, domain.ExecutionStatusRejected, metrics.executions[0].Status)
}

func TestExecute_ScratchDirectoryAndEnv(t *testing.T) {
	script := writeScript(t, "pwd\necho \"$PYTHONPATH\"\necho \"$GREETING\"\n")
	tempDir := t.TempDir()
	exec := newShellExecutor(t, func(cfg *domain.ExecutionConfig) {
		cfg.TempDir = tempDir
		cfg.Env = map[string]string{"GREETING": "hello"}
	}, nil)

	result := exec.Execute(context.Background(), request(script, nil))
	require.True(t, result.Success, result.Error)

	lines := strings.Split(strings.TrimSpace(result.Stdout), "\n")
	require.Len(t, lines, 3)
	workDir := lines[0]
	resolvedTemp, err := filepath.EvalSymlinks(tempDir)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(workDir, resolvedTemp) || strings.HasPrefix(workDir, tempDir), workDir)
	assert.Contains(t, filepath.Base(workDir), result.RunID)
	assert.True(t, strings.HasPrefix(lines[1], filepath.Join(tempDir, "run-"+result.RunID)), lines[1])
	assert.Equal(t, "hello", lines[2])
	assert.NoDirExists(t, workDir)

	entries, err := os.ReadDir(tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExecute_FixedWorkDirKept(t *testing.T) {
	workDir := t.TempDir()
	script := writeScript(t, "pwd\n")
	exec := newShellExecutor(t, func(cfg *domain.ExecutionConfig) { cfg.WorkDir = workDir }, nil)

	result := exec.Execute(context.Background(), request(script, nil))
	require.True(t, result.Success, result.Error)
	assert.DirExists(t, workDir)
}

func TestExecute_MissingInterpreter(t *testing.T) {
	script := writeScript(t, "echo hi\n")
	exec := newShellExecutor(t, func(cfg *domain.ExecutionConfig) { cfg.Interpreter = "/nonexistent/interpreter" }, nil)

	result := exec.Execute(context.Background(), request(script, nil))
	assert.False(t, result.Success)
	assert.Equal(t, domain.CodeToolNotFound, result.ErrorKind)
	assert.Contains(t, result.Error, "start command")
}

func TestExecute_ConcurrentRunsUseSeparateDirectories(t *testing.T) {
	script := writeScript(t, "pwd\n")
	exec := newShellExecutor(t, func(cfg *domain.ExecutionConfig) { cfg.MaxConcurrent = 2 }, nil)

	var wg sync.WaitGroup
	dirs := make([]string, 4)
	for i := range dirs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result := exec.Execute(context.Background(), request(script, nil))
			dirs[i] = strings.TrimSpace(result.Stdout)
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, dir := range dirs {
		require.NotEmpty(t, dir)
		assert.False(t, seen[dir], dir)
		seen[dir] = true
	}
}

func TestIsolationFor(t *testing.T) {
	iso, err := IsolationFor("")
	require.NoError(t, err)
	assert.Equal(t, domain.IsolationDirect, iso.Mode())

	iso, err = IsolationFor("Sandboxed")
	require.NoError(t, err)
	assert.Equal(t, domain.IsolationSandboxed, iso.Mode())

	_, err = IsolationFor("jail")
	require.Error(t, err)
	code, _ := domain.CodeFrom(err)
	assert.Equal(t, domain.CodeInvalidArgument, code)
}

func TestCappedBuffer(t *testing.T) {
	buf := newCappedBuffer(5)
	n, err := buf.Write([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	n, err = buf.Write([]byte("defgh"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	out, truncated := buf.Result()
	assert.True(t, truncated)
	assert.Equal(t, "abcde"+domain.TruncationMarker, out)
}
