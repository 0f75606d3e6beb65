package app

import (
	"context"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pysnip/internal/domain"
)

func testConfig(t *testing.T) domain.Config {
	t.Helper()
	root := t.TempDir()
	script := filepath.Join(root, "utility", "greeter", "greeter.py")
	require.NoError(t, os.MkdirAll(filepath.Dir(script), 0o755))
	body := "\"\"\"Greeter\n\nSays hello.\n\"\"\"\nimport argparse\nparser = argparse.ArgumentParser()\nparser.add_argument('--name', default='world', help='Who to greet')\n"
	body += strings.Repeat("# padding\n", 120)
	require.NoError(t, os.WriteFile(script, []byte(body), 0o644))

	return domain.Config{
		Root:        root,
		Name:        domain.DefaultCatalogName,
		Description: domain.DefaultCatalogDescription,
		Cache:       domain.CacheConfig{Enabled: true, Path: domain.DefaultCachePath},
		Scan:        domain.ScanConfig{Watch: false, ScriptExtensions: []string{".py"}},
		Execution: domain.ExecutionConfig{
			Enabled:        false,
			Interpreter:    "/bin/sh",
			TimeoutSeconds: 5,
			MaxOutputBytes: 1024,
			TempDir:        t.TempDir(),
			Mode:           domain.IsolationDirect,
			MaxConcurrent:  1,
		},
		SourceView: domain.SourceViewConfig{Enabled: true},
		Server:     domain.ServerConfig{ListenAddress: "127.0.0.1:0"},
		Logging:    domain.LoggingConfig{Level: "info", Format: "json"},
	}
}

func TestBuildLogger(t *testing.T) {
	logger, err := BuildLogger(domain.LoggingConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))

	logger, err = BuildLogger(domain.LoggingConfig{})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.DebugLevel))
	assert.True(t, logger.Core().Enabled(zap.InfoLevel))

	_, err = BuildLogger(domain.LoggingConfig{Level: "loud"})
	require.Error(t, err)
}

func TestSeparateObservability(t *testing.T) {
	cfg := domain.Config{Server: domain.ServerConfig{ListenAddress: "127.0.0.1:5000"}}
	assert.Empty(t, separateObservability(cfg))

	cfg.Observability.ListenAddress = "127.0.0.1:5000"
	assert.Empty(t, separateObservability(cfg))

	cfg.Observability.ListenAddress = "127.0.0.1:9090"
	assert.Equal(t, "127.0.0.1:9090", separateObservability(cfg))
}

func TestInitializeExplorer(t *testing.T) {
	cfg := testConfig(t)

	service, cleanup, err := New(zap.NewNop()).Explorer(context.Background(), cfg)
	require.NoError(t, err)
	defer cleanup()

	tool, ok := service.Tool("utility/greeter")
	require.True(t, ok)
	assert.True(t, tool.Complete)

	params, err := service.ExtractParameters("utility/greeter")
	require.NoError(t, err)
	require.Len(t, params, 1)
	assert.Equal(t, "--name", params[0].Name)

	result := service.Execute(context.Background(), "utility/greeter", nil)
	assert.Equal(t, domain.CodeExecutionDisabled, result.ErrorKind)

	_, err = os.Stat(filepath.Join(cfg.Root, ".pysnip", "catalog.db"))
	assert.NoError(t, err, "relative cache path lives under the root")
}

func TestScan_Force(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.Enabled = false

	catalog, err := New(nil).Scan(context.Background(), cfg, true)
	require.NoError(t, err)
	assert.Equal(t, 1, catalog.ToolCount)

	cfg.Root = filepath.Join(cfg.Root, "missing")
	_, err = New(nil).Scan(context.Background(), cfg, false)
	require.ErrorIs(t, err, domain.ErrRootNotFound)
}

func TestApplication_ServesUntilCancelled(t *testing.T) {
	cfg := testConfig(t)
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())
	cfg.Server.ListenAddress = addr
	cfg.Observability.Metrics = true

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- New(zap.NewNop()).Serve(ctx, ServeConfig{Config: cfg})
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/api/stats")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	resp, err := http.Get("http://" + addr + "/metrics")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("application did not stop")
	}
}
