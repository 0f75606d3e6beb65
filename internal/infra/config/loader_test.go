package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"pysnip/internal/domain"
)

func writeTempConfig(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoader_Defaults(t *testing.T) {
	cfg, err := NewLoader(zap.NewNop()).Load(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, domain.DefaultRoot, cfg.Root)
	assert.Equal(t, domain.DefaultCatalogName, cfg.Name)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, domain.DefaultCachePath, cfg.Cache.Path)
	assert.True(t, cfg.Scan.Watch)
	assert.Equal(t, domain.DefaultRescanIntervalSeconds, cfg.Scan.RescanIntervalSeconds)
	assert.Equal(t, []string{".py"}, cfg.Scan.ScriptExtensions)
	assert.True(t, cfg.Execution.Enabled)
	assert.Equal(t, domain.DefaultInterpreter, cfg.Execution.Interpreter)
	assert.Equal(t, domain.DefaultExecutionTimeoutSeconds, cfg.Execution.TimeoutSeconds)
	assert.Equal(t, domain.DefaultMaxOutputBytes, cfg.Execution.MaxOutputBytes)
	assert.Equal(t, domain.IsolationDirect, cfg.Execution.Mode)
	assert.Equal(t, domain.DefaultProhibited, cfg.Execution.Prohibited)
	assert.True(t, cfg.SourceView.Enabled)
	assert.Equal(t, domain.DefaultSourceStyle, cfg.SourceView.Style)
	assert.Equal(t, domain.DefaultServerListenAddress, cfg.Server.ListenAddress)
	assert.Equal(t, domain.DefaultRecentToolsCount, cfg.UI.RecentCount)
	assert.Equal(t, domain.DefaultFeaturedToolsCount, cfg.UI.FeaturedCount)
	assert.Equal(t, domain.DefaultTopCategoriesCount, cfg.UI.TopCategories)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoader_YAMLFile(t *testing.T) {
	t.Setenv("PYSNIP_TEST_TOOLS", "/srv/tools")
	path := writeTempConfig(t, "pysnip.yaml", `
root: ${PYSNIP_TEST_TOOLS}
name: Team Tools
scan:
  rescanIntervalSeconds: 0
  scriptExtensions: ["py", ".SH"]
execution:
  timeoutSeconds: 5
  mode: sandboxed
  env:
    API_TOKEN: secret
  prohibited: ["drop table"]
sourceView:
  enabled: false
logging:
  level: debug
  format: console
`)

	cfg, err := NewLoader(nil).Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/tools", cfg.Root)
	assert.Equal(t, "Team Tools", cfg.Name)
	assert.Equal(t, 0, cfg.Scan.RescanIntervalSeconds)
	assert.Zero(t, cfg.Scan.RescanInterval())
	assert.Equal(t, []string{".py", ".sh"}, cfg.Scan.ScriptExtensions)
	assert.Equal(t, 5, cfg.Execution.TimeoutSeconds)
	assert.Equal(t, domain.IsolationSandboxed, cfg.Execution.Mode)
	assert.Equal(t, map[string]string{"API_TOKEN": "secret"}, cfg.Execution.Env)
	assert.Equal(t, []string{"drop table"}, cfg.Execution.Prohibited)
	assert.False(t, cfg.SourceView.Enabled)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoader_EnvOverrides(t *testing.T) {
	t.Setenv("PYSNIP_ROOT", "/env/tools")
	t.Setenv("PYSNIP_EXECUTION_TIMEOUTSECONDS", "9")
	t.Setenv("PYSNIP_EXECUTION_ENABLED", "false")
	path := writeTempConfig(t, "pysnip.yaml", "root: /file/tools\n")

	cfg, err := NewLoader(nil).Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "/env/tools", cfg.Root)
	assert.Equal(t, 9, cfg.Execution.TimeoutSeconds)
	assert.False(t, cfg.Execution.Enabled)
}

func TestLoader_FlagsOverride(t *testing.T) {
	t.Setenv("PYSNIP_ROOT", "/env/tools")
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("root", "", "")
	flags.String("listen", "", "")
	require.NoError(t, flags.Parse([]string{"--root", "/flag/tools"}))

	cfg, err := NewLoader(nil).WithFlags(flags).Load(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, "/flag/tools", cfg.Root)
	assert.Equal(t, domain.DefaultServerListenAddress, cfg.Server.ListenAddress)
}

func TestLoader_TOMLFile(t *testing.T) {
	path := writeTempConfig(t, "pysnip.toml", `
root = "/toml/tools"

[execution]
maxConcurrent = 2
`)

	cfg, err := NewLoader(nil).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "/toml/tools", cfg.Root)
	assert.Equal(t, 2, cfg.Execution.MaxConcurrent)
}

func TestLoader_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		contents string
	}{
		{name: "unknown key", contents: "roots: /tools\n"},
		{name: "bad mode", contents: "execution:\n  mode: jail\n"},
		{name: "bad timeout", contents: "execution:\n  timeoutSeconds: 0\n"},
		{name: "wrong type", contents: "scan:\n  watch: sometimes\n"},
		{name: "bad level", contents: "logging:\n  level: loud\n"},
		{name: "malformed", contents: "root: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTempConfig(t, "pysnip.yaml", tt.contents)
			_, err := NewLoader(nil).Load(context.Background(), path)
			require.Error(t, err)
			code, ok := domain.CodeFrom(err)
			require.True(t, ok)
			assert.Equal(t, domain.CodeInvalidArgument, code)
		})
	}
}

func TestLoader_MissingFile(t *testing.T) {
	_, err := NewLoader(nil).Load(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	code, _ := domain.CodeFrom(err)
	assert.Equal(t, domain.CodeIOFailure, code)
}

func TestExpandConfigEnv_TracksMissing(t *testing.T) {
	t.Setenv("PYSNIP_TEST_PORT", "8080")
	expanded, missing, err := expandConfigEnv([]byte("a: ${PYSNIP_TEST_PORT}\nb: ${PYSNIP_TEST_UNSET}\n"))
	require.NoError(t, err)
	assert.Contains(t, expanded, "a: 8080")
	assert.Equal(t, []string{"PYSNIP_TEST_UNSET"}, missing)
}

func TestExpandWith_FallbackAndTyping(t *testing.T) {
	env := map[string]string{"WATCH": "TRUE", "EMPTY": "", "NAME": "nan"}
	lookup := func(key string) (string, bool) {
		value, ok := env[key]
		return value, ok
	}
	src := "watch: ${WATCH}\nport: ${PORT:-9000}\nlevel: ${EMPTY:-info}\nname: ${NAME}\nquoted: \"${PORT:-7}\"\n"

	expanded, missing, err := expandWith([]byte(src), lookup)
	require.NoError(t, err)
	assert.Empty(t, missing)

	var out map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(expanded), &out))
	assert.Equal(t, map[string]any{
		"watch":  true,
		"port":   9000,
		"level":  "info",
		"name":   "nan",
		"quoted": "7",
	}, out)
}

func TestExpandWith_Empty(t *testing.T) {
	expanded, missing, err := expandWith(nil, func(string) (string, bool) { return "", false })
	require.NoError(t, err)
	assert.Empty(t, expanded)
	assert.Nil(t, missing)
}
