// Package config resolves process configuration from defaults, an optional
// config file and PYSNIP_* environment variables.
package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"pysnip/internal/domain"
)

// EnvPrefix prefixes environment overrides, e.g. PYSNIP_EXECUTION_TIMEOUTSECONDS.
const EnvPrefix = "PYSNIP"

type Loader struct {
	logger *zap.Logger
	flags  *pflag.FlagSet
}

func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		return &Loader{logger: zap.NewNop()}
	}
	return &Loader{logger: logger.Named("config")}
}

// WithFlags binds command-line flags whose names match config keys. Flags
// override the file and the environment when set.
func (l *Loader) WithFlags(flags *pflag.FlagSet) *Loader {
	l.flags = flags
	return l
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("root", domain.DefaultRoot)
	v.SetDefault("name", domain.DefaultCatalogName)
	v.SetDefault("description", domain.DefaultCatalogDescription)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.path", domain.DefaultCachePath)
	v.SetDefault("scan.watch", true)
	v.SetDefault("scan.rescanIntervalSeconds", domain.DefaultRescanIntervalSeconds)
	v.SetDefault("scan.scriptExtensions", domain.DefaultScriptExtensions)
	v.SetDefault("execution.enabled", true)
	v.SetDefault("execution.interpreter", domain.DefaultInterpreter)
	v.SetDefault("execution.timeoutSeconds", domain.DefaultExecutionTimeoutSeconds)
	v.SetDefault("execution.maxOutputBytes", domain.DefaultMaxOutputBytes)
	v.SetDefault("execution.cpuSeconds", 0)
	v.SetDefault("execution.memoryBytes", 0)
	v.SetDefault("execution.workDir", "")
	v.SetDefault("execution.tempDir", domain.DefaultTempDir)
	v.SetDefault("execution.env", map[string]string{})
	v.SetDefault("execution.mode", string(domain.IsolationDirect))
	v.SetDefault("execution.maxConcurrent", domain.DefaultExecutionMaxConcurrent)
	v.SetDefault("execution.prohibited", domain.DefaultProhibited)
	v.SetDefault("sourceView.enabled", true)
	v.SetDefault("sourceView.highlight", true)
	v.SetDefault("sourceView.style", domain.DefaultSourceStyle)
	v.SetDefault("server.listenAddress", domain.DefaultServerListenAddress)
	v.SetDefault("observability.metrics", true)
	v.SetDefault("observability.listenAddress", domain.DefaultObservabilityListenAddress)
	v.SetDefault("ui.recentCount", domain.DefaultRecentToolsCount)
	v.SetDefault("ui.featuredCount", domain.DefaultFeaturedToolsCount)
	v.SetDefault("ui.topCategories", domain.DefaultTopCategoriesCount)
	v.SetDefault("logging.level", domain.DefaultLogLevel)
	v.SetDefault("logging.format", domain.DefaultLogFormat)
}

type rawConfig struct {
	Root          string                 `mapstructure:"root"`
	Name          string                 `mapstructure:"name"`
	Description   string                 `mapstructure:"description"`
	Cache         rawCacheConfig         `mapstructure:"cache"`
	Scan          rawScanConfig          `mapstructure:"scan"`
	Execution     rawExecutionConfig     `mapstructure:"execution"`
	SourceView    rawSourceViewConfig    `mapstructure:"sourceView"`
	Server        rawServerConfig        `mapstructure:"server"`
	Observability rawObservabilityConfig `mapstructure:"observability"`
	UI            rawUIConfig            `mapstructure:"ui"`
	Logging       rawLoggingConfig       `mapstructure:"logging"`
}

type rawCacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type rawScanConfig struct {
	Watch                 bool     `mapstructure:"watch"`
	RescanIntervalSeconds int      `mapstructure:"rescanIntervalSeconds"`
	ScriptExtensions      []string `mapstructure:"scriptExtensions"`
}

type rawExecutionConfig struct {
	Enabled        bool              `mapstructure:"enabled"`
	Interpreter    string            `mapstructure:"interpreter"`
	TimeoutSeconds int               `mapstructure:"timeoutSeconds"`
	MaxOutputBytes int               `mapstructure:"maxOutputBytes"`
	CPUSeconds     uint64            `mapstructure:"cpuSeconds"`
	MemoryBytes    uint64            `mapstructure:"memoryBytes"`
	WorkDir        string            `mapstructure:"workDir"`
	TempDir        string            `mapstructure:"tempDir"`
	Env            map[string]string `mapstructure:"env"`
	Mode           string            `mapstructure:"mode"`
	MaxConcurrent  int               `mapstructure:"maxConcurrent"`
	Prohibited     []string          `mapstructure:"prohibited"`
}

type rawSourceViewConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Highlight bool   `mapstructure:"highlight"`
	Style     string `mapstructure:"style"`
}

type rawServerConfig struct {
	ListenAddress string `mapstructure:"listenAddress"`
}

type rawObservabilityConfig struct {
	Metrics       bool   `mapstructure:"metrics"`
	ListenAddress string `mapstructure:"listenAddress"`
}

type rawUIConfig struct {
	RecentCount   int `mapstructure:"recentCount"`
	FeaturedCount int `mapstructure:"featuredCount"`
	TopCategories int `mapstructure:"topCategories"`
}

type rawLoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load resolves the configuration. An empty path uses defaults and the
// environment only.
func (l *Loader) Load(ctx context.Context, path string) (domain.Config, error) {
	v := newViper()
	var envCase map[string]string

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return domain.Config{}, domain.E(domain.CodeIOFailure, "config.load", fmt.Sprintf("read config %s", path), err)
		}
		format := configFormat(path)
		v.SetConfigType(format)

		content := string(data)
		if format == "yaml" || format == "json" {
			expanded, missing, err := expandConfigEnv(data)
			if err != nil {
				return domain.Config{}, invalid(err)
			}
			if len(missing) > 0 {
				l.logger.Warn("missing environment variables in config", zap.String("path", path), zap.Strings("missing", missing))
			}
			if err := validateConfigSchema(expanded); err != nil {
				return domain.Config{}, invalid(err)
			}
			content = expanded
			if format == "json" {
				v.SetConfigType("yaml")
			}
			envCase = executionEnv(expanded)
		}
		if err := v.ReadConfig(bytes.NewBufferString(content)); err != nil {
			return domain.Config{}, invalid(fmt.Errorf("parse config: %w", err))
		}
	}

	if l.flags != nil {
		if err := bindFlags(v, l.flags); err != nil {
			return domain.Config{}, invalid(err)
		}
	}

	var raw rawConfig
	if err := v.Unmarshal(&raw); err != nil {
		return domain.Config{}, invalid(fmt.Errorf("decode config: %w", err))
	}
	if err := ctx.Err(); err != nil {
		return domain.Config{}, err
	}

	cfg := normalizeConfig(raw, envCase)
	if errs := validateConfig(cfg); len(errs) > 0 {
		return domain.Config{}, invalid(errors.New(strings.Join(errs, "; ")))
	}
	return cfg, nil
}

// configFormat picks the viper decoder from the file extension.
func configFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return "toml"
	case ".json":
		return "json"
	default:
		return "yaml"
	}
}

// FlagKeys maps command-line flag names to the config keys they override.
var FlagKeys = map[string]string{
	"root":        "root",
	"listen":      "server.listenAddress",
	"log-level":   "logging.level",
	"log-format":  "logging.format",
	"interpreter": "execution.interpreter",
	"timeout":     "execution.timeoutSeconds",
	"watch":       "scan.watch",
	"cache":       "cache.enabled",
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range FlagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// executionEnv reads execution.env straight from the document; viper lowers
// map keys and environment variable names are case sensitive.
func executionEnv(expanded string) map[string]string {
	var doc struct {
		Execution struct {
			Env map[string]string `yaml:"env"`
		} `yaml:"execution"`
	}
	if err := yaml.Unmarshal([]byte(expanded), &doc); err != nil {
		return nil
	}
	return doc.Execution.Env
}

func normalizeConfig(raw rawConfig, envCase map[string]string) domain.Config {
	env := raw.Execution.Env
	if envCase != nil {
		env = envCase
	}
	if len(env) == 0 {
		env = nil
	}
	cfg := domain.Config{
		Root:        strings.TrimSpace(raw.Root),
		Name:        strings.TrimSpace(raw.Name),
		Description: strings.TrimSpace(raw.Description),
		Cache: domain.CacheConfig{
			Enabled: raw.Cache.Enabled,
			Path:    strings.TrimSpace(raw.Cache.Path),
		},
		Scan: domain.ScanConfig{
			Watch:                 raw.Scan.Watch,
			RescanIntervalSeconds: raw.Scan.RescanIntervalSeconds,
			ScriptExtensions:      normalizeExtensions(raw.Scan.ScriptExtensions),
		},
		Execution: domain.ExecutionConfig{
			Enabled:        raw.Execution.Enabled,
			Interpreter:    strings.TrimSpace(raw.Execution.Interpreter),
			TimeoutSeconds: raw.Execution.TimeoutSeconds,
			MaxOutputBytes: raw.Execution.MaxOutputBytes,
			CPUSeconds:     raw.Execution.CPUSeconds,
			MemoryBytes:    raw.Execution.MemoryBytes,
			WorkDir:        strings.TrimSpace(raw.Execution.WorkDir),
			TempDir:        strings.TrimSpace(raw.Execution.TempDir),
			Env:            env,
			Mode:           domain.IsolationMode(strings.ToLower(strings.TrimSpace(raw.Execution.Mode))),
			MaxConcurrent:  raw.Execution.MaxConcurrent,
			Prohibited:     raw.Execution.Prohibited,
		},
		SourceView: domain.SourceViewConfig{
			Enabled:   raw.SourceView.Enabled,
			Highlight: raw.SourceView.Highlight,
			Style:     strings.TrimSpace(raw.SourceView.Style),
		},
		Server: domain.ServerConfig{ListenAddress: strings.TrimSpace(raw.Server.ListenAddress)},
		Observability: domain.ObservabilityConfig{
			Metrics:       raw.Observability.Metrics,
			ListenAddress: strings.TrimSpace(raw.Observability.ListenAddress),
		},
		UI: domain.UIConfig{
			RecentCount:   raw.UI.RecentCount,
			FeaturedCount: raw.UI.FeaturedCount,
			TopCategories: raw.UI.TopCategories,
		},
		Logging: domain.LoggingConfig{
			Level:  strings.ToLower(strings.TrimSpace(raw.Logging.Level)),
			Format: strings.ToLower(strings.TrimSpace(raw.Logging.Format)),
		},
	}
	if cfg.Execution.Mode == "" {
		cfg.Execution.Mode = domain.IsolationDirect
	}
	if cfg.Name == "" {
		cfg.Name = domain.DefaultCatalogName
	}
	if cfg.Description == "" {
		cfg.Description = domain.DefaultCatalogDescription
	}
	if cfg.SourceView.Style == "" {
		cfg.SourceView.Style = domain.DefaultSourceStyle
	}
	return cfg
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	if len(out) == 0 {
		return append([]string(nil), domain.DefaultScriptExtensions...)
	}
	return out
}

func validateConfig(cfg domain.Config) []string {
	var errs []string
	if cfg.Root == "" {
		errs = append(errs, "root is required")
	}
	if cfg.Cache.Enabled && cfg.Cache.Path == "" {
		errs = append(errs, "cache.path is required when the cache is enabled")
	}
	if cfg.Scan.RescanIntervalSeconds < 0 {
		errs = append(errs, "scan.rescanIntervalSeconds must be >= 0")
	}
	if cfg.Execution.Interpreter == "" {
		errs = append(errs, "execution.interpreter is required")
	}
	if cfg.Execution.TimeoutSeconds < 1 {
		errs = append(errs, "execution.timeoutSeconds must be >= 1")
	}
	if cfg.Execution.MaxOutputBytes < 1 {
		errs = append(errs, "execution.maxOutputBytes must be >= 1")
	}
	if cfg.Execution.MaxConcurrent < 1 {
		errs = append(errs, "execution.maxConcurrent must be >= 1")
	}
	switch cfg.Execution.Mode {
	case domain.IsolationDirect, domain.IsolationSandboxed:
	default:
		errs = append(errs, "execution.mode must be direct or sandboxed")
	}
	if cfg.UI.RecentCount < 0 || cfg.UI.FeaturedCount < 0 || cfg.UI.TopCategories < 0 {
		errs = append(errs, "ui counts must be >= 0")
	}
	if _, err := zapcore.ParseLevel(cfg.Logging.Level); err != nil {
		errs = append(errs, fmt.Sprintf("logging.level: %v", err))
	}
	switch cfg.Logging.Format {
	case "json", "console":
	default:
		errs = append(errs, "logging.format must be json or console")
	}
	return errs
}

func invalid(err error) error {
	return domain.E(domain.CodeInvalidArgument, "config.load", "", err)
}
