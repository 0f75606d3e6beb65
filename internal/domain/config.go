package domain

import "time"

// Config is the resolved process configuration.
type Config struct {
	Root          string              `json:"root"`
	Name          string              `json:"name"`
	Description   string              `json:"description"`
	Cache         CacheConfig         `json:"cache"`
	Scan          ScanConfig          `json:"scan"`
	Execution     ExecutionConfig     `json:"execution"`
	SourceView    SourceViewConfig    `json:"sourceView"`
	Server        ServerConfig        `json:"server"`
	Observability ObservabilityConfig `json:"observability"`
	UI            UIConfig            `json:"ui"`
	Logging       LoggingConfig       `json:"logging"`
}

type CacheConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type ScanConfig struct {
	Watch                 bool     `json:"watch"`
	RescanIntervalSeconds int      `json:"rescanIntervalSeconds"`
	ScriptExtensions      []string `json:"scriptExtensions"`
}

// RescanInterval returns the periodic rescan period, zero when disabled.
func (c ScanConfig) RescanInterval() time.Duration {
	if c.RescanIntervalSeconds <= 0 {
		return 0
	}
	return time.Duration(c.RescanIntervalSeconds) * time.Second
}

// ExecutionConfig bounds how tool processes run.
type ExecutionConfig struct {
	Enabled        bool              `json:"enabled"`
	Interpreter    string            `json:"interpreter"`
	TimeoutSeconds int               `json:"timeoutSeconds"`
	MaxOutputBytes int               `json:"maxOutputBytes"`
	CPUSeconds     uint64            `json:"cpuSeconds"`
	MemoryBytes    uint64            `json:"memoryBytes"`
	WorkDir        string            `json:"workDir"`
	TempDir        string            `json:"tempDir"`
	Env            map[string]string `json:"env"`
	Mode           IsolationMode     `json:"mode"`
	MaxConcurrent  int               `json:"maxConcurrent"`
	Prohibited     []string          `json:"prohibited"`
}

func (c ExecutionConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return time.Duration(DefaultExecutionTimeoutSeconds) * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type SourceViewConfig struct {
	Enabled   bool   `json:"enabled"`
	Highlight bool   `json:"highlight"`
	Style     string `json:"style"`
}

type ServerConfig struct {
	ListenAddress string `json:"listenAddress"`
}

type ObservabilityConfig struct {
	Metrics       bool   `json:"metrics"`
	ListenAddress string `json:"listenAddress"`
}

type UIConfig struct {
	RecentCount   int `json:"recentCount"`
	FeaturedCount int `json:"featuredCount"`
	TopCategories int `json:"topCategories"`
}

type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}
