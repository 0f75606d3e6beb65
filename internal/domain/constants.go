package domain

const (
	DefaultRoot                       = "."
	DefaultCatalogName                = "PySnip"
	DefaultCatalogDescription         = "A curated collection of Python utility scripts."
	DefaultCachePath                  = ".pysnip/catalog.db"
	DefaultRescanIntervalSeconds      = 300
	DefaultExecutionTimeoutSeconds    = 60
	DefaultMaxOutputBytes             = 1024 * 1024
	DefaultInterpreter                = "python3"
	DefaultExecutionMaxConcurrent     = 4
	DefaultTempDir                    = "/tmp/pysnip-explorer"
	DefaultServerListenAddress        = "127.0.0.1:5000"
	DefaultObservabilityListenAddress = "127.0.0.1:9090"
	DefaultSourceStyle                = "github"
	DefaultRecentToolsCount           = 10
	DefaultFeaturedToolsCount         = 6
	DefaultTopCategoriesCount         = 5
	DefaultLogLevel                   = "info"
	DefaultLogFormat                  = "json"

	// CompleteSizeThreshold is the smallest main script considered finished.
	CompleteSizeThreshold = 1024
	// CompletenessProbeBytes bounds the read used for placeholder markers.
	CompletenessProbeBytes = 2000
)

// DefaultScriptExtensions lists the file extensions treated as tool scripts.
var DefaultScriptExtensions = []string{".py"}

// DefaultProhibited is the parameter denylist applied before execution.
var DefaultProhibited = []string{
	"rm -rf",
	"rm -fr",
	"mkfs",
	"dd if=",
	"format c:",
	"del /f",
	"del /s",
	":(){",
	"shutdown",
	"reboot",
	"> /dev/sd",
}
