package app

import (
	"context"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"pysnip/internal/app/catalog"
	"pysnip/internal/app/explorer"
	"pysnip/internal/domain"
	"pysnip/internal/infra/executor"
	"pysnip/internal/infra/extractor"
	"pysnip/internal/infra/httpapi"
	"pysnip/internal/infra/render"
	"pysnip/internal/infra/scanner"
	"pysnip/internal/infra/snapshot"
	"pysnip/internal/infra/telemetry"
)

func NewMetricsRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	registry.MustRegister(collectors.NewGoCollector())
	return registry
}

func NewMetrics(cfg domain.Config, registry *prometheus.Registry) domain.Metrics {
	if !cfg.Observability.Metrics {
		return telemetry.NewNoopMetrics()
	}
	return telemetry.NewPrometheusMetrics(registry)
}

func NewHealthTracker() *telemetry.HealthTracker {
	return telemetry.NewHealthTracker()
}

// NewSnapshotStore opens the catalog cache. A relative cache path is taken
// relative to the catalog root. The store is nil when caching is disabled.
func NewSnapshotStore(cfg domain.Config, logger *zap.Logger) (scanner.SnapshotStore, func(), error) {
	if !cfg.Cache.Enabled {
		return nil, func() {}, nil
	}
	root, err := scanner.ResolveRoot(cfg.Root)
	if err != nil {
		return nil, nil, err
	}
	path := cfg.Cache.Path
	if path == "" {
		path = domain.DefaultCachePath
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	store, err := snapshot.Open(path)
	if err != nil {
		logger.Warn("catalog cache unavailable, scanning without it", zap.String("path", path), zap.Error(err))
		return nil, func() {}, nil
	}
	cleanup := func() {
		if err := store.Close(); err != nil {
			logger.Warn("close catalog cache", zap.Error(err))
		}
	}
	return store, cleanup, nil
}

func NewScanner(cfg domain.Config, store scanner.SnapshotStore, metrics domain.Metrics, logger *zap.Logger) *scanner.Scanner {
	return scanner.New(scanner.Options{
		Name:             cfg.Name,
		Description:      cfg.Description,
		ScriptExtensions: cfg.Scan.ScriptExtensions,
		Store:            store,
		Metrics:          metrics,
		Logger:           logger,
	})
}

func NewCatalogProvider(
	ctx context.Context,
	cfg domain.Config,
	catalogScanner *scanner.Scanner,
	health *telemetry.HealthTracker,
	logger *zap.Logger,
) (*catalog.DynamicCatalogProvider, error) {
	return catalog.NewDynamicCatalogProvider(ctx, catalog.Options{
		Root:           cfg.Root,
		Scanner:        catalogScanner,
		Watch:          cfg.Scan.Watch,
		RescanInterval: cfg.Scan.RescanInterval(),
		Health:         health,
		Logger:         logger,
	})
}

func NewExtractor(logger *zap.Logger) *extractor.Extractor {
	return extractor.New(logger)
}

func NewExecutor(cfg domain.Config, metrics domain.Metrics, logger *zap.Logger) (*executor.Executor, error) {
	return executor.New(executor.Options{
		Config:  cfg.Execution,
		Metrics: metrics,
		Logger:  logger,
	})
}

func NewHighlighter(cfg domain.Config) *render.Highlighter {
	return render.NewHighlighter(cfg.SourceView.Style)
}

func NewMarkdown() *render.Markdown {
	return render.NewMarkdown()
}

func NewExplorer(
	cfg domain.Config,
	provider *catalog.DynamicCatalogProvider,
	runner *executor.Executor,
	meta *extractor.Extractor,
	highlighter *render.Highlighter,
	markdown *render.Markdown,
	logger *zap.Logger,
) (*explorer.Service, error) {
	return explorer.New(explorer.Options{
		Catalog:     provider,
		Runner:      runner,
		Extractor:   meta,
		Highlighter: highlighter,
		Guides:      markdown,
		Execution:   cfg.Execution.Enabled,
		SourceView:  cfg.SourceView,
		UI:          cfg.UI,
		Logger:      logger,
	})
}

// NewAPIServer mounts /metrics on the API listener only when no separate
// observability listener is configured.
func NewAPIServer(
	cfg domain.Config,
	service *explorer.Service,
	registry *prometheus.Registry,
	health *telemetry.HealthTracker,
	logger *zap.Logger,
) (*httpapi.Server, error) {
	return httpapi.New(httpapi.Options{
		Addr:          cfg.Server.ListenAddress,
		Explorer:      service,
		EnableMetrics: cfg.Observability.Metrics && separateObservability(cfg) == "",
		Registry:      registry,
		Health:        health,
		Logger:        logger,
	})
}

// separateObservability returns the observability listen address when it
// differs from the API address.
func separateObservability(cfg domain.Config) string {
	addr := cfg.Observability.ListenAddress
	if addr == "" || addr == cfg.Server.ListenAddress {
		return ""
	}
	return addr
}
