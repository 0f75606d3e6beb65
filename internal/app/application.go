package app

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pysnip/internal/app/catalog"
	"pysnip/internal/domain"
	"pysnip/internal/infra/httpapi"
	"pysnip/internal/infra/telemetry"
)

// Application runs the catalog refresh loops and the HTTP servers.
type Application struct {
	ctx      context.Context
	cfg      domain.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	health   *telemetry.HealthTracker
	provider *catalog.DynamicCatalogProvider
	api      *httpapi.Server
}

// ApplicationOptions captures dependencies and settings for Application.
type ApplicationOptions struct {
	Context  context.Context
	Config   domain.Config
	Logger   *zap.Logger
	Registry *prometheus.Registry
	Health   *telemetry.HealthTracker
	Provider *catalog.DynamicCatalogProvider
	API      *httpapi.Server
}

func NewApplication(opts ApplicationOptions) *Application {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Application{
		ctx:      ctx,
		cfg:      opts.Config,
		logger:   logger,
		registry: opts.Registry,
		health:   opts.Health,
		provider: opts.Provider,
		api:      opts.API,
	}
}

// Run serves until the context is done or a server fails.
func (a *Application) Run() error {
	snapshot := a.provider.Snapshot()
	a.logger.Info("catalog loaded",
		telemetry.RootField(a.provider.Root()),
		zap.Int("categories", len(snapshot.Catalog.Categories)),
		zap.Int("tools", snapshot.Catalog.ToolCount),
		zap.Bool("execution", a.cfg.Execution.Enabled),
		zap.Bool("watch", a.cfg.Scan.Watch),
	)

	group, ctx := errgroup.WithContext(a.ctx)
	group.Go(func() error {
		return a.provider.Run(ctx)
	})
	group.Go(func() error {
		return a.api.Run(ctx)
	})
	if addr := separateObservability(a.cfg); addr != "" && a.cfg.Observability.Metrics {
		group.Go(func() error {
			return telemetry.StartHTTPServer(ctx, telemetry.HTTPServerOptions{
				Addr:          addr,
				EnableMetrics: true,
				EnableHealthz: true,
				Health:        a.health,
				Registry:      a.registry,
			}, a.logger)
		})
	}
	return group.Wait()
}
