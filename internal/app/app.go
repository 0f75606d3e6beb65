package app

import (
	"context"

	"go.uber.org/zap"

	"pysnip/internal/app/explorer"
	"pysnip/internal/domain"
)

type App struct {
	logger *zap.Logger
}

type ServeConfig struct {
	ConfigPath string
	Config     domain.Config
}

func New(logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{logger: logger}
}

// Serve runs the API until ctx is done.
func (a *App) Serve(ctx context.Context, cfg ServeConfig) error {
	a.logger.Info("configuration loaded", zap.String("config", cfg.ConfigPath), zap.String("root", cfg.Config.Root))

	application, cleanup, err := InitializeApplication(ctx, cfg.Config, LoggingConfig{Logger: a.logger})
	if err != nil {
		return err
	}
	defer cleanup()
	return application.Run()
}

// Explorer builds a one-shot facade for command-line use. Watching and
// periodic rescans are off. The returned cleanup closes the catalog cache.
func (a *App) Explorer(ctx context.Context, cfg domain.Config) (*explorer.Service, func(), error) {
	cfg.Scan.Watch = false
	cfg.Scan.RescanIntervalSeconds = 0
	cfg.Observability.Metrics = false
	return InitializeExplorer(ctx, cfg, LoggingConfig{Logger: a.logger})
}

// Scan returns the catalog, rescanning the tree when force is set.
func (a *App) Scan(ctx context.Context, cfg domain.Config, force bool) (domain.Catalog, error) {
	service, cleanup, err := a.Explorer(ctx, cfg)
	if err != nil {
		return domain.Catalog{}, err
	}
	defer cleanup()
	if !force {
		return service.Catalog(), nil
	}
	return service.RefreshCatalog(ctx, true)
}
