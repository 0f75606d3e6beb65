//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"
)

var CoreInfraSet = wire.NewSet(
	NewLogger,
	NewMetricsRegistry,
	NewMetrics,
	NewHealthTracker,
	NewSnapshotStore,
)

var ExplorerSet = wire.NewSet(
	CoreInfraSet,
	NewScanner,
	NewCatalogProvider,
	NewExtractor,
	NewExecutor,
	NewHighlighter,
	NewMarkdown,
	NewExplorer,
)

var AppSet = wire.NewSet(
	ExplorerSet,
	NewAPIServer,
	wire.Struct(new(ApplicationOptions), "*"),
	NewApplication,
)
