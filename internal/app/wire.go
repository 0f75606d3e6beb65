//go:build wireinject
// +build wireinject

package app

import (
	"context"

	"github.com/google/wire"

	"pysnip/internal/app/explorer"
	"pysnip/internal/domain"
)

func InitializeApplication(ctx context.Context, cfg domain.Config, logging LoggingConfig) (*Application, func(), error) {
	wire.Build(AppSet)
	return nil, nil, nil
}

func InitializeExplorer(ctx context.Context, cfg domain.Config, logging LoggingConfig) (*explorer.Service, func(), error) {
	wire.Build(ExplorerSet)
	return nil, nil, nil
}
