package domain

import (
	"context"
	"time"
)

// CatalogState captures the published catalog and its revision.
type CatalogState struct {
	Catalog  Catalog
	Revision uint64
	LoadedAt time.Time
	Source   CatalogUpdateSource
}

type CatalogUpdateSource string

const (
	CatalogUpdateSourceBootstrap CatalogUpdateSource = "bootstrap"
	CatalogUpdateSourceWatch     CatalogUpdateSource = "watch"
	CatalogUpdateSourceInterval  CatalogUpdateSource = "interval"
	CatalogUpdateSourceManual    CatalogUpdateSource = "manual"
)

// NewCatalogState wraps a catalog with publication metadata.
func NewCatalogState(catalog Catalog, revision uint64, loadedAt time.Time, source CatalogUpdateSource) CatalogState {
	if loadedAt.IsZero() {
		loadedAt = time.Now()
	}
	return CatalogState{
		Catalog:  catalog,
		Revision: revision,
		LoadedAt: loadedAt,
		Source:   source,
	}
}

// CatalogProvider publishes catalog snapshots to readers.
type CatalogProvider interface {
	Snapshot() CatalogState
	Refresh(ctx context.Context, force bool) (CatalogState, error)
	Watch(ctx context.Context) <-chan CatalogState
}
