// Package catalog publishes the scanned tool catalog and keeps it current.
package catalog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"pysnip/internal/domain"
	"pysnip/internal/infra/scanner"
	"pysnip/internal/infra/telemetry"
)

const defaultReloadDebounce = 200 * time.Millisecond

// Scanner builds catalogs for a root directory.
type Scanner interface {
	Scan(ctx context.Context, root string, force bool) (domain.Catalog, error)
}

type Options struct {
	Root           string
	Scanner        Scanner
	Watch          bool
	RescanInterval time.Duration
	Debounce       time.Duration
	Health         *telemetry.HealthTracker
	Logger         *zap.Logger
}

// DynamicCatalogProvider holds the current catalog and refreshes it on file
// changes and on a fixed interval. Readers never wait on a scan.
type DynamicCatalogProvider struct {
	logger   *zap.Logger
	scanner  Scanner
	root     string
	watch    bool
	interval time.Duration
	debounce time.Duration
	health   *telemetry.HealthTracker

	state    atomic.Value
	revision atomic.Uint64
	group    singleflight.Group

	publishMu sync.Mutex

	subsMu sync.Mutex
	subs   map[chan domain.CatalogState]struct{}
}

// NewDynamicCatalogProvider performs the bootstrap scan and returns a
// provider publishing its result.
func NewDynamicCatalogProvider(ctx context.Context, opts Options) (*DynamicCatalogProvider, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = defaultReloadDebounce
	}
	root, err := scanner.ResolveRoot(opts.Root)
	if err != nil {
		return nil, err
	}

	catalogData, err := opts.Scanner.Scan(ctx, root, false)
	if err != nil {
		return nil, err
	}

	provider := &DynamicCatalogProvider{
		logger:   logger.Named("catalog_provider"),
		scanner:  opts.Scanner,
		root:     root,
		watch:    opts.Watch,
		interval: opts.RescanInterval,
		debounce: debounce,
		health:   opts.Health,
		subs:     make(map[chan domain.CatalogState]struct{}),
	}
	state := domain.NewCatalogState(catalogData, 1, time.Now(), domain.CatalogUpdateSourceBootstrap)
	provider.state.Store(state)
	provider.revision.Store(state.Revision)
	return provider, nil
}

// Root returns the absolute catalog root.
func (p *DynamicCatalogProvider) Root() string {
	return p.root
}

// Snapshot returns the current catalog state.
func (p *DynamicCatalogProvider) Snapshot() domain.CatalogState {
	return p.state.Load().(domain.CatalogState)
}

// Refresh rescans the root. Concurrent callers with the same force flag
// share one scan.
func (p *DynamicCatalogProvider) Refresh(ctx context.Context, force bool) (domain.CatalogState, error) {
	return p.refresh(ctx, force, domain.CatalogUpdateSourceManual)
}

func (p *DynamicCatalogProvider) refresh(ctx context.Context, force bool, source domain.CatalogUpdateSource) (domain.CatalogState, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	key := "cached"
	if force {
		key = "force"
	}
	result, err, shared := p.group.Do(key, func() (any, error) {
		return p.reload(context.WithoutCancel(ctx), force, source)
	})
	if err != nil {
		return domain.CatalogState{}, err
	}
	if shared {
		p.logger.Debug("catalog refresh coalesced", zap.Bool("force", force))
	}
	return result.(domain.CatalogState), nil
}

func (p *DynamicCatalogProvider) reload(ctx context.Context, force bool, source domain.CatalogUpdateSource) (domain.CatalogState, error) {
	begin := time.Now()
	catalogData, err := p.scanner.Scan(ctx, p.root, force)
	if err != nil {
		p.logger.Warn("catalog refresh failed",
			telemetry.EventField(telemetry.EventRefresh),
			telemetry.RootField(p.root),
			zap.String("source", string(source)),
			zap.Error(err),
		)
		return domain.CatalogState{}, err
	}

	p.publishMu.Lock()
	defer p.publishMu.Unlock()

	prev := p.Snapshot()
	if sameCatalog(prev.Catalog, catalogData) {
		return prev, nil
	}
	// A forced and a cached refresh can overlap; the one that scanned
	// earlier must not replace a newer catalog.
	if catalogData.GeneratedAt.Before(prev.Catalog.GeneratedAt) {
		p.logger.Debug("discarding older catalog scan",
			telemetry.RootField(p.root),
			zap.Time("generatedAt", catalogData.GeneratedAt),
			zap.Time("published", prev.Catalog.GeneratedAt),
		)
		return prev, nil
	}

	nextRevision := p.revision.Load() + 1
	next := domain.NewCatalogState(catalogData, nextRevision, time.Now(), source)
	p.revision.Store(nextRevision)
	p.state.Store(next)
	p.logger.Info("catalog published",
		telemetry.EventField(telemetry.EventRefresh),
		zap.Uint64("revision", nextRevision),
		zap.String("source", string(source)),
		zap.Int("tools", catalogData.ToolCount),
		telemetry.DurationField(time.Since(begin)),
	)
	p.broadcast(next)
	return next, nil
}

// sameCatalog reports whether next is the catalog already published, which
// is the case when the scan was served from a still-valid snapshot.
func sameCatalog(prev, next domain.Catalog) bool {
	return prev.RootPath == next.RootPath && prev.GeneratedAt.Equal(next.GeneratedAt)
}

// Watch subscribes to published states. The channel is closed when ctx is
// done; slow subscribers miss intermediate states.
func (p *DynamicCatalogProvider) Watch(ctx context.Context) <-chan domain.CatalogState {
	if ctx == nil {
		ctx = context.Background()
	}
	ch := make(chan domain.CatalogState, 1)
	p.subsMu.Lock()
	p.subs[ch] = struct{}{}
	p.subsMu.Unlock()

	go func() {
		<-ctx.Done()
		p.subsMu.Lock()
		delete(p.subs, ch)
		close(ch)
		p.subsMu.Unlock()
	}()
	return ch
}

func (p *DynamicCatalogProvider) broadcast(state domain.CatalogState) {
	p.subsMu.Lock()
	defer p.subsMu.Unlock()
	for ch := range p.subs {
		select {
		case ch <- state:
		default:
		}
	}
}

// Run drives the watcher and the rescan ticker until ctx is done.
func (p *DynamicCatalogProvider) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	if p.watch {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.runWatcher(ctx)
		}()
	}
	if p.interval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.runTicker(ctx)
		}()
	}
	wg.Wait()
	<-ctx.Done()
	return nil
}

func (p *DynamicCatalogProvider) runTicker(ctx context.Context) {
	var beat *telemetry.Heartbeat
	if p.health != nil {
		beat = p.health.Register("catalog-rescan", 2*p.interval)
		defer p.health.Unregister("catalog-rescan")
	}
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.refresh(ctx, false, domain.CatalogUpdateSourceInterval); err != nil {
				continue
			}
			beat.Beat()
		}
	}
}

func (p *DynamicCatalogProvider) runWatcher(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		p.logger.Warn("catalog watcher failed", telemetry.EventField(telemetry.EventWatchError), zap.Error(err))
		return
	}
	defer watcher.Close()

	p.syncWatches(watcher)

	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Warn("catalog watcher error", telemetry.EventField(telemetry.EventWatchError), zap.Error(err))
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !p.shouldReloadForPath(event.Name) || event.Op == fsnotify.Chmod {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(p.debounce)
				continue
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(p.debounce)
		case <-timerChan(timer):
			timer = nil
			if _, err := p.refresh(ctx, true, domain.CatalogUpdateSourceWatch); err != nil {
				continue
			}
			p.syncWatches(watcher)
		}
	}
}

// syncWatches watches the root plus every category and tool directory.
// fsnotify drops removed directories on its own.
func (p *DynamicCatalogProvider) syncWatches(watcher *fsnotify.Watcher) {
	for _, dir := range p.watchPaths() {
		if err := watcher.Add(dir); err != nil {
			p.logger.Debug("catalog watcher add failed", zap.String("path", dir), zap.Error(err))
		}
	}
}

func (p *DynamicCatalogProvider) watchPaths() []string {
	paths := []string{p.root}
	for _, category := range subdirectories(p.root) {
		paths = append(paths, category)
		paths = append(paths, subdirectories(category)...)
	}
	return paths
}

func subdirectories(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, entry := range entries {
		if !entry.IsDir() || scanner.Ignored(entry.Name()) {
			continue
		}
		out = append(out, filepath.Join(dir, entry.Name()))
	}
	return out
}

// shouldReloadForPath ignores events below ignored names and deeper than a
// tool directory's direct children.
func (p *DynamicCatalogProvider) shouldReloadForPath(path string) bool {
	if path == "" {
		return false
	}
	rel, err := filepath.Rel(p.root, filepath.Clean(path))
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) > 3 {
		return false
	}
	for _, part := range parts[:len(parts)-1] {
		if scanner.Ignored(part) {
			return false
		}
	}
	return true
}

func timerChan(timer *time.Timer) <-chan time.Time {
	if timer == nil {
		return nil
	}
	return timer.C
}
