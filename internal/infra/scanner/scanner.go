// Package scanner builds the tool catalog from a directory tree and keeps a
// persisted snapshot of the last scan.
package scanner

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"pysnip/internal/domain"
)

// SnapshotStore persists catalogs between scans.
type SnapshotStore interface {
	Load(root string) (domain.CatalogSnapshot, bool, error)
	Save(snapshot domain.CatalogSnapshot) error
}

type Options struct {
	Name             string
	Description      string
	ScriptExtensions []string
	Store            SnapshotStore
	Metrics          domain.Metrics
	Logger           *zap.Logger
	Now              func() time.Time
}

// Scanner is safe for concurrent use; callers that need coalescing wrap it.
type Scanner struct {
	name       string
	desc       string
	scriptExts []string
	store      SnapshotStore
	metrics    domain.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

func New(opts Options) *Scanner {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	exts := normalizeExtensions(opts.ScriptExtensions)
	if len(exts) == 0 {
		exts = domain.DefaultScriptExtensions
	}
	name := opts.Name
	if name == "" {
		name = domain.DefaultCatalogName
	}
	desc := opts.Description
	if desc == "" {
		desc = domain.DefaultCatalogDescription
	}
	return &Scanner{
		name:       name,
		desc:       desc,
		scriptExts: exts,
		store:      opts.Store,
		metrics:    opts.Metrics,
		logger:     logger.Named("scanner"),
		now:        now,
	}
}

// Scan returns the catalog for root. Unless force is set, a snapshot that is
// still valid for root is returned without walking the tree.
func (s *Scanner) Scan(ctx context.Context, root string, force bool) (domain.Catalog, error) {
	begin := time.Now()
	catalog, outcome, err := s.scan(ctx, root, force, s.now())
	if s.metrics != nil {
		s.metrics.ObserveScan(outcome, time.Since(begin))
		if err == nil {
			s.metrics.SetCatalogSize(len(catalog.Categories), catalog.ToolCount)
		}
	}
	return catalog, err
}

func (s *Scanner) scan(ctx context.Context, root string, force bool, started time.Time) (domain.Catalog, domain.ScanOutcome, error) {
	abs, err := ResolveRoot(root)
	if err != nil {
		return domain.Catalog{}, domain.ScanOutcomeError, err
	}

	if !force && s.store != nil {
		if snap, ok := s.loadValid(ctx, abs); ok {
			s.logger.Debug("catalog cache hit", zap.String("root", abs), zap.Time("cachedAt", snap.CachedAt))
			return snap.Catalog, domain.ScanOutcomeCached, nil
		}
	}

	catalog, err := s.walk(ctx, abs, started)
	if err != nil {
		return domain.Catalog{}, domain.ScanOutcomeError, err
	}

	if s.store != nil {
		snap := domain.CatalogSnapshot{Root: abs, CachedAt: started, Catalog: catalog}
		if err := s.store.Save(snap); err != nil {
			s.logger.Warn("catalog cache write failed", zap.String("root", abs), zap.Error(err))
		}
	}
	s.logger.Info("catalog scanned",
		zap.String("root", abs),
		zap.Int("categories", len(catalog.Categories)),
		zap.Int("tools", catalog.ToolCount),
	)
	return catalog, domain.ScanOutcomeFresh, nil
}

func (s *Scanner) loadValid(ctx context.Context, root string) (domain.CatalogSnapshot, bool) {
	snap, ok, err := s.store.Load(root)
	if err != nil {
		s.logger.Warn("catalog cache read failed", zap.String("root", root), zap.Error(err))
		return domain.CatalogSnapshot{}, false
	}
	if !ok {
		return domain.CatalogSnapshot{}, false
	}
	valid, err := CacheValid(ctx, root, snap.CachedAt)
	if err != nil {
		s.logger.Warn("catalog cache validation failed", zap.String("root", root), zap.Error(err))
		return domain.CatalogSnapshot{}, false
	}
	return snap, valid
}

// ResolveRoot returns the absolute form of root, which must be a directory.
func ResolveRoot(root string) (string, error) {
	if strings.TrimSpace(root) == "" {
		return "", domain.E(domain.CodeRootNotFound, "scan", "root path is empty", domain.ErrRootNotFound)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", domain.E(domain.CodeRootNotFound, "scan", root, domain.ErrRootNotFound)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return "", domain.E(domain.CodeRootNotFound, "scan", abs, domain.ErrRootNotFound)
	}
	return abs, nil
}

var errStale = errors.New("stale")

// mtimeSlack absorbs filesystem timestamps that come from a coarser clock
// than time.Now, so a write landing just after a scan still counts as newer.
const mtimeSlack = 2 * time.Second

// CacheValid reports whether nothing under root was modified after cachedAt,
// allowing for mtimeSlack.
// Ignored directories are skipped, so a cache file kept under a hidden
// directory of the root does not invalidate itself.
func CacheValid(ctx context.Context, root string, cachedAt time.Time) (bool, error) {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() && path != root && Ignored(d.Name()) {
			return filepath.SkipDir
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if !info.ModTime().Before(cachedAt.Add(-mtimeSlack)) {
			return errStale
		}
		return nil
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errStale):
		return false, nil
	default:
		return false, domain.E(domain.CodeIOFailure, "scan.validate", "", err)
	}
}

func (s *Scanner) walk(ctx context.Context, root string, started time.Time) (domain.Catalog, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return domain.Catalog{}, domain.E(domain.CodeIOFailure, "scan", root, err)
	}
	catalog := domain.Catalog{
		RootPath:    root,
		Name:        s.name,
		Description: s.desc,
		GeneratedAt: started,
	}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return domain.Catalog{}, err
		}
		if !isDir(root, entry) || Ignored(entry.Name()) {
			continue
		}
		category := s.scanCategory(root, entry.Name())
		if len(category.Tools) == 0 {
			continue
		}
		catalog.Categories = append(catalog.Categories, category)
		catalog.ToolCount += len(category.Tools)
	}
	return catalog, nil
}

func (s *Scanner) scanCategory(root, key string) domain.Category {
	category := domain.Category{
		Key:         key,
		DisplayName: DisplayName(key),
		Description: domain.CategoryDescription(key),
		Icon:        domain.CategoryIcon(key),
	}
	dir := filepath.Join(root, key)
	entries, err := os.ReadDir(dir)
	if err != nil {
		s.logger.Warn("category unreadable", zap.String("category", key), zap.Error(err))
		return category
	}
	for _, entry := range entries {
		if !isDir(dir, entry) || Ignored(entry.Name()) {
			continue
		}
		tool, ok, err := scanTool(root, key, entry.Name(), s.scriptExts)
		if err != nil {
			s.logger.Warn("tool skipped",
				zap.String("category", key),
				zap.String("tool", entry.Name()),
				zap.Error(err),
			)
			continue
		}
		if ok {
			category.Tools = append(category.Tools, tool)
		}
	}
	return category
}

var ignoredPrefixes = []string{".", "__", "test", "venv", "node_modules", "cache"}

// Ignored reports whether a directory name is excluded from the catalog.
func Ignored(name string) bool {
	for _, prefix := range ignoredPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// DisplayName turns a directory key into a title-cased label.
func DisplayName(key string) string {
	return cases.Title(language.Und).String(strings.ReplaceAll(key, "_", " "))
}

func isDir(parent string, entry fs.DirEntry) bool {
	if entry.IsDir() {
		return true
	}
	if entry.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(parent, entry.Name()))
	return err == nil && info.IsDir()
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
	return out
}
