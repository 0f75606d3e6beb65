// Package explorer is the boundary the HTTP API and the CLI talk to. It
// answers catalog queries from the published snapshot and routes the
// side-effecting calls to the extractor and the executor.
package explorer

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"pysnip/internal/domain"
	"pysnip/internal/infra/telemetry"
)

// CatalogSource publishes catalog snapshots.
type CatalogSource interface {
	Snapshot() domain.CatalogState
	Refresh(ctx context.Context, force bool) (domain.CatalogState, error)
}

// Runner executes a resolved tool.
type Runner interface {
	Execute(ctx context.Context, req domain.ExecutionRequest) domain.ExecutionResult
}

// MetadataExtractor recovers documentation and parameters from source text.
type MetadataExtractor interface {
	ExtractDocumentation(source string) domain.DocInfo
	ExtractParameters(source string) []domain.ParameterDescriptor
}

// SourceHighlighter renders source code as HTML.
type SourceHighlighter interface {
	HTML(filename, source string) (string, error)
}

// GuideRenderer renders markdown guides as HTML.
type GuideRenderer interface {
	HTML(source []byte) (string, error)
}

type Options struct {
	Catalog     CatalogSource
	Runner      Runner
	Extractor   MetadataExtractor
	Highlighter SourceHighlighter
	Guides      GuideRenderer
	Execution   bool
	SourceView  domain.SourceViewConfig
	UI          domain.UIConfig
	Logger      *zap.Logger
	Now         func() time.Time
	// Pick returns a number in [0, n). Defaults to math/rand/v2.
	Pick func(n int) int
}

type Service struct {
	catalog     CatalogSource
	runner      Runner
	extractor   MetadataExtractor
	highlighter SourceHighlighter
	guides      GuideRenderer
	execution   bool
	sourceView  domain.SourceViewConfig
	ui          domain.UIConfig
	logger      *zap.Logger
	now         func() time.Time
	pick        func(n int) int
}

func New(opts Options) (*Service, error) {
	if opts.Catalog == nil {
		return nil, errors.New("catalog source is required")
	}
	if opts.Extractor == nil {
		return nil, errors.New("metadata extractor is required")
	}
	if opts.Execution && opts.Runner == nil {
		return nil, errors.New("runner is required when execution is enabled")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	pick := opts.Pick
	if pick == nil {
		pick = rand.IntN
	}
	ui := opts.UI
	if ui.RecentCount <= 0 {
		ui.RecentCount = domain.DefaultRecentToolsCount
	}
	if ui.FeaturedCount <= 0 {
		ui.FeaturedCount = domain.DefaultFeaturedToolsCount
	}
	if ui.TopCategories <= 0 {
		ui.TopCategories = domain.DefaultTopCategoriesCount
	}
	return &Service{
		catalog:     opts.Catalog,
		runner:      opts.Runner,
		extractor:   opts.Extractor,
		highlighter: opts.Highlighter,
		guides:      opts.Guides,
		execution:   opts.Execution,
		sourceView:  opts.SourceView,
		ui:          ui,
		logger:      logger.Named("explorer"),
		now:         now,
		pick:        pick,
	}, nil
}

func (s *Service) Catalog() domain.Catalog {
	return s.catalog.Snapshot().Catalog
}

func (s *Service) Category(key string) (domain.Category, bool) {
	return s.Catalog().Category(key)
}

func (s *Service) Tool(path string) (domain.Tool, bool) {
	return s.Catalog().Tool(path)
}

// RelatedTools lists tools of a category; a non-positive count means all.
func (s *Service) RelatedTools(categoryKey string, count int) []domain.Tool {
	if count <= 0 {
		count = -1
	}
	return s.Catalog().RelatedTools(categoryKey, count)
}

// RandomTool picks uniformly among all tools.
func (s *Service) RandomTool() (domain.Tool, bool) {
	tools := s.Catalog().AllTools()
	if len(tools) == 0 {
		return domain.Tool{}, false
	}
	return tools[s.pick(len(tools))], true
}

func (s *Service) Search(query string) []domain.Tool {
	return s.Catalog().Search(query)
}

func (s *Service) RecentTools(count int) []domain.Tool {
	if count <= 0 {
		count = s.ui.RecentCount
	}
	return s.Catalog().RecentTools(count)
}

func (s *Service) FeaturedTools(count int) []domain.Tool {
	if count <= 0 {
		count = s.ui.FeaturedCount
	}
	return s.Catalog().FeaturedTools(count)
}

func (s *Service) TopCategories(count int) []domain.Category {
	if count <= 0 {
		count = s.ui.TopCategories
	}
	return s.Catalog().TopCategories(count)
}

func (s *Service) Stats() domain.CatalogStats {
	return s.Catalog().Stats(s.now())
}

// RefreshCatalog rescans the root and returns the published catalog.
func (s *Service) RefreshCatalog(ctx context.Context, force bool) (domain.Catalog, error) {
	state, err := s.catalog.Refresh(ctx, force)
	if err != nil {
		return domain.Catalog{}, err
	}
	return state.Catalog, nil
}

// Execute runs a tool. Failures are reported in the result, never as errors.
func (s *Service) Execute(ctx context.Context, toolPath string, params map[string]any) domain.ExecutionResult {
	if !s.execution {
		s.logger.Warn("execution refused",
			telemetry.EventField(telemetry.EventExecution),
			telemetry.ToolField(toolPath),
		)
		return domain.ExecutionResult{
			ToolPath:  toolPath,
			ExitCode:  -1,
			Error:     domain.ErrExecutionDisabled.Error(),
			ErrorKind: domain.CodeExecutionDisabled,
			Timestamp: s.now(),
		}
	}

	rel, script, err := s.resolveScript(toolPath)
	if err != nil {
		return domain.ExecutionResult{
			ToolPath:  toolPath,
			ExitCode:  -1,
			Error:     err.Error(),
			ErrorKind: domain.CodeToolNotFound,
			Timestamp: s.now(),
		}
	}
	if params == nil {
		params = map[string]any{}
	}
	return s.runner.Execute(ctx, domain.ExecutionRequest{
		ToolPath:   rel,
		ScriptPath: script,
		Parameters: params,
	})
}

func (s *Service) ExtractParameters(toolPath string) ([]domain.ParameterDescriptor, error) {
	source, _, err := s.readScript("extract parameters", toolPath)
	if err != nil {
		return nil, err
	}
	return s.extractor.ExtractParameters(source), nil
}

func (s *Service) ExtractDocumentation(toolPath string) (domain.DocInfo, error) {
	source, _, err := s.readScript("extract documentation", toolPath)
	if err != nil {
		return domain.DocInfo{}, err
	}
	return s.extractor.ExtractDocumentation(source), nil
}

// ReadSource returns the script text. Highlighting failures leave HTML empty.
func (s *Service) ReadSource(toolPath string) (domain.SourceView, error) {
	const op = "read source"
	if !s.sourceView.Enabled {
		return domain.SourceView{}, domain.E(domain.CodeSourceViewDisabled, op, "", domain.ErrSourceViewDisabled)
	}
	source, rel, err := s.readScript(op, toolPath)
	if err != nil {
		return domain.SourceView{}, err
	}
	view := domain.SourceView{
		Path:     rel,
		Content:  source,
		Size:     int64(len(source)),
		SizeText: domain.FormatSize(int64(len(source))),
	}
	if s.sourceView.Highlight && s.highlighter != nil {
		html, err := s.highlighter.HTML(filepath.Base(rel), source)
		if err != nil {
			s.logger.Warn("source highlighting failed", telemetry.ToolField(rel), zap.Error(err))
		} else {
			view.HTML = html
		}
	}
	return view, nil
}

// ReadGuide describes the guide attached to a tool. Markdown is rendered,
// plain text is returned as is, other formats only report their path.
func (s *Service) ReadGuide(toolPath string) (domain.GuideView, error) {
	const op = "read guide"
	tool, ok := s.Tool(toolPath)
	if !ok {
		return domain.GuideView{}, domain.E(domain.CodeToolNotFound, op, toolPath, domain.ErrToolNotFound)
	}
	if tool.GuidePath == "" {
		return domain.GuideView{}, domain.E(domain.CodeToolNotFound, op, "no guide for "+tool.Category+"/"+tool.Key, domain.ErrToolNotFound)
	}
	view := domain.GuideView{
		Path:   tool.GuidePath,
		Format: strings.TrimPrefix(strings.ToLower(filepath.Ext(tool.GuidePath)), "."),
	}
	if view.Format != "md" && view.Format != "txt" {
		return view, nil
	}

	abs, err := s.resolve(tool.GuidePath)
	if err != nil {
		return domain.GuideView{}, domain.Wrap(domain.CodeToolNotFound, op, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return domain.GuideView{}, readError(op, tool.GuidePath, err)
	}
	view.Content = string(data)
	if view.Format == "md" && s.guides != nil {
		html, err := s.guides.HTML(data)
		if err != nil {
			s.logger.Warn("guide rendering failed", telemetry.ToolField(tool.GuidePath), zap.Error(err))
		} else {
			view.HTML = html
		}
	}
	return view, nil
}

func (s *Service) readScript(op, toolPath string) (string, string, error) {
	rel, script, err := s.resolveScript(toolPath)
	if err != nil {
		return "", "", domain.Wrap(domain.CodeToolNotFound, op, err)
	}
	data, err := os.ReadFile(script)
	if err != nil {
		return "", "", readError(op, rel, err)
	}
	return string(data), rel, nil
}

// resolveScript maps a tool path to the main script it designates. A
// "category/tool" path names the tool's main script; anything longer is a
// file path relative to the root.
func (s *Service) resolveScript(toolPath string) (string, string, error) {
	rel := filepath.ToSlash(filepath.Clean(strings.TrimSpace(toolPath)))
	if strings.Count(strings.Trim(rel, "/"), "/") == 1 {
		if tool, ok := s.Tool(rel); ok {
			rel = tool.Path
		}
	}
	abs, err := s.resolve(rel)
	if err != nil {
		return "", "", err
	}
	return rel, abs, nil
}

// resolve joins a relative path onto the catalog root and refuses anything
// that lands outside it, symlinks included.
func (s *Service) resolve(rel string) (string, error) {
	root := s.Catalog().RootPath
	if root == "" {
		return "", domain.E(domain.CodeToolNotFound, "resolve", "catalog has no root", domain.ErrToolNotFound)
	}
	if rel == "" || rel == "." || filepath.IsAbs(rel) || strings.HasPrefix(rel, "/") {
		return "", domain.E(domain.CodeToolNotFound, "resolve", fmt.Sprintf("invalid tool path %q", rel), domain.ErrToolNotFound)
	}
	abs := filepath.Join(root, filepath.FromSlash(rel))
	if !within(root, abs) {
		return "", domain.E(domain.CodeToolNotFound, "resolve", fmt.Sprintf("tool path %q escapes the root", rel), domain.ErrToolNotFound)
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		realRoot, rootErr := filepath.EvalSymlinks(root)
		if rootErr == nil && !within(realRoot, real) {
			return "", domain.E(domain.CodeToolNotFound, "resolve", fmt.Sprintf("tool path %q escapes the root", rel), domain.ErrToolNotFound)
		}
	}
	return abs, nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func readError(op, rel string, err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return domain.E(domain.CodeToolNotFound, op, rel, domain.ErrToolNotFound)
	}
	return domain.E(domain.CodeIOFailure, op, rel, err)
}
