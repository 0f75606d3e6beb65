package explorer

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pysnip/internal/domain"
	"pysnip/internal/infra/extractor"
	"pysnip/internal/infra/render"
)

const renamerSource = `"""Bulk Renamer

Renames files in a directory.
"""
import argparse

parser = argparse.ArgumentParser()
parser.add_argument('--size', type=int, default=10, help='Batch size')
parser.add_argument("--fmt", choices=['csv', 'json'], required=True)
parser.add_argument('--verbose', action='store_true', help='Chatty')
`

type staticSource struct {
	mu       sync.Mutex
	state    domain.CatalogState
	refreshs int
	err      error
}

func (s *staticSource) Snapshot() domain.CatalogState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *staticSource) Refresh(context.Context, bool) (domain.CatalogState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshs++
	if s.err != nil {
		return domain.CatalogState{}, s.err
	}
	s.state.Revision++
	return s.state, nil
}

type recordingRunner struct {
	mu       sync.Mutex
	requests []domain.ExecutionRequest
}

func (r *recordingRunner) Execute(_ context.Context, req domain.ExecutionRequest) domain.ExecutionResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	return domain.ExecutionResult{ToolPath: req.ToolPath, Success: true}
}

func (r *recordingRunner) calls() []domain.ExecutionRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.ExecutionRequest(nil), r.requests...)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func fixture(t *testing.T) (string, domain.Catalog) {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "utility", "renamer", "renamer.py"), renamerSource)
	writeFile(t, filepath.Join(root, "utility", "renamer", "guide.md"), "# Renamer\n\nUse **carefully**.\n")
	writeFile(t, filepath.Join(root, "utility", "cleaner", "main.py"), "print('clean')\n")
	writeFile(t, filepath.Join(root, "utility", "cleaner", "notes.txt"), "plain notes\n")
	writeFile(t, filepath.Join(root, "networking", "pinger", "pinger.py"), "print('ping')\n")
	writeFile(t, filepath.Join(root, "networking", "pinger", "manual.pdf"), "%PDF-1.4\n")

	catalog := domain.Catalog{
		RootPath:    root,
		Name:        domain.DefaultCatalogName,
		GeneratedAt: fixedNow.Add(-48 * time.Hour),
		ToolCount:   3,
		Categories: []domain.Category{
			{
				Key:         "networking",
				DisplayName: "Networking",
				Tools: []domain.Tool{
					{Key: "pinger", DisplayName: "Pinger", Path: "networking/pinger/pinger.py", Script: "pinger.py", GuidePath: "networking/pinger/manual.pdf", Category: "networking", Complete: true, ModTime: fixedNow.Add(-time.Hour)},
				},
			},
			{
				Key:         "utility",
				DisplayName: "Utility",
				Tools: []domain.Tool{
					{Key: "cleaner", DisplayName: "Cleaner", Path: "utility/cleaner/main.py", Script: "main.py", GuidePath: "utility/cleaner/notes.txt", Category: "utility", ModTime: fixedNow.Add(-72 * time.Hour)},
					{Key: "renamer", DisplayName: "Bulk Renamer", Path: "utility/renamer/renamer.py", Script: "renamer.py", GuidePath: "utility/renamer/guide.md", Category: "utility", Complete: true, ModTime: fixedNow.Add(-2 * time.Hour)},
				},
			},
		},
	}
	return root, catalog
}

type serviceConfig struct {
	execution  bool
	sourceView domain.SourceViewConfig
	pick       func(int) int
}

func newService(t *testing.T, catalog domain.Catalog, cfg serviceConfig) (*Service, *staticSource, *recordingRunner) {
	t.Helper()
	source := &staticSource{state: domain.NewCatalogState(catalog, 1, fixedNow, domain.CatalogUpdateSourceBootstrap)}
	runner := &recordingRunner{}
	svc, err := New(Options{
		Catalog:     source,
		Runner:      runner,
		Extractor:   extractor.New(zap.NewNop()),
		Highlighter: render.NewHighlighter(""),
		Guides:      render.NewMarkdown(),
		Execution:   cfg.execution,
		SourceView:  cfg.sourceView,
		Logger:      zap.NewNop(),
		Now:         func() time.Time { return fixedNow },
		Pick:        cfg.pick,
	})
	require.NoError(t, err)
	return svc, source, runner
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)

	_, err = New(Options{Catalog: &staticSource{}, Extractor: extractor.New(nil), Execution: true})
	require.Error(t, err)
}

func TestService_Queries(t *testing.T) {
	_, catalog := fixture(t)
	svc, _, _ := newService(t, catalog, serviceConfig{pick: func(n int) int { return n - 1 }})

	category, ok := svc.Category("utility")
	require.True(t, ok)
	assert.Len(t, category.Tools, 2)
	_, ok = svc.Category("missing")
	assert.False(t, ok)

	tool, ok := svc.Tool("utility/renamer")
	require.True(t, ok)
	assert.Equal(t, "renamer.py", tool.Script)
	_, ok = svc.Tool("utility")
	assert.False(t, ok)

	random, ok := svc.RandomTool()
	require.True(t, ok)
	assert.Equal(t, "renamer", random.Key)

	related := svc.RelatedTools("utility", 0)
	require.Len(t, related, 2)
	assert.Equal(t, "renamer", related[0].Key, "complete tools come first")

	recent := svc.RecentTools(0)
	require.Len(t, recent, 3)
	assert.Equal(t, "pinger", recent[0].Key)
	assert.Len(t, svc.RecentTools(1), 1)

	found := svc.Search("RENAM")
	require.Len(t, found, 1)
	assert.Equal(t, "renamer", found[0].Key)
	assert.Empty(t, svc.Search("nothing-like-this"))

	stats := svc.Stats()
	assert.Equal(t, 3, stats.ToolCount)
	assert.Equal(t, 2, stats.CategoryCount)
	assert.Equal(t, 2, stats.CompletedCount)
}

func TestService_RandomToolEmptyCatalog(t *testing.T) {
	svc, _, _ := newService(t, domain.Catalog{RootPath: t.TempDir()}, serviceConfig{})
	_, ok := svc.RandomTool()
	assert.False(t, ok)
	assert.Empty(t, svc.RecentTools(5))
	assert.Empty(t, svc.TopCategories(0))
}

func TestService_ExecuteDisabled(t *testing.T) {
	_, catalog := fixture(t)
	svc, _, runner := newService(t, catalog, serviceConfig{execution: false})

	result := svc.Execute(context.Background(), "utility/renamer", nil)
	assert.False(t, result.Success)
	assert.Equal(t, domain.CodeExecutionDisabled, result.ErrorKind)
	assert.Equal(t, domain.ExecutionStatusRejected, result.Status())
	assert.Empty(t, runner.calls())
}

func TestService_ExecuteResolvesMainScript(t *testing.T) {
	root, catalog := fixture(t)
	svc, _, runner := newService(t, catalog, serviceConfig{execution: true})

	result := svc.Execute(context.Background(), "utility/renamer", map[string]any{"size": 3})
	require.True(t, result.Success)

	calls := runner.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "utility/renamer/renamer.py", calls[0].ToolPath)
	assert.Equal(t, filepath.Join(root, "utility", "renamer", "renamer.py"), calls[0].ScriptPath)
	assert.Equal(t, map[string]any{"size": 3}, calls[0].Parameters)

	svc.Execute(context.Background(), "networking/pinger/pinger.py", nil)
	calls = runner.calls()
	require.Len(t, calls, 2)
	assert.Equal(t, filepath.Join(root, "networking", "pinger", "pinger.py"), calls[1].ScriptPath)
	assert.NotNil(t, calls[1].Parameters)
}

func TestService_ExecuteRefusesEscapes(t *testing.T) {
	root, catalog := fixture(t)
	outside := filepath.Join(t.TempDir(), "evil.py")
	writeFile(t, outside, "print('escaped')\n")
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "utility", "link.py")))

	svc, _, runner := newService(t, catalog, serviceConfig{execution: true})
	for _, path := range []string{"../evil.py", "utility/../../evil.py", outside, "", "utility/link.py"} {
		result := svc.Execute(context.Background(), path, nil)
		assert.False(t, result.Success, path)
		assert.Equal(t, domain.CodeToolNotFound, result.ErrorKind, path)
	}
	assert.Empty(t, runner.calls())
}

func TestService_ExtractParametersAndSchema(t *testing.T) {
	_, catalog := fixture(t)
	svc, _, _ := newService(t, catalog, serviceConfig{})

	params, err := svc.ExtractParameters("utility/renamer")
	require.NoError(t, err)
	require.Len(t, params, 3)
	assert.Equal(t, "--size", params[0].Name)

	schema, err := svc.ParameterSchema("utility/renamer")
	require.NoError(t, err)
	assert.Equal(t, "object", schema.Type)
	assert.Equal(t, []string{"fmt"}, schema.Required)
	require.Contains(t, schema.Properties, "size")
	assert.Equal(t, "integer", schema.Properties["size"].Type)
	assert.JSONEq(t, "10", string(schema.Properties["size"].Default))
	assert.Equal(t, []any{"csv", "json"}, schema.Properties["fmt"].Enum)
	assert.Equal(t, "boolean", schema.Properties["verbose"].Type)
	assert.JSONEq(t, "false", string(schema.Properties["verbose"].Default))

	resolved, err := schema.Resolve(nil)
	require.NoError(t, err)

	var valid map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"size": 3, "fmt": "csv"}`), &valid))
	assert.NoError(t, resolved.Validate(valid))

	var invalid map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"size": "big", "fmt": "xml"}`), &invalid))
	assert.Error(t, resolved.Validate(invalid))

	_, err = svc.ExtractParameters("utility/missing/missing.py")
	require.ErrorIs(t, err, domain.ErrToolNotFound)
	_, err = svc.ParameterSchema("../outside.py")
	code, ok := domain.CodeFrom(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeToolNotFound, code)
}

func TestService_ExtractDocumentation(t *testing.T) {
	_, catalog := fixture(t)
	svc, _, _ := newService(t, catalog, serviceConfig{})

	doc, err := svc.ExtractDocumentation("utility/renamer/renamer.py")
	require.NoError(t, err)
	assert.Equal(t, "Bulk Renamer", doc.Title)
	assert.Len(t, doc.Parameters, 3)
}

func TestService_ReadSource(t *testing.T) {
	_, catalog := fixture(t)

	disabled, _, _ := newService(t, catalog, serviceConfig{})
	_, err := disabled.ReadSource("utility/renamer")
	require.ErrorIs(t, err, domain.ErrSourceViewDisabled)

	plain, _, _ := newService(t, catalog, serviceConfig{sourceView: domain.SourceViewConfig{Enabled: true}})
	view, err := plain.ReadSource("utility/renamer")
	require.NoError(t, err)
	assert.Equal(t, "utility/renamer/renamer.py", view.Path)
	assert.Equal(t, renamerSource, view.Content)
	assert.Equal(t, int64(len(renamerSource)), view.Size)
	assert.Empty(t, view.HTML)

	highlighted, _, _ := newService(t, catalog, serviceConfig{sourceView: domain.SourceViewConfig{Enabled: true, Highlight: true}})
	view, err = highlighted.ReadSource("utility/renamer")
	require.NoError(t, err)
	assert.Contains(t, view.HTML, "<pre")
	assert.Contains(t, view.HTML, "argparse")
}

func TestService_ReadGuide(t *testing.T) {
	_, catalog := fixture(t)
	svc, _, _ := newService(t, catalog, serviceConfig{})

	md, err := svc.ReadGuide("utility/renamer")
	require.NoError(t, err)
	assert.Equal(t, "md", md.Format)
	assert.Contains(t, md.HTML, "<strong>carefully</strong>")

	txt, err := svc.ReadGuide("utility/cleaner")
	require.NoError(t, err)
	assert.Equal(t, "txt", txt.Format)
	assert.Equal(t, "plain notes\n", txt.Content)
	assert.Empty(t, txt.HTML)

	pdf, err := svc.ReadGuide("networking/pinger")
	require.NoError(t, err)
	assert.Equal(t, "networking/pinger/manual.pdf", pdf.Path)
	assert.Empty(t, pdf.Content)

	_, err = svc.ReadGuide("networking/unknown")
	require.ErrorIs(t, err, domain.ErrToolNotFound)
}

func TestService_RefreshCatalog(t *testing.T) {
	_, catalog := fixture(t)
	svc, source, _ := newService(t, catalog, serviceConfig{})

	refreshed, err := svc.RefreshCatalog(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 3, refreshed.ToolCount)
	assert.Equal(t, 1, source.refreshs)

	source.err = domain.E(domain.CodeRootNotFound, "scan", "gone", domain.ErrRootNotFound)
	_, err = svc.RefreshCatalog(context.Background(), false)
	require.ErrorIs(t, err, domain.ErrRootNotFound)
}
