package scanner

import (
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"pysnip/internal/domain"
	"pysnip/internal/infra/hashutil"
)

var (
	conventionalEntryPoints = []string{"main", "__main__", "app", "run", "cli"}
	guideExtensions         = []string{".pdf", ".md", ".txt", ".docx", ".html"}
	resourceExtensions      = map[string]bool{
		".csv": true, ".json": true, ".yaml": true, ".yml": true,
		".xml": true, ".ini": true, ".cfg": true,
	}
	placeholderMarkers = []string{"PLACEHOLDER", "# This is a placeholder"}
)

type scriptFile struct {
	name string
	size int64
}

// scanTool inspects one tool directory. The boolean is false when the
// directory holds no scripts.
func scanTool(root, categoryKey, toolKey string, scriptExts []string) (domain.Tool, bool, error) {
	dir := filepath.Join(root, categoryKey, toolKey)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return domain.Tool{}, false, err
	}

	var (
		scripts   []scriptFile
		guides    = map[string]string{}
		resources []string
	)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		switch {
		case slices.Contains(scriptExts, ext):
			info, err := entry.Info()
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
			scripts = append(scripts, scriptFile{name: name, size: info.Size()})
		case resourceExtensions[ext]:
			resources = append(resources, name)
		case slices.Contains(guideExtensions, ext):
			if _, seen := guides[ext]; !seen {
				guides[ext] = name
			}
		}
	}
	if len(scripts) == 0 {
		return domain.Tool{}, false, nil
	}

	entry := selectMainScript(toolKey, scripts, scriptExts)
	scriptPath := filepath.Join(dir, entry.name)
	info, err := os.Stat(scriptPath)
	if err != nil {
		return domain.Tool{}, false, err
	}
	hash, err := hashutil.FileSHA256(scriptPath)
	if err != nil {
		return domain.Tool{}, false, err
	}

	tool := domain.Tool{
		Key:         toolKey,
		DisplayName: DisplayName(toolKey),
		Path:        path.Join(categoryKey, toolKey, entry.name),
		Script:      entry.name,
		Resources:   resources,
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		Hash:        hash,
		Complete:    IsComplete(scriptPath, info.Size()),
		Category:    categoryKey,
	}
	for _, ext := range guideExtensions {
		if name, ok := guides[ext]; ok {
			tool.GuidePath = path.Join(categoryKey, toolKey, name)
			break
		}
	}
	return tool, true, nil
}

// selectMainScript picks the entry point: a script named after the
// directory, then a conventional entry-point name, then the largest script.
// Ties keep the first script listed.
func selectMainScript(toolKey string, scripts []scriptFile, scriptExts []string) scriptFile {
	for _, ext := range scriptExts {
		for _, script := range scripts {
			if script.name == toolKey+ext {
				return script
			}
		}
	}
	for _, base := range conventionalEntryPoints {
		for _, ext := range scriptExts {
			for _, script := range scripts {
				if script.name == base+ext {
					return script
				}
			}
		}
	}
	best := scripts[0]
	for _, script := range scripts[1:] {
		if script.size > best.size {
			best = script
		}
	}
	return best
}

// IsComplete applies the completeness heuristic to a main script. An
// unreadable file is judged on size alone.
func IsComplete(scriptPath string, size int64) bool {
	if size < domain.CompleteSizeThreshold {
		return false
	}
	file, err := os.Open(scriptPath)
	if err != nil {
		return true
	}
	defer file.Close()

	buf := make([]byte, domain.CompletenessProbeBytes)
	n, err := io.ReadFull(file, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return true
	}
	head := string(buf[:n])
	if strings.Contains(head, "TODO") && strings.Contains(strings.ToLower(head), "implement") {
		return false
	}
	for _, marker := range placeholderMarkers {
		if strings.Contains(head, marker) {
			return false
		}
	}
	return true
}
