package domain

import (
	"sort"
	"strings"
	"time"
)

// Catalog is the immutable index produced by a scan.
type Catalog struct {
	RootPath    string     `json:"rootPath" yaml:"rootPath"`
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description" yaml:"description"`
	GeneratedAt time.Time  `json:"generatedAt" yaml:"generatedAt"`
	Categories  []Category `json:"categories" yaml:"categories"`
	ToolCount   int        `json:"toolCount" yaml:"toolCount"`
}

// Category groups the tools found one directory level below the root.
type Category struct {
	Key         string `json:"key" yaml:"key"`
	DisplayName string `json:"displayName" yaml:"displayName"`
	Description string `json:"description" yaml:"description"`
	Icon        string `json:"icon" yaml:"icon"`
	Tools       []Tool `json:"tools" yaml:"tools"`
}

// Tool is a single executable script with its optional guide and resources.
type Tool struct {
	Key         string    `json:"key" yaml:"key"`
	DisplayName string    `json:"displayName" yaml:"displayName"`
	Path        string    `json:"path" yaml:"path"`
	Script      string    `json:"script" yaml:"script"`
	GuidePath   string    `json:"guidePath,omitempty" yaml:"guidePath,omitempty"`
	Resources   []string  `json:"resources,omitempty" yaml:"resources,omitempty"`
	Size        int64     `json:"size" yaml:"size"`
	ModTime     time.Time `json:"modTime" yaml:"modTime"`
	Hash        string    `json:"hash" yaml:"hash"`
	Complete    bool      `json:"complete" yaml:"complete"`
	Category    string    `json:"category" yaml:"category"`
}

// CatalogStats summarizes a catalog for overview pages.
type CatalogStats struct {
	ToolCount       int `json:"toolCount"`
	CategoryCount   int `json:"categoryCount"`
	CompletedCount  int `json:"completedCount"`
	DaysSinceUpdate int `json:"daysSinceUpdate"`
}

// Category returns the category with the given key.
func (c Catalog) Category(key string) (Category, bool) {
	for _, category := range c.Categories {
		if category.Key == key {
			return category, true
		}
	}
	return Category{}, false
}

// Tool resolves a tool by a "category/tool/..." path. Only the first two
// segments are significant.
func (c Catalog) Tool(path string) (Tool, bool) {
	parts := strings.Split(strings.Trim(strings.ReplaceAll(path, "\\", "/"), "/"), "/")
	if len(parts) < 2 {
		return Tool{}, false
	}
	category, ok := c.Category(parts[0])
	if !ok {
		return Tool{}, false
	}
	for _, tool := range category.Tools {
		if tool.Key == parts[1] {
			return tool, true
		}
	}
	return Tool{}, false
}

// AllTools flattens the catalog in category order.
func (c Catalog) AllTools() []Tool {
	tools := make([]Tool, 0, c.ToolCount)
	for _, category := range c.Categories {
		tools = append(tools, category.Tools...)
	}
	return tools
}

// RelatedTools lists up to count tools of a category, complete tools first,
// then most recently modified.
func (c Catalog) RelatedTools(categoryKey string, count int) []Tool {
	category, ok := c.Category(categoryKey)
	if !ok {
		return nil
	}
	tools := append([]Tool(nil), category.Tools...)
	sort.SliceStable(tools, func(i, j int) bool {
		if tools[i].Complete != tools[j].Complete {
			return tools[i].Complete
		}
		return tools[i].ModTime.After(tools[j].ModTime)
	})
	return limitTools(tools, count)
}

func (c Catalog) RecentTools(count int) []Tool {
	tools := c.AllTools()
	sort.SliceStable(tools, func(i, j int) bool {
		return tools[i].ModTime.After(tools[j].ModTime)
	})
	return limitTools(tools, count)
}

// FeaturedTools prefers complete tools, then larger ones.
func (c Catalog) FeaturedTools(count int) []Tool {
	tools := c.AllTools()
	sort.SliceStable(tools, func(i, j int) bool {
		if tools[i].Complete != tools[j].Complete {
			return tools[i].Complete
		}
		return tools[i].Size > tools[j].Size
	})
	return limitTools(tools, count)
}

func (c Catalog) TopCategories(count int) []Category {
	categories := append([]Category(nil), c.Categories...)
	sort.SliceStable(categories, func(i, j int) bool {
		return len(categories[i].Tools) > len(categories[j].Tools)
	})
	if count >= 0 && len(categories) > count {
		categories = categories[:count]
	}
	return categories
}

// Search matches query case-insensitively against tool display names.
// An empty query matches nothing.
func (c Catalog) Search(query string) []Tool {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}
	var matches []Tool
	for _, category := range c.Categories {
		for _, tool := range category.Tools {
			if strings.Contains(strings.ToLower(tool.DisplayName), query) {
				matches = append(matches, tool)
			}
		}
	}
	return matches
}

func (c Catalog) CompletedCount() int {
	count := 0
	for _, category := range c.Categories {
		for _, tool := range category.Tools {
			if tool.Complete {
				count++
			}
		}
	}
	return count
}

// DaysSinceUpdate reports whole days between the newest tool and now.
func (c Catalog) DaysSinceUpdate(now time.Time) int {
	var latest time.Time
	for _, category := range c.Categories {
		for _, tool := range category.Tools {
			if tool.ModTime.After(latest) {
				latest = tool.ModTime
			}
		}
	}
	if latest.IsZero() || now.Before(latest) {
		return 0
	}
	return int(now.Sub(latest).Hours() / 24)
}

func (c Catalog) Stats(now time.Time) CatalogStats {
	return CatalogStats{
		ToolCount:       c.ToolCount,
		CategoryCount:   len(c.Categories),
		CompletedCount:  c.CompletedCount(),
		DaysSinceUpdate: c.DaysSinceUpdate(now),
	}
}

func limitTools(tools []Tool, count int) []Tool {
	if count >= 0 && len(tools) > count {
		return tools[:count]
	}
	return tools
}

// CatalogSnapshot is a persisted catalog with the instant its scan started.
type CatalogSnapshot struct {
	Root     string    `json:"root"`
	CachedAt time.Time `json:"cachedAt"`
	Catalog  Catalog   `json:"catalog"`
}
