package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// envExpander rewrites ${VAR} and ${VAR:-fallback} references inside YAML
// string scalars. Keys are left alone.
type envExpander struct {
	lookup  func(string) (string, bool)
	missing map[string]struct{}
}

// expandConfigEnv returns the expanded document and the sorted names of
// referenced variables that were unset and had no fallback.
func expandConfigEnv(raw []byte) (string, []string, error) {
	return expandWith(raw, os.LookupEnv)
}

func expandWith(raw []byte, lookup func(string) (string, bool)) (string, []string, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return "", nil, fmt.Errorf("parse config: %w", err)
	}
	if doc.Kind == 0 {
		return "", nil, nil
	}

	x := &envExpander{lookup: lookup, missing: map[string]struct{}{}}
	x.walk(&doc)

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return "", nil, fmt.Errorf("encode expanded config: %w", err)
	}
	return string(out), x.unset(), nil
}

func (x *envExpander) walk(node *yaml.Node) {
	switch node.Kind {
	case yaml.ScalarNode:
		x.scalar(node)
	case yaml.MappingNode:
		for i := 1; i < len(node.Content); i += 2 {
			x.walk(node.Content[i])
		}
	case yaml.AliasNode:
		if node.Alias != nil {
			x.walk(node.Alias)
		}
	default:
		for _, child := range node.Content {
			x.walk(child)
		}
	}
}

func (x *envExpander) resolve(ref string) string {
	name, fallback, hasFallback := strings.Cut(ref, ":-")
	if value, ok := x.lookup(name); ok && (value != "" || !hasFallback) {
		return value
	}
	if hasFallback {
		return fallback
	}
	x.missing[name] = struct{}{}
	return ""
}

func (x *envExpander) scalar(node *yaml.Node) {
	if (node.Tag != "" && node.Tag != "!!str") || !strings.Contains(node.Value, "$") {
		return
	}
	value := os.Expand(node.Value, x.resolve)
	if value == node.Value {
		return
	}
	// Quoted scalars stay strings; plain ones are retyped so that
	// "timeoutSeconds: ${PYSNIP_TIMEOUT}" decodes as an int.
	if node.Style != 0 {
		node.Tag, node.Value = "!!str", value
		return
	}
	node.Tag, node.Value = scalarTag(value), value
	if node.Tag == "!!bool" {
		node.Value = strings.ToLower(value)
	}
}

func (x *envExpander) unset() []string {
	if len(x.missing) == 0 {
		return nil
	}
	names := make([]string, 0, len(x.missing))
	for name := range x.missing {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func scalarTag(value string) string {
	trimmed := strings.TrimSpace(value)
	switch {
	case trimmed == "":
		return "!!str"
	case strings.EqualFold(trimmed, "true"), strings.EqualFold(trimmed, "false"):
		return "!!bool"
	}
	if _, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return "!!int"
	}
	if strings.ContainsAny(strings.ToLower(trimmed), "naifx") {
		return "!!str"
	}
	if _, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return "!!float"
	}
	return "!!str"
}
