// Package envutil edits KEY=VALUE environment lists.
package envutil

import (
	"os"
	"sort"
	"strings"
)

// Value returns the last value set for key.
func Value(env []string, key string) string {
	if key == "" {
		return ""
	}
	prefix := key + "="
	var value string
	for _, entry := range env {
		if strings.HasPrefix(entry, prefix) {
			value = strings.TrimPrefix(entry, prefix)
		}
	}
	return value
}

// Set replaces every entry for key with a single key=value at the end.
func Set(env []string, key, value string) []string {
	if key == "" {
		return env
	}
	prefix := key + "="
	out := make([]string, 0, len(env)+1)
	for _, entry := range env {
		if strings.HasPrefix(entry, prefix) {
			continue
		}
		out = append(out, entry)
	}
	return append(out, prefix+value)
}

// Merge applies overrides in key order.
func Merge(env []string, overrides map[string]string) []string {
	keys := make([]string, 0, len(overrides))
	for key := range overrides {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		env = Set(env, key, overrides[key])
	}
	return env
}

// PrependList puts dir first in a path-list variable such as PYTHONPATH,
// dropping duplicates and empty elements.
func PrependList(env []string, key, dir string) []string {
	return Set(env, key, mergeList(dir, Value(env, key)))
}

func mergeList(primary, fallback string) string {
	separator := string(os.PathListSeparator)
	seen := map[string]struct{}{}
	out := make([]string, 0, 8)

	appendList := func(list string) {
		for _, entry := range strings.Split(list, separator) {
			entry = strings.TrimSpace(entry)
			if entry == "" {
				continue
			}
			if _, exists := seen[entry]; exists {
				continue
			}
			seen[entry] = struct{}{}
			out = append(out, entry)
		}
	}

	appendList(primary)
	appendList(fallback)
	return strings.Join(out, separator)
}
