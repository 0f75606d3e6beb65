package executor

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"pysnip/internal/domain"
)

// Policy rejects parameters that carry prohibited substrings.
type Policy struct {
	patterns []string
}

// NewPolicy builds a policy from a denylist. Empty entries are ignored.
func NewPolicy(prohibited []string) Policy {
	patterns := make([]string, 0, len(prohibited))
	for _, entry := range prohibited {
		normalized := normalizeText(entry)
		if strings.TrimSpace(normalized) == "" {
			continue
		}
		patterns = append(patterns, normalized)
	}
	return Policy{patterns: patterns}
}

// Patterns returns the normalized denylist.
func (p Policy) Patterns() []string {
	return append([]string(nil), p.patterns...)
}

// Check inspects every key and value. Values are compared after NFKC
// normalization and case folding so lookalike characters do not slip through.
func (p Policy) Check(params map[string]any) error {
	if len(p.patterns) == 0 || len(params) == 0 {
		return nil
	}
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if pattern, ok := p.match(key); ok {
			return violation(key, pattern)
		}
		for _, text := range valueTexts(params[key]) {
			if pattern, ok := p.match(text); ok {
				return violation(key, pattern)
			}
		}
	}
	return nil
}

func (p Policy) match(text string) (string, bool) {
	if text == "" {
		return "", false
	}
	normalized := normalizeText(text)
	for _, pattern := range p.patterns {
		if strings.Contains(normalized, pattern) {
			return pattern, true
		}
	}
	return "", false
}

func violation(key, pattern string) error {
	return domain.E(
		domain.CodePolicyViolation,
		"execute",
		fmt.Sprintf("parameter %q contains prohibited content %q", key, pattern),
		domain.ErrPolicyViolation,
	)
}

func valueTexts(value any) []string {
	switch v := value.(type) {
	case []any:
		return listValues(v)
	case []string:
		return v
	default:
		if text, ok := FormatValue(v); ok {
			return []string{text}
		}
		return nil
	}
}

// normalizeText builds a fresh Caser per call; casers are not safe for
// concurrent use.
func normalizeText(text string) string {
	return cases.Fold().String(norm.NFKC.String(text))
}
