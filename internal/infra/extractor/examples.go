package extractor

import (
	"regexp"
	"strings"
)

var quotedExamples = []*regexp.Regexp{
	regexp.MustCompile(`(?s)"""Example:[ \t]*(.*?)"""`),
	regexp.MustCompile(`(?s)'''Example:[ \t]*(.*?)'''`),
}

var commentMarkers = []string{"# Example:", "# Usage:"}

const promptMarker = ">>> "

// ExtractExamples collects usage examples from anywhere in source: comment
// blocks introduced by "# Example:" or "# Usage:", triple-quoted blocks
// labeled "Example:", and interactive prompt lines.
func ExtractExamples(source string) []string {
	source = strings.ReplaceAll(source, "\r\n", "\n")
	lines := strings.Split(source, "\n")

	var examples []string
	for _, marker := range commentMarkers {
		examples = append(examples, commentExamples(lines, marker)...)
	}
	for _, re := range quotedExamples {
		for _, m := range re.FindAllStringSubmatch(source, -1) {
			if example := strings.TrimSpace(m[1]); example != "" {
				examples = append(examples, example)
			}
		}
	}
	return append(examples, promptExamples(lines)...)
}

// commentExamples reads the text after marker plus the comment lines that
// follow it, up to a blank line, code, or another marker.
func commentExamples(lines []string, marker string) []string {
	var examples []string
	for i := 0; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(trimmed, marker) {
			continue
		}
		block := []string{strings.TrimSpace(strings.TrimPrefix(trimmed, marker))}
		j := i + 1
		for ; j < len(lines); j++ {
			next := strings.TrimSpace(lines[j])
			if !strings.HasPrefix(next, "#") || isCommentMarker(next) {
				break
			}
			text := strings.TrimPrefix(strings.TrimPrefix(next, "#"), " ")
			if strings.TrimSpace(text) == "" {
				break
			}
			block = append(block, strings.TrimRight(text, " \t"))
		}
		if example := strings.TrimSpace(strings.Join(block, "\n")); example != "" {
			examples = append(examples, example)
		}
		i = j - 1
	}
	return examples
}

func isCommentMarker(line string) bool {
	for _, marker := range commentMarkers {
		if strings.HasPrefix(line, marker) {
			return true
		}
	}
	return false
}

// promptExamples reads interactive-session lines together with the expected
// output that follows them, up to a blank line or the next prompt.
func promptExamples(lines []string) []string {
	var examples []string
	for i := 0; i < len(lines); i++ {
		idx := strings.Index(lines[i], promptMarker)
		if idx < 0 {
			continue
		}
		indent := leadingSpace(lines[i])
		block := []string{lines[i][idx+len(promptMarker):]}
		j := i + 1
		for ; j < len(lines); j++ {
			next := strings.TrimSpace(lines[j])
			if next == "" || next == `"""` || next == "'''" || strings.Contains(lines[j], promptMarker) {
				break
			}
			block = append(block, strings.TrimPrefix(lines[j], indent))
		}
		if example := strings.TrimSpace(strings.Join(block, "\n")); example != "" {
			examples = append(examples, example)
		}
		i = j - 1
	}
	return examples
}

func leadingSpace(line string) string {
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}
