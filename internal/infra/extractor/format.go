package extractor

import (
	"regexp"
	"strings"

	"pysnip/internal/domain"
	"pysnip/internal/infra/pysource"
)

var (
	pysnipMarker = regexp.MustCompile(`(?m)^[ \t]*(?:✒[ \t]*)?(?:Metadata|Description)[ \t]*:?[ \t]*$`)
	googleMarker = regexp.MustCompile(`(?m)^[ \t]*Args:[ \t]*$`)
	numpyMarker  = regexp.MustCompile(`(?m)^[ \t]*Parameters[ \t]*\r?\n[ \t]*-{3,}[ \t]*$`)

	glyphHeader   = regexp.MustCompile(`^[ \t]*✒[ \t]*([A-Za-z][A-Za-z /&-]*?)[ \t]*:?[ \t]*$`)
	colonHeader   = regexp.MustCompile(`^([A-Za-z][A-Za-z -]*):[ \t]*$`)
	numpyTitle    = regexp.MustCompile(`^([A-Za-z][A-Za-z -]*?)[ \t]*$`)
	underline     = regexp.MustCompile(`^[ \t]*[-=~]{3,}[ \t]*$`)
	metadataTitle = regexp.MustCompile(`(?m)^[ \t]*[-*•]?[ \t]*Title[ \t]*:[ \t]*(.+?)[ \t]*$`)
)

// DetectFormat classifies a docstring. The checks run in priority order.
func DetectFormat(doc string) domain.DocFormat {
	switch {
	case pysnipMarker.MatchString(doc):
		return domain.DocFormatPySnip
	case googleMarker.MatchString(doc):
		return domain.DocFormatGoogle
	case numpyMarker.MatchString(doc):
		return domain.DocFormatNumPy
	default:
		return domain.DocFormatSimple
	}
}

// headerFunc reports whether lines[i] opens a section, returning the section
// name and how many lines the header occupies.
type headerFunc func(lines []string, i int) (string, int, bool)

type docFormat struct {
	header  headerFunc
	aliases map[string]string
}

var sharedAliases = map[string]string{
	"description":                 domain.SectionDescription,
	"overview":                    domain.SectionDescription,
	"about":                       domain.SectionDescription,
	"features":                    domain.SectionKeyFeatures,
	"key features":                domain.SectionKeyFeatures,
	"usage":                       domain.SectionUsage,
	"usage instructions":          domain.SectionUsage,
	"how to use":                  domain.SectionUsage,
	"example":                     domain.SectionExamples,
	"examples":                    domain.SectionExamples,
	"command-line arguments":      domain.SectionArguments,
	"command line arguments":      domain.SectionArguments,
	"arguments":                   domain.SectionArguments,
	"options":                     domain.SectionArguments,
	"other important information": domain.SectionOtherInfo,
	"notes":                       domain.SectionOtherInfo,
	"note":                        domain.SectionOtherInfo,
	"requirements":                domain.SectionOtherInfo,
	"dependencies":                domain.SectionOtherInfo,
}

var formats = map[domain.DocFormat]docFormat{
	domain.DocFormatPySnip: {
		header:  pysnipHeader,
		aliases: withAliases(map[string]string{"important information": domain.SectionOtherInfo}),
	},
	domain.DocFormatGoogle: {
		header: colonHeaderAt,
		aliases: withAliases(map[string]string{
			"args":         domain.SectionArguments,
			"keyword args": domain.SectionArguments,
			"kwargs":       domain.SectionArguments,
			"warning":      domain.SectionOtherInfo,
			"warnings":     domain.SectionOtherInfo,
		}),
	},
	domain.DocFormatNumPy: {
		header: numpyHeader,
		aliases: withAliases(map[string]string{
			"parameters":       domain.SectionArguments,
			"other parameters": domain.SectionArguments,
			"warnings":         domain.SectionOtherInfo,
			"see also":         domain.SectionOtherInfo,
		}),
	},
	domain.DocFormatSimple: {
		header:  noHeader,
		aliases: sharedAliases,
	},
}

func withAliases(extra map[string]string) map[string]string {
	merged := make(map[string]string, len(sharedAliases)+len(extra))
	for k, v := range sharedAliases {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}

func pysnipHeader(lines []string, i int) (string, int, bool) {
	if m := glyphHeader.FindStringSubmatch(lines[i]); m != nil {
		return m[1], 1, true
	}
	return colonHeaderAt(lines, i)
}

func colonHeaderAt(lines []string, i int) (string, int, bool) {
	if m := colonHeader.FindStringSubmatch(lines[i]); m != nil {
		return strings.TrimSpace(m[1]), 1, true
	}
	return "", 0, false
}

func numpyHeader(lines []string, i int) (string, int, bool) {
	if i+1 >= len(lines) || !underline.MatchString(lines[i+1]) || strings.TrimSpace(lines[i]) == "" {
		return "", 0, false
	}
	if m := numpyTitle.FindStringSubmatch(lines[i]); m != nil {
		return m[1], 2, true
	}
	return "", 0, false
}

func noHeader([]string, int) (string, int, bool) {
	return "", 0, false
}

// parseDocstring splits a raw docstring into title, summary and sections
// according to its detected format.
func parseDocstring(raw string) domain.DocInfo {
	format := DetectFormat(raw)
	spec := formats[format]
	cleaned := pysource.CleanDoc(raw)
	lines := strings.Split(cleaned, "\n")

	info := domain.DocInfo{Raw: cleaned, Format: format}

	i := skipBlank(lines, 0)
	if i < len(lines) {
		if _, _, isHeader := spec.header(lines, i); !isHeader {
			info.Title = cleanTitle(lines[i])
			i++
		}
	}
	i = skipBlank(lines, i)

	var summary []string
	for ; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			break
		}
		if _, _, isHeader := spec.header(lines, i); isHeader {
			break
		}
		summary = append(summary, line)
	}
	info.Summary = strings.Join(summary, " ")

	var (
		current *domain.DocSection
		body    []string
	)
	flush := func() {
		if current == nil {
			return
		}
		current.Body = dedent(body)
		info.Sections = append(info.Sections, *current)
		current, body = nil, nil
	}
	for i < len(lines) {
		if name, consumed, ok := spec.header(lines, i); ok {
			flush()
			current = &domain.DocSection{Name: name}
			i += consumed
			continue
		}
		if current != nil {
			body = append(body, lines[i])
		}
		i++
	}
	flush()

	for _, section := range info.Sections {
		if slot, ok := spec.aliases[strings.ToLower(section.Name)]; ok && section.Body != "" {
			info.KeySections.Set(slot, section.Body)
		}
	}
	if info.KeySections.Description == "" {
		info.KeySections.Description = info.Summary
	}
	if info.Title == "" {
		info.Title = fallbackTitle(info)
	}
	return info
}

func fallbackTitle(info domain.DocInfo) string {
	if meta, ok := info.Section("Metadata"); ok {
		if m := metadataTitle.FindStringSubmatch(meta); m != nil {
			return m[1]
		}
	}
	if info.Summary != "" {
		return info.Summary
	}
	for _, section := range info.Sections {
		if line := firstLine(section.Body); line != "" {
			return line
		}
	}
	return ""
}

func cleanTitle(line string) string {
	line = strings.TrimSpace(line)
	line = strings.TrimSpace(strings.TrimPrefix(line, "✒"))
	return line
}

func skipBlank(lines []string, i int) int {
	for i < len(lines) && (strings.TrimSpace(lines[i]) == "" || underline.MatchString(lines[i])) {
		i++
	}
	return i
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}

// dedent removes the common leading whitespace of lines and trims the block.
func dedent(lines []string) string {
	margin := -1
	for _, line := range lines {
		content := strings.TrimLeft(line, " \t")
		if content == "" {
			continue
		}
		if indent := len(line) - len(content); margin < 0 || indent < margin {
			margin = indent
		}
	}
	out := make([]string, len(lines))
	for i, line := range lines {
		if margin > 0 && len(line) >= margin {
			line = line[margin:]
		}
		out[i] = strings.TrimRight(line, " \t")
	}
	return strings.Trim(strings.Join(out, "\n"), "\n")
}
