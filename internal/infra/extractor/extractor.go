// Package extractor recovers documentation and argument schemas from tool
// source text without running it.
package extractor

import (
	"regexp"

	"go.uber.org/zap"

	"pysnip/internal/domain"
	"pysnip/internal/infra/pysource"
)

var leadingDocstring = []*regexp.Regexp{
	regexp.MustCompile(`(?s)\A(?:[ \t]*(?:#[^\n]*)?\r?\n)*[ \t]*([rRuU]?""".*?""")`),
	regexp.MustCompile(`(?s)\A(?:[ \t]*(?:#[^\n]*)?\r?\n)*[ \t]*([rRuU]?'''.*?''')`),
}

// Extractor is safe for concurrent use.
type Extractor struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{logger: logger.Named("extractor")}
}

// ExtractDocumentation parses the tool's docstring. It never fails: source
// without documentation yields an empty result with a fixed summary, and
// unparsable source falls back to a pattern search.
func (e *Extractor) ExtractDocumentation(source string) domain.DocInfo {
	doc, found, parseErr := e.findDocstring(source)
	if !found {
		info := domain.DocInfo{
			Format:  domain.DocFormatSimple,
			Summary: domain.NoDocumentationSummary,
		}
		if parseErr != nil {
			info.Error = parseErr.Error()
		}
		return info
	}
	info := parseDocstring(doc)
	info.Examples = ExtractExamples(source)
	info.Parameters = e.ExtractParameters(source)
	return info
}

// ExtractParameters returns the flags registered with add_argument, trying
// each strategy in order.
func (e *Extractor) ExtractParameters(source string) []domain.ParameterDescriptor {
	for _, strategy := range parameterStrategies {
		params, err := strategy.extract(source)
		if err != nil {
			e.logger.Debug("parameter strategy failed", zap.String("strategy", strategy.name), zap.Error(err))
			continue
		}
		if len(params) > 0 {
			return params
		}
	}
	return nil
}

func (e *Extractor) findDocstring(source string) (string, bool, error) {
	module, err := pysource.Parse(source)
	if err == nil {
		doc, ok := module.FirstDocstring()
		return doc, ok, nil
	}
	e.logger.Debug("structural parse failed, using pattern fallback", zap.Error(err))
	for _, re := range leadingDocstring {
		if m := re.FindStringSubmatch(source); m != nil {
			doc, _ := pysource.DecodeString(m[1])
			return doc, true, nil
		}
	}
	return "", false, err
}
