package extractor

import (
	"regexp"
	"strings"

	"pysnip/internal/domain"
	"pysnip/internal/infra/pysource"
)

const (
	argumentMethod = "add_argument"
	defaultType    = "str"

	windowBefore = 50
	windowAfter  = 150
)

// parameterStrategy is one way of recovering a tool's flags. Strategies run
// in order and the first non-empty result wins.
type parameterStrategy struct {
	name    string
	extract func(source string) ([]domain.ParameterDescriptor, error)
}

var parameterStrategies = []parameterStrategy{
	{name: "structural", extract: structuralParameters},
	{name: "pattern", extract: patternParameters},
}

func structuralParameters(source string) ([]domain.ParameterDescriptor, error) {
	module, err := pysource.Parse(source)
	if err != nil {
		return nil, err
	}
	var params []domain.ParameterDescriptor
	for _, call := range module.MethodCalls(argumentMethod) {
		param, ok := descriptorFromCall(call)
		if ok {
			params = append(params, param)
		}
	}
	return params, nil
}

func descriptorFromCall(call pysource.Call) (domain.ParameterDescriptor, bool) {
	positional := call.Positional()
	if len(positional) == 0 {
		return domain.ParameterDescriptor{}, false
	}
	flag, ok := positional[0].Literal()
	if !ok || flag.Kind != pysource.LiteralString || !isFlag(flag.Value) {
		return domain.ParameterDescriptor{}, false
	}

	param := domain.ParameterDescriptor{
		Name:      flag.Value,
		CleanName: strings.TrimLeft(flag.Value, "-"),
		Type:      defaultType,
	}
	for _, alias := range positional[1:] {
		if lit, ok := alias.Literal(); ok && lit.Kind == pysource.LiteralString && isFlag(lit.Value) {
			param.Aliases = append(param.Aliases, lit.Value)
		}
	}
	if arg, ok := call.Keyword("help"); ok {
		if lit, ok := arg.Literal(); ok && lit.Kind == pysource.LiteralString {
			param.Help = lit.Value
		}
	}
	if arg, ok := call.Keyword("type"); ok && len(arg.Value) > 0 {
		param.Type = arg.Text()
	}
	if arg, ok := call.Keyword("default"); ok {
		if lit, ok := arg.Literal(); ok && lit.Kind != pysource.LiteralNone {
			value := lit.String()
			param.Default = &value
		}
	}
	if arg, ok := call.Keyword("choices"); ok {
		if lit, ok := arg.Literal(); ok && lit.Kind == pysource.LiteralList {
			param.Choices = lit.Strings()
		}
	}
	if arg, ok := call.Keyword("required"); ok {
		if lit, ok := arg.Literal(); ok && lit.Kind == pysource.LiteralBool {
			param.Required = lit.Value == "True"
		}
	}
	if arg, ok := call.Keyword("action"); ok {
		if lit, ok := arg.Literal(); ok && lit.Kind == pysource.LiteralString {
			applyAction(&param, lit.Value)
		}
	}
	return param, true
}

var (
	argumentCall   = regexp.MustCompile(`\.add_argument\(\s*['"](-{1,2}[A-Za-z0-9_-]+)['"]`)
	helpPattern    = regexp.MustCompile(`help\s*=\s*(?:"([^"]*)"|'([^']*)')`)
	typePattern    = regexp.MustCompile(`type\s*=\s*([A-Za-z_][A-Za-z0-9_.]*)`)
	defaultPattern = regexp.MustCompile(`default\s*=\s*("[^"]*"|'[^']*'|[A-Za-z0-9_.+-]+)`)
	choicesPattern = regexp.MustCompile(`choices\s*=\s*[\[(]([^\])]*)[\])]`)
	requiredPat    = regexp.MustCompile(`required\s*=\s*(True|False)`)
	actionPattern  = regexp.MustCompile(`action\s*=\s*['"]([a-z_]+)['"]`)
)

// patternParameters scans raw text for add_argument calls and reads keyword
// values from a bounded window around each match. A window starts no earlier
// than the line of its call and stops before the next match.
func patternParameters(source string) ([]domain.ParameterDescriptor, error) {
	matches := argumentCall.FindAllStringSubmatchIndex(source, -1)
	params := make([]domain.ParameterDescriptor, 0, len(matches))
	for i, m := range matches {
		start := max(0, m[0]-windowBefore, strings.LastIndexByte(source[:m[0]], '\n')+1)
		if i > 0 {
			start = max(start, matches[i-1][1])
		}
		end := min(len(source), m[1]+windowAfter)
		if i+1 < len(matches) {
			end = min(end, matches[i+1][0])
		}
		window := source[start:end]
		name := source[m[2]:m[3]]

		param := domain.ParameterDescriptor{
			Name:      name,
			CleanName: strings.TrimLeft(name, "-"),
			Type:      defaultType,
		}
		if h := helpPattern.FindStringSubmatch(window); h != nil {
			param.Help = h[1] + h[2]
		}
		if t := typePattern.FindStringSubmatch(window); t != nil {
			param.Type = t[1]
		}
		if d := defaultPattern.FindStringSubmatch(window); d != nil && d[1] != "None" {
			value := unquote(d[1])
			param.Default = &value
		}
		if c := choicesPattern.FindStringSubmatch(window); c != nil {
			param.Choices = splitChoices(c[1])
		}
		if r := requiredPat.FindStringSubmatch(window); r != nil {
			param.Required = r[1] == "True"
		}
		if a := actionPattern.FindStringSubmatch(window); a != nil {
			applyAction(&param, a[1])
		}
		params = append(params, param)
	}
	return params, nil
}

// applyAction maps argparse's boolean actions onto a bool flag.
func applyAction(param *domain.ParameterDescriptor, action string) {
	var implicit string
	switch action {
	case "store_true":
		implicit = "False"
	case "store_false":
		implicit = "True"
	default:
		return
	}
	param.Type = "bool"
	if param.Default == nil {
		param.Default = &implicit
	}
}

func isFlag(name string) bool {
	return strings.HasPrefix(name, "-") && strings.TrimLeft(name, "-") != "" && len(name)-len(strings.TrimLeft(name, "-")) <= 2
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

func splitChoices(list string) []string {
	var choices []string
	for _, part := range strings.Split(list, ",") {
		part = unquote(strings.TrimSpace(part))
		if part != "" {
			choices = append(choices, part)
		}
	}
	return choices
}
