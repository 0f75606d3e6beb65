package executor

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// BuildArgs returns the argument vector for a run. Parameters are emitted in
// sorted key order; keys without a dash prefix become long flags.
func BuildArgs(interpreter, script string, params map[string]any) []string {
	args := []string{interpreter, script}
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		flag := FlagName(key)
		if flag == "" {
			continue
		}
		switch value := params[key].(type) {
		case bool:
			if value {
				args = append(args, flag)
			}
		case []any:
			items := listValues(value)
			if len(items) > 0 {
				args = append(args, flag)
				args = append(args, items...)
			}
		case []string:
			items := listValues(toAny(value))
			if len(items) > 0 {
				args = append(args, flag)
				args = append(args, items...)
			}
		default:
			if text, ok := FormatValue(value); ok {
				args = append(args, flag, text)
			}
		}
	}
	return args
}

// FlagName normalizes a parameter key into a command-line flag.
func FlagName(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	if strings.HasPrefix(key, "-") {
		return key
	}
	return "--" + key
}

// FormatValue renders a scalar parameter. The boolean is false when the value
// produces no argument.
func FormatValue(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case string:
		return v, v != ""
	case bool:
		if !v {
			return "", false
		}
		return "true", true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), true
	case fmt.Stringer:
		text := v.String()
		return text, text != ""
	default:
		text := fmt.Sprint(v)
		return text, text != ""
	}
}

func listValues(items []any) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if text, ok := FormatValue(item); ok {
			out = append(out, text)
		}
	}
	return out
}

func toAny(items []string) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}

// CommandLine renders args for display, quoting arguments that need it.
func CommandLine(args []string) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		if arg == "" || strings.ContainsAny(arg, " \t\n\"'\\$`") {
			parts[i] = strconv.Quote(arg)
			continue
		}
		parts[i] = arg
	}
	return strings.Join(parts, " ")
}
