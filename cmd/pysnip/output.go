package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
	formatTOML = "toml"
)

func writeFormatted(w io.Writer, format string, value any) error {
	switch format {
	case formatJSON:
		data, err := json.MarshalIndent(value, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(value); err != nil {
			return err
		}
		return enc.Close()
	case formatTOML:
		table, err := tomlTable(value)
		if err != nil {
			return err
		}
		enc := toml.NewEncoder(w)
		enc.SetIndentTables(true)
		return enc.Encode(table)
	default:
		return fmt.Errorf("unsupported format %q (want json, yaml or toml)", format)
	}
}

// tomlTable re-keys value by its JSON field names. TOML documents must be
// tables, so anything else is wrapped under "items".
func tomlTable(value any) (map[string]any, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, err
	}
	generic = integralNumbers(generic)
	if table, ok := generic.(map[string]any); ok {
		return table, nil
	}
	return map[string]any{"items": generic}, nil
}

func integralNumbers(value any) any {
	switch v := value.(type) {
	case map[string]any:
		for key, item := range v {
			if item == nil {
				delete(v, key)
				continue
			}
			v[key] = integralNumbers(item)
		}
		return v
	case []any:
		for i, item := range v {
			v[i] = integralNumbers(item)
		}
		return v
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
			return int64(v)
		}
		return v
	default:
		return v
	}
}

func validateFormat(format string, allowText bool) error {
	switch format {
	case formatJSON, formatYAML, formatTOML:
		return nil
	case formatText:
		if allowText {
			return nil
		}
	}
	return fmt.Errorf("unsupported format %q", format)
}
