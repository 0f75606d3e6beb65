package explorer

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"pysnip/internal/domain"
)

// ParameterSchema describes a tool's parameters as a JSON Schema object.
func (s *Service) ParameterSchema(toolPath string) (*jsonschema.Schema, error) {
	params, err := s.ExtractParameters(toolPath)
	if err != nil {
		return nil, err
	}
	return BuildParameterSchema(params), nil
}

// BuildParameterSchema maps extracted parameters onto an object schema keyed
// by clean parameter name. Values that do not parse as the declared type
// stay strings.
func BuildParameterSchema(params []domain.ParameterDescriptor) *jsonschema.Schema {
	schema := &jsonschema.Schema{
		Type:       "object",
		Properties: make(map[string]*jsonschema.Schema, len(params)),
	}
	for _, param := range params {
		name := param.CleanName
		if name == "" {
			name = strings.TrimLeft(param.Name, "-")
		}
		if name == "" {
			continue
		}
		prop := &jsonschema.Schema{
			Type:        schemaType(param.Type),
			Title:       param.Name,
			Description: param.Help,
		}
		if param.Default != nil {
			if raw, err := json.Marshal(typedValue(param.Type, *param.Default)); err == nil {
				prop.Default = raw
			}
		}
		for _, choice := range param.Choices {
			prop.Enum = append(prop.Enum, typedValue(param.Type, choice))
		}
		schema.Properties[name] = prop
		if param.Required {
			schema.Required = append(schema.Required, name)
		}
	}
	return schema
}

func schemaType(paramType string) string {
	switch paramType {
	case "int":
		return "integer"
	case "float":
		return "number"
	case "bool":
		return "boolean"
	default:
		return "string"
	}
}

func typedValue(paramType, text string) any {
	switch paramType {
	case "int":
		if v, err := strconv.ParseInt(text, 10, 64); err == nil {
			return v
		}
	case "float":
		if v, err := strconv.ParseFloat(text, 64); err == nil {
			return v
		}
	case "bool":
		switch strings.ToLower(text) {
		case "true":
			return true
		case "false":
			return false
		}
	}
	return text
}
