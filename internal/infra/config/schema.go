package config

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"gopkg.in/yaml.v3"
)

const configSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "root": { "type": "string" },
    "name": { "type": "string" },
    "description": { "type": "string" },
    "cache": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "enabled": { "type": "boolean" },
        "path": { "type": "string" }
      }
    },
    "scan": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "watch": { "type": "boolean" },
        "rescanIntervalSeconds": { "type": "integer", "minimum": 0 },
        "scriptExtensions": { "type": "array", "items": { "type": "string" } }
      }
    },
    "execution": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "enabled": { "type": "boolean" },
        "interpreter": { "type": "string" },
        "timeoutSeconds": { "type": "integer", "minimum": 1 },
        "maxOutputBytes": { "type": "integer", "minimum": 1 },
        "cpuSeconds": { "type": "integer", "minimum": 0 },
        "memoryBytes": { "type": "integer", "minimum": 0 },
        "workDir": { "type": "string" },
        "tempDir": { "type": "string" },
        "env": { "type": "object", "additionalProperties": { "type": "string" } },
        "mode": { "enum": ["direct", "sandboxed"] },
        "maxConcurrent": { "type": "integer", "minimum": 1 },
        "prohibited": { "type": "array", "items": { "type": "string" } }
      }
    },
    "sourceView": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "enabled": { "type": "boolean" },
        "highlight": { "type": "boolean" },
        "style": { "type": "string" }
      }
    },
    "server": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "listenAddress": { "type": "string" }
      }
    },
    "observability": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "metrics": { "type": "boolean" },
        "listenAddress": { "type": "string" }
      }
    },
    "ui": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "recentCount": { "type": "integer", "minimum": 0 },
        "featuredCount": { "type": "integer", "minimum": 0 },
        "topCategories": { "type": "integer", "minimum": 0 }
      }
    },
    "logging": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "level": { "enum": ["debug", "info", "warn", "error"] },
        "format": { "enum": ["json", "console"] }
      }
    }
  }
}`

var (
	schemaOnce     sync.Once
	resolvedSchema *jsonschema.Resolved
	schemaErr      error
)

func loadSchema() (*jsonschema.Resolved, error) {
	schemaOnce.Do(func() {
		var schema jsonschema.Schema
		if err := json.Unmarshal([]byte(configSchema), &schema); err != nil {
			schemaErr = fmt.Errorf("decode config schema: %w", err)
			return
		}
		resolvedSchema, schemaErr = schema.Resolve(nil)
	})
	return resolvedSchema, schemaErr
}

// validateConfigSchema checks an expanded YAML document against the config
// schema. Environment overrides are applied later and validated separately.
func validateConfigSchema(expanded string) error {
	var doc any
	if err := yaml.Unmarshal([]byte(expanded), &doc); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if doc == nil {
		return nil
	}
	// Round-trip through JSON so numbers and maps take the shapes the
	// validator expects.
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}

	resolved, err := loadSchema()
	if err != nil {
		return err
	}
	if err := resolved.Validate(instance); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
