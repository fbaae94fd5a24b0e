package config

import (
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// configSchema is the JSON Schema for the configuration document. It
// covers shape and enumerations; cross-field rules live in validate.
const configSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "host": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "module_dir": {"type": "string"},
        "audit_log": {"type": "string"},
        "abi": {"type": "string"},
        "watch_modules": {"type": "boolean"}
      }
    },
    "filter": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "block_tokens": {"type": "array", "items": {"type": "string", "minLength": 1}},
        "audit_tokens": {"type": "array", "items": {"type": "string", "minLength": 1}}
      }
    },
    "layers": {
      "type": "array",
      "items": {
        "type": "object",
        "additionalProperties": false,
        "required": ["id", "clearance", "features"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "clearance": {"enum": ["public", "controlled", "privileged", "critical"]},
          "features": {
            "type": "array",
            "items": {
              "type": "object",
              "additionalProperties": false,
              "required": ["name", "kind"],
              "properties": {
                "name": {"type": "string", "pattern": "^[a-zA-Z0-9_-]+$"},
                "kind": {"enum": ["module", "sandbox", "builtin"]},
                "guard": {"type": "string"},
                "module": {"type": "string"},
                "symbol": {"type": "string"},
                "shape": {"enum": ["int", "string_int", "two_string_int", "string_out"]},
                "zero_is_failure": {"type": "boolean"},
                "operation": {"type": "string"}
              }
            }
          }
        }
      }
    }
  }
}`

var compiledSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020

	if err := compiler.AddResource("config.json", strings.NewReader(configSchema)); err != nil {
		panic(fmt.Sprintf("add config schema resource: %v", err))
	}
	schema, err := compiler.Compile("config.json")
	if err != nil {
		panic(fmt.Sprintf("compile config schema: %v", err))
	}
	return schema
}

// validateSchema checks the raw document against the embedded schema
// before typed decoding, so shape errors carry a schema path.
func validateSchema(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if doc == nil {
		return fmt.Errorf("config is empty")
	}
	if err := compiledSchema.Validate(doc); err != nil {
		return fmt.Errorf("config schema: %w", err)
	}
	return nil
}
