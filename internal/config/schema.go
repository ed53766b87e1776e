package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

const schemaURL = "niuniu-load-config.json"

// configSchema describes the shape of the YAML file. Semantic checks, such
// as known profile names, live in Validate.
const configSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "host":      {"type": "string", "minLength": 1},
    "users":     {"type": "integer", "minimum": 1},
    "spawnRate": {"type": "number", "exclusiveMinimum": 0},
    "runTime":   {"type": ["string", "number"]},
    "timeout":   {"type": ["string", "number"]},
    "logLevel":  {"type": "string"},
    "profiles": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "additionalProperties": false,
        "properties": {
          "weight": {"type": "integer", "minimum": 0}
        }
      }
    }
  }
}`

var compiledSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, strings.NewReader(configSchema)); err != nil {
		panic(fmt.Sprintf("config schema: %v", err))
	}
	return compiler.MustCompile(schemaURL)
}

// validateSchema checks raw YAML against the config schema.
func validateSchema(data []byte) error {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if doc == nil {
		// An empty file means "all defaults".
		return nil
	}

	// Round-trip through JSON so the validator sees JSON types only.
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	var instance interface{}
	if err := json.Unmarshal(raw, &instance); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	if err := compiledSchema.Validate(instance); err != nil {
		if ve, ok := err.(*jsonschema.ValidationError); ok {
			return schemaErrors(ve)
		}
		return err
	}
	return nil
}

// schemaErrors flattens a schema validation error into ValidationErrors.
func schemaErrors(err *jsonschema.ValidationError) *ValidationErrors {
	errs := &ValidationErrors{}
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			field := strings.TrimPrefix(e.InstanceLocation, "/")
			errs.Add(strings.ReplaceAll(field, "/", "."), e.Message)
			return
		}
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(err)
	return errs
}
