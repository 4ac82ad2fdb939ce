package config

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// schemaJSON pins the accepted config shape. Unknown keys are rejected so a
// typo fails loudly instead of silently falling back to a default.
const schemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "defaults": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "strip": {"type": "integer", "minimum": -1},
        "fuzz": {"type": "integer", "minimum": 0},
        "backup": {"type": "boolean"},
        "backup_suffix": {"type": "string", "minLength": 1},
        "remove_empty_files": {"type": "boolean"},
        "reject_format": {"enum": ["", "unified", "context"]}
      }
    },
    "output": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "verbose": {"type": "boolean"},
        "quiet": {"type": "boolean"},
        "debug": {"type": "boolean"}
      }
    }
  }
}`

var (
	configSchemaLoader     gojsonschema.JSONLoader
	configSchemaLoaderErr  error
	configSchemaLoaderOnce sync.Once
)

// Schema returns the config schema as a generic map.
func Schema() (map[string]any, error) {
	var schemaMap map[string]any
	if err := json.Unmarshal([]byte(schemaJSON), &schemaMap); err != nil {
		return nil, err
	}
	return schemaMap, nil
}

func loadConfigSchema() (gojsonschema.JSONLoader, error) {
	configSchemaLoaderOnce.Do(func() {
		schemaMap, err := Schema()
		if err != nil {
			configSchemaLoaderErr = err
			return
		}
		configSchemaLoader = gojsonschema.NewGoLoader(schemaMap)
	})
	if configSchemaLoaderErr != nil {
		return nil, configSchemaLoaderErr
	}
	return configSchemaLoader, nil
}

type schemaValidationError struct {
	issues []string
}

func (e schemaValidationError) Error() string {
	if len(e.issues) == 0 {
		return "config failed schema validation"
	}
	return strings.Join(e.issues, "; ")
}

// validateAgainstSchema checks the raw YAML document against the schema
// before it is decoded into the typed Config.
func validateAgainstSchema(data []byte) error {
	loader, err := loadConfigSchema()
	if err != nil {
		return err
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	if doc == nil {
		return nil
	}

	result, err := gojsonschema.Validate(loader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return err
	}
	if result.Valid() {
		return nil
	}

	issues := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		issues = append(issues, desc.String())
	}
	return schemaValidationError{issues: issues}
}
