package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// fileSchema describes config.yaml. Unknown keys are rejected so a typo
// does not silently fall back to a default.
const fileSchema = `{
  "type": "object",
  "additionalProperties": false,
  "definitions": {
    "duration": {"type": "string", "pattern": "^-?[0-9.]+(ns|us|µs|ms|s|m|h)([0-9.]+(ns|us|µs|ms|s|m|h))*$"},
    "strings": {"type": "array", "items": {"type": "string"}}
  },
  "properties": {
    "offline": {"type": "object", "additionalProperties": false, "properties": {
      "model": {"type": "string"},
      "base_url": {"type": "string"},
      "max_tokens": {"type": "integer", "minimum": 1},
      "pull": {"type": "boolean"}
    }},
    "cloud": {"type": "object", "additionalProperties": false, "properties": {
      "type": {"enum": ["openai", "anthropic", "google"]},
      "base_url": {"type": "string"},
      "model": {"type": "string"},
      "max_tokens": {"type": "integer", "minimum": 1},
      "api_keys": {"$ref": "#/definitions/strings"}
    }},
    "memory": {"type": "object", "additionalProperties": false, "properties": {
      "backend": {"enum": ["json", "sqlite"]},
      "path": {"type": "string"},
      "top_k": {"type": "integer", "minimum": 1}
    }},
    "weather": {"type": "object", "additionalProperties": false, "properties": {
      "api_key": {"type": "string"},
      "api_url": {"type": "string"},
      "locate_url": {"type": "string"}
    }},
    "wiki": {"type": "object", "additionalProperties": false, "properties": {
      "api_url": {"type": "string"},
      "summary_len": {"type": "integer", "minimum": 1}
    }},
    "crawler": {"type": "object", "additionalProperties": false, "properties": {
      "render": {"type": "boolean"},
      "max_words": {"type": "integer", "minimum": 1},
      "concurrency": {"type": "integer", "minimum": 1}
    }},
    "voice": {"type": "object", "additionalProperties": false, "properties": {
      "listen_timeout": {"$ref": "#/definitions/duration"},
      "tts_command": {"oneOf": [{"type": "string"}, {"$ref": "#/definitions/strings"}]},
      "markdown": {"type": "boolean"}
    }},
    "session": {"type": "object", "additionalProperties": false, "properties": {
      "user_id": {"type": "string"},
      "learning": {"type": "boolean"},
      "extract_interval": {"$ref": "#/definitions/duration"},
      "request_timeout": {"$ref": "#/definitions/duration"},
      "archive_dir": {"type": "string"},
      "apology": {"type": "string"}
    }},
    "log": {"type": "object", "additionalProperties": false, "properties": {
      "level": {"enum": ["debug", "info", "warn", "warning", "error"]},
      "json": {"type": "boolean"}
    }}
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *gojsonschema.Schema
	schemaErr      error
)

// validateFile checks a config.yaml against fileSchema.
func validateFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	if doc == nil {
		return nil
	}
	docJSON, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("config: %s: %w", path, err)
	}

	schemaOnce.Do(func() {
		compiledSchema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(fileSchema))
	})
	if schemaErr != nil {
		return fmt.Errorf("config: invalid schema definition: %w", schemaErr)
	}

	result, err := compiledSchema.Validate(gojsonschema.NewBytesLoader(docJSON))
	if err != nil {
		return fmt.Errorf("config: validate %s: %w", path, err)
	}
	if result.Valid() {
		return nil
	}
	var errs []string
	for _, desc := range result.Errors() {
		errs = append(errs, desc.String())
	}
	return fmt.Errorf("config: %s does not match the schema:\n- %s", path, dumpErrors(errs))
}

// dumpErrors keeps the first three messages.
func dumpErrors(errs []string) string {
	if len(errs) > 3 {
		more := len(errs) - 3
		return strings.Join(errs[:3], "\n- ") + fmt.Sprintf("\n... and %d more", more)
	}
	return strings.Join(errs, "\n- ")
}
