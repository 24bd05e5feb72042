// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neuron Contributors

//go:generate go run ../../cmd/gen-schema ../../schemas

package manifest

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/pelletier/go-toml/v2"
	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// SchemaID is the $id of the manifest JSON Schema.
const SchemaID = "https://neuron.dev/schemas/manifest.schema.json"

var (
	schemaOnce     sync.Once
	schemaCompiled *jschema.Schema
	schemaErr      error
)

// GenerateSchema generates a JSON Schema for manifest documents.
func GenerateSchema() ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference: true,
	}
	schema := r.Reflect(&document{})

	schema.ID = jsonschema.ID(SchemaID)
	schema.Title = "Neuron Application Manifest"
	schema.Description = "Plugins loaded by the neuron runtime, keyed by manifest name"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.Code("SCHEMA_GENERATE_FAILED").Wrap(err)
	}
	return data, nil
}

// ValidateSchema checks manifest data of the given format against the schema.
// Empty data is a manifest with no plugins.
func ValidateSchema(data []byte, format Format) error {
	var raw any
	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(data, &raw); err != nil {
			return oops.Code("MANIFEST_INVALID").With("format", format).Wrap(err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return oops.Code("MANIFEST_INVALID").With("format", format).Wrap(err)
		}
	default:
		return oops.Code("MANIFEST_FORMAT_UNKNOWN").Errorf("unsupported manifest format %q", format)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	// "plugins:" with no entries decodes as null in YAML.
	if m, ok := raw.(map[string]any); ok {
		if v, present := m[pluginsKey]; present && v == nil {
			delete(m, pluginsKey)
		}
	}

	sch, err := compiledSchema()
	if err != nil {
		return err
	}

	if err := sch.Validate(convertToJSONTypes(raw)); err != nil {
		return oops.Code("MANIFEST_SCHEMA_VIOLATION").With("format", format).Wrap(err)
	}
	return nil
}

func compiledSchema() (*jschema.Schema, error) {
	schemaOnce.Do(func() {
		schemaBytes, err := GenerateSchema()
		if err != nil {
			schemaErr = err
			return
		}

		var schemaData any
		if err := json.Unmarshal(schemaBytes, &schemaData); err != nil {
			schemaErr = oops.Code("SCHEMA_COMPILE_FAILED").Wrap(err)
			return
		}

		c := jschema.NewCompiler()
		if err := c.AddResource("manifest.schema.json", schemaData); err != nil {
			schemaErr = oops.Code("SCHEMA_COMPILE_FAILED").Wrap(err)
			return
		}
		schemaCompiled, schemaErr = c.Compile("manifest.schema.json")
		if schemaErr != nil {
			schemaErr = oops.Code("SCHEMA_COMPILE_FAILED").Wrap(schemaErr)
		}
	})
	return schemaCompiled, schemaErr
}

// convertToJSONTypes normalizes decoded TOML/YAML values to the types the
// validator understands.
func convertToJSONTypes(v any) any {
	switch val := v.(type) {
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, v := range val {
			result[k] = convertToJSONTypes(v)
		}
		return result
	case []any:
		result := make([]any, len(val))
		for i, v := range val {
			result[i] = convertToJSONTypes(v)
		}
		return result
	case string, bool, int, int64, float64, nil:
		return val
	default:
		// TOML dates and other scalars
		if b, err := json.Marshal(val); err == nil {
			var result any
			if err := json.Unmarshal(b, &result); err == nil {
				return result
			}
		}
		return val
	}
}

// FormatSchemaError returns the validator's message without the wrapping prefix.
func FormatSchemaError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if i := strings.Index(msg, "jsonschema validation failed"); i >= 0 {
		msg = msg[i:]
	}
	return msg
}
