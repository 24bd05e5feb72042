// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neuron Contributors

package manifest_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/superspeeder/neuron/internal/manifest"
)

func TestGenerateSchema(t *testing.T) {
	data, err := manifest.GenerateSchema()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))

	assert.Equal(t, manifest.SchemaID, schema["$id"])
	assert.Equal(t, "Neuron Application Manifest", schema["title"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok, "schema should have properties")
	assert.Contains(t, props, "plugins")
}

func TestGenerateSchema_BinaryPathRequired(t *testing.T) {
	data, err := manifest.GenerateSchema()
	require.NoError(t, err)

	assert.Contains(t, string(data), `"binary_path"`)
	assert.Contains(t, string(data), `"required"`)
}

func TestValidateSchema_AcceptsBothFormats(t *testing.T) {
	assert.NoError(t, manifest.ValidateSchema([]byte("[plugins.a]\nbinary_path = [\"a.so\"]\n"), manifest.FormatTOML))
	assert.NoError(t, manifest.ValidateSchema([]byte("plugins:\n  a:\n    binary_path: [a.so]\n"), manifest.FormatYAML))
}

func TestValidateSchema_RejectsUnknownField(t *testing.T) {
	err := manifest.ValidateSchema([]byte("plugins:\n  a:\n    binary_paths: [a.so]\n"), manifest.FormatYAML)
	require.Error(t, err)
	assert.NotEmpty(t, manifest.FormatSchemaError(err))
}

func TestFormatSchemaError(t *testing.T) {
	assert.Empty(t, manifest.FormatSchemaError(nil))
	assert.Equal(t, "plain", manifest.FormatSchemaError(errors.New("plain")))
}
