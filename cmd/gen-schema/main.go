// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neuron Contributors

// Command gen-schema writes the manifest JSON Schema, by default to
// schemas/manifest.schema.json. Run it through go generate in
// internal/manifest.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/samber/oops"

	"github.com/superspeeder/neuron/internal/manifest"
)

const schemaFile = "manifest.schema.json"

func main() {
	outDir := "schemas"
	if len(os.Args) > 1 {
		outDir = os.Args[1]
	}

	outPath, err := writeSchema(outDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generated %s\n", outPath)
}

// writeSchema generates the schema into outDir and returns the file path.
func writeSchema(outDir string) (string, error) {
	schema, err := manifest.GenerateSchema()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return "", oops.Code("SCHEMA_WRITE_FAILED").With("dir", outDir).Wrap(err)
	}

	outPath := filepath.Join(outDir, schemaFile)
	if err := os.WriteFile(outPath, append(schema, '\n'), 0o600); err != nil {
		return "", oops.Code("SCHEMA_WRITE_FAILED").With("path", outPath).Wrap(err)
	}
	return outPath, nil
}
