// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neuron Contributors

// Package entrygen writes the entry symbol of a Go plugin package.
//
// The generated file declares PluginEntry, which hands the creation context
// and the author's factory to pluginsdk.Entry. Every plugin therefore crosses
// the boundary through the same code.
package entrygen

import (
	"bytes"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/samber/oops"

	"github.com/superspeeder/neuron/pkg/abi"
)

// Defaults applied by Generate.
const (
	DefaultFactory = "New"
	DefaultOutput  = "entry_gen.go"
)

// Config selects the plugin package and factory to generate for.
type Config struct {
	// Dir is the plugin package directory. Empty means ".".
	Dir string
	// Factory names a top-level func(*abi.CreationContext) (P, error).
	Factory string
	// Implementor is logged with factory failures. Empty means the base name of Dir.
	Implementor string
	// Output is the file name written inside Dir.
	Output string
}

func (c Config) withDefaults() (Config, error) {
	if c.Dir == "" {
		c.Dir = "."
	}
	if c.Factory == "" {
		c.Factory = DefaultFactory
	}
	if c.Output == "" {
		c.Output = DefaultOutput
	}
	if filepath.Base(c.Output) != c.Output || !strings.HasSuffix(c.Output, ".go") {
		return c, oops.Code("ENTRYGEN_INVALID_OUTPUT").With("output", c.Output).
			Errorf("output must be a .go file name inside the package directory")
	}
	if !token.IsIdentifier(c.Factory) {
		return c, oops.Code("ENTRYGEN_INVALID_FACTORY").With("factory", c.Factory).
			Errorf("factory %q is not a Go identifier", c.Factory)
	}
	if c.Implementor == "" {
		abs, err := filepath.Abs(c.Dir)
		if err != nil {
			return c, oops.Code("ENTRYGEN_INVALID_DIR").With("dir", c.Dir).Wrap(err)
		}
		c.Implementor = filepath.Base(abs)
	}
	return c, nil
}

var entryTemplate = template.Must(template.New("entry").Parse(`// Code generated by neuron-entrygen. DO NOT EDIT.

package main

import (
	"github.com/superspeeder/neuron/pkg/abi"
	"github.com/superspeeder/neuron/pkg/pluginsdk"
)

// {{.Symbol}} is the entry symbol resolved by the neuron runtime.
func {{.Symbol}}(cc *abi.CreationContext) *abi.Handle {
	return pluginsdk.Entry(cc, {{printf "%q" .Implementor}}, {{.Factory}})
}
`))

// Render checks the package in cfg.Dir and returns the formatted entry file.
func Render(cfg Config) ([]byte, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	if err := checkPackage(cfg); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	err = entryTemplate.Execute(&buf, struct {
		Symbol      string
		Factory     string
		Implementor string
	}{abi.EntrySymbol, cfg.Factory, cfg.Implementor})
	if err != nil {
		return nil, oops.Code("ENTRYGEN_RENDER_FAILED").Wrap(err)
	}

	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, oops.Code("ENTRYGEN_RENDER_FAILED").Wrap(err)
	}
	return src, nil
}

// Generate renders the entry file and writes it to cfg.Output inside cfg.Dir.
// It returns the written path.
func Generate(cfg Config) (string, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return "", err
	}
	src, err := Render(cfg)
	if err != nil {
		return "", err
	}

	path := filepath.Join(cfg.Dir, cfg.Output)
	//nolint:gosec // generated source is world-readable like any other source file
	if err := os.WriteFile(path, src, 0o644); err != nil {
		return "", oops.Code("ENTRYGEN_WRITE_FAILED").With("path", path).Wrap(err)
	}
	return path, nil
}

// checkPackage verifies the package is main, declares the factory with a
// usable signature, and does not already declare the entry symbol.
func checkPackage(cfg Config) error {
	files, err := parsePackage(cfg.Dir, cfg.Output)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return oops.Code("ENTRYGEN_NO_SOURCES").With("dir", cfg.Dir).Errorf("no Go source files in %s", cfg.Dir)
	}

	var factory *ast.FuncDecl
	for name, file := range files {
		if file.Name.Name != "main" {
			return oops.Code("ENTRYGEN_NOT_MAIN").
				With("file", name).
				With("package", file.Name.Name).
				Errorf("plugin packages must be package main")
		}
		for _, decl := range file.Decls {
			if declares(decl, abi.EntrySymbol) {
				return oops.Code("ENTRYGEN_ENTRY_EXISTS").
					With("file", name).
					Errorf("%s is already declared", abi.EntrySymbol)
			}
			if fn, ok := decl.(*ast.FuncDecl); ok && fn.Recv == nil && fn.Name.Name == cfg.Factory {
				factory = fn
			}
		}
	}

	if factory == nil {
		return oops.Code("ENTRYGEN_FACTORY_NOT_FOUND").
			With("factory", cfg.Factory).
			Errorf("no top-level func %s in %s", cfg.Factory, cfg.Dir)
	}
	return checkFactory(factory)
}

func parsePackage(dir, output string) (map[string]*ast.File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, oops.Code("ENTRYGEN_INVALID_DIR").With("dir", dir).Wrap(err)
	}

	fset := token.NewFileSet()
	files := make(map[string]*ast.File)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") || name == output {
			continue
		}
		path := filepath.Join(dir, name)
		file, err := parser.ParseFile(fset, path, nil, parser.SkipObjectResolution)
		if err != nil {
			return nil, oops.Code("ENTRYGEN_PARSE_FAILED").With("file", path).Wrap(err)
		}
		files[path] = file
	}
	return files, nil
}

func declares(decl ast.Decl, ident string) bool {
	switch d := decl.(type) {
	case *ast.FuncDecl:
		return d.Recv == nil && d.Name.Name == ident
	case *ast.GenDecl:
		for _, spec := range d.Specs {
			switch s := spec.(type) {
			case *ast.ValueSpec:
				for _, name := range s.Names {
					if name.Name == ident {
						return true
					}
				}
			case *ast.TypeSpec:
				if s.Name.Name == ident {
					return true
				}
			}
		}
	}
	return false
}

// checkFactory requires func(*abi.CreationContext) (P, error).
func checkFactory(fn *ast.FuncDecl) error {
	sig := fn.Type
	fail := func(reason string) error {
		return oops.Code("ENTRYGEN_FACTORY_SIGNATURE").
			With("factory", fn.Name.Name).
			Errorf("factory %s must be func(*abi.CreationContext) (P, error): %s", fn.Name.Name, reason)
	}

	if sig.TypeParams != nil && sig.TypeParams.NumFields() > 0 {
		return fail("type parameters are not allowed")
	}
	if sig.Params.NumFields() != 1 {
		return fail("want exactly one parameter")
	}
	if !isCreationContextPtr(sig.Params.List[0].Type) {
		return fail("parameter must be *abi.CreationContext")
	}
	if sig.Results.NumFields() != 2 {
		return fail("want exactly two results")
	}
	last := sig.Results.List[len(sig.Results.List)-1].Type
	if ident, ok := last.(*ast.Ident); !ok || ident.Name != "error" {
		return fail("last result must be error")
	}
	return nil
}

func isCreationContextPtr(expr ast.Expr) bool {
	star, ok := expr.(*ast.StarExpr)
	if !ok {
		return false
	}
	sel, ok := star.X.(*ast.SelectorExpr)
	return ok && sel.Sel.Name == "CreationContext"
}
