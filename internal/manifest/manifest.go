// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neuron Contributors

// Package manifest models the declared set of plugins and how to locate each
// one's binary.
package manifest

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/oops"
)

// ABI selects how a plugin library is opened.
type ABI string

// Supported ABIs.
const (
	// ABIGo is a Go plugin built with -buildmode=plugin. It is the default.
	ABIGo ABI = "go"
	// ABIC is a plain shared library exporting the C entry symbol.
	ABIC ABI = "c"
)

// Manifest source location.
const (
	PathEnv     = "NEURON_TARGET_APP_MANIFEST"
	DefaultPath = "manifest.toml"
)

// Format identifies the on-disk syntax of a manifest.
type Format string

// Supported manifest formats.
const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// PluginSpecification describes where to find one plugin. Immutable once parsed.
type PluginSpecification struct {
	// BinaryPath lists candidate library paths in priority order.
	BinaryPath []string `json:"binary_path" toml:"binary_path" yaml:"binary_path" jsonschema:"description=Candidate library paths tried in order"`
	// AssetsPath is the plugin's assets directory.
	AssetsPath string `json:"assets_path,omitempty" toml:"assets_path" yaml:"assets_path,omitempty" jsonschema:"description=Assets directory handed to the plugin on load"`
	// ABI selects the loader backend; empty means ABIGo.
	ABI ABI `json:"abi,omitempty" toml:"abi" yaml:"abi,omitempty" jsonschema:"enum=go,enum=c,description=Library ABI (defaults to go)"`
}

// EffectiveABI returns the spec's ABI with the default applied.
func (s PluginSpecification) EffectiveABI() ABI {
	if s.ABI == "" {
		return ABIGo
	}
	return s.ABI
}

// Entry is one manifest declaration.
type Entry struct {
	// Name is the manifest key. It may differ from the plugin's self-reported name.
	Name string
	Spec PluginSpecification
}

// AppPluginsSpecification maps manifest names to specifications and keeps
// their declaration order.
type AppPluginsSpecification struct {
	specs map[string]PluginSpecification
	order []string
}

// New returns an empty AppPluginsSpecification.
func New() *AppPluginsSpecification {
	return &AppPluginsSpecification{specs: make(map[string]PluginSpecification)}
}

// Add declares a plugin. Re-adding a name replaces its spec and keeps its position.
func (a *AppPluginsSpecification) Add(name string, spec PluginSpecification) {
	if a.specs == nil {
		a.specs = make(map[string]PluginSpecification)
	}
	if _, ok := a.specs[name]; !ok {
		a.order = append(a.order, name)
	}
	a.specs[name] = spec
}

// Get returns the spec declared under name.
func (a *AppPluginsSpecification) Get(name string) (PluginSpecification, bool) {
	if a == nil {
		return PluginSpecification{}, false
	}
	spec, ok := a.specs[name]
	return spec, ok
}

// Len returns the number of declared plugins.
func (a *AppPluginsSpecification) Len() int {
	if a == nil {
		return 0
	}
	return len(a.order)
}

// Names returns manifest names in declaration order.
func (a *AppPluginsSpecification) Names() []string {
	if a == nil {
		return nil
	}
	return append([]string(nil), a.order...)
}

// Entries returns declarations in declaration order.
func (a *AppPluginsSpecification) Entries() []Entry {
	if a == nil {
		return nil
	}
	entries := make([]Entry, 0, len(a.order))
	for _, name := range a.order {
		entries = append(entries, Entry{Name: name, Spec: a.specs[name]})
	}
	return entries
}

// ResolvePath returns the manifest path from PathEnv, or DefaultPath.
func ResolvePath() string {
	if p := os.Getenv(PathEnv); p != "" {
		return p
	}
	return DefaultPath
}

// FormatFromPath infers the manifest format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", oops.Code("MANIFEST_FORMAT_UNKNOWN").
			With("path", path).
			Errorf("cannot infer manifest format from %q (want .toml, .yaml or .yml)", path)
	}
}

// Load reads and parses the manifest at path.
func Load(path string) (*AppPluginsSpecification, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path) //nolint:gosec // manifest path is operator-provided
	if err != nil {
		return nil, oops.Code("MANIFEST_READ_FAILED").With("path", path).Wrap(err)
	}
	app, err := Parse(data, format)
	if err != nil {
		return nil, oops.With("path", path).Wrap(err)
	}
	return app, nil
}
