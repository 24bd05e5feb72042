// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neuron Contributors

package manifest

import (
	"sort"

	"github.com/pelletier/go-toml/v2"
	"github.com/pelletier/go-toml/v2/unstable"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

// pluginsKey is the top-level table holding plugin declarations.
const pluginsKey = "plugins"

// document is the decoded shape of a manifest file.
type document struct {
	Plugins map[string]PluginSpecification `json:"plugins,omitempty" toml:"plugins" yaml:"plugins"`
}

// Parse decodes a manifest and checks it against the manifest schema.
// Only structure is checked: an empty candidate list or an empty plugins
// table is legal.
func Parse(data []byte, format Format) (*AppPluginsSpecification, error) {
	if err := ValidateSchema(data, format); err != nil {
		return nil, err
	}

	switch format {
	case FormatTOML:
		return parseTOML(data)
	case FormatYAML:
		return parseYAML(data)
	default:
		return nil, oops.Code("MANIFEST_FORMAT_UNKNOWN").Errorf("unsupported manifest format %q", format)
	}
}

func parseTOML(data []byte) (*AppPluginsSpecification, error) {
	var doc document
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, oops.Code("MANIFEST_INVALID").With("format", FormatTOML).Wrap(err)
	}

	order, err := tomlDeclarationOrder(data)
	if err != nil {
		return nil, oops.Code("MANIFEST_INVALID").With("format", FormatTOML).Wrap(err)
	}

	return assemble(doc.Plugins, order), nil
}

// tomlDeclarationOrder walks the TOML expressions and returns the plugin names
// in the order they first appear, whether declared as [plugins.x] tables,
// inline tables under [plugins], or dotted keys.
func tomlDeclarationOrder(data []byte) ([]string, error) {
	var (
		p       unstable.Parser
		current []string
		order   []string
		seen    = make(map[string]bool)
	)

	record := func(path []string) {
		if len(path) < 2 || path[0] != pluginsKey || seen[path[1]] {
			return
		}
		seen[path[1]] = true
		order = append(order, path[1])
	}

	p.Reset(data)
	for p.NextExpression() {
		expr := p.Expression()
		switch expr.Kind {
		case unstable.Table, unstable.ArrayTable:
			current = keyParts(expr.Key())
			record(current)
		case unstable.KeyValue:
			path := append(append([]string(nil), current...), keyParts(expr.Key())...)
			record(path)
		}
	}
	if err := p.Error(); err != nil {
		//nolint:wrapcheck // wrapped by caller with manifest context
		return nil, err
	}
	return order, nil
}

func keyParts(it unstable.Iterator) []string {
	var parts []string
	for it.Next() {
		parts = append(parts, string(it.Node().Data))
	}
	return parts
}

func parseYAML(data []byte) (*AppPluginsSpecification, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, oops.Code("MANIFEST_INVALID").With("format", FormatYAML).Wrap(err)
	}

	app := New()
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return app, nil
	}

	top := root.Content[0]
	if top.Kind != yaml.MappingNode {
		return nil, oops.Code("MANIFEST_INVALID").With("format", FormatYAML).Errorf("manifest root must be a mapping")
	}

	for i := 0; i+1 < len(top.Content); i += 2 {
		if top.Content[i].Value != pluginsKey {
			continue
		}
		plugins := top.Content[i+1]
		if plugins.Kind == yaml.ScalarNode && plugins.Tag == "!!null" {
			return app, nil
		}
		if plugins.Kind != yaml.MappingNode {
			return nil, oops.Code("MANIFEST_INVALID").
				With("format", FormatYAML).
				With("line", plugins.Line).
				Errorf("%s must be a mapping of plugin name to specification", pluginsKey)
		}
		for j := 0; j+1 < len(plugins.Content); j += 2 {
			name := plugins.Content[j].Value
			var spec PluginSpecification
			if err := plugins.Content[j+1].Decode(&spec); err != nil {
				return nil, oops.Code("MANIFEST_INVALID").
					With("format", FormatYAML).
					With("plugin", name).
					Wrap(err)
			}
			app.Add(name, spec)
		}
	}

	return app, nil
}

// assemble builds an ordered specification from a decoded map and the
// recovered declaration order. Names missing from order are appended sorted.
func assemble(specs map[string]PluginSpecification, order []string) *AppPluginsSpecification {
	app := New()
	for _, name := range order {
		if spec, ok := specs[name]; ok {
			app.Add(name, spec)
		}
	}

	var rest []string
	for name := range specs {
		if _, ok := app.Get(name); !ok {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	for _, name := range rest {
		app.Add(name, specs[name])
	}
	return app
}
