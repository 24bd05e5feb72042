// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neuron Contributors

package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/superspeeder/neuron/internal/loader"
	"github.com/superspeeder/neuron/internal/manifest"
	neuronrt "github.com/superspeeder/neuron/internal/runtime"
	"github.com/superspeeder/neuron/pkg/abi"
)

// stubPlugin counts lifecycle calls.
type stubPlugin struct {
	name    string
	loadErr error

	mu        sync.Mutex
	loads     int
	unloads   int
	destroyed bool
}

func (p *stubPlugin) Name() string { return p.name }

func (p *stubPlugin) Load(context.Context, *abi.LoadingContext) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loads++
	return p.loadErr
}

func (p *stubPlugin) Unload(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unloads++
	return nil
}

func (p *stubPlugin) snapshot() (loads, unloads int, destroyed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loads, p.unloads, p.destroyed
}

// stubLibrary serves one stubPlugin.
type stubLibrary struct {
	path   string
	plugin *stubPlugin

	mu     sync.Mutex
	closed bool
}

func (l *stubLibrary) Path() string { return l.path }

func (l *stubLibrary) Entry() (abi.EntryFunc, error) {
	return func(*abi.CreationContext) *abi.Handle {
		return abi.NewHandle(l.plugin, func() {
			l.plugin.mu.Lock()
			l.plugin.destroyed = true
			l.plugin.mu.Unlock()
		})
	}, nil
}

func (l *stubLibrary) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

func (l *stubLibrary) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// stubOpener maps library paths to stubLibraries.
type stubOpener map[string]*stubLibrary

func (o stubOpener) Open(path string) (loader.Library, error) {
	lib, ok := o[path]
	if !ok {
		return nil, errors.New("not a shared object")
	}
	return lib, nil
}

func (o stubOpener) option() neuronrt.Option {
	return neuronrt.WithOpeners(loader.Openers{manifest.ABIGo: o, manifest.ABIC: o})
}

// fixture is a manifest on disk whose libraries are served by a stubOpener.
type fixture struct {
	manifest string
	opener   stubOpener
}

// newFixture writes a TOML manifest declaring plugins in order. Each plugin's
// library is an empty file in a temp dir.
func newFixture(t *testing.T, plugins ...*stubPlugin) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		manifest: filepath.Join(dir, "manifest.toml"),
		opener:   stubOpener{},
	}

	var b strings.Builder
	for _, p := range plugins {
		lib := filepath.Join(dir, "lib"+p.name+".so")
		require.NoError(t, os.WriteFile(lib, nil, 0o600))
		f.opener[lib] = &stubLibrary{path: lib, plugin: p}
		b.WriteString("[plugins." + p.name + "]\n")
		b.WriteString("binary_path = [\"" + filepath.ToSlash(lib) + "\"]\n\n")
	}
	require.NoError(t, os.WriteFile(f.manifest, []byte(b.String()), 0o600))
	return f
}

// testApp returns resolved CLI state writing logs to logs.
func testApp(manifestPath string, logs *bytes.Buffer) *app {
	return &app{
		cfg: &config{
			Manifest:  manifestPath,
			LogFormat: defaultLogFormat,
			LogLevel:  defaultLogLevel,
			Once:      true,
		},
		level:  slog.LevelDebug,
		logger: slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
	}
}

// testCmd returns a command capturing stdout.
func testCmd(out *bytes.Buffer) *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	return cmd
}

// isolateConfig keeps the host's config file, .env and manifest env var out
// of a test.
func isolateConfig(t *testing.T) string {
	t.Helper()
	xdgHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdgHome)
	t.Setenv(manifest.PathEnv, "")
	t.Chdir(t.TempDir())
	return xdgHome
}
