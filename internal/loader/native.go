// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neuron Contributors

//go:build cgo && (linux || darwin || freebsd)

package loader

import (
	"fmt"
	"plugin"
	"sync"

	"github.com/samber/oops"

	"github.com/superspeeder/neuron/pkg/abi"
)

// NativeOpener opens Go plugins built with -buildmode=plugin.
type NativeOpener struct{}

// Open loads the Go plugin at path.
func (NativeOpener) Open(path string) (Library, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, oops.In("loader").With("path", path).With("abi", "go").
			Wrap(fmt.Errorf("%w: %w", ErrOpenFailed, err))
	}
	return &nativeLibrary{path: path, plugin: p}, nil
}

// nativeLibrary wraps a Go plugin. The Go runtime cannot unload plugins, so
// Close only stops further symbol resolution.
type nativeLibrary struct {
	path   string
	plugin *plugin.Plugin

	mu     sync.Mutex
	closed bool
}

func (l *nativeLibrary) Path() string { return l.path }

func (l *nativeLibrary) Entry() (abi.EntryFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, oops.In("loader").With("path", l.path).Wrap(ErrLibraryClosed)
	}

	sym, err := l.plugin.Lookup(abi.EntrySymbol)
	if err != nil {
		return nil, oops.In("loader").With("path", l.path).With("symbol", abi.EntrySymbol).
			Wrap(fmt.Errorf("%w: %w", ErrSymbolNotFound, err))
	}
	entry, err := asEntryFunc(sym)
	if err != nil {
		return nil, oops.In("loader").With("path", l.path).Wrap(err)
	}
	return entry, nil
}

func (l *nativeLibrary) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}
