// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neuron Contributors

// Package abi defines what crosses the boundary between the neuron runtime
// and a dynamically loaded plugin library.
//
// Host and plugin must be compiled against this package; the runtime never
// introspects or frees plugin-constructed memory directly and instead owns an
// opaque Handle with an explicit destroy function.
package abi

import (
	"context"
	"log/slog"
	"sync"
)

// Entry symbol names resolved by the runtime.
const (
	// EntrySymbol is exported by Go plugins built with -buildmode=plugin.
	EntrySymbol = "PluginEntry"
	// CEntrySymbol is exported by C-ABI shared libraries (see neuron_plugin.h).
	CEntrySymbol = "_plugin_entry"
)

// RuntimeInfo is the read-only identity of the host runtime.
type RuntimeInfo interface {
	Name() string
	VersionString() string
}

// CreationContext is handed to the entry symbol once per construction.
// The plugin must not retain the pointer beyond the call.
type CreationContext struct {
	// Handler is the host's log sink. It outlives every plugin.
	Handler slog.Handler
	// Level is the threshold applied on top of Handler. Nil means slog.LevelInfo.
	Level slog.Leveler
}

// Logger returns a logger writing to the host sink at the context's threshold.
// It returns nil if the context carries no handler.
func (cc *CreationContext) Logger() *slog.Logger {
	if cc == nil || cc.Handler == nil {
		return nil
	}
	return slog.New(&levelHandler{handler: cc.Handler, level: cc.level()})
}

func (cc *CreationContext) level() slog.Leveler {
	if cc.Level == nil {
		return slog.LevelInfo
	}
	return cc.Level
}

// LoadingContext is passed to Plugin.Load. It is borrowed for the duration of
// the call.
type LoadingContext struct {
	Runtime    RuntimeInfo
	AssetsPath string
}

// Plugin is the capability object a library returns across the boundary.
type Plugin interface {
	// Load transitions the plugin to the loaded state.
	Load(ctx context.Context, lc *LoadingContext) error
	// Unload transitions the plugin back to the unloaded state.
	Unload(ctx context.Context) error
	// Name returns the plugin's self-reported, stable name.
	Name() string
}

// Destroyer is implemented by plugins that hold resources needing explicit
// release when the runtime drops them.
type Destroyer interface {
	Destroy()
}

// EntryFunc is the signature of the entry symbol.
type EntryFunc func(cc *CreationContext) *Handle

// Handle owns a capability object constructed on the plugin side.
type Handle struct {
	plugin  Plugin
	destroy func()
	once    sync.Once
}

// NewHandle wraps p. destroy runs at most once, from Destroy; it may be nil.
func NewHandle(p Plugin, destroy func()) *Handle {
	return &Handle{plugin: p, destroy: destroy}
}

// Plugin returns the wrapped capability object.
func (h *Handle) Plugin() Plugin {
	if h == nil {
		return nil
	}
	return h.plugin
}

// Destroy releases the capability object through the plugin's own destructor.
func (h *Handle) Destroy() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		if h.destroy != nil {
			h.destroy()
		}
	})
}

// levelHandler drops records below level before they reach the wrapped handler.
type levelHandler struct {
	handler slog.Handler
	level   slog.Leveler
}

func (h *levelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level.Level() && h.handler.Enabled(ctx, level)
}

func (h *levelHandler) Handle(ctx context.Context, r slog.Record) error {
	//nolint:wrapcheck // Handler interface requires unwrapped error passthrough
	return h.handler.Handle(ctx, r)
}

func (h *levelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelHandler{handler: h.handler.WithAttrs(attrs), level: h.level}
}

func (h *levelHandler) WithGroup(name string) slog.Handler {
	return &levelHandler{handler: h.handler.WithGroup(name), level: h.level}
}
