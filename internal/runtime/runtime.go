// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neuron Contributors

// Package runtime is the registry and lifecycle engine for dynamically
// loaded plugins.
//
// A Runtime resolves each plugin's library from its candidate paths, calls
// the library's entry symbol to construct a capability object, and registers
// it under the plugin's self-reported name. Registered plugins move between
// the Unloaded and Loaded states through Load and Unload. The Runtime owns
// every library it opened and every handle it received; Close releases them
// in an order that never runs plugin code from an unmapped library.
package runtime

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/superspeeder/neuron/internal/loader"
	"github.com/superspeeder/neuron/internal/manifest"
	"github.com/superspeeder/neuron/pkg/abi"
	"github.com/superspeeder/neuron/pkg/errutil"
)

// RuntimeName is the runtime's self-reported name.
const RuntimeName = "neuron-rt"

// Version is the runtime version handed to plugins. Set at build time with
// -ldflags "-X github.com/superspeeder/neuron/internal/runtime.Version=...".
var Version = "0.1.0"

const devVersion = "0.0.0-dev"

// State is the lifecycle state of a registered plugin.
type State int

// Plugin states. Every plugin starts Unloaded.
const (
	Unloaded State = iota
	Loaded
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loaded:
		return "loaded"
	default:
		return "unknown"
	}
}

// EntryInfo describes a registered plugin.
type EntryInfo struct {
	Name       string
	Path       string
	ABI        manifest.ABI
	AssetsPath string
	State      State
}

// entry is one registered plugin. mu is held across calls into the plugin so
// a capability object is never re-entered.
type entry struct {
	name    string
	path    string
	spec    manifest.PluginSpecification
	lib     loader.Library
	handle  *abi.Handle
	plugin  abi.Plugin
	loaded  atomic.Bool
	mu      sync.Mutex
	removed bool
}

func (e *entry) info() EntryInfo {
	state := Unloaded
	if e.loaded.Load() {
		state = Loaded
	}
	return EntryInfo{
		Name:       e.name,
		Path:       e.path,
		ABI:        e.spec.EffectiveABI(),
		AssetsPath: e.spec.AssetsPath,
		State:      state,
	}
}

// Runtime owns the plugin registry.
type Runtime struct {
	logger  *slog.Logger
	level   slog.Leveler
	openers loader.Openers
	metrics MetricsRecorder
	tracer  trace.Tracer

	mu      sync.RWMutex
	entries map[string]*entry
	order   []string
	closed  bool
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the host logger. Its handler is also the log sink handed to plugins.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithLogLevel sets the threshold plugins apply to their logger.
func WithLogLevel(level slog.Leveler) Option {
	return func(r *Runtime) {
		if level != nil {
			r.level = level
		}
	}
}

// WithOpeners replaces the loader backends.
func WithOpeners(openers loader.Openers) Option {
	return func(r *Runtime) {
		r.openers = openers
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(r *Runtime) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithTracer sets the tracer used for runtime spans.
func WithTracer(t trace.Tracer) Option {
	return func(r *Runtime) {
		if t != nil {
			r.tracer = t
		}
	}
}

// New creates an empty runtime.
func New(opts ...Option) *Runtime {
	r := &Runtime{
		logger:  slog.Default(),
		level:   slog.LevelInfo,
		openers: loader.DefaultOpeners(),
		metrics: noopMetrics{},
		tracer:  otel.Tracer("neuron/runtime"),
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ abi.RuntimeInfo = (*Runtime)(nil)

// Name returns RuntimeName.
func (r *Runtime) Name() string {
	return RuntimeName
}

// VersionString returns Version, or a development version when the build
// left it blank. It is never empty.
func VersionString() string {
	if Version == "" {
		return devVersion
	}
	return Version
}

// VersionString returns the runtime version handed to plugins.
func (r *Runtime) VersionString() string {
	return VersionString()
}

// Construct opens the first existing candidate library of spec, creates its
// plugin and registers it Unloaded under the plugin's self-reported name,
// which is returned. On failure the registry is unchanged and anything
// acquired for this call has been released.
func (r *Runtime) Construct(ctx context.Context, spec manifest.PluginSpecification) (name string, err error) {
	_, span := r.tracer.Start(ctx, "runtime.construct",
		trace.WithAttributes(attribute.String("plugin.abi", string(spec.EffectiveABI()))))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			r.metrics.ConstructFailed(errutil.Code(err))
		}
		span.End()
	}()

	if r.isClosed() {
		return "", oops.Code(CodeRuntimeClosed).In("runtime").Wrap(ErrRuntimeClosed)
	}

	path, err := loader.ResolvePath(spec.BinaryPath)
	if err != nil {
		return "", oops.Code(CodeNoValidLibraryPath).In("runtime").
			With("candidates", spec.BinaryPath).
			Wrap(err)
	}
	span.SetAttributes(attribute.String("plugin.path", path))

	opener, err := r.openers.For(spec.EffectiveABI())
	if err != nil {
		return "", oops.Code(CodeLibraryLoading).In("runtime").
			With("path", path).
			Wrap(withSentinel(ErrLibraryLoading, err))
	}

	lib, err := opener.Open(path)
	if err != nil {
		return "", oops.Code(CodeLibraryLoading).In("runtime").
			With("path", path).
			Wrap(withSentinel(ErrLibraryLoading, err))
	}

	entryFn, err := lib.Entry()
	if err != nil {
		r.closeLibrary(lib)
		return "", oops.Code(CodeLibraryLoading).In("runtime").
			With("path", path).
			Wrap(withSentinel(ErrLibraryLoading, err))
	}

	handle := entryFn(&abi.CreationContext{Handler: r.logger.Handler(), Level: r.level})
	p := handle.Plugin()
	if p == nil {
		handle.Destroy()
		r.closeLibrary(lib)
		return "", oops.Code(CodePluginCreation).In("runtime").
			With("path", path).
			Wrapf(ErrPluginCreation, "entry symbol returned no plugin")
	}

	name = p.Name()
	if name == "" {
		handle.Destroy()
		r.closeLibrary(lib)
		return "", oops.Code(CodePluginCreation).In("runtime").
			With("path", path).
			Wrapf(ErrPluginCreation, "plugin reported an empty name")
	}
	span.SetAttributes(attribute.String("plugin.name", name))

	e := &entry{
		name:   name,
		path:   path,
		spec:   spec,
		lib:    lib,
		handle: handle,
		plugin: p,
	}
	if err := r.register(e); err != nil {
		handle.Destroy()
		r.closeLibrary(lib)
		return "", err
	}

	r.metrics.PluginConstructed(name)
	r.logger.Info("plugin constructed",
		"plugin", name,
		"path", path,
		"abi", spec.EffectiveABI())
	return name, nil
}

func (r *Runtime) register(e *entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return oops.Code(CodeRuntimeClosed).In("runtime").With("plugin", e.name).Wrap(ErrRuntimeClosed)
	}
	if existing, ok := r.entries[e.name]; ok {
		return oops.Code(CodePluginAlreadyRegistered).In("runtime").
			With("plugin", e.name).
			With("path", e.path).
			With("registered_path", existing.path).
			Wrap(ErrPluginAlreadyRegistered)
	}
	r.entries[e.name] = e
	r.order = append(r.order, e.name)
	return nil
}

func (r *Runtime) closeLibrary(lib loader.Library) {
	if err := lib.Close(); err != nil {
		errutil.LogError(r.logger, "failed to close library", err, "path", lib.Path())
	}
}

// ConstructAll constructs every manifest entry in declaration order and stops
// at the first failure. Plugins constructed before the failure stay
// registered; a caller that wants the manifest loaded all-or-nothing must
// Close the runtime when ConstructAll returns an error.
func (r *Runtime) ConstructAll(ctx context.Context, app *manifest.AppPluginsSpecification) error {
	for _, decl := range app.Entries() {
		name, err := r.Construct(ctx, decl.Spec)
		if err != nil {
			return oops.In("runtime").With("manifest_name", decl.Name).Wrap(err)
		}
		r.logger.Debug("manifest entry constructed", "manifest_name", decl.Name, "plugin", name)
	}
	return nil
}

func (r *Runtime) lookupEntry(name string) *entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[name]
}

// Load moves the named plugin to Loaded. It reports false with a nil error
// for an unknown name and true without calling the plugin if it is already
// Loaded. A failing plugin stays Unloaded.
func (r *Runtime) Load(ctx context.Context, name string) (ok bool, err error) {
	ctx, span := r.tracer.Start(ctx, "runtime.load",
		trace.WithAttributes(attribute.String("plugin.name", name)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	e := r.lookupEntry(name)
	if e == nil {
		return false, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return false, nil
	}
	if e.loaded.Load() {
		r.metrics.Transition(TransitionLoad, ResultSkipped)
		return true, nil
	}

	lc := &abi.LoadingContext{Runtime: r, AssetsPath: e.spec.AssetsPath}
	if err := e.plugin.Load(ctx, lc); err != nil {
		r.metrics.Transition(TransitionLoad, ResultFailure)
		return false, oops.Code(CodePluginLoad).In("runtime").
			With("plugin", name).
			Wrap(withSentinel(ErrPluginLoad, err))
	}

	e.loaded.Store(true)
	r.metrics.Transition(TransitionLoad, ResultSuccess)
	r.metrics.SetLoaded(r.loadedCount())
	r.logger.Info("plugin loaded", "plugin", name)
	return true, nil
}

// Unload moves the named plugin to Unloaded. It reports false with a nil
// error for an unknown name and true without calling the plugin if it is
// already Unloaded. A failing plugin stays Loaded.
func (r *Runtime) Unload(ctx context.Context, name string) (ok bool, err error) {
	ctx, span := r.tracer.Start(ctx, "runtime.unload",
		trace.WithAttributes(attribute.String("plugin.name", name)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	e := r.lookupEntry(name)
	if e == nil {
		return false, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return false, nil
	}
	if !e.loaded.Load() {
		r.metrics.Transition(TransitionUnload, ResultSkipped)
		return true, nil
	}

	if err := e.plugin.Unload(ctx); err != nil {
		r.metrics.Transition(TransitionUnload, ResultFailure)
		return false, oops.Code(CodePluginUnload).In("runtime").
			With("plugin", name).
			Wrap(withSentinel(ErrPluginUnload, err))
	}

	e.loaded.Store(false)
	r.metrics.Transition(TransitionUnload, ResultSuccess)
	r.metrics.SetLoaded(r.loadedCount())
	r.logger.Info("plugin unloaded", "plugin", name)
	return true, nil
}

// LoadAll loads every Unloaded plugin in construction order. Every plugin is
// attempted; failures are joined.
func (r *Runtime) LoadAll(ctx context.Context) error {
	var errs []error
	for _, name := range r.Names() {
		if _, err := r.Load(ctx, name); err != nil {
			errutil.LogError(r.logger, "failed to load plugin", err, "plugin", name)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// UnloadAll unloads every Loaded plugin in reverse construction order. Every
// plugin is attempted; failures are joined.
func (r *Runtime) UnloadAll(ctx context.Context) error {
	names := r.Names()
	slices.Reverse(names)

	var errs []error
	for _, name := range names {
		if _, err := r.Unload(ctx, name); err != nil {
			errutil.LogError(r.logger, "failed to unload plugin", err, "plugin", name)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Lookup returns the capability object registered under name.
func (r *Runtime) Lookup(name string) (abi.Plugin, bool) {
	e := r.lookupEntry(name)
	if e == nil {
		return nil, false
	}
	return e.plugin, true
}

// State returns the lifecycle state of the named plugin.
func (r *Runtime) State(name string) (State, bool) {
	e := r.lookupEntry(name)
	if e == nil {
		return Unloaded, false
	}
	return e.info().State, true
}

// Entry describes the named plugin.
func (r *Runtime) Entry(name string) (EntryInfo, bool) {
	e := r.lookupEntry(name)
	if e == nil {
		return EntryInfo{}, false
	}
	return e.info(), true
}

// Names returns registered plugin names in construction order.
func (r *Runtime) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// Len returns the number of registered plugins.
func (r *Runtime) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

func (r *Runtime) loadedCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, e := range r.entries {
		if e.loaded.Load() {
			n++
		}
	}
	return n
}

func (r *Runtime) isClosed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}

// Close unloads every Loaded plugin in reverse construction order, then for
// each plugin destroys its handle before closing its library. The registry
// is left empty and further Construct calls fail. Close is idempotent.
func (r *Runtime) Close(ctx context.Context) error {
	ctx, span := r.tracer.Start(ctx, "runtime.close")
	defer span.End()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	detached := make([]*entry, 0, len(r.order))
	for _, name := range r.order {
		detached = append(detached, r.entries[name])
	}
	r.entries = make(map[string]*entry)
	r.order = nil
	r.mu.Unlock()
	slices.Reverse(detached)

	var errs []error
	for _, e := range detached {
		e.mu.Lock()
		if e.loaded.Load() {
			if err := e.plugin.Unload(ctx); err != nil {
				err = oops.Code(CodePluginUnload).In("runtime").
					With("plugin", e.name).
					Wrap(withSentinel(ErrPluginUnload, err))
				errutil.LogError(r.logger, "failed to unload plugin during close", err, "plugin", e.name)
				r.metrics.Transition(TransitionUnload, ResultFailure)
				errs = append(errs, err)
			} else {
				r.metrics.Transition(TransitionUnload, ResultSuccess)
			}
			e.loaded.Store(false)
		}
		e.removed = true
		e.mu.Unlock()
	}

	for _, e := range detached {
		e.handle.Destroy()
		if err := e.lib.Close(); err != nil {
			errs = append(errs, oops.In("runtime").With("plugin", e.name).With("path", e.path).Wrap(err))
		}
		r.logger.Debug("plugin released", "plugin", e.name, "path", e.path)
	}
	r.metrics.SetLoaded(0)

	err := errors.Join(errs...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
