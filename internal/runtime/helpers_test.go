// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neuron Contributors

package runtime_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/superspeeder/neuron/internal/loader"
	"github.com/superspeeder/neuron/internal/manifest"
	"github.com/superspeeder/neuron/pkg/abi"
)

// eventLog records boundary calls in order across plugins and libraries.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(event string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *eventLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

// fakeLibrary is an opened library whose entry symbol is a Go func.
type fakeLibrary struct {
	path     string
	entry    abi.EntryFunc
	entryErr error
	closeErr error
	log      *eventLog

	mu     sync.Mutex
	closed int
}

func (l *fakeLibrary) Path() string { return l.path }

func (l *fakeLibrary) Entry() (abi.EntryFunc, error) {
	if l.entryErr != nil {
		return nil, l.entryErr
	}
	return l.entry, nil
}

func (l *fakeLibrary) Close() error {
	l.mu.Lock()
	l.closed++
	l.mu.Unlock()
	l.log.add("close " + filepath.Base(l.path))
	return l.closeErr
}

func (l *fakeLibrary) closeCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// fakeOpener hands out fakeLibraries keyed by path.
type fakeOpener struct {
	mu      sync.Mutex
	libs    map[string]*fakeLibrary
	opened  []string
	openErr error
}

func newFakeOpener() *fakeOpener {
	return &fakeOpener{libs: make(map[string]*fakeLibrary)}
}

func (o *fakeOpener) add(lib *fakeLibrary) *fakeLibrary {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.libs[lib.path] = lib
	return lib
}

func (o *fakeOpener) Open(path string) (loader.Library, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opened = append(o.opened, path)
	if o.openErr != nil {
		return nil, o.openErr
	}
	lib, ok := o.libs[path]
	if !ok {
		return nil, errors.New("not a shared object")
	}
	return lib, nil
}

func (o *fakeOpener) openedPaths() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.opened...)
}

func openers(o loader.Opener) loader.Openers {
	return loader.Openers{manifest.ABIGo: o, manifest.ABIC: o}
}

// recordingPlugin reports every boundary call to a shared eventLog.
type recordingPlugin struct {
	name      string
	log       *eventLog
	loadErr   error
	unloadErr error

	mu        sync.Mutex
	loads     int
	unloads   int
	lastLoad  *abi.LoadingContext
	rtName    string
	rtVersion string
}

func (p *recordingPlugin) Name() string { return p.name }

func (p *recordingPlugin) Load(_ context.Context, lc *abi.LoadingContext) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loads++
	p.lastLoad = lc
	p.rtName = lc.Runtime.Name()
	p.rtVersion = lc.Runtime.VersionString()
	p.log.add("load " + p.name)
	return p.loadErr
}

func (p *recordingPlugin) Unload(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unloads++
	p.log.add("unload " + p.name)
	return p.unloadErr
}

func (p *recordingPlugin) counts() (loads, unloads int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loads, p.unloads
}

// entryFor returns an entry symbol producing p, logging destroy to log.
func entryFor(p abi.Plugin, log *eventLog) abi.EntryFunc {
	return func(*abi.CreationContext) *abi.Handle {
		return abi.NewHandle(p, func() { log.add("destroy " + p.Name()) })
	}
}

// mockPlugin is a testify mock of abi.Plugin.
type mockPlugin struct {
	mock.Mock
}

func (m *mockPlugin) Load(ctx context.Context, lc *abi.LoadingContext) error {
	args := m.Called(ctx, lc)
	return args.Error(0)
}

func (m *mockPlugin) Unload(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockPlugin) Name() string {
	args := m.Called()
	return args.String(0)
}

// libraryFile creates an empty file so candidate resolution finds it.
func libraryFile(dir, name string) string {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		panic(err)
	}
	return path
}

// metricsRecorder captures runtime metrics calls.
type metricsRecorder struct {
	mu          sync.Mutex
	constructed []string
	failures    []string
	transitions []string
	loaded      int
}

func (m *metricsRecorder) PluginConstructed(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.constructed = append(m.constructed, name)
}

func (m *metricsRecorder) ConstructFailed(code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, code)
}

func (m *metricsRecorder) Transition(transition, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions = append(m.transitions, transition+":"+result)
}

func (m *metricsRecorder) SetLoaded(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaded = n
}
