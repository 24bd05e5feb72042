// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neuron Contributors

//go:build linux || darwin || freebsd

package loader

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/samber/oops"

	"github.com/superspeeder/neuron/pkg/abi"
)

// CABIOpener opens shared libraries exporting _plugin_entry as declared in
// pkg/abi/neuron_plugin.h.
type CABIOpener struct{}

// Open dlopens the library at path.
func (CABIOpener) Open(path string) (Library, error) {
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_LOCAL)
	if err != nil {
		return nil, oops.In("loader").With("path", path).With("abi", "c").
			Wrap(fmt.Errorf("%w: %w", ErrOpenFailed, err))
	}
	return &cLibrary{path: path, handle: handle}, nil
}

// C layouts from neuron_plugin.h.
type (
	cCreationContext struct {
		log      uintptr
		user     uintptr
		logLevel int32
	}

	cLoadingContext struct {
		runtimeName    *byte
		runtimeVersion *byte
		assetsPath     *byte
	}

	cVTable struct {
		self    unsafe.Pointer
		load    uintptr
		unload  uintptr
		name    uintptr
		destroy uintptr
	}
)

var (
	logCallbackOnce sync.Once
	logCallback     uintptr
)

// logCallbackPtr returns the process-wide log trampoline. purego callbacks
// are never freed, so exactly one is created.
func logCallbackPtr() uintptr {
	logCallbackOnce.Do(func() {
		logCallback = purego.NewCallback(func(user uintptr, level int32, msg unsafe.Pointer, n uintptr) {
			if msg == nil || n == 0 {
				sinks.dispatch(user, level, "")
				return
			}
			sinks.dispatch(user, level, strings.Clone(unsafe.String((*byte)(msg), int(n))))
		})
	})
	return logCallback
}

type cLibrary struct {
	path   string
	handle uintptr

	mu     sync.Mutex
	closed bool
}

func (l *cLibrary) Path() string { return l.path }

func (l *cLibrary) Entry() (abi.EntryFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, oops.In("loader").With("path", l.path).Wrap(ErrLibraryClosed)
	}

	sym, err := purego.Dlsym(l.handle, abi.CEntrySymbol)
	if err != nil {
		return nil, oops.In("loader").With("path", l.path).With("symbol", abi.CEntrySymbol).
			Wrap(fmt.Errorf("%w: %w", ErrSymbolNotFound, err))
	}

	var entry func(cc unsafe.Pointer) unsafe.Pointer
	purego.RegisterFunc(&entry, sym)

	return func(cc *abi.CreationContext) *abi.Handle {
		return constructC(entry, cc)
	}, nil
}

func (l *cLibrary) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	if err := purego.Dlclose(l.handle); err != nil {
		return oops.In("loader").With("path", l.path).Wrapf(err, "dlclose")
	}
	return nil
}

func constructC(entry func(unsafe.Pointer) unsafe.Pointer, cc *abi.CreationContext) *abi.Handle {
	if cc == nil {
		panic("loader: null creation context")
	}

	level := slog.LevelInfo
	if cc.Level != nil {
		level = cc.Level.Level()
	}
	sink := sinks.register(cc.Logger())

	cctx := &cCreationContext{
		log:      logCallbackPtr(),
		user:     sink,
		logLevel: int32(level),
	}
	var pinner runtime.Pinner
	pinner.Pin(cctx)
	ptr := entry(unsafe.Pointer(cctx))
	pinner.Unpin()

	if ptr == nil {
		sinks.release(sink)
		return nil
	}

	vt := (*cVTable)(ptr)
	if vt.load == 0 || vt.unload == 0 || vt.name == 0 {
		if vt.destroy != 0 {
			var destroy func(self unsafe.Pointer)
			purego.RegisterFunc(&destroy, vt.destroy)
			destroy(vt.self)
		}
		sinks.release(sink)
		return nil
	}

	p := &cPlugin{vt: vt, sink: sink}
	purego.RegisterFunc(&p.load, vt.load)
	purego.RegisterFunc(&p.unload, vt.unload)
	if vt.destroy != 0 {
		purego.RegisterFunc(&p.destroyFn, vt.destroy)
	}
	var name func(self unsafe.Pointer) string
	purego.RegisterFunc(&name, vt.name)
	p.name = name(vt.self)

	return abi.NewHandle(p, p.destroy)
}

// cPlugin adapts a C vtable to abi.Plugin.
type cPlugin struct {
	vt   *cVTable
	name string
	sink uintptr

	load      func(self unsafe.Pointer, lc unsafe.Pointer) int32
	unload    func(self unsafe.Pointer) int32
	destroyFn func(self unsafe.Pointer)
}

func (p *cPlugin) Name() string { return p.name }

func (p *cPlugin) Load(_ context.Context, lc *abi.LoadingContext) error {
	var pinner runtime.Pinner
	defer pinner.Unpin()

	cstr := func(s string) *byte {
		b := append([]byte(s), 0)
		pinner.Pin(&b[0])
		return &b[0]
	}

	clc := &cLoadingContext{}
	if lc != nil {
		if lc.Runtime != nil {
			clc.runtimeName = cstr(lc.Runtime.Name())
			clc.runtimeVersion = cstr(lc.Runtime.VersionString())
		}
		clc.assetsPath = cstr(lc.AssetsPath)
	}
	pinner.Pin(clc)

	if rc := p.load(p.vt.self, unsafe.Pointer(clc)); rc != 0 {
		return oops.In("loader").With("plugin", p.name).With("status", rc).
			Errorf("plugin load returned status %d", rc)
	}
	return nil
}

func (p *cPlugin) Unload(_ context.Context) error {
	if rc := p.unload(p.vt.self); rc != 0 {
		return oops.In("loader").With("plugin", p.name).With("status", rc).
			Errorf("plugin unload returned status %d", rc)
	}
	return nil
}

// destroy hands the vtable back to the plugin's destructor. The log sink
// stays valid until then.
func (p *cPlugin) destroy() {
	if p.destroyFn != nil {
		p.destroyFn(p.vt.self)
	}
	sinks.release(p.sink)
}
