// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neuron Contributors

// Package pluginsdk is the plugin-author side of the neuron boundary.
//
// Authors do not call Entry by hand. neuron-entrygen emits the exported
// PluginEntry symbol, which forwards to Entry with the author's factory:
//
//	package main
//
//	//go:generate go run github.com/superspeeder/neuron/cmd/neuron-entrygen --factory New
//
//	type Greeter struct{ log *slog.Logger }
//
//	func New(cc *abi.CreationContext) (*Greeter, error) {
//		return &Greeter{log: pluginsdk.Setup(cc)}, nil
//	}
//
//	func (g *Greeter) Load(_ context.Context, lc *abi.LoadingContext) error {
//		g.log.Info("loaded", "runtime", lc.Runtime.Name())
//		return nil
//	}
//
//	func (g *Greeter) Unload(context.Context) error { return nil }
//	func (g *Greeter) Name() string                { return "greeter" }
package pluginsdk

import (
	"fmt"
	"log/slog"

	"github.com/superspeeder/neuron/pkg/abi"
)

// Factory builds a plugin's capability object from the creation context.
type Factory[P abi.Plugin] func(cc *abi.CreationContext) (P, error)

// Setup validates the creation context and returns the plugin's logger, which
// writes to the host sink at the host's threshold. No process-wide logger is
// installed.
//
// A nil context or a context without a handler means the host violated the
// boundary contract; Setup panics.
func Setup(cc *abi.CreationContext) *slog.Logger {
	if cc == nil {
		panic("pluginsdk: null creation context passed by runtime")
	}
	logger := cc.Logger()
	if logger == nil {
		panic("pluginsdk: creation context carries no log handler")
	}
	return logger
}

// Entry is the body of every generated PluginEntry symbol. implementor names
// the plugin package in diagnostics.
//
// A factory error is reported through the host sink and produces a nil
// handle, which the runtime surfaces as a construction error.
func Entry[P abi.Plugin](cc *abi.CreationContext, implementor string, factory Factory[P]) *abi.Handle {
	if cc == nil {
		panic(fmt.Sprintf("pluginsdk: entry point for %q failed: null creation context passed by runtime", implementor))
	}
	logger := Setup(cc).With("implementor", implementor)

	p, err := factory(cc)
	if err != nil {
		logger.Error("failed to create plugin", "error", err)
		return nil
	}

	var destroy func()
	if d, ok := any(p).(abi.Destroyer); ok {
		destroy = d.Destroy
	}
	return abi.NewHandle(p, destroy)
}
