// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neuron Contributors

// Command sample is a neuron plugin. Build it with
//
//	go build -buildmode=plugin -o libsample.so ./plugins/sample
package main

//go:generate go run github.com/superspeeder/neuron/cmd/neuron-entrygen --factory New --name sample

import (
	"context"
	"log/slog"

	"github.com/superspeeder/neuron/pkg/abi"
	"github.com/superspeeder/neuron/pkg/pluginsdk"
)

// supportedRuntime is the range of runtime versions Sample loads under.
const supportedRuntime = ">= 0.1.0"

// Sample logs its lifecycle through the host logger.
type Sample struct {
	logger *slog.Logger
}

// New creates the sample plugin.
func New(cc *abi.CreationContext) (*Sample, error) {
	return &Sample{logger: cc.Logger().With("plugin", "sample")}, nil
}

// Name implements abi.Plugin.
func (s *Sample) Name() string { return "sample" }

// Load implements abi.Plugin.
func (s *Sample) Load(ctx context.Context, lc *abi.LoadingContext) error {
	if err := pluginsdk.RequireRuntime(lc, supportedRuntime); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "sample plugin loaded",
		"runtime", lc.Runtime.Name(),
		"runtime_version", lc.Runtime.VersionString(),
		"assets_path", lc.AssetsPath)
	return nil
}

// Unload implements abi.Plugin.
func (s *Sample) Unload(ctx context.Context) error {
	s.logger.InfoContext(ctx, "sample plugin unloaded")
	return nil
}

// Destroy implements abi.Destroyer.
func (s *Sample) Destroy() {
	s.logger.Debug("sample plugin destroyed")
}

func main() {}
