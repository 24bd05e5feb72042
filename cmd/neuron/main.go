// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neuron Contributors

// Command neuron loads the plugins declared in an application manifest and
// manages their lifecycle.
package main

import (
	"os"

	neuronrt "github.com/superspeeder/neuron/internal/runtime"
)

func main() {
	cmd := NewRootCmd()
	cmd.Version = neuronrt.VersionString()

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
