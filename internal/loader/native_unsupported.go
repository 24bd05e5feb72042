// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neuron Contributors

//go:build !(cgo && (linux || darwin || freebsd))

package loader

import "github.com/samber/oops"

// NativeOpener opens Go plugins. Go plugins need cgo on linux, darwin or
// freebsd; this build has neither.
type NativeOpener struct{}

// Open always fails with ErrUnsupportedPlatform.
func (NativeOpener) Open(path string) (Library, error) {
	return nil, oops.In("loader").With("path", path).With("abi", "go").Wrap(ErrUnsupportedPlatform)
}
