// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neuron Contributors

//go:build !(linux || darwin || freebsd)

package loader

import "github.com/samber/oops"

// CABIOpener opens C-ABI shared libraries. Not available on this platform.
type CABIOpener struct{}

// Open always fails with ErrUnsupportedPlatform.
func (CABIOpener) Open(path string) (Library, error) {
	return nil, oops.In("loader").With("path", path).With("abi", "c").Wrap(ErrUnsupportedPlatform)
}
