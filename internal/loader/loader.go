// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neuron Contributors

// Package loader opens plugin libraries and resolves their entry symbol.
//
// Two backends exist: Go plugins built with -buildmode=plugin (NativeOpener)
// and plain shared libraries exporting the C entry symbol (CABIOpener).
package loader

import (
	"errors"
	"fmt"
	"os"

	"github.com/samber/oops"

	"github.com/superspeeder/neuron/internal/manifest"
	"github.com/superspeeder/neuron/pkg/abi"
)

// Sentinel errors for programmatic error checking.
var (
	// ErrNoValidLibraryPath is returned when none of the candidate paths exist.
	ErrNoValidLibraryPath = errors.New("no valid library path")
	// ErrOpenFailed is returned when the platform loader rejects a library.
	ErrOpenFailed = errors.New("failed to open library")
	// ErrSymbolNotFound is returned when the entry symbol is missing or has the wrong type.
	ErrSymbolNotFound = errors.New("entry symbol not found")
	// ErrLibraryClosed is returned when resolving symbols on a closed library.
	ErrLibraryClosed = errors.New("library is closed")
	// ErrUnsupportedABI is returned for an ABI with no registered opener.
	ErrUnsupportedABI = errors.New("unsupported plugin ABI")
	// ErrUnsupportedPlatform is returned by backends not available on this build.
	ErrUnsupportedPlatform = errors.New("dynamic loading not supported on this platform")
)

// Library is an opened plugin library.
type Library interface {
	// Path returns the path the library was opened from.
	Path() string
	// Entry resolves the entry symbol.
	Entry() (abi.EntryFunc, error)
	// Close releases the library. Every handle created from it must be
	// destroyed first.
	Close() error
}

// Opener opens libraries of one ABI.
type Opener interface {
	Open(path string) (Library, error)
}

// Openers selects an Opener by ABI.
type Openers map[manifest.ABI]Opener

// DefaultOpeners returns the platform backends for every supported ABI.
func DefaultOpeners() Openers {
	return Openers{
		manifest.ABIGo: NativeOpener{},
		manifest.ABIC:  CABIOpener{},
	}
}

// For returns the opener registered for a.
func (o Openers) For(a manifest.ABI) (Opener, error) {
	if opener, ok := o[a]; ok && opener != nil {
		return opener, nil
	}
	return nil, oops.In("loader").With("abi", a).Wrap(ErrUnsupportedABI)
}

// ResolvePath returns the first candidate that exists on the filesystem.
// The check races with the filesystem; opening the result may still fail.
func ResolvePath(candidates []string) (string, error) {
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", oops.In("loader").With("candidates", candidates).Wrap(ErrNoValidLibraryPath)
}

// asEntryFunc converts a symbol looked up in a Go plugin to an EntryFunc.
// An exported func yields the plain func type; an exported variable yields a
// pointer to it.
func asEntryFunc(sym any) (abi.EntryFunc, error) {
	switch fn := sym.(type) {
	case func(*abi.CreationContext) *abi.Handle:
		if fn != nil {
			return fn, nil
		}
	case abi.EntryFunc:
		if fn != nil {
			return fn, nil
		}
	case *abi.EntryFunc:
		if fn != nil && *fn != nil {
			return *fn, nil
		}
	case *func(*abi.CreationContext) *abi.Handle:
		if fn != nil && *fn != nil {
			return *fn, nil
		}
	default:
		return nil, fmt.Errorf("%w: %s has type %T", ErrSymbolNotFound, abi.EntrySymbol, sym)
	}
	return nil, fmt.Errorf("%w: %s is nil", ErrSymbolNotFound, abi.EntrySymbol)
}
