// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neuron Contributors

package runtime

import (
	"errors"
	"fmt"

	"github.com/superspeeder/neuron/internal/loader"
)

// Error codes carried by oops errors returned from Runtime.
const (
	CodeNoValidLibraryPath      = "NO_VALID_LIBRARY_PATH"
	CodeLibraryLoading          = "LIBRARY_LOADING_ERROR"
	CodePluginCreation          = "PLUGIN_CREATION_FAILED"
	CodePluginAlreadyRegistered = "PLUGIN_ALREADY_REGISTERED"
	CodeRuntimeClosed           = "RUNTIME_CLOSED"
	CodePluginLoad              = "PLUGIN_LOAD_FAILED"
	CodePluginUnload            = "PLUGIN_UNLOAD_FAILED"
)

// Sentinel errors for programmatic error checking.
var (
	// ErrNoValidLibraryPath is returned when no candidate path exists.
	ErrNoValidLibraryPath = loader.ErrNoValidLibraryPath
	// ErrLibraryLoading is returned when a library cannot be opened or has no usable entry symbol.
	ErrLibraryLoading = errors.New("library loading error")
	// ErrPluginCreation is returned when the entry symbol yields no usable plugin.
	ErrPluginCreation = errors.New("plugin creation failed")
	// ErrPluginAlreadyRegistered is returned when a plugin reports a name already in the registry.
	ErrPluginAlreadyRegistered = errors.New("plugin already registered")
	// ErrRuntimeClosed is returned when constructing on a closed runtime.
	ErrRuntimeClosed = errors.New("runtime is closed")
	// ErrPluginLoad is returned when a plugin's Load fails.
	ErrPluginLoad = errors.New("plugin load failed")
	// ErrPluginUnload is returned when a plugin's Unload fails.
	ErrPluginUnload = errors.New("plugin unload failed")
)

// withSentinel attaches sentinel to cause so both match errors.Is.
func withSentinel(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	if errors.Is(cause, sentinel) {
		return cause
	}
	return fmt.Errorf("%w: %w", sentinel, cause)
}
