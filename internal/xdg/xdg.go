// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neuron Contributors

// Package xdg resolves XDG Base Directory paths for neuron.
package xdg

import (
	"os"
	"path/filepath"

	"github.com/samber/oops"
)

const (
	appName        = "neuron"
	configFileName = "config.yaml"
)

// ConfigDir returns $XDG_CONFIG_HOME/neuron, falling back to ~/.config/neuron.
func ConfigDir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", oops.Code("XDG_NO_HOME").Wrapf(err, "resolve config directory")
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, appName), nil
}

// ConfigFile returns the default host configuration file path.
func ConfigFile() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}
