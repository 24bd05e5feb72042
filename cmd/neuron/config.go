// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neuron Contributors

package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/superspeeder/neuron/internal/logging"
	"github.com/superspeeder/neuron/internal/manifest"
	"github.com/superspeeder/neuron/internal/xdg"
)

// dotenvFile is read from the working directory when present.
const dotenvFile = ".env"

// Default values for flags.
const (
	defaultLogFormat = logging.FormatText
	defaultLogLevel  = "info"
)

// config is the host configuration after all sources are merged.
type config struct {
	Manifest    string `koanf:"manifest"`
	LogFormat   string `koanf:"log-format"`
	LogLevel    string `koanf:"log-level"`
	MetricsAddr string `koanf:"metrics-addr"`
	Once        bool   `koanf:"once"`
}

// Validate checks that the configuration is valid.
func (cfg *config) Validate() error {
	if cfg.Manifest == "" {
		return oops.Code("CONFIG_INVALID").Errorf("manifest path is required")
	}
	if err := logging.ValidateFormat(cfg.LogFormat); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		return err
	}
	return nil
}

// loadConfig merges, lowest precedence first: flag defaults, the config
// file, NEURON_TARGET_APP_MANIFEST (which .env may supply) and flags set on
// the command line. configFile overrides the XDG default path and must exist.
func loadConfig(flags *pflag.FlagSet, configFile string) (*config, error) {
	if err := godotenv.Load(dotenvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, oops.Code("CONFIG_DOTENV_INVALID").With("path", dotenvFile).Wrap(err)
	}

	k := koanf.New(".")

	path, err := configPath(configFile)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_FILE_INVALID").With("path", path).Wrap(err)
		}
	}

	if env := os.Getenv(manifest.PathEnv); env != "" {
		if err := k.Set("manifest", env); err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("env", manifest.PathEnv).Wrap(err)
		}
	}

	if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
		return nil, oops.Code("CONFIG_FLAGS_INVALID").Wrap(err)
	}

	cfg := &config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// configPath returns the config file to read, or "" when the default file
// does not exist.
func configPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", oops.Code("CONFIG_FILE_INVALID").With("path", explicit).Wrap(err)
		}
		return explicit, nil
	}

	path, err := xdg.ConfigFile()
	if err != nil {
		// No home directory: run on flags and environment alone.
		return "", nil //nolint:nilerr // the default config file is optional
	}
	if _, err := os.Stat(path); err != nil {
		return "", nil //nolint:nilerr // the default config file is optional
	}
	return path, nil
}
