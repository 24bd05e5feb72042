// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neuron Contributors

package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/superspeeder/neuron/internal/logging"
	"github.com/superspeeder/neuron/internal/manifest"
	neuronrt "github.com/superspeeder/neuron/internal/runtime"
)

// app holds state shared by subcommands once the root command has resolved
// configuration.
type app struct {
	configFile string
	cfg        *config
	level      slog.Level
	logger     *slog.Logger
}

// init loads configuration and builds the logger for cmd.
func (a *app) init(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd.Flags(), a.configFile)
	if err != nil {
		return err
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.level = level
	a.logger = logging.New(logging.Options{
		Service: neuronrt.RuntimeName,
		Version: neuronrt.VersionString(),
		Format:  cfg.LogFormat,
		Level:   level,
		Writer:  cmd.ErrOrStderr(),
	})
	return nil
}

// NewRootCmd creates the root command for the neuron CLI.
func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "neuron",
		Short: "Neuron - a dynamic plugin runtime",
		Long: `Neuron loads the plugin libraries declared in an application manifest,
constructs each plugin and drives its load and unload lifecycle.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file path (default $XDG_CONFIG_HOME/neuron/config.yaml)")
	flags.String("manifest", manifest.DefaultPath, "application manifest path (env "+manifest.PathEnv+")")
	flags.String("log-format", defaultLogFormat, "log format (json or text)")
	flags.String("log-level", defaultLogLevel, "log level (debug, info, warn, error)")

	cmd.AddCommand(newRunCmd(a))
	cmd.AddCommand(newListCmd(a))
	cmd.AddCommand(newValidateCmd(a))
	cmd.AddCommand(newSchemaCmd())

	return cmd
}
