// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neuron Contributors

// Command neuron-entrygen writes the PluginEntry symbol for a Go plugin
// package. It is meant to be run from a go:generate directive:
//
//	//go:generate go run github.com/superspeeder/neuron/cmd/neuron-entrygen --factory New --name sample
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/superspeeder/neuron/internal/entrygen"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := entrygen.Config{}

	cmd := &cobra.Command{
		Use:   "neuron-entrygen",
		Short: "Generate the neuron plugin entry symbol",
		Long: `Generate entry_gen.go for a Go plugin package. The generated PluginEntry
checks the creation context, wires the host logger and calls the factory.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := entrygen.Generate(cfg)
			if err != nil {
				return err
			}
			cmd.Printf("Generated %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&cfg.Factory, "factory", entrygen.DefaultFactory, "factory function name")
	cmd.Flags().StringVar(&cfg.Implementor, "name", "", "implementor name logged on factory failure (default: package directory name)")
	cmd.Flags().StringVar(&cfg.Dir, "dir", ".", "plugin package directory")
	cmd.Flags().StringVar(&cfg.Output, "output", entrygen.DefaultOutput, "output file name inside --dir")

	return cmd
}
