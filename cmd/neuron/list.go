// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neuron Contributors

package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/superspeeder/neuron/internal/manifest"
	neuronrt "github.com/superspeeder/neuron/internal/runtime"
	"github.com/superspeeder/neuron/pkg/errutil"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Construct the manifest's plugins and list them",
		Long: `Open every library in the manifest, construct its plugin and print the
registry: plugin name, state, ABI, resolved library path and assets path.
Plugins are not loaded.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listPlugins(cmd.Context(), cmd, a)
		},
	}
}

func listPlugins(ctx context.Context, cmd *cobra.Command, a *app, extra ...neuronrt.Option) error {
	plugins, err := manifest.Load(a.cfg.Manifest)
	if err != nil {
		return err
	}

	opts := append([]neuronrt.Option{
		neuronrt.WithLogger(a.logger),
		neuronrt.WithLogLevel(a.level),
	}, extra...)
	rt := neuronrt.New(opts...)
	defer func() {
		if closeErr := rt.Close(ctx); closeErr != nil {
			errutil.LogError(a.logger, "error closing runtime", closeErr)
		}
	}()

	if err := rt.ConstructAll(ctx, plugins); err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTATE\tABI\tPATH\tASSETS")
	for _, name := range rt.Names() {
		info, ok := rt.Entry(name)
		if !ok {
			continue
		}
		assets := info.AssetsPath
		if assets == "" {
			assets = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", info.Name, info.State, info.ABI, info.Path, assets)
	}
	return w.Flush()
}
