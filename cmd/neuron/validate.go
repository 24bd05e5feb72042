// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neuron Contributors

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/superspeeder/neuron/internal/loader"
	"github.com/superspeeder/neuron/internal/manifest"
)

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the manifest and resolve every plugin's library path",
		Long: `Parse the manifest, check it against the manifest schema and report the
library path each entry resolves to. No library is opened.

Exits non-zero if the manifest is invalid or any entry has no existing
candidate path.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return validateManifest(cmd, a.cfg.Manifest)
		},
	}
}

func validateManifest(cmd *cobra.Command, path string) error {
	plugins, err := manifest.Load(path)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ENTRY\tABI\tRESOLVED")

	var unresolved []string
	for _, e := range plugins.Entries() {
		resolved, resolveErr := loader.ResolvePath(e.Spec.BinaryPath)
		if resolveErr != nil {
			unresolved = append(unresolved, e.Name)
			resolved = "(none)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.Name, e.Spec.EffectiveABI(), resolved)
	}
	if err := w.Flush(); err != nil {
		return oops.Code("OUTPUT_FAILED").Wrap(err)
	}

	if len(unresolved) > 0 {
		return oops.Code("MANIFEST_UNRESOLVED").
			With("manifest", path).
			With("entries", unresolved).
			Errorf("%d manifest entries have no existing library path", len(unresolved))
	}
	cmd.Printf("%s: %d entries OK\n", path, plugins.Len())
	return nil
}
