// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neuron Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/superspeeder/neuron/internal/manifest"
	"github.com/superspeeder/neuron/internal/observability"
	neuronrt "github.com/superspeeder/neuron/internal/runtime"
	"github.com/superspeeder/neuron/pkg/errutil"
)

const shutdownTimeout = 5 * time.Second

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load every plugin in the manifest and run until signalled",
		Long: `Construct every plugin declared in the manifest, load them in declaration
order and wait for SIGINT or SIGTERM. On shutdown plugins are unloaded and
destroyed in reverse order before their libraries are closed.

Plugins that fail to load are logged and left unloaded; the host keeps running.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHost(cmd.Context(), cmd, a)
		},
	}

	cmd.Flags().String("metrics-addr", "", "serve /metrics and health probes on this address (disabled if empty)")
	cmd.Flags().Bool("once", false, "load every plugin, then shut down without waiting for a signal")

	return cmd
}

func runHost(ctx context.Context, cmd *cobra.Command, a *app, extra ...neuronrt.Option) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := a.logger
	plugins, err := manifest.Load(a.cfg.Manifest)
	if err != nil {
		errutil.LogError(logger, "failed to load manifest", err)
		return err
	}

	opts := []neuronrt.Option{
		neuronrt.WithLogger(logger),
		neuronrt.WithLogLevel(a.level),
	}

	var ready atomic.Bool
	var obsServer *observability.Server
	if a.cfg.MetricsAddr != "" {
		obsServer = observability.NewServer(a.cfg.MetricsAddr, ready.Load, logger)
		obsErrCh, startErr := obsServer.Start()
		if startErr != nil {
			return oops.With("operation", "start_observability_server").Wrap(startErr)
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, logger)
		opts = append(opts, neuronrt.WithMetrics(obsServer.Metrics()))
	}
	opts = append(opts, extra...)

	rt := neuronrt.New(opts...)
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if closeErr := rt.Close(shutdownCtx); closeErr != nil {
			errutil.LogError(logger, "error closing runtime", closeErr)
		}
		if obsServer != nil {
			if stopErr := obsServer.Stop(shutdownCtx); stopErr != nil {
				logger.Warn("error stopping observability server", "error", stopErr)
			}
		}
	}()

	if err := rt.ConstructAll(ctx, plugins); err != nil {
		errutil.LogError(logger, "failed to construct plugins", err)
		return err
	}

	if err := rt.LoadAll(ctx); err != nil {
		logger.Warn("some plugins failed to load", "error", err)
	}
	ready.Store(true)

	loaded := 0
	for _, name := range rt.Names() {
		if state, _ := rt.State(name); state == neuronrt.Loaded {
			loaded++
		}
	}
	cmd.Printf("%d of %d plugins loaded\n", loaded, rt.Len())
	logger.Info("runtime ready", "plugins", rt.Len(), "loaded", loaded)

	if !a.cfg.Once {
		waitForShutdown(ctx, logger)
	}

	ready.Store(false)
	logger.Info("shutting down")
	return nil
}

// waitForShutdown blocks until SIGINT, SIGTERM or ctx is done.
func waitForShutdown(ctx context.Context, logger *slog.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}
}

// monitorServerErrors cancels ctx when the server reports a serve error. It
// returns when the channel closes or ctx is done.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, logger *slog.Logger) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			logger.Error("observability server error, triggering shutdown", "error", err)
			cancel()
		}
	case <-ctx.Done():
	}
}
