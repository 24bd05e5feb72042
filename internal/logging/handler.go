// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neuron Contributors

// Package logging builds the host logger. Plugins receive its handler through
// the creation context, so plugin records carry the same service, version and
// trace attributes as host records.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel/trace"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Options configures New.
type Options struct {
	Service string
	Version string
	// Format is FormatJSON or FormatText. Empty means FormatJSON.
	Format string
	// Level is the minimum level written. Nil means slog.LevelInfo.
	Level slog.Leveler
	// Writer receives log output. Nil means os.Stderr.
	Writer io.Writer
}

// traceHandler adds the active span's ids to each record.
type traceHandler struct {
	handler slog.Handler
}

func (h *traceHandler) Handle(ctx context.Context, r slog.Record) error {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.HasTraceID() {
		r.AddAttrs(slog.String("trace_id", spanCtx.TraceID().String()))
	}
	if spanCtx.HasSpanID() {
		r.AddAttrs(slog.String("span_id", spanCtx.SpanID().String()))
	}

	//nolint:wrapcheck // Handler interface requires unwrapped error passthrough
	return h.handler.Handle(ctx, r)
}

func (h *traceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceHandler{handler: h.handler.WithAttrs(attrs)}
}

func (h *traceHandler) WithGroup(name string) slog.Handler {
	return &traceHandler{handler: h.handler.WithGroup(name)}
}

// New creates a logger tagged with service and version.
func New(opts Options) *slog.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	level := opts.Level
	if level == nil {
		level = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var base slog.Handler
	if opts.Format == FormatText {
		base = slog.NewTextHandler(w, handlerOpts)
	} else {
		base = slog.NewJSONHandler(w, handlerOpts)
	}

	return slog.New(&traceHandler{handler: base}).With(
		slog.String("service", opts.Service),
		slog.String("version", opts.Version),
	)
}

// ValidateFormat reports an error for anything but FormatJSON or FormatText.
func ValidateFormat(format string) error {
	if format != FormatJSON && format != FormatText {
		return oops.Code("LOG_FORMAT_INVALID").With("format", format).
			Errorf("log format must be %q or %q, got %q", FormatJSON, FormatText, format)
	}
	return nil
}

// ParseLevel parses debug, info, warn or error, optionally with an offset
// such as "info+2".
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, oops.Code("LOG_LEVEL_INVALID").With("level", s).Wrap(err)
	}
	return level, nil
}
