// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neuron Contributors

// Package errutil bridges oops errors to logging, metrics and tests.
package errutil

import (
	"fmt"
	"log/slog"

	"github.com/samber/oops"
)

// UnknownCode labels errors that carry no oops code.
const UnknownCode = "UNKNOWN"

// Code returns the oops code carried by err, or UnknownCode.
func Code(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return UnknownCode
	}
	switch code := oopsErr.Code().(type) {
	case nil:
		return UnknownCode
	case string:
		if code == "" {
			return UnknownCode
		}
		return code
	default:
		return fmt.Sprint(code)
	}
}

// LogError logs err at error level. For oops errors the code and context are
// logged as separate attributes. attrs are appended as-is.
func LogError(logger *slog.Logger, msg string, err error, attrs ...any) {
	fields := []any{"error", err.Error()}
	if oopsErr, ok := oops.AsOops(err); ok {
		if code := Code(err); code != UnknownCode {
			fields = append(fields, "code", code)
		}
		if ctx := oopsErr.Context(); len(ctx) > 0 {
			fields = append(fields, "context", ctx)
		}
	}
	logger.Error(msg, append(fields, attrs...)...)
}
