// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neuron Contributors

package errutil_test

import (
	"testing"

	"github.com/samber/oops"

	"github.com/superspeeder/neuron/pkg/errutil"
)

func TestAssertErrorCode_MatchingCode(t *testing.T) {
	err := oops.Code("LIBRARY_LOADING_ERROR").Errorf("open failed")
	errutil.AssertErrorCode(t, err, "LIBRARY_LOADING_ERROR")
}

func TestAssertErrorCode_WrappedKeepsInnermostCode(t *testing.T) {
	inner := oops.Code("MANIFEST_INVALID").Errorf("bad toml")
	err := oops.With("path", "manifest.toml").Wrap(inner)
	errutil.AssertErrorCode(t, err, "MANIFEST_INVALID")
}

func TestAssertErrorContext_MatchingKeyValue(t *testing.T) {
	err := oops.With("plugin", "sample").Errorf("load failed")
	errutil.AssertErrorContext(t, err, "plugin", "sample")
}
