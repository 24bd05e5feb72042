// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neuron Contributors

package pluginsdk

import (
	"github.com/Masterminds/semver/v3"
	"github.com/samber/oops"

	"github.com/superspeeder/neuron/pkg/abi"
)

// RequireRuntime returns an error unless the runtime performing the load
// reports a version satisfying constraint, for example ">= 0.1.0, < 2.0.0".
// Plugins call it from Load to refuse a host they were not built for; the
// runtime then leaves the plugin unloaded.
func RequireRuntime(lc *abi.LoadingContext, constraint string) error {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return oops.Code("RUNTIME_CONSTRAINT_INVALID").With("constraint", constraint).Wrap(err)
	}
	if lc == nil || lc.Runtime == nil {
		return oops.Code("RUNTIME_UNKNOWN").Errorf("loading context carries no runtime information")
	}

	name, raw := lc.Runtime.Name(), lc.Runtime.VersionString()
	v, err := semver.NewVersion(raw)
	if err != nil {
		return oops.Code("RUNTIME_VERSION_INVALID").
			With("runtime", name).
			With("version", raw).
			Wrap(err)
	}
	if !c.Check(v) {
		return oops.Code("RUNTIME_INCOMPATIBLE").
			With("runtime", name).
			With("version", raw).
			With("constraint", constraint).
			Errorf("%s %s does not satisfy %q", name, raw, constraint)
	}
	return nil
}
