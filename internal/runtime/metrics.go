// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neuron Contributors

package runtime

// Transition names reported to MetricsRecorder.
const (
	TransitionLoad   = "load"
	TransitionUnload = "unload"
)

// Transition results reported to MetricsRecorder.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultSkipped = "skipped"
)

// MetricsRecorder receives runtime events. Implementations must be safe for
// concurrent use.
type MetricsRecorder interface {
	// PluginConstructed is called after a plugin is registered.
	PluginConstructed(name string)
	// ConstructFailed is called with the error code of a failed construction.
	ConstructFailed(code string)
	// Transition is called for every Load or Unload of a registered plugin.
	Transition(transition, result string)
	// SetLoaded reports the number of plugins currently loaded.
	SetLoaded(n int)
}

type noopMetrics struct{}

func (noopMetrics) PluginConstructed(string)  {}
func (noopMetrics) ConstructFailed(string)    {}
func (noopMetrics) Transition(string, string) {}
func (noopMetrics) SetLoaded(int)             {}
