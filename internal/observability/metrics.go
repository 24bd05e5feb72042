// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neuron Contributors

package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/superspeeder/neuron/internal/runtime"
)

var _ runtime.MetricsRecorder = (*RuntimeMetrics)(nil)

// RuntimeMetrics records plugin registry events as Prometheus metrics.
type RuntimeMetrics struct {
	Constructed      prometheus.Counter
	ConstructFailure *prometheus.CounterVec
	Transitions      *prometheus.CounterVec
	Loaded           prometheus.Gauge
}

// NewRuntimeMetrics creates the runtime metrics and registers them with reg.
// Panics if registration fails (following prometheus convention).
func NewRuntimeMetrics(reg prometheus.Registerer) *RuntimeMetrics {
	m := &RuntimeMetrics{
		Constructed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "neuron_plugins_constructed_total",
			Help: "Total number of plugins constructed and registered",
		}),
		ConstructFailure: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "neuron_plugin_construct_failures_total",
				Help: "Total number of failed plugin constructions by error code",
			},
			[]string{"code"},
		),
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "neuron_plugin_transitions_total",
				Help: "Total number of plugin load and unload attempts by result",
			},
			[]string{"transition", "result"},
		),
		Loaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "neuron_plugins_loaded",
			Help: "Number of plugins currently loaded",
		}),
	}

	reg.MustRegister(m.Constructed, m.ConstructFailure, m.Transitions, m.Loaded)
	return m
}

// PluginConstructed implements runtime.MetricsRecorder.
func (m *RuntimeMetrics) PluginConstructed(string) {
	m.Constructed.Inc()
}

// ConstructFailed implements runtime.MetricsRecorder.
func (m *RuntimeMetrics) ConstructFailed(code string) {
	m.ConstructFailure.WithLabelValues(code).Inc()
}

// Transition implements runtime.MetricsRecorder.
func (m *RuntimeMetrics) Transition(transition, result string) {
	m.Transitions.WithLabelValues(transition, result).Inc()
}

// SetLoaded implements runtime.MetricsRecorder.
func (m *RuntimeMetrics) SetLoaded(n int) {
	m.Loaded.Set(float64(n))
}
