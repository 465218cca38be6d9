// Package telemetry wires the orchestrator's tool calls, turns, and control
// cycles into Prometheus metrics and OpenTelemetry traces.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles every Prometheus collector the orchestrator reports to.
// A nil *Metrics is safe to use: every method no-ops on a nil receiver. A
// zero-value Metrics has nil collectors; build one with NewMetrics.
type Metrics struct {
	ToolCalls      *prometheus.CounterVec
	ToolDuration   *prometheus.HistogramVec
	ExecutionError *prometheus.CounterVec
	TurnsTotal     prometheus.Counter
	CyclesTotal    *prometheus.CounterVec
	LoopDetected   prometheus.Counter

	BrowserSessionsActive prometheus.Gauge
	BrowserNavigate       prometheus.Histogram
	BrowserActions        *prometheus.CounterVec
}

// NewMetrics builds and registers the collector set against reg. Pass
// prometheus.NewRegistry() for an isolated registry (tests) or
// prometheus.DefaultRegisterer to expose on the process-wide /metrics
// endpoint.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ToolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wayfarer_tool_calls_total",
			Help: "Total tool invocations by tool name and outcome.",
		}, []string{"tool", "ok"}),
		ToolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wayfarer_tool_duration_seconds",
			Help:    "Tool invocation latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"tool"}),
		ExecutionError: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wayfarer_execution_errors_total",
			Help: "Total execution_error events by error code.",
		}, []string{"code"}),
		TurnsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wayfarer_llm_turns_total",
			Help: "Total LLM turns taken across all tasks.",
		}),
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wayfarer_strategy_cycles_total",
			Help: "Total Observe-Think-Act or Plan-Execute-Validate cycles by strategy.",
		}, []string{"strategy"}),
		LoopDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wayfarer_loop_detected_total",
			Help: "Total times the loop detector tripped.",
		}),
		BrowserSessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wayfarer_browser_sessions_active",
			Help: "Browser sessions currently open.",
		}),
		BrowserNavigate: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "wayfarer_browser_navigate_seconds",
			Help:    "Navigate() latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		BrowserActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wayfarer_browser_actions_total",
			Help: "Total browser actions by type and outcome.",
		}, []string{"action", "ok"}),
	}
	reg.MustRegister(m.ToolCalls, m.ToolDuration, m.ExecutionError, m.TurnsTotal, m.CyclesTotal, m.LoopDetected,
		m.BrowserSessionsActive, m.BrowserNavigate, m.BrowserActions)
	return m
}

// ObserveToolCall records one tool invocation's outcome and latency.
func (m *Metrics) ObserveToolCall(tool string, ok bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	okLabel := "false"
	if ok {
		okLabel = "true"
	}
	m.ToolCalls.WithLabelValues(tool, okLabel).Inc()
	m.ToolDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
}

// ObserveExecutionError records an execution_error event (spec §4.11/§7).
func (m *Metrics) ObserveExecutionError(code string) {
	if m == nil {
		return
	}
	m.ExecutionError.WithLabelValues(code).Inc()
}

// ObserveTurn records one LLM turn.
func (m *Metrics) ObserveTurn() {
	if m == nil {
		return
	}
	m.TurnsTotal.Inc()
}

// ObserveCycle records one strategy control cycle.
func (m *Metrics) ObserveCycle(strategy string) {
	if m == nil {
		return
	}
	m.CyclesTotal.WithLabelValues(strategy).Inc()
}

// ObserveLoopDetected records a loop-detector trip.
func (m *Metrics) ObserveLoopDetected() {
	if m == nil {
		return
	}
	m.LoopDetected.Inc()
}

// ObserveBrowserSessionDelta adjusts the active browser session gauge by
// delta (+1 on create, -1 on close).
func (m *Metrics) ObserveBrowserSessionDelta(delta int) {
	if m == nil {
		return
	}
	m.BrowserSessionsActive.Add(float64(delta))
}

// ObserveBrowserNavigate records one Navigate() call's latency.
func (m *Metrics) ObserveBrowserNavigate(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.BrowserNavigate.Observe(elapsed.Seconds())
}

// ObserveBrowserAction records one Act() call's outcome by action type.
func (m *Metrics) ObserveBrowserAction(actionType string, ok bool) {
	if m == nil {
		return
	}
	okLabel := "false"
	if ok {
		okLabel = "true"
	}
	m.BrowserActions.WithLabelValues(actionType, okLabel).Inc()
}
