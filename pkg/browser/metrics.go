package browser

import (
	"sync/atomic"
	"time"
)

// Metrics tracks browser runtime performance counters. It is a self-contained
// atomic counter set rather than a wrapper around the process-wide telemetry
// registry: browser sessions can outlive any single agent run, and these
// counts are consumed via Snapshot() by callers that want a point-in-time
// view (status commands, debug endpoints) rather than a Prometheus scrape.
type Metrics struct {
	// Session counts
	SessionsCreated atomic.Int64
	SessionsClosed  atomic.Int64
	ActiveSessions  atomic.Int64

	// Operation counts
	NavigateCount atomic.Int64
	ObserveCount  atomic.Int64
	ActionCount   atomic.Int64
	StreamCount   atomic.Int64

	// Action outcomes
	ActionSuccessCount atomic.Int64
	ActionFailureCount atomic.Int64

	// Frame metrics
	FramesDelivered   atomic.Int64
	FrameLatencySum   atomic.Int64 // nanoseconds sum for averaging
	FrameLatencyCount atomic.Int64
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordSessionCreated increments session creation counter.
func (m *Metrics) RecordSessionCreated(browserSessionID string) {
	if m == nil {
		return
	}
	m.SessionsCreated.Add(1)
	m.ActiveSessions.Add(1)
}

// RecordSessionClosed increments session close counter.
func (m *Metrics) RecordSessionClosed(browserSessionID string) {
	if m == nil {
		return
	}
	m.SessionsClosed.Add(1)
	m.ActiveSessions.Add(-1)
}

// RecordNavigate increments navigation counter.
func (m *Metrics) RecordNavigate(browserSessionID, url string, latency time.Duration) {
	if m == nil {
		return
	}
	m.NavigateCount.Add(1)
}

// RecordObserve increments observe counter.
func (m *Metrics) RecordObserve(browserSessionID string, latency time.Duration, opts ObserveOptions) {
	if m == nil {
		return
	}
	m.ObserveCount.Add(1)
}

// RecordAction increments action counter and tracks success/failure.
func (m *Metrics) RecordAction(browserSessionID string, actionType ActionType, success bool, latency time.Duration) {
	if m == nil {
		return
	}
	m.ActionCount.Add(1)
	if success {
		m.ActionSuccessCount.Add(1)
	} else {
		m.ActionFailureCount.Add(1)
	}
}

// RecordFrameDelivered tracks frame delivery latency.
func (m *Metrics) RecordFrameDelivered(browserSessionID string, latency time.Duration) {
	if m == nil {
		return
	}
	m.FramesDelivered.Add(1)
	m.FrameLatencySum.Add(latency.Nanoseconds())
	m.FrameLatencyCount.Add(1)
}

// RecordStreamEvent increments stream event counter.
func (m *Metrics) RecordStreamEvent(browserSessionID string, eventType StreamEventType) {
	if m == nil {
		return
	}
	m.StreamCount.Add(1)
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	avgFrameLatency := time.Duration(0)
	count := m.FrameLatencyCount.Load()
	if count > 0 {
		avgFrameLatency = time.Duration(m.FrameLatencySum.Load() / count)
	}
	successCount := m.ActionSuccessCount.Load()
	failCount := m.ActionFailureCount.Load()
	total := successCount + failCount
	successRate := float64(1.0)
	if total > 0 {
		successRate = float64(successCount) / float64(total)
	}
	return MetricsSnapshot{
		SessionsCreated:        m.SessionsCreated.Load(),
		SessionsClosed:         m.SessionsClosed.Load(),
		ActiveSessions:         m.ActiveSessions.Load(),
		NavigateCount:          m.NavigateCount.Load(),
		ObserveCount:           m.ObserveCount.Load(),
		ActionCount:            m.ActionCount.Load(),
		StreamCount:            m.StreamCount.Load(),
		ActionSuccessCount:     successCount,
		ActionFailureCount:     failCount,
		ActionSuccessRate:      successRate,
		FramesDelivered:        m.FramesDelivered.Load(),
		AverageFrameLatency:    avgFrameLatency,
	}
}

// MetricsSnapshot is a point-in-time copy of browser metrics.
type MetricsSnapshot struct {
	SessionsCreated     int64
	SessionsClosed      int64
	ActiveSessions      int64
	NavigateCount       int64
	ObserveCount        int64
	ActionCount         int64
	StreamCount         int64
	ActionSuccessCount  int64
	ActionFailureCount  int64
	ActionSuccessRate   float64
	FramesDelivered     int64
	AverageFrameLatency time.Duration
}
