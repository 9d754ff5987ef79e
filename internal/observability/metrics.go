package observability

import "sync"

// Metrics provides counters, gauges, and histogram recording primitives.
type Metrics interface {
	IncCounter(name string, value float64, labels map[string]string)
	ObserveHistogram(name string, value float64, labels map[string]string)
	SetGauge(name string, value float64, labels map[string]string)
}

var defaultMetrics Metrics = noopMetrics{}

// SetMetrics overrides the global metrics implementation used by the system.
func SetMetrics(metrics Metrics) {
	if metrics == nil {
		defaultMetrics = noopMetrics{}
		return
	}
	defaultMetrics = metrics
}

// Telemetry returns the current global metrics collector.
func Telemetry() Metrics {
	return defaultMetrics
}

type noopMetrics struct{}

func (noopMetrics) IncCounter(string, float64, map[string]string)       {}
func (noopMetrics) ObserveHistogram(string, float64, map[string]string) {}
func (noopMetrics) SetGauge(string, float64, map[string]string)         {}

// AgentRuntimeSnapshot captures agent-focused runtime counters keyed by queue name.
type AgentRuntimeSnapshot struct {
	QueueDepth     map[string]int   `json:"queue_depth"`
	QueueBytes     map[string]int64 `json:"queue_bytes"`
	RejectedEvents map[string]int   `json:"rejected_events"`
}

// RuntimeMetrics accumulates agent runtime metrics in-memory for periodic export.
type RuntimeMetrics struct {
	mu    sync.Mutex
	agent AgentRuntimeSnapshot
}

// NewRuntimeMetrics constructs a metrics accumulator with empty maps.
func NewRuntimeMetrics() *RuntimeMetrics {
	metrics := new(RuntimeMetrics)
	metrics.agent = AgentRuntimeSnapshot{
		QueueDepth:     make(map[string]int),
		QueueBytes:     make(map[string]int64),
		RejectedEvents: make(map[string]int),
	}
	return metrics
}

// RecordQueueDepth tracks the latest item count for a queue key.
func (m *RuntimeMetrics) RecordQueueDepth(queue string, depth int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.agent.QueueDepth[queue] = depth
}

// RecordQueueBytes tracks the latest reserved byte count for a queue key.
func (m *RuntimeMetrics) RecordQueueBytes(queue string, bytes int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.agent.QueueBytes[queue] = bytes
}

// IncrementRejectedEvents increments the rejected-enqueue counter for a queue.
func (m *RuntimeMetrics) IncrementRejectedEvents(queue string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.agent.RejectedEvents[queue]++
}

// Snapshot copies the current agent metrics state for reporting.
func (m *RuntimeMetrics) Snapshot() AgentRuntimeSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := AgentRuntimeSnapshot{
		QueueDepth:     make(map[string]int, len(m.agent.QueueDepth)),
		QueueBytes:     make(map[string]int64, len(m.agent.QueueBytes)),
		RejectedEvents: make(map[string]int, len(m.agent.RejectedEvents)),
	}
	for k, v := range m.agent.QueueDepth {
		snapshot.QueueDepth[k] = v
	}
	for k, v := range m.agent.QueueBytes {
		snapshot.QueueBytes[k] = v
	}
	for k, v := range m.agent.RejectedEvents {
		snapshot.RejectedEvents[k] = v
	}
	return snapshot
}
