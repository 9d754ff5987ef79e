// Package counter implements thread-safe, snapshot-and-reset counter pairs
// for queues and for the delivery adapter, mirroring the accumulate-then-
// snapshot pattern of internal/observability.RuntimeMetrics.
package counter

import "sync"

// QueueCounters is the counter shape held by every queue.
type QueueCounters struct {
	Collected int64
	Dropped   int64
}

// MessageCounters is the counter shape held by the delivery adapter.
type MessageCounters struct {
	SentMessages   int64
	SmallMessages  int64
	FailedMessages int64
}

// QueueField selects one numeric field of a QueueCounters value for IncreaseBy.
type QueueField func(*QueueCounters) *int64

// MessageField selects one numeric field of a MessageCounters value for IncreaseBy.
type MessageField func(*MessageCounters) *int64

var (
	// QueueCollected selects the Collected field.
	QueueCollected QueueField = func(c *QueueCounters) *int64 { return &c.Collected }
	// QueueDropped selects the Dropped field.
	QueueDropped QueueField = func(c *QueueCounters) *int64 { return &c.Dropped }

	// MessageSent selects the SentMessages field.
	MessageSent MessageField = func(c *MessageCounters) *int64 { return &c.SentMessages }
	// MessageSmall selects the SmallMessages field.
	MessageSmall MessageField = func(c *MessageCounters) *int64 { return &c.SmallMessages }
	// MessageFailed selects the FailedMessages field.
	MessageFailed MessageField = func(c *MessageCounters) *int64 { return &c.FailedMessages }
)

// SyncedQueueCounter pairs a QueueCounters with the mutex guarding it.
type SyncedQueueCounter struct {
	mu     sync.Mutex
	values QueueCounters
}

// NewSyncedQueueCounter returns a zeroed counter.
func NewSyncedQueueCounter() *SyncedQueueCounter {
	return &SyncedQueueCounter{}
}

// IncreaseBy adds n to the field selected by field.
func (c *SyncedQueueCounter) IncreaseBy(field QueueField, n int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	*field(&c.values) += n
}

// SnapshotAndReset copies the current values out and zeroes the live counter
// atomically under the same lock acquisition.
func (c *SyncedQueueCounter) SnapshotAndReset() QueueCounters {
	c.mu.Lock()
	defer c.mu.Unlock()
	snapshot := c.values
	c.values = QueueCounters{}
	return snapshot
}

// SyncedMessageCounter pairs a MessageCounters with the mutex guarding it.
type SyncedMessageCounter struct {
	mu     sync.Mutex
	values MessageCounters
}

// NewSyncedMessageCounter returns a zeroed counter.
func NewSyncedMessageCounter() *SyncedMessageCounter {
	return &SyncedMessageCounter{}
}

// IncreaseBy adds n to the field selected by field.
func (c *SyncedMessageCounter) IncreaseBy(field MessageField, n int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	*field(&c.values) += n
}

// SnapshotAndReset copies the current values out and zeroes the live counter
// atomically under the same lock acquisition.
func (c *SyncedMessageCounter) SnapshotAndReset() MessageCounters {
	c.mu.Lock()
	defer c.mu.Unlock()
	snapshot := c.values
	c.values = MessageCounters{}
	return snapshot
}
