package queue

import (
	"sync"

	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/agent/counter"
	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/agent/memmon"
)

// SyncQueue pairs a Queue with the mutex guarding it. Every externally
// visible operation acquires the mutex for its whole duration.
//
// Go's sync.Mutex cannot fail to acquire, so the CodeLockException error
// defined alongside the rest of the agent's error taxonomy is never returned
// from this implementation; the code is retained for the taxonomy's
// completeness and for any future lock backend that can fail (e.g. a
// context-bounded TryLock).
type SyncQueue struct {
	mu sync.Mutex
	q  *Queue
}

// NewSync constructs an empty, mutex-guarded queue accounted against monitor.
func NewSync(monitor *memmon.Monitor) *SyncQueue {
	return &SyncQueue{q: New(monitor)}
}

// PushBack enqueues data under the queue's mutex.
func (s *SyncQueue) PushBack(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.PushBack(data)
}

// PopFront dequeues the head item under the queue's mutex.
func (s *SyncQueue) PopFront() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.PopFront()
}

// PopFrontIf conditionally dequeues the head item under the queue's mutex.
func (s *SyncQueue) PopFrontIf(predicate Predicate) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.PopFrontIf(predicate)
}

// GetSize returns the element count under the queue's mutex.
func (s *SyncQueue) GetSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.GetSize()
}

// Counters returns the queue's synced collected/dropped counter. The counter
// has its own internal mutex and may be snapshotted without holding the
// queue's lock.
func (s *SyncQueue) Counters() *counter.SyncedQueueCounter {
	return s.q.counter
}

// Drain pops and releases every remaining item under the queue's mutex, used
// on deinit.
func (s *SyncQueue) Drain() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.Drain()
}
