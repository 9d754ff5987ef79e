// Package queue implements the bounded-memory doubly-linked FIFO that backs
// every priority lane in the pipeline, plus its mutex-guarded SyncQueue
// wrapper. Enqueue charges the process-wide memory monitor; dequeue releases
// it back. Grounded on the lease-accounting discipline of an object pool:
// every live item is charged against a shared budget at acquire time and
// given back at release time.
package queue

import (
	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/errs"
	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/agent/counter"
	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/agent/memmon"
)

// itemOverhead approximates sizeof(item) plus one pointer, charged against
// the memory monitor on top of each payload's own byte size.
const itemOverhead = 24

// item is one linked node in the queue; data is owned by the queue from
// PushBack until it is handed back to the caller by a pop.
type item struct {
	data       []byte
	next, prev *item
}

// Queue is the unsynchronized bounded FIFO. Use SyncQueue for concurrent access.
type Queue struct {
	head, tail *item
	count      int
	monitor    *memmon.Monitor
	counter    *counter.SyncedQueueCounter
}

// New constructs an empty queue accounted against monitor.
func New(monitor *memmon.Monitor) *Queue {
	return &Queue{
		monitor: monitor,
		counter: counter.NewSyncedQueueCounter(),
	}
}

// PushBack enqueues data, transferring ownership to the queue. On
// CodeMaxMemoryExceeded the dropped counter is incremented and the item is
// not linked.
func (q *Queue) PushBack(data []byte) error {
	size := int64(len(data))
	if err := q.monitor.Consume(size + itemOverhead); err != nil {
		if errs.Is(err, errs.CodeMaxMemoryExceeded) {
			q.counter.IncreaseBy(counter.QueueDropped, 1)
			return err
		}
		return errs.New("queue", errs.CodeMemoryException, errs.WithCause(err))
	}

	node := &item{data: data}
	if q.tail == nil {
		q.head = node
		q.tail = node
	} else {
		node.prev = q.tail
		q.tail.next = node
		q.tail = node
	}
	q.count++
	q.counter.IncreaseBy(counter.QueueCollected, 1)
	return nil
}

// PopFront removes and returns the head item, releasing its accounted bytes.
func (q *Queue) PopFront() ([]byte, error) {
	if q.head == nil {
		return nil, errs.New("queue", errs.CodeQueueEmpty)
	}
	node := q.unlink(q.head)
	if err := q.monitor.Release(int64(len(node.data)) + itemOverhead); err != nil {
		return nil, err
	}
	return node.data, nil
}

// Predicate inspects the head item without removing it.
type Predicate func(data []byte) bool

// PopFrontIf pops the head item only if predicate accepts it; the exact head
// a subsequent PopFront would remove is the one tested. CodeConditionFailed
// leaves the item in place.
func (q *Queue) PopFrontIf(predicate Predicate) ([]byte, error) {
	if q.head == nil {
		return nil, errs.New("queue", errs.CodeQueueEmpty)
	}
	if !predicate(q.head.data) {
		return nil, errs.New("queue", errs.CodeConditionFailed)
	}
	return q.PopFront()
}

// GetSize returns the number of items currently enqueued.
func (q *Queue) GetSize() int {
	return q.count
}

// Counters returns the queue's synced collected/dropped counter.
func (q *Queue) Counters() *counter.SyncedQueueCounter {
	return q.counter
}

// Drain pops and releases every remaining item, used on deinit.
func (q *Queue) Drain() error {
	for q.head != nil {
		if _, err := q.PopFront(); err != nil {
			return err
		}
	}
	return nil
}

func (q *Queue) unlink(node *item) *item {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		q.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		q.tail = node.prev
	}
	node.next, node.prev = nil, nil
	q.count--
	return node
}
