package counter

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueueCounterIncreaseAndSnapshot(t *testing.T) {
	c := NewSyncedQueueCounter()
	c.IncreaseBy(QueueCollected, 5)
	c.IncreaseBy(QueueDropped, 2)

	snap := c.SnapshotAndReset()
	require.Equal(t, int64(5), snap.Collected)
	require.Equal(t, int64(2), snap.Dropped)

	second := c.SnapshotAndReset()
	require.Equal(t, QueueCounters{}, second, "second snapshot must observe zeroed counters")
}

func TestMessageCounterIncreaseAndSnapshot(t *testing.T) {
	c := NewSyncedMessageCounter()
	c.IncreaseBy(MessageSent, 3)
	c.IncreaseBy(MessageSmall, 1)
	c.IncreaseBy(MessageFailed, 1)

	snap := c.SnapshotAndReset()
	require.Equal(t, MessageCounters{SentMessages: 3, SmallMessages: 1, FailedMessages: 1}, snap)

	second := c.SnapshotAndReset()
	require.Equal(t, MessageCounters{}, second)
}

func TestQueueCounterConcurrentIncrease(t *testing.T) {
	c := NewSyncedQueueCounter()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.IncreaseBy(QueueCollected, 1)
		}()
	}
	wg.Wait()

	snap := c.SnapshotAndReset()
	require.Equal(t, int64(100), snap.Collected)
}
