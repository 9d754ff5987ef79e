package queue

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/errs"
	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/agent/memmon"
)

type fixedLimit int64

func (f fixedLimit) MaxLocalCacheSize() int64 { return int64(f) }

func TestPushBackAndPopFrontFIFO(t *testing.T) {
	mon := memmon.New(fixedLimit(1 << 20))
	q := New(mon)

	require.NoError(t, q.PushBack([]byte("first")))
	require.NoError(t, q.PushBack([]byte("second")))
	require.Equal(t, 2, q.GetSize())

	first, err := q.PopFront()
	require.NoError(t, err)
	require.Equal(t, "first", string(first))

	second, err := q.PopFront()
	require.NoError(t, err)
	require.Equal(t, "second", string(second))

	require.Equal(t, 0, q.GetSize())
}

func TestPopFrontOnEmptyQueueReturnsQueueEmpty(t *testing.T) {
	mon := memmon.New(fixedLimit(1 << 20))
	q := New(mon)

	_, err := q.PopFront()
	require.True(t, errs.Is(err, errs.CodeQueueEmpty))
}

func TestPopFrontIfLeavesItemOnConditionFailed(t *testing.T) {
	mon := memmon.New(fixedLimit(1 << 20))
	q := New(mon)
	require.NoError(t, q.PushBack([]byte("payload")))

	_, err := q.PopFrontIf(func(data []byte) bool { return false })
	require.True(t, errs.Is(err, errs.CodeConditionFailed))
	require.Equal(t, 1, q.GetSize())

	popped, err := q.PopFrontIf(func(data []byte) bool { return true })
	require.NoError(t, err)
	require.Equal(t, "payload", string(popped))
}

func TestPushBackUnderMemoryPressureIncrementsDropped(t *testing.T) {
	mon := memmon.New(fixedLimit(1024))
	q := New(mon)

	accepted := 0
	for i := 0; i < 10; i++ {
		if err := q.PushBack(make([]byte, 1024-itemOverhead)); err == nil {
			accepted++
		} else {
			require.True(t, errs.Is(err, errs.CodeMaxMemoryExceeded))
		}
	}
	require.Equal(t, 1, accepted)

	snap := q.Counters().SnapshotAndReset()
	require.Equal(t, int64(1), snap.Collected)
	require.Equal(t, int64(9), snap.Dropped)
}

func TestDrainReleasesAllMemory(t *testing.T) {
	mon := memmon.New(fixedLimit(1 << 20))
	q := New(mon)
	require.NoError(t, q.PushBack([]byte("a")))
	require.NoError(t, q.PushBack([]byte("b")))
	require.NoError(t, q.Drain())
	require.Equal(t, int64(0), mon.CurrentConsumption())
	require.Equal(t, 0, q.GetSize())
}

func TestSyncQueueConcurrentPushPop(t *testing.T) {
	mon := memmon.New(fixedLimit(1 << 20))
	sq := NewSync(mon)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			require.NoError(t, sq.PushBack([]byte("x")))
		}
	}()
	<-done

	require.Equal(t, 50, sq.GetSize())
	snap := sq.Counters().SnapshotAndReset()
	require.Equal(t, int64(50), snap.Collected)
}
