package serializer

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/agent/memmon"
	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/agent/queue"
)

type fixedLimit int64

func (f fixedLimit) MaxLocalCacheSize() int64 { return int64(f) }

type fixedMaxMessageSize int64

func (f fixedMaxMessageSize) MaxMessageSize() int64 { return int64(f) }

func newSyncQueue(t *testing.T) *queue.SyncQueue {
	t.Helper()
	return queue.NewSync(memmon.New(fixedLimit(1 << 20)))
}

func TestSerializeEmptyQueuesReturnsEmpty(t *testing.T) {
	s := New("1.0.0", "agent-id", "1.0", fixedMaxMessageSize(2_560_000))
	ops := newSyncQueue(t)
	buf, result, err := s.Serialize(ops)
	require.NoError(t, err)
	require.Equal(t, ResultEmpty, result)
	require.Nil(t, buf)
}

func TestSerializeOrdersOperationalQueueFirst(t *testing.T) {
	s := New("1.0.0", "agent-id", "1.0", fixedMaxMessageSize(2_560_000))
	ops := newSyncQueue(t)
	main := newSyncQueue(t)

	require.NoError(t, ops.PushBack([]byte(`{"type":"config-error"}`)))
	require.NoError(t, main.PushBack([]byte(`{"type":"process-create"}`)))

	buf, result, err := s.Serialize(ops, main)
	require.NoError(t, err)
	require.Equal(t, ResultOk, result)

	var env Envelope
	require.NoError(t, json.Unmarshal(buf, &env))
	require.Len(t, env.Events, 2)
	require.JSONEq(t, `{"type":"config-error"}`, string(env.Events[0]))
	require.JSONEq(t, `{"type":"process-create"}`, string(env.Events[1]))
}

func TestSerializeLeavesOversizedItemQueued(t *testing.T) {
	s := New("1.0.0", "agent-id", "1.0", fixedMaxMessageSize(40))
	ops := newSyncQueue(t)
	main := newSyncQueue(t)

	require.NoError(t, main.PushBack([]byte(`{"a":"01234567890123456789012345678901234567890123456789"}`)))

	buf, result, err := s.Serialize(ops, main)
	require.NoError(t, err)
	require.Equal(t, ResultEmpty, result)
	require.Nil(t, buf)
	require.Equal(t, 1, main.GetSize(), "oversized item must remain queued for a future dispatch")
}

func TestSerializeStopsAtMaxMessageSize(t *testing.T) {
	s := New("1.0.0", "agent-id", "1.0", fixedMaxMessageSize(20))
	ops := newSyncQueue(t)
	main := newSyncQueue(t)

	require.NoError(t, main.PushBack([]byte(`{"n":1}`)))
	require.NoError(t, main.PushBack([]byte(`{"n":2}`)))
	require.NoError(t, main.PushBack([]byte(`{"n":3}`)))

	buf, result, err := s.Serialize(ops, main)
	require.NoError(t, err)
	require.Contains(t, []Result{ResultOk, ResultPartial}, result)
	require.NotNil(t, buf)
	require.True(t, main.GetSize() > 0, "budget of 20 bytes must not fit all three events")
}
