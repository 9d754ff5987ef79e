package adapter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/agent/memmon"
	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/agent/queue"
	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/agent/transport"
)

type fixedLimit int64

func (f fixedLimit) MaxLocalCacheSize() int64 { return int64(f) }

// fakeClient is a fully in-process transport.Client for driving the adapter's
// state machine deterministically, without a real socket.
type fakeClient struct {
	connStatusCB  transport.ConnectionStatusCallback
	deviceTwinCB  transport.DeviceTwinCallback
	sendConfirmCB transport.SendConfirmCallback

	openErr  error
	sent     [][]byte
	reported [][]byte
}

func (f *fakeClient) Open(context.Context, string) error { return f.openErr }
func (f *fakeClient) Close() error                       { return nil }

func (f *fakeClient) SetConnectionStatusCallback(cb transport.ConnectionStatusCallback) {
	f.connStatusCB = cb
}
func (f *fakeClient) SetDeviceTwinCallback(cb transport.DeviceTwinCallback) {
	f.deviceTwinCB = cb
}
func (f *fakeClient) SetSendConfirmCallback(cb transport.SendConfirmCallback) {
	f.sendConfirmCB = cb
}

func (f *fakeClient) SendEvent(_ context.Context, data []byte) error {
	f.sent = append(f.sent, data)
	return nil
}

func (f *fakeClient) SendReportedProperties(_ context.Context, data []byte) error {
	f.reported = append(f.reported, data)
	return nil
}

func newTwinQueue(t *testing.T) *queue.SyncQueue {
	t.Helper()
	return queue.NewSync(memmon.New(fixedLimit(1 << 20)))
}

func TestConnectReachesReadyOnceStatusAndTwinArrive(t *testing.T) {
	client := &fakeClient{}
	a := New(client, 2*time.Second)
	twinQueue := newTwinQueue(t)

	require.NoError(t, a.Init(context.Background(), "connstr", twinQueue))

	go func() {
		time.Sleep(50 * time.Millisecond)
		client.connStatusCB(true, transport.ReasonOK)
		client.deviceTwinCB(transport.TwinStateComplete, []byte(`{"desired":{}}`))
	}()

	require.NoError(t, a.Connect(context.Background()))
	require.Equal(t, StateReady, a.CurrentState())
	require.Equal(t, 1, twinQueue.GetSize())
}

func TestConnectFailsFastOnBadCredential(t *testing.T) {
	client := &fakeClient{}
	a := New(client, 2*time.Second)
	require.NoError(t, a.Init(context.Background(), "connstr", newTwinQueue(t)))

	go func() {
		time.Sleep(20 * time.Millisecond)
		client.connStatusCB(false, transport.ReasonBadCredential)
	}()

	err := a.Connect(context.Background())
	require.Error(t, err)
	require.Equal(t, StateFailed, a.CurrentState())
}

func TestConnectTimesOutWhenNeverReady(t *testing.T) {
	client := &fakeClient{}
	a := New(client, 150*time.Millisecond)
	require.NoError(t, a.Init(context.Background(), "connstr", newTwinQueue(t)))

	err := a.Connect(context.Background())
	require.Error(t, err)
	require.Equal(t, StateFailed, a.CurrentState())
}

func TestSendMessageAsyncCountsSmallMessages(t *testing.T) {
	client := &fakeClient{}
	a := New(client, time.Second)
	require.NoError(t, a.Init(context.Background(), "connstr", newTwinQueue(t)))

	require.NoError(t, a.SendMessageAsync(context.Background(), []byte(`{"n":1}`)))
	snap := a.Counters().SnapshotAndReset()
	require.EqualValues(t, 1, snap.SentMessages)
	require.EqualValues(t, 1, snap.SmallMessages)
}

func TestSendConfirmErrorIncrementsFailedMessages(t *testing.T) {
	client := &fakeClient{}
	a := New(client, time.Second)
	require.NoError(t, a.Init(context.Background(), "connstr", newTwinQueue(t)))

	client.sendConfirmCB(transport.SendError)
	snap := a.Counters().SnapshotAndReset()
	require.EqualValues(t, 1, snap.FailedMessages)
}

func TestDeviceTwinCallbackQueuesDecodableItem(t *testing.T) {
	client := &fakeClient{}
	a := New(client, time.Second)
	twinQueue := newTwinQueue(t)
	require.NoError(t, a.Init(context.Background(), "connstr", twinQueue))

	client.deviceTwinCB(transport.TwinStatePartial, []byte(`{"maxMessageSize":1000}`))

	raw, err := twinQueue.PopFront()
	require.NoError(t, err)
	item, err := DecodeTwinUpdateItem(raw)
	require.NoError(t, err)
	require.Equal(t, TwinUpdateState(transport.TwinStatePartial), item.State)
	require.JSONEq(t, `{"maxMessageSize":1000}`, string(item.Payload))
}
