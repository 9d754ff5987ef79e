package supervisor

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/errs"
	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/agent/transport"
	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/telemetry"
)

// fakeClient is a fully in-process transport.Client, mirroring the adapter
// package's own test double, for driving the supervisor end to end without a
// real socket.
type fakeClient struct {
	connStatusCB  transport.ConnectionStatusCallback
	deviceTwinCB  transport.DeviceTwinCallback
	sendConfirmCB transport.SendConfirmCallback

	openErr error
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
func (f *fakeClient) SendEvent(context.Context, []byte) error              { return nil }
func (f *fakeClient) SendReportedProperties(context.Context, []byte) error { return nil }

func testTelemetryConfig() telemetry.Config {
	return telemetry.Config{Enabled: false}
}

var errOpenFailed = errs.New("test", errs.CodeTransportError, errs.WithMessage("simulated dial failure"))

func TestInitFailureLeavesSupervisorCreated(t *testing.T) {
	client := &fakeClient{openErr: errOpenFailed}
	sup := New()
	cfg := Config{
		LocalConfigPath: filepath.Join(t.TempDir(), "missing.json"),
		Client:          client,
		Telemetry:       testTelemetryConfig(),
	}

	err := sup.Init(context.Background(), cfg)
	require.Error(t, err)
	require.Equal(t, StateCreated, sup.CurrentState())
}

func TestFullLifecycleConnectsAppliesTwinAndStops(t *testing.T) {
	client := &fakeClient{}
	sup := New()
	cfg := Config{
		LocalConfigPath: filepath.Join(t.TempDir(), "missing.json"),
		Client:          client,
		Telemetry:       testTelemetryConfig(),
	}

	require.NoError(t, sup.Init(context.Background(), cfg))
	require.Equal(t, StateInitialized, sup.CurrentState())

	go func() {
		time.Sleep(20 * time.Millisecond)
		client.connStatusCB(true, transport.ReasonOK)
		client.deviceTwinCB(transport.TwinStateComplete,
			[]byte(`{"desired":{"SecurityAgent":{"maxMessageSize":{"value":8192}}}}`))
	}()

	startCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, sup.Start(startCtx))
	require.Equal(t, StateRunning, sup.CurrentState())

	require.EqualValues(t, 8192, sup.twinConfig.MaxMessageSize())
	require.Equal(t, 0, sup.twinUpdatesQueue.GetSize())

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	require.NoError(t, sup.Stop(stopCtx))
	require.Equal(t, StateStopped, sup.CurrentState())

	for _, q := range []interface{ GetSize() int }{
		sup.diagnosticQueue, sup.operationalQueue, sup.highQueue, sup.lowQueue, sup.twinUpdatesQueue,
	} {
		require.Equal(t, 0, q.GetSize())
	}
}

func TestInitRejectsDoubleInvocation(t *testing.T) {
	client := &fakeClient{}
	sup := New()
	cfg := Config{
		LocalConfigPath: filepath.Join(t.TempDir(), "missing.json"),
		Client:          client,
		Telemetry:       testTelemetryConfig(),
	}
	require.NoError(t, sup.Init(context.Background(), cfg))

	err := sup.Init(context.Background(), cfg)
	require.Error(t, err)
}
