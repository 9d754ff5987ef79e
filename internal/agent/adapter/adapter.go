// Package adapter implements the IoT delivery adapter: a state machine over
// the transport (connect -> authenticate -> receive configuration -> send),
// twin-update ingress, and outbound send accounting.
package adapter

import (
	"context"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/errs"
	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/agent/counter"
	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/agent/queue"
	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/agent/transport"
	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/observability"
)

// MessageBillingMultiple is the size boundary below which a message is
// counted as "small" for diagnostic purposes.
const MessageBillingMultiple = 4096

// connectPollInterval is how often Connect polls for readiness.
const connectPollInterval = 100 * time.Millisecond

// State enumerates the adapter's lifecycle states.
type State string

const (
	StateCreated     State = "Created"
	StateInitialized State = "Initialized"
	StateConnecting  State = "Connecting"
	StateReady       State = "Ready"
	StateFailed      State = "Failed"
	StateDestroyed   State = "Destroyed"
)

// TwinUpdateState mirrors transport.TwinUpdateState for the queued item.
type TwinUpdateState = transport.TwinUpdateState

// TwinUpdateItem is queued for the update-twin task by the device-twin callback.
type TwinUpdateItem struct {
	State   TwinUpdateState
	Payload []byte
}

// Adapter is the mutex-guarded delivery adapter.
type Adapter struct {
	mu sync.Mutex

	client               transport.Client
	state                State
	connected            bool
	hasTwinConfiguration bool
	lastConnectionReason transport.ConnectionReason

	twinUpdatesQueue *queue.SyncQueue
	counters         *counter.SyncedMessageCounter

	connectTimeout time.Duration
}

// New constructs an adapter bound to client, not yet initialized.
func New(client transport.Client, connectTimeout time.Duration) *Adapter {
	return &Adapter{
		client:         client,
		state:          StateCreated,
		connectTimeout: connectTimeout,
		counters:       counter.NewSyncedMessageCounter(),
	}
}

// Init installs the three callbacks and opens the transport handle; if Open
// fails the callbacks are removed again. twinUpdatesQueue receives every
// device-twin push. The message counter is created by New.
func (a *Adapter) Init(ctx context.Context, connectionString string, twinUpdatesQueue *queue.SyncQueue) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.twinUpdatesQueue = twinUpdatesQueue
	a.client.SetConnectionStatusCallback(a.onConnectionStatus)
	a.client.SetDeviceTwinCallback(a.onDeviceTwin)
	a.client.SetSendConfirmCallback(a.onSendConfirm)

	if err := a.client.Open(ctx, connectionString); err != nil {
		a.client.SetConnectionStatusCallback(nil)
		a.client.SetDeviceTwinCallback(nil)
		a.client.SetSendConfirmCallback(nil)
		a.state = StateCreated
		return errs.New("adapter", errs.CodeTransportError, errs.WithCause(err))
	}

	a.state = StateInitialized
	return nil
}

// Connect busy-waits up to connectTimeout for both connected and
// hasTwinConfiguration, polling every 100ms, or returns early on a permanent
// failure reason (BadCredential, NoNetwork).
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	a.state = StateConnecting
	a.mu.Unlock()

	deadline := time.Now().Add(a.connectTimeout)
	ticker := time.NewTicker(connectPollInterval)
	defer ticker.Stop()

	for {
		a.mu.Lock()
		ready := a.connected && a.hasTwinConfiguration
		reason := a.lastConnectionReason
		a.mu.Unlock()

		if ready {
			a.mu.Lock()
			a.state = StateReady
			a.mu.Unlock()
			return nil
		}
		if reason == transport.ReasonBadCredential {
			a.mu.Lock()
			a.state = StateFailed
			a.mu.Unlock()
			return errs.New("adapter", errs.CodeBadCredential)
		}
		if reason == transport.ReasonNoNetwork {
			a.mu.Lock()
			a.state = StateFailed
			a.mu.Unlock()
			return errs.New("adapter", errs.CodeNoNetwork)
		}
		if time.Now().After(deadline) {
			a.mu.Lock()
			a.state = StateFailed
			a.mu.Unlock()
			return errs.New("adapter", errs.CodeConnectTimeout)
		}

		select {
		case <-ctx.Done():
			return errs.New("adapter", errs.CodeConnectTimeout, errs.WithCause(ctx.Err()))
		case <-ticker.C:
		}
	}
}

// SendMessageAsync hands data to the transport, incrementing sentMessages
// and, for payloads under MessageBillingMultiple, smallMessages.
func (a *Adapter) SendMessageAsync(ctx context.Context, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.client.SendEvent(ctx, data); err != nil {
		return errs.New("adapter", errs.CodeTransportError, errs.WithCause(err))
	}

	a.counters.IncreaseBy(counter.MessageSent, 1)
	if int64(len(data)) < MessageBillingMultiple {
		a.counters.IncreaseBy(counter.MessageSmall, 1)
	}
	return nil
}

// SetReportedPropertiesAsync sends the serialized twin back as the module's
// reported properties.
func (a *Adapter) SetReportedPropertiesAsync(ctx context.Context, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.client.SendReportedProperties(ctx, data); err != nil {
		return errs.New("adapter", errs.CodeTransportError, errs.WithCause(err))
	}
	return nil
}

// Counters returns the adapter-wide synced message counter.
func (a *Adapter) Counters() *counter.SyncedMessageCounter {
	return a.counters
}

// CurrentState reports the adapter's lifecycle state.
func (a *Adapter) CurrentState() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Deinit tears down the transport connection.
func (a *Adapter) Deinit() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = StateDestroyed
	if err := a.client.Close(); err != nil {
		return errs.New("adapter", errs.CodeTransportError, errs.WithCause(err))
	}
	return nil
}

func (a *Adapter) onConnectionStatus(connected bool, reason transport.ConnectionReason) {
	a.mu.Lock()
	a.connected = connected
	a.lastConnectionReason = reason
	a.mu.Unlock()
	observability.Log().Info("adapter connection status changed",
		observability.Field{Key: "connected", Value: connected},
		observability.Field{Key: "reason", Value: string(reason)})
}

func (a *Adapter) onDeviceTwin(state transport.TwinUpdateState, payload []byte) {
	item := TwinUpdateItem{State: state, Payload: payload}
	encoded, err := encodeTwinUpdateItem(item)
	if err != nil {
		observability.Log().Error("failed to encode twin update item", observability.Field{Key: "error", Value: err.Error()})
		return
	}
	if a.twinUpdatesQueue != nil {
		if err := a.twinUpdatesQueue.PushBack(encoded); err != nil {
			observability.Log().Error("twin update dropped", observability.Field{Key: "error", Value: err.Error()})
		}
	}
	a.mu.Lock()
	a.hasTwinConfiguration = true
	a.mu.Unlock()
}

func (a *Adapter) onSendConfirm(result transport.SendResult) {
	if result != transport.SendOK {
		a.counters.IncreaseBy(counter.MessageFailed, 1)
	}
}

func encodeTwinUpdateItem(item TwinUpdateItem) ([]byte, error) {
	return json.Marshal(item)
}

// DecodeTwinUpdateItem reverses encodeTwinUpdateItem for consumers draining
// the twin-updates queue (the update-twin task).
func DecodeTwinUpdateItem(data []byte) (TwinUpdateItem, error) {
	var item TwinUpdateItem
	if err := json.Unmarshal(data, &item); err != nil {
		return TwinUpdateItem{}, errs.New("adapter", errs.CodeParseException, errs.WithCause(err))
	}
	return item, nil
}
