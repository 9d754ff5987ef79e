package tasks

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/errs"
	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/agent/memmon"
	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/agent/queue"
	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/agent/serializer"
	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/agent/twinconfig"
	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/observability"
)

type fakeSender struct {
	sent    [][]byte
	sendErr error
}

func (s *fakeSender) SendMessageAsync(_ context.Context, data []byte) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, data)
	return nil
}

func newPublisherFixture(t *testing.T) (*EventPublisher, *twinconfig.Store, *queue.SyncQueue, *queue.SyncQueue, *queue.SyncQueue, *fakeSender) {
	t.Helper()
	config := twinconfig.New("security")
	monitor := memmon.New(config)
	operational := queue.NewSync(monitor)
	high := queue.NewSync(monitor)
	low := queue.NewSync(monitor)
	serial := serializer.New("1.0.0", "agent-id", "1.0", config)
	sender := &fakeSender{}
	dlq := observability.NewDeadLetterQueue(16)
	p := NewEventPublisher(operational, high, low, config, monitor, serial, sender, dlq)
	return p, config, operational, high, low, sender
}

func TestRunDispatchesHighPriorityOnceCadenceElapses(t *testing.T) {
	p, _, _, high, _, sender := newPublisherFixture(t)
	require.NoError(t, high.PushBack([]byte(`{"n":1}`)))
	p.tHi = time.Now().Add(-time.Hour)

	require.NoError(t, p.Run(context.Background()))
	require.Len(t, sender.sent, 1)

	var env serializer.Envelope
	require.NoError(t, json.Unmarshal(sender.sent[0], &env))
	require.Len(t, env.Events, 1)
}

func TestRunSkipsEmptyMainQueueEvenPastCadence(t *testing.T) {
	p, _, _, _, _, sender := newPublisherFixture(t)
	p.tHi = time.Now().Add(-time.Hour)
	p.tLo = time.Now().Add(-time.Hour)

	require.NoError(t, p.Run(context.Background()))
	require.Empty(t, sender.sent)
}

func TestRunPadsLowPriorityDispatchWithHighPriorityQueue(t *testing.T) {
	p, _, _, high, low, sender := newPublisherFixture(t)
	require.NoError(t, low.PushBack([]byte(`{"n":"low"}`)))
	require.NoError(t, high.PushBack([]byte(`{"n":"high"}`)))
	p.tLo = time.Now().Add(-6 * time.Hour)

	require.NoError(t, p.Run(context.Background()))
	require.Len(t, sender.sent, 1)

	var env serializer.Envelope
	require.NoError(t, json.Unmarshal(sender.sent[0], &env))
	require.Len(t, env.Events, 2)
}

func TestRunDispatchesImmediatelyOnMemoryPressure(t *testing.T) {
	p, config, _, high, _, sender := newPublisherFixture(t)
	require.NoError(t, high.PushBack([]byte(`{"n":1}`)))
	// Shrink the per-envelope budget below what is already reserved so
	// currentMem > maxMem, which must trigger an immediate drain ahead of
	// the high-priority cadence.
	require.NoError(t, config.Update([]byte(`{"desired":{"security":{"maxMessageSize":{"value":16}}}}`), true))

	require.NoError(t, p.Run(context.Background()))
	require.Len(t, sender.sent, 1)
}

func TestRunOffersFailedDeliveryToDeadLetterQueue(t *testing.T) {
	p, _, _, high, _, sender := newPublisherFixture(t)
	sender.sendErr = errs.New("test", errs.CodeTransportError, errs.WithMessage("simulated send failure"))
	require.NoError(t, high.PushBack([]byte(`{"n":1}`)))
	p.tHi = time.Now().Add(-time.Hour)

	require.Error(t, p.Run(context.Background()))
	require.Empty(t, sender.sent)

	dead := p.DeadLetters()
	require.Len(t, dead, 1)
	require.Equal(t, observability.TelemetryEventDLQPublished, dead[0].Type)
	require.Empty(t, p.DeadLetters())
}
