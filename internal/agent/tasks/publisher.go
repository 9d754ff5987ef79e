package tasks

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/agent/memmon"
	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/agent/queue"
	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/agent/serializer"
	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/agent/twinconfig"
	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/observability"
)

// Sender is the narrow adapter capability the publisher task depends on.
type Sender interface {
	SendMessageAsync(ctx context.Context, data []byte) error
}

// EventPublisher drains the operational/high/low queues on the cadence read
// from the twin configuration, coupling each priority's padding to the
// opposite queue so a sparse primary bucket still fills the envelope.
type EventPublisher struct {
	operational *queue.SyncQueue
	high        *queue.SyncQueue
	low         *queue.SyncQueue

	config   *twinconfig.Store
	monitor  *memmon.Monitor
	serial   *serializer.Serializer
	adapter  Sender
	dlq      *observability.DeadLetterQueue

	tHi time.Time
	tLo time.Time
}

// NewEventPublisher builds the Component I task body. tHi and tLo are
// initialized to now, as the spec requires. dlq may be nil, in which case
// delivery failures are logged but not retained.
func NewEventPublisher(operational, high, low *queue.SyncQueue, config *twinconfig.Store, monitor *memmon.Monitor, serial *serializer.Serializer, adapter Sender, dlq *observability.DeadLetterQueue) *EventPublisher {
	now := time.Now()
	return &EventPublisher{
		operational: operational,
		high:        high,
		low:         low,
		config:      config,
		monitor:     monitor,
		serial:      serial,
		adapter:     adapter,
		dlq:         dlq,
		tHi:         now,
		tLo:         now,
	}
}

// DeadLetters drains and returns every delivery failure recorded since the
// last call.
func (p *EventPublisher) DeadLetters() []observability.TelemetryEvent {
	if p.dlq == nil {
		return nil
	}
	return p.dlq.Drain()
}

// Run executes one Component I cycle.
func (p *EventPublisher) Run(ctx context.Context) error {
	fHi := time.Duration(p.config.HighPriorityMessageFrequencyMs()) * time.Millisecond
	fLo := time.Duration(p.config.LowPriorityMessageFrequencyMs()) * time.Millisecond
	maxMem := p.config.MaxMessageSize()
	currentMem := p.monitor.CurrentConsumption()

	now := time.Now()

	if currentMem > maxMem {
		if err := p.dispatch(ctx, p.high, p.low); err != nil {
			return err
		}
		p.tHi = now
		return nil
	}

	if now.Sub(p.tHi) > fHi {
		if err := p.dispatch(ctx, p.high, p.low); err != nil {
			return err
		}
		p.tHi = now
	}

	if now.Sub(p.tLo) > fLo {
		if err := p.dispatch(ctx, p.low, p.high); err != nil {
			return err
		}
		p.tLo = now
	}

	return nil
}

// dispatch serializes [operational, main, padding] and hands any produced
// buffer to the adapter. No-op if main is empty: the spec forbids empty
// sends.
func (p *EventPublisher) dispatch(ctx context.Context, main, padding *queue.SyncQueue) error {
	if main.GetSize() == 0 {
		return nil
	}

	buf, result, err := p.serial.Serialize(p.operational, main, padding)
	if err != nil {
		return err
	}
	if buf == nil {
		return nil
	}
	if result != serializer.ResultOk && result != serializer.ResultPartial {
		return nil
	}

	if err := p.adapter.SendMessageAsync(ctx, buf); err != nil {
		observability.Log().Error("publish failed", observability.Field{Key: "error", Value: err.Error()})
		if p.dlq != nil {
			p.dlq.Offer(observability.TelemetryEvent{
				EventID:   uuid.NewString(),
				Type:      observability.TelemetryEventDLQPublished,
				Severity:  observability.TelemetrySeverityError,
				Timestamp: time.Now(),
				Metadata:  map[string]any{"bytes": len(buf), "error": err.Error()},
			})
		}
		return err
	}
	return nil
}
