package tasks

import (
	"context"

	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/errs"
	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/agent/adapter"
	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/agent/queue"
	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/agent/transport"
	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/agent/twinconfig"
	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/observability"
)

// ReportedPropertiesSender is the narrow adapter capability the update-twin
// task depends on.
type ReportedPropertiesSender interface {
	SetReportedPropertiesAsync(ctx context.Context, data []byte) error
}

// UpdateTwinTask drains the twin-updates queue, applies each item to the
// configuration store, and reports the resulting view back to the hub.
type UpdateTwinTask struct {
	twinUpdates *queue.SyncQueue
	config      *twinconfig.Store
	adapter     ReportedPropertiesSender
}

// NewUpdateTwinTask builds the Component J task body.
func NewUpdateTwinTask(twinUpdates *queue.SyncQueue, config *twinconfig.Store, adapter ReportedPropertiesSender) *UpdateTwinTask {
	return &UpdateTwinTask{twinUpdates: twinUpdates, config: config, adapter: adapter}
}

// Run drains every currently-queued twin update, then reports the resulting
// configuration view exactly once.
func (t *UpdateTwinTask) Run(ctx context.Context) error {
	applied := false

	for t.twinUpdates.GetSize() > 0 {
		raw, err := t.twinUpdates.PopFront()
		if err != nil {
			if errs.Is(err, errs.CodeQueueEmpty) {
				break
			}
			return err
		}

		item, err := adapter.DecodeTwinUpdateItem(raw)
		if err != nil {
			observability.Log().Error("twin update item undecodable", observability.Field{Key: "error", Value: err.Error()})
			continue
		}

		complete := item.State == transport.TwinStateComplete
		updateErr := t.config.Update(item.Payload, complete)
		if updateErr == nil {
			applied = true
			continue
		}
		if errs.Is(updateErr, errs.CodeParseException) {
			applied = true
			continue
		}
		observability.Log().Error("twin update aborted this cycle", observability.Field{Key: "error", Value: updateErr.Error()})
		return nil
	}

	if !applied {
		return nil
	}

	serialized, err := t.config.GetSerializedTwinConfiguration()
	if err != nil {
		return err
	}
	return t.adapter.SetReportedPropertiesAsync(ctx, serialized)
}
