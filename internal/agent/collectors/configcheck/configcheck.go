// Package configcheck implements the agent-configuration-error collector: a
// supplemented feature (not present in spec.md's distillation, recovered
// from original_source's agent_configuration_error_collector.c) that
// inspects the twin configuration store each tick and reports the same
// conflicts and per-field errors the twin-update path itself observed.
package configcheck

import (
	"context"
	"fmt"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/agent/collectors"
	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/agent/twinconfig"
)

// Name is the collector's registration and event-priority-lookup key.
const Name = "agent-configuration-error"

// event is the operational event body this collector produces.
type event struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Collector reports twin-configuration conflicts and field errors. It fires
// once per distinct twin update, mirroring the original collector's
// lastEvent/lastUpdateTime dedup.
type Collector struct {
	mu            sync.Mutex
	lastEventTime time.Time
}

// New constructs the agent-configuration-error collector.
func New() *Collector { return &Collector{} }

// Name identifies this collector for eventPriorities lookups.
func (c *Collector) Name() string { return Name }

// Collect inspects the store's last update result and current scalar values,
// emitting one event per detected issue, at most once per twin update.
func (c *Collector) Collect(ctx context.Context, sink collectors.Sink, config *twinconfig.Store) error {
	lastUpdateTime, lastResult, fieldStatus := config.GetLastTwinUpdateData()

	c.mu.Lock()
	seen := lastUpdateTime.Equal(c.lastEventTime)
	c.lastEventTime = lastUpdateTime
	c.mu.Unlock()
	if seen {
		return nil
	}

	if lastResult == twinconfig.UpdateParseException {
		return c.emit(ctx, sink, "parse-exception", "twin update payload was not valid JSON")
	}

	for field, status := range fieldStatus {
		if status == twinconfig.FieldTypeMismatch {
			msg := fmt.Sprintf("field %q rejected: type mismatch, previous value retained", field)
			if err := c.emit(ctx, sink, "field-type-mismatch", msg); err != nil {
				return err
			}
		}
	}

	maxLocalCacheSize := config.MaxLocalCacheSize()
	maxMessageSize := config.MaxMessageSize()
	if maxLocalCacheSize < maxMessageSize {
		msg := fmt.Sprintf("maxLocalCacheSize (%d) is smaller than maxMessageSize (%d)", maxLocalCacheSize, maxMessageSize)
		if err := c.emit(ctx, sink, "conflicting-limits", msg); err != nil {
			return err
		}
	}

	const billingMultiple = 4096
	if maxMessageSize%billingMultiple != 0 {
		msg := fmt.Sprintf("maxMessageSize (%d) is not a multiple of %d", maxMessageSize, billingMultiple)
		if err := c.emit(ctx, sink, "suboptimal-message-size", msg); err != nil {
			return err
		}
	}

	highFreq := config.HighPriorityMessageFrequencyMs()
	lowFreq := config.LowPriorityMessageFrequencyMs()
	if highFreq > lowFreq {
		msg := fmt.Sprintf("high priority frequency (%dms) is higher than low priority frequency (%dms)", highFreq, lowFreq)
		if err := c.emit(ctx, sink, "conflicting-frequencies", msg); err != nil {
			return err
		}
	}

	return nil
}

func (c *Collector) emit(ctx context.Context, sink collectors.Sink, kind, message string) error {
	data, err := json.Marshal(event{Kind: kind, Message: message})
	if err != nil {
		return err
	}
	return sink.Emit(ctx, collectors.Event{Name: Name, Data: data})
}
