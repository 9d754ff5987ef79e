// Package collectors defines the collector capability set the event-monitor
// task drives, modeled on the gateway's provider Registry: collectors
// register under a stable name, the registry looks them up and runs them
// every tick, and their bodies stay out of this package's scope — real
// collector implementations are platform-specific and the spec treats them
// as opaque, aside from the one supplemented diagnostic collector in
// internal/agent/collectors/configcheck.
package collectors

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/agent/twinconfig"
)

// Event is one opaque, already-serialized event body a collector produces.
// Event objects are opaque to the core; collectors are responsible for their
// own schema.
type Event struct {
	Name string
	Data []byte
}

// Sink is where a collector deposits events; the event-monitor task routes
// each one to the queue selected by the twin configuration's event priority
// for Name.
type Sink interface {
	Emit(ctx context.Context, ev Event) error
}

// Collector produces zero or more events on each invocation.
type Collector interface {
	// Name identifies the collector for eventPriorities lookups and logging.
	Name() string
	// Collect runs one pass, writing any produced events to sink.
	Collect(ctx context.Context, sink Sink, config *twinconfig.Store) error
}

// Registry maintains named collectors invoked once per event-monitor tick.
type Registry struct {
	mu         sync.RWMutex
	collectors map[string]Collector
}

// NewRegistry returns an empty collector registry.
func NewRegistry() *Registry {
	return &Registry{collectors: make(map[string]Collector)}
}

// Register adds c under its own Name, overwriting any prior registration
// with the same name.
func (r *Registry) Register(c Collector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collectors[c.Name()] = c
}

// Names returns every registered collector name, sorted for deterministic
// iteration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.collectors))
	for name := range r.collectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RunAll invokes every registered collector in name order, collecting the
// first error encountered per collector without aborting the remaining ones.
func (r *Registry) RunAll(ctx context.Context, sink Sink, config *twinconfig.Store) map[string]error {
	r.mu.RLock()
	snapshot := make([]Collector, 0, len(r.collectors))
	for _, name := range r.namesLocked() {
		snapshot = append(snapshot, r.collectors[name])
	}
	r.mu.RUnlock()

	errsByName := make(map[string]error)
	for _, c := range snapshot {
		if err := c.Collect(ctx, sink, config); err != nil {
			errsByName[c.Name()] = fmt.Errorf("collector %s: %w", c.Name(), err)
		}
	}
	if len(errsByName) == 0 {
		return nil
	}
	return errsByName
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.collectors))
	for name := range r.collectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
