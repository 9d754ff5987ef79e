// Package supervisor wires every agent component into one process lifecycle:
// init ordering (with unwind-on-failure), start, and staged shutdown. Modeled
// on the gateway entrypoint's bootstrap/performGracefulShutdown shape,
// generalized from an HTTP-server-plus-eventbus process to this agent's
// queue/adapter/scheduler graph.
package supervisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/errs"
	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/agent/adapter"
	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/agent/collectors"
	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/agent/collectors/configcheck"
	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/agent/memmon"
	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/agent/queue"
	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/agent/scheduler"
	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/agent/serializer"
	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/agent/tasks"
	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/agent/transport"
	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/agent/twinconfig"
	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/localconfig"
	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/observability"
	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/telemetry"
)

const component = "supervisor"

const (
	diagnosticQueueName  = "diagnostic"
	operationalQueueName = "operational"
	highQueueName        = "high"
	lowQueueName         = "low"
	twinUpdatesQueueName = "twin-updates"

	agentVersion         = "1.0.0"
	messageSchemaVersion = "1.0"

	updateTwinInterval   = 10 * time.Second
	publisherInterval    = 1 * time.Second
	eventMonitorName     = "event-monitor"
	publisherName        = "event-publisher"
	updateTwinSchedName  = "update-twin"
	diagnosticsSchedName = "diagnostics-export"
	diagnosticsInterval  = 60 * time.Second

	schedulerStopTimeout  = 5 * time.Second
	adapterDeinitTimeout  = 5 * time.Second
	telemetryShutdownTime = 5 * time.Second

	deadLetterCapacity = 256
)

// State enumerates the supervisor's own lifecycle.
type State string

const (
	StateCreated     State = "Created"
	StateInitialized State = "Initialized"
	StateRunning     State = "Running"
	StateStopped     State = "Stopped"
)

// Config bundles the process-level parameters gathered before Init: where to
// read local configuration from, which transport to dial, and how to name
// this process to the telemetry backend.
type Config struct {
	LocalConfigPath   string
	TransportURL      string
	TwinSubObjectName string
	Logger            observability.Logger
	Telemetry         telemetry.Config
	ExtraCollectors   []collectors.Collector

	// Client overrides the transport the adapter binds to. Tests supply an
	// in-process fake here; production leaves it nil and gets a websocket
	// client dialing TransportURL.
	Client transport.Client
}

// Supervisor owns every long-lived agent record and the schedulers driving
// them. Tasks and the adapter hold only non-owning references into it.
type Supervisor struct {
	mu    sync.Mutex
	state State

	settings localconfig.Settings
	bus      *observability.InMemoryTelemetryBus

	monitor    *memmon.Monitor
	twinConfig *twinconfig.Store

	diagnosticQueue  *queue.SyncQueue
	operationalQueue *queue.SyncQueue
	highQueue        *queue.SyncQueue
	lowQueue         *queue.SyncQueue
	twinUpdatesQueue *queue.SyncQueue

	registry     *collectors.Registry
	router       *tasks.PriorityRouter
	eventMonitor *tasks.EventMonitor
	publisher    *tasks.EventPublisher
	updateTwin   *tasks.UpdateTwinTask

	client  transport.Client
	adapter *adapter.Adapter

	telemetryProvider *telemetry.Provider
	runtimeMetrics    *observability.RuntimeMetrics
	diagInstruments   diagnosticInstruments
	dlq               *observability.DeadLetterQueue

	eventMonitorSched *scheduler.Scheduler
	publisherSched    *scheduler.Scheduler
	updateTwinSched   *scheduler.Scheduler
	diagnosticsSched  *scheduler.Scheduler
}

type diagnosticInstruments struct {
	queueCollected otelmetric.Int64Counter
	queueDropped   otelmetric.Int64Counter
	messagesSent   otelmetric.Int64Counter
	messagesSmall  otelmetric.Int64Counter
	messagesFailed otelmetric.Int64Counter
}

// New constructs an uninitialized supervisor.
func New() *Supervisor {
	return &Supervisor{state: StateCreated}
}

// CurrentState reports the supervisor's lifecycle state.
func (s *Supervisor) CurrentState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Init wires every component in the documented order: logger, messaging
// runtime, local config, memory monitor, twin config, privilege drop, queues,
// diagnostic-event collector, telemetry provider, IoT adapter. Any step's
// failure unwinds every step that already succeeded, in reverse.
//
// The memory monitor binds to the twin configuration store as its limit
// source at construction (Go has no settable field to bind it later), so in
// this implementation the store is constructed immediately before the
// monitor rather than strictly after it; neither is started at this point,
// so the two constructions are not observably ordered.
func (s *Supervisor) Init(ctx context.Context, cfg Config) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateCreated {
		return errs.New(component, errs.CodeInvalid, errs.WithMessage("Init called out of order"))
	}

	var unwind []func()
	defer func() {
		if err != nil {
			for i := len(unwind) - 1; i >= 0; i-- {
				unwind[i]()
			}
		}
	}()

	if cfg.Logger != nil {
		observability.SetLogger(cfg.Logger)
		unwind = append(unwind, func() { observability.SetLogger(nil) })
	}

	s.bus = observability.NewInMemoryTelemetryBus(256)
	unwind = append(unwind, func() { s.bus.Close() })
	s.dlq = observability.NewDeadLetterQueue(deadLetterCapacity)

	settings, loadErr := localconfig.LoadOrDefault(cfg.LocalConfigPath)
	if loadErr != nil {
		err = errs.New(component, errs.CodeInvalid, errs.WithCause(loadErr))
		return err
	}
	s.settings = settings

	subObject := cfg.TwinSubObjectName
	if subObject == "" {
		subObject = settings.TwinSubObjectName
	}
	s.twinConfig = twinconfig.New(subObject)
	s.monitor = memmon.New(s.twinConfig)

	if dropErr := dropPrivileges(); dropErr != nil {
		err = errs.New(component, errs.CodeUnavailable, errs.WithCause(dropErr))
		return err
	}

	s.diagnosticQueue = queue.NewSync(s.monitor)
	s.operationalQueue = queue.NewSync(s.monitor)
	s.highQueue = queue.NewSync(s.monitor)
	s.lowQueue = queue.NewSync(s.monitor)
	s.twinUpdatesQueue = queue.NewSync(s.monitor)
	unwind = append(unwind, func() {
		_ = s.diagnosticQueue.Drain()
		_ = s.operationalQueue.Drain()
		_ = s.highQueue.Drain()
		_ = s.lowQueue.Drain()
		_ = s.twinUpdatesQueue.Drain()
	})

	s.registry = collectors.NewRegistry()
	s.registry.Register(configcheck.New())
	for _, extra := range cfg.ExtraCollectors {
		s.registry.Register(extra)
	}
	s.router = tasks.NewPriorityRouter(s.operationalQueue, s.highQueue, s.lowQueue, s.twinConfig, configcheck.Name)
	s.eventMonitor = tasks.NewEventMonitor(s.registry, s.router, s.twinConfig)

	telemetryProvider, telemetryErr := telemetry.NewProvider(ctx, cfg.Telemetry)
	if telemetryErr != nil {
		err = fmt.Errorf("initialize telemetry provider: %w", telemetryErr)
		return err
	}
	s.telemetryProvider = telemetryProvider
	unwind = append(unwind, func() { _ = s.telemetryProvider.Shutdown(context.Background()) })
	s.runtimeMetrics = observability.NewRuntimeMetrics()
	s.diagInstruments = newDiagnosticInstruments(s.telemetryProvider.Meter("agent-diagnostics"))

	s.client = cfg.Client
	if s.client == nil {
		s.client = transport.NewWebsocketClient(cfg.TransportURL)
	}
	s.adapter = adapter.New(s.client, time.Duration(settings.ConnectionTimeoutMs)*time.Millisecond)
	if initErr := s.adapter.Init(ctx, settings.ConnectionString, s.twinUpdatesQueue); initErr != nil {
		err = initErr
		return err
	}
	unwind = append(unwind, func() { _ = s.adapter.Deinit() })

	s.serializerForPublisher()

	s.state = StateInitialized
	return nil
}

// serializerForPublisher builds the publisher and update-twin tasks, which
// depend on the adapter constructed at the end of Init.
func (s *Supervisor) serializerForPublisher() {
	serial := serializer.New(agentVersion, s.settings.AgentID, messageSchemaVersion, s.twinConfig)
	s.publisher = tasks.NewEventPublisher(s.operationalQueue, s.highQueue, s.lowQueue, s.twinConfig, s.monitor, serial, s.adapter, s.dlq)
	s.updateTwin = tasks.NewUpdateTwinTask(s.twinUpdatesQueue, s.twinConfig, s.adapter)
}

// Start brings the agent online: connects the adapter, requires at least one
// twin push to have arrived, applies it synchronously, then starts the
// publisher, event monitor, and update-twin schedulers.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateInitialized {
		s.mu.Unlock()
		return errs.New(component, errs.CodeInvalid, errs.WithMessage("Start called out of order"))
	}
	s.mu.Unlock()

	if err := s.adapter.Connect(ctx); err != nil {
		return err
	}
	if s.twinUpdatesQueue.GetSize() == 0 {
		return errs.New(component, errs.CodeUnavailable, errs.WithMessage("adapter reached Ready without a twin configuration push"))
	}
	if err := s.updateTwin.Run(ctx); err != nil {
		return err
	}
	_ = s.bus.Publish(ctx, observability.TelemetryEvent{
		Type:      observability.TelemetryEventTwinConfigurationUpdated,
		Severity:  observability.TelemetrySeverityInfo,
		Timestamp: time.Now(),
		Metadata:  map[string]any{"agentId": s.settings.AgentID},
	})

	s.eventMonitorSched = scheduler.New(eventMonitorName, s.triggeredEventInterval(), s.eventMonitor.Run)
	s.publisherSched = scheduler.New(publisherName, publisherInterval, s.publisher.Run)
	s.updateTwinSched = scheduler.New(updateTwinSchedName, updateTwinInterval, s.updateTwin.Run)
	s.diagnosticsSched = scheduler.New(diagnosticsSchedName, diagnosticsInterval, s.reportDiagnostics)

	for _, sched := range []*scheduler.Scheduler{s.publisherSched, s.eventMonitorSched, s.updateTwinSched, s.diagnosticsSched} {
		if err := sched.Start(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.state = StateRunning
	s.mu.Unlock()
	return nil
}

func (s *Supervisor) triggeredEventInterval() time.Duration {
	ms := s.settings.TriggeredEventIntervalMs
	if ms <= 0 {
		ms = localconfig.DefaultTriggeredEventIntervalMs
	}
	return time.Duration(ms) * time.Millisecond
}

// Stop tears the agent down: schedulers first (joined concurrently, since
// each Stop blocks for its own run loop to observe cancellation), then the
// adapter, then the queues (drained, releasing memory back through the
// monitor), then the telemetry provider, and finally the telemetry bus and
// the logger. The tasks, twin config, memory monitor and local config have
// no teardown step of their own.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return nil
	}
	s.state = StateStopped
	s.mu.Unlock()

	step := func(name string, timeout time.Duration, fn func(context.Context) error) {
		stepCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := fn(stepCtx); err != nil {
			observability.Log().Error("shutdown step failed", observability.Field{Key: "step", Value: name}, observability.Field{Key: "error", Value: err.Error()})
		}
	}

	step("stop schedulers", schedulerStopTimeout, func(context.Context) error {
		var wg conc.WaitGroup
		for _, sched := range []*scheduler.Scheduler{s.publisherSched, s.eventMonitorSched, s.updateTwinSched, s.diagnosticsSched} {
			sched := sched
			if sched == nil {
				continue
			}
			wg.Go(func() { _ = sched.Stop() })
		}
		wg.Wait()
		return nil
	})

	step("deinit adapter", adapterDeinitTimeout, func(context.Context) error {
		return s.adapter.Deinit()
	})

	step("drain queues", schedulerStopTimeout, func(context.Context) error {
		drainErrs := make([]error, 0, 5)
		for _, q := range []*queue.SyncQueue{s.diagnosticQueue, s.operationalQueue, s.highQueue, s.lowQueue, s.twinUpdatesQueue} {
			drainErrs = append(drainErrs, q.Drain())
		}
		return observability.AggregateErrors("drain queues", drainErrs)
	})

	step("shutdown telemetry", telemetryShutdownTime, func(stepCtx context.Context) error {
		return s.telemetryProvider.Shutdown(stepCtx)
	})

	s.bus.Close()
	observability.SetLogger(nil)
	return nil
}

// reportDiagnostics exports every queue's and the adapter's snapshot-and-reset
// counters to the telemetry provider and the in-memory runtime snapshot, then
// clears them for the next interval.
func (s *Supervisor) reportDiagnostics(ctx context.Context) error {
	named := []struct {
		name string
		q    *queue.SyncQueue
	}{
		{diagnosticQueueName, s.diagnosticQueue},
		{operationalQueueName, s.operationalQueue},
		{highQueueName, s.highQueue},
		{lowQueueName, s.lowQueue},
		{twinUpdatesQueueName, s.twinUpdatesQueue},
	}

	for _, entry := range named {
		snap := entry.q.Counters().SnapshotAndReset()
		s.runtimeMetrics.RecordQueueDepth(entry.name, entry.q.GetSize())
		for i := int64(0); i < snap.Dropped; i++ {
			s.runtimeMetrics.IncrementRejectedEvents(entry.name)
		}
		attrs := otelmetric.WithAttributes(telemetry.QueueAttributes(telemetry.Environment(), entry.name, "")...)
		s.diagInstruments.queueCollected.Add(ctx, snap.Collected, attrs)
		s.diagInstruments.queueDropped.Add(ctx, snap.Dropped, attrs)
	}
	s.runtimeMetrics.RecordQueueBytes("total", s.monitor.CurrentConsumption())

	msgSnap := s.adapter.Counters().SnapshotAndReset()
	msgAttrs := otelmetric.WithAttributes(telemetry.OperationResultAttributes(telemetry.Environment(), "send", "")...)
	s.diagInstruments.messagesSent.Add(ctx, msgSnap.SentMessages, msgAttrs)
	s.diagInstruments.messagesSmall.Add(ctx, msgSnap.SmallMessages, msgAttrs)
	s.diagInstruments.messagesFailed.Add(ctx, msgSnap.FailedMessages, msgAttrs)

	deadLetters := s.publisher.DeadLetters()
	for _, dead := range deadLetters {
		s.runtimeMetrics.IncrementRejectedEvents("dead-letter")
		if pubErr := s.bus.Publish(ctx, dead); pubErr != nil {
			observability.Log().Error("dead letter publish failed", observability.Field{Key: "error", Value: pubErr.Error()})
		}
	}

	return s.bus.Publish(ctx, observability.TelemetryEvent{
		Type:      observability.TelemetryEventSendConfirmed,
		Severity:  observability.TelemetrySeverityInfo,
		Timestamp: time.Now(),
		Metadata: map[string]any{
			"sentMessages":   msgSnap.SentMessages,
			"failedMessages": msgSnap.FailedMessages,
			"bytesInUse":     s.monitor.CurrentConsumption(),
			"deadLetters":    len(deadLetters),
		},
	})
}

func newDiagnosticInstruments(meter otelmetric.Meter) diagnosticInstruments {
	queueCollected, _ := meter.Int64Counter("agent.queue.collected", otelmetric.WithDescription("items enqueued per queue since last export"))
	queueDropped, _ := meter.Int64Counter("agent.queue.dropped", otelmetric.WithDescription("items rejected per queue since last export"))
	messagesSent, _ := meter.Int64Counter("agent.messages.sent", otelmetric.WithDescription("messages handed to the transport since last export"))
	messagesSmall, _ := meter.Int64Counter("agent.messages.small", otelmetric.WithDescription("messages under the billing multiple since last export"))
	messagesFailed, _ := meter.Int64Counter("agent.messages.failed", otelmetric.WithDescription("messages the transport reported as failed since last export"))
	return diagnosticInstruments{
		queueCollected: queueCollected,
		queueDropped:   queueDropped,
		messagesSent:   messagesSent,
		messagesSmall:  messagesSmall,
		messagesFailed: messagesFailed,
	}
}

// dropPrivileges is a no-op on this platform: the agent never requires
// elevated privileges for its network path, unlike the original collector
// binaries that bind privileged sockets. Retained as a hook so the init
// order matches the documented sequence.
func dropPrivileges() error {
	return nil
}
