// Package scheduler drives a single repeating task on its own goroutine,
// grounded on the worker-loop/context-cancellation idiom of lib/async's pool
// workers: a background goroutine loops task-then-sleep until told to stop,
// and Stop never preempts an in-progress task, only the following sleep.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/errs"
	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/observability"
)

// State enumerates the scheduler's lifecycle states.
type State string

const (
	StateCreated State = "Created"
	StateStarted State = "Started"
	StateStopped State = "Stopped"
)

// TaskFunc is one periodic unit of work. It receives the run context so a
// long task can observe Stop without waiting out the full interval.
type TaskFunc func(ctx context.Context) error

// Scheduler runs taskFn every interval on a dedicated goroutine.
type Scheduler struct {
	name     string
	interval time.Duration
	taskFn   TaskFunc

	mu    sync.Mutex
	state State

	cancel context.CancelFunc
	done   chan struct{}
}

// New constructs a scheduler bound to name, firing taskFn every interval.
// Nothing runs until Start is called.
func New(name string, interval time.Duration, taskFn TaskFunc) *Scheduler {
	return &Scheduler{
		name:     name,
		interval: interval,
		taskFn:   taskFn,
		state:    StateCreated,
	}
}

// Start spawns the task-then-sleep loop. Calling Start twice is a no-op.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateStarted {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.state = StateStarted

	go s.run(ctx)
	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)
	for {
		if err := s.taskFn(ctx); err != nil {
			observability.Log().Error("scheduled task failed",
				observability.Field{Key: "scheduler", Value: s.name},
				observability.Field{Key: "error", Value: err.Error()})
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.interval):
		}
	}
}

// Stop clears the running flag and joins the background goroutine. It does
// not preempt a task already in progress; it only prevents the next
// iteration's sleep from completing into another task invocation.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if s.state != StateStarted {
		s.mu.Unlock()
		return nil
	}
	cancel := s.cancel
	done := s.done
	s.state = StateStopped
	s.mu.Unlock()

	cancel()
	<-done
	return nil
}

// CurrentState reports the scheduler's lifecycle state.
func (s *Scheduler) CurrentState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RunOnce invokes taskFn synchronously, outside the scheduled loop. The
// supervisor uses this for the mandatory first Update-Twin pass before the
// scheduler starts ticking.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if s.taskFn == nil {
		return errs.New("scheduler", errs.CodeInvalid, errs.WithMessage("nil task function"))
	}
	return s.taskFn(ctx)
}
