// Package memmon implements the process-wide accounted byte budget that
// gates every queue's PushBack, re-reading its limit from the twin
// configuration store on every Consume.
package memmon

import (
	"strconv"
	"sync"

	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/errs"
)

// LimitSource supplies the current memory budget. The twin configuration
// store satisfies this interface; it is expressed here as an interface so
// the monitor does not import the store package.
type LimitSource interface {
	MaxLocalCacheSize() int64
}

// Monitor is a process-wide accounted byte budget with consume/release gates.
type Monitor struct {
	mu      sync.Mutex
	current int64
	limits  LimitSource
}

// New constructs a monitor that re-reads its limit from limits on every Consume.
func New(limits LimitSource) *Monitor {
	return &Monitor{limits: limits}
}

// Consume reserves n bytes against the budget. It re-reads the limit from the
// twin configuration store so every allocation path observes the latest
// policy. It returns CodeMaxMemoryExceeded (with no side effect) if the
// reservation would breach the limit.
func (m *Monitor) Consume(n int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.limits == nil {
		return errs.New("memmon", errs.CodeMemoryException, errs.WithMessage("no limit source configured"))
	}
	limit := m.limits.MaxLocalCacheSize()
	if m.current+n > limit {
		return errs.New("memmon", errs.CodeMaxMemoryExceeded,
			errs.WithField("requested_bytes", strconv.FormatInt(n, 10)),
			errs.WithField("current_bytes", strconv.FormatInt(m.current, 10)),
			errs.WithField("limit_bytes", strconv.FormatInt(limit, 10)))
	}
	m.current += n
	return nil
}

// Release gives back n previously consumed bytes. Releasing more than is
// currently reserved is a programmer error and returns CodeInvalidReleaseSize
// without mutating state.
func (m *Monitor) Release(n int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n > m.current {
		return errs.New("memmon", errs.CodeInvalidReleaseSize,
			errs.WithField("release_bytes", strconv.FormatInt(n, 10)),
			errs.WithField("current_bytes", strconv.FormatInt(m.current, 10)))
	}
	m.current -= n
	return nil
}

// CurrentConsumption returns the currently reserved byte count.
func (m *Monitor) CurrentConsumption() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}
