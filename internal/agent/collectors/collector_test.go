package collectors

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/agent/twinconfig"
)

type fakeSink struct {
	events []Event
}

func (s *fakeSink) Emit(_ context.Context, ev Event) error {
	s.events = append(s.events, ev)
	return nil
}

type staticCollector struct {
	name    string
	events  []Event
	failure error
}

func (c *staticCollector) Name() string { return c.name }

func (c *staticCollector) Collect(ctx context.Context, sink Sink, _ *twinconfig.Store) error {
	if c.failure != nil {
		return c.failure
	}
	for _, ev := range c.events {
		if err := sink.Emit(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

func TestRunAllInvokesEveryRegisteredCollector(t *testing.T) {
	r := NewRegistry()
	r.Register(&staticCollector{name: "a", events: []Event{{Name: "a", Data: []byte("1")}}})
	r.Register(&staticCollector{name: "b", events: []Event{{Name: "b", Data: []byte("2")}}})

	sink := &fakeSink{}
	errsByName := r.RunAll(context.Background(), sink, twinconfig.New("security"))

	require.Nil(t, errsByName)
	require.Len(t, sink.events, 2)
}

func TestRunAllContinuesAfterOneCollectorFails(t *testing.T) {
	r := NewRegistry()
	r.Register(&staticCollector{name: "broken", failure: errors.New("boom")})
	r.Register(&staticCollector{name: "ok", events: []Event{{Name: "ok", Data: []byte("1")}}})

	sink := &fakeSink{}
	errsByName := r.RunAll(context.Background(), sink, twinconfig.New("security"))

	require.Len(t, errsByName, 1)
	require.Contains(t, errsByName, "broken")
	require.Len(t, sink.events, 1)
}

func TestNamesAreSortedAndDeduplicatedOnReRegister(t *testing.T) {
	r := NewRegistry()
	r.Register(&staticCollector{name: "z"})
	r.Register(&staticCollector{name: "a"})
	r.Register(&staticCollector{name: "a"})

	require.Equal(t, []string{"a", "z"}, r.Names())
}
