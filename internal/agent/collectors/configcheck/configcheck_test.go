package configcheck

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/agent/collectors"
	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/agent/twinconfig"
)

type fakeSink struct {
	events []collectors.Event
}

func (s *fakeSink) Emit(_ context.Context, ev collectors.Event) error {
	s.events = append(s.events, ev)
	return nil
}

func TestCollectFlagsConflictingLimits(t *testing.T) {
	store := twinconfig.New("security")
	require.NoError(t, store.Update([]byte(`{"desired":{"security":{
		"maxLocalCacheSize":{"value":100},
		"maxMessageSize":{"value":1000}
	}}}`), true))

	c := New()
	sink := &fakeSink{}
	require.NoError(t, c.Collect(context.Background(), sink, store))

	var kinds []string
	for _, ev := range sink.events {
		kinds = append(kinds, string(ev.Data))
	}
	require.NotEmpty(t, sink.events)
	found := false
	for _, ev := range sink.events {
		if strings.Contains(string(ev.Data), "conflicting-limits") {
			found = true
		}
	}
	require.True(t, found, "expected a conflicting-limits event, got %v", kinds)
}

func TestCollectIsANoOpWhenNothingChangedSinceLastTick(t *testing.T) {
	store := twinconfig.New("security")
	require.NoError(t, store.Update([]byte(`{"desired":{"security":{"maxMessageSize":{"value":5000}}}}`), true))

	c := New()
	sink := &fakeSink{}
	require.NoError(t, c.Collect(context.Background(), sink, store))
	first := len(sink.events)
	require.Greater(t, first, 0)

	require.NoError(t, c.Collect(context.Background(), sink, store))
	require.Len(t, sink.events, first, "a second tick against an unchanged update must emit nothing")
}

func TestCollectFlagsSuboptimalMessageSize(t *testing.T) {
	store := twinconfig.New("security")
	require.NoError(t, store.Update([]byte(`{"desired":{"security":{"maxMessageSize":{"value":5000}}}}`), true))

	c := New()
	sink := &fakeSink{}
	require.NoError(t, c.Collect(context.Background(), sink, store))

	found := false
	for _, ev := range sink.events {
		if strings.Contains(string(ev.Data), "suboptimal-message-size") {
			found = true
		}
	}
	require.True(t, found)
}
