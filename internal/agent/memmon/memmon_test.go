package memmon

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/errs"
)

type fixedLimit int64

func (f fixedLimit) MaxLocalCacheSize() int64 { return int64(f) }

func TestConsumeWithinLimitSucceeds(t *testing.T) {
	m := New(fixedLimit(1024))
	require.NoError(t, m.Consume(512))
	require.Equal(t, int64(512), m.CurrentConsumption())
}

func TestConsumeBeyondLimitReturnsMaxMemoryExceeded(t *testing.T) {
	m := New(fixedLimit(1024))
	require.NoError(t, m.Consume(1024))

	err := m.Consume(1)
	require.True(t, errs.Is(err, errs.CodeMaxMemoryExceeded))
	require.Equal(t, int64(1024), m.CurrentConsumption(), "rejected consume must have no side effect")
}

func TestReleaseBeyondCurrentReturnsInvalidReleaseSize(t *testing.T) {
	m := New(fixedLimit(1024))
	require.NoError(t, m.Consume(100))

	err := m.Release(200)
	require.True(t, errs.Is(err, errs.CodeInvalidReleaseSize))
	require.Equal(t, int64(100), m.CurrentConsumption(), "rejected release must not underflow")
}

func TestConsumeRejectsAtLimitAndUnderBackpressure(t *testing.T) {
	limit := fixedLimit(100)
	m := New(limit)
	require.NoError(t, m.Consume(100))

	err := m.Consume(1)
	require.True(t, errs.Is(err, errs.CodeMaxMemoryExceeded))

	// Backpressure scenario (spec §8.6): 1 KiB cache, repeated pushes.
	m2 := New(fixedLimit(1024))
	accepted := 0
	rejected := 0
	for i := 0; i < 10; i++ {
		if err := m2.Consume(1024); err == nil {
			accepted++
		} else {
			rejected++
		}
	}
	require.Equal(t, 1, accepted)
	require.Equal(t, 9, rejected)
}
