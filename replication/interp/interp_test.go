package interp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTrackerInterpolatesBetweenLastTwoSamples(t *testing.T) {
	tr := NewTracker()
	require.Equal(t, 0.0, tr.Interpolate(0))

	tr.Record(Sample{Tick: 10, Value: 0})
	require.Equal(t, 0.0, tr.Interpolate(10.5), "single sample holds its value")

	tr.Record(Sample{Tick: 12, Value: 20})
	require.InDelta(t, 10.0, tr.Interpolate(11), 1e-9, "halfway between tick 10 and 12")
	require.Equal(t, 0.0, tr.Interpolate(10))
	require.Equal(t, 20.0, tr.Interpolate(12))
}

func TestTrackerClampsPastMostRecentSample(t *testing.T) {
	tr := NewTracker()
	tr.Record(Sample{Tick: 5, Value: 1})
	tr.Record(Sample{Tick: 6, Value: 3})
	require.Equal(t, 3.0, tr.Interpolate(100), "querying far past the newest sample holds, not extrapolates")
	require.Equal(t, 1.0, tr.Interpolate(0), "querying before the oldest sample holds too")
}

func TestTrackerIgnoresStaleAndDuplicateSamples(t *testing.T) {
	tr := NewTracker()
	tr.Record(Sample{Tick: 10, Value: 5})
	tr.Record(Sample{Tick: 12, Value: 15})
	tr.Record(Sample{Tick: 11, Value: 999}) // stale, must be dropped
	tr.Record(Sample{Tick: 12, Value: 999}) // duplicate tick, must be dropped

	require.InDelta(t, 10.0, tr.Interpolate(11), 1e-9)
}

func TestTrackerHandlesTickWraparound(t *testing.T) {
	tr := NewTracker()
	tr.Record(Sample{Tick: 65534, Value: 0})
	tr.Record(Sample{Tick: 0, Value: 4})
	require.InDelta(t, 2.0, tr.Interpolate(65535), 1e-9, "span between ticks 65534 and 0 must wrap to 2, not go negative")
}

func TestManagerMultiplexesTrackersByKey(t *testing.T) {
	m := NewManager()
	keyX := Key{Entity: 1, Kind: 7, Property: 0}
	keyY := Key{Entity: 1, Kind: 7, Property: 1}

	_, ok := m.Interpolate(keyX, 0)
	require.False(t, ok, "no samples recorded yet")

	m.Record(keyX, Sample{Tick: 0, Value: 0})
	m.Record(keyX, Sample{Tick: 2, Value: 10})
	m.Record(keyY, Sample{Tick: 0, Value: 100})
	m.Record(keyY, Sample{Tick: 2, Value: 200})

	gotX, ok := m.Interpolate(keyX, 1)
	require.True(t, ok)
	require.InDelta(t, 5.0, gotX, 1e-9)

	gotY, ok := m.Interpolate(keyY, 1)
	require.True(t, ok)
	require.InDelta(t, 150.0, gotY, 1e-9)

	m.Forget(keyX)
	_, ok = m.Interpolate(keyX, 1)
	require.False(t, ok, "Forget must drop the tracker entirely")
}
