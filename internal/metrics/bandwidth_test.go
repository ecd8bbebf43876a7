package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBandwidthMonitorComputesRollingRate(t *testing.T) {
	now := time.Unix(1000, 0)
	m := NewBandwidthMonitor(time.Second)
	m.now = func() time.Time { return now }

	require.Equal(t, 0.0, m.KbpsRate())

	m.RecordPacket(125) // 1000 bits
	require.InDelta(t, 1.0, m.KbpsRate(), 1e-9, "1000 bits over a 1s window is 1 kbps")

	now = now.Add(500 * time.Millisecond)
	m.RecordPacket(125)
	require.InDelta(t, 2.0, m.KbpsRate(), 1e-9, "both samples still inside the 1s window")
}

func TestBandwidthMonitorExpiresOldSamples(t *testing.T) {
	now := time.Unix(2000, 0)
	m := NewBandwidthMonitor(time.Second)
	m.now = func() time.Time { return now }

	m.RecordPacket(1000)
	require.Greater(t, m.KbpsRate(), 0.0)

	now = now.Add(2 * time.Second)
	require.Equal(t, 0.0, m.KbpsRate(), "samples older than the window must be dropped")
}

func TestConnectionBandwidthTracksBothDirectionsIndependently(t *testing.T) {
	cb := NewConnectionBandwidth(time.Second)
	cb.Outgoing.RecordPacket(500)
	cb.Incoming.RecordPacket(100)

	require.Greater(t, cb.Outgoing.KbpsRate(), cb.Incoming.KbpsRate())
}
