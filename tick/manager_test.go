package tick

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestManagerAdvancesOnInterval(t *testing.T) {
	m := NewManager(100 * time.Millisecond)
	base := time.Now()

	require.Equal(t, 0, m.Advance(base)) // primes
	require.Equal(t, 0, m.Advance(base.Add(50*time.Millisecond)))
	require.Equal(t, uint16(0), m.Current())

	fired := m.Advance(base.Add(210 * time.Millisecond))
	require.Equal(t, 2, fired)
	require.Equal(t, uint16(2), m.Current())
}

func TestRTTTrackerSmoothing(t *testing.T) {
	tr := NewRTTTracker(100*time.Millisecond, 10*time.Millisecond, 0.1)
	tr.Update(RTTSample{RTT: 100 * time.Millisecond})
	tr.Update(RTTSample{RTT: 120 * time.Millisecond})
	require.InDelta(t, 102, tr.RTT().Seconds()*1000, 1)
}

func TestPingPongRoundTrip(t *testing.T) {
	tracker := NewRTTTracker(50*time.Millisecond, 5*time.Millisecond, 0.1)
	pm := NewPingManager(time.Second, tracker)

	now := time.Now()
	ping, ok := pm.ShouldSendPing(now, 10)
	require.True(t, ok)

	_, ok = pm.ShouldSendPing(now.Add(10*time.Millisecond), 10)
	require.False(t, ok, "should not re-ping before interval elapses")

	pong := HandlePing(ping, 20)
	require.Equal(t, ping.PingIndex, pong.PingIndex)

	sample, ok := pm.HandlePong(now.Add(30*time.Millisecond), pong)
	require.True(t, ok)
	require.Equal(t, 30*time.Millisecond, sample.RTT)
}

func TestClientEstimatorSteps(t *testing.T) {
	est := NewClientEstimator(50*time.Millisecond, 0.1)
	base := time.Now()
	est.OnServerTickReceived(100, base)

	tick := est.Compute(base, 20*time.Millisecond, 10*time.Millisecond)
	require.Greater(t, int(tick), 100)
}

func TestClientEstimatorAppliesStepCorrectionOnBigJump(t *testing.T) {
	est := NewClientEstimator(50*time.Millisecond, 0.1)
	base := time.Now()
	est.OnServerTickReceived(100, base)
	_ = est.Compute(base, 10*time.Millisecond, 0)

	// A big forward jump in server tick should snap rather than creep.
	est.OnServerTickReceived(200, base)
	tick := est.Compute(base, 10*time.Millisecond, 0)
	require.InDelta(t, 200, int(tick), 2)
}
