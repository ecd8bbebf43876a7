package tick

import (
	"math"
	"time"
)

// ClientEstimator maintains the client's predicted tick, which leads
// the server tick by the smoothed one-way latency plus a configurable
// jitter buffer (spec.md §4.7).
type ClientEstimator struct {
	tickInterval    time.Duration
	smoothingFactor float64

	lastServerTick   uint16
	lastServerTickAt time.Time
	haveServerTick   bool

	smoothed   float64
	haveClient bool
}

// NewClientEstimator constructs an estimator for the given tick
// interval and smoothing factor (default 0.10 per §4.7/§6).
func NewClientEstimator(tickInterval time.Duration, smoothingFactor float64) *ClientEstimator {
	return &ClientEstimator{
		tickInterval:    tickInterval,
		smoothingFactor: smoothingFactor,
	}
}

// OnServerTickReceived records a freshly-received server tick and the
// local time it arrived at, the basis for server_tick_estimate.
func (e *ClientEstimator) OnServerTickReceived(serverTick uint16, receivedAt time.Time) {
	e.lastServerTick = serverTick
	e.lastServerTickAt = receivedAt
	e.haveServerTick = true
}

// Compute returns the predicted client tick at `now`, given the
// current RTT and jitter-buffer configuration. Jumps of two ticks or
// more are applied immediately as a step correction rather than
// smoothed, per §4.7.
func (e *ClientEstimator) Compute(now time.Time, rtt, jitterBuffer time.Duration) uint16 {
	if !e.haveServerTick {
		return 0
	}

	elapsed := now.Sub(e.lastServerTickAt)
	intervalSecs := e.tickInterval.Seconds()
	serverEstimate := float64(e.lastServerTick) + elapsed.Seconds()/intervalSecs

	bufferTicks := math.Ceil((rtt/2 + jitterBuffer).Seconds() / intervalSecs)
	target := serverEstimate + bufferTicks

	if !e.haveClient {
		e.smoothed = target
		e.haveClient = true
		return e.wrap(e.smoothed)
	}

	diff := target - e.smoothed
	if math.Abs(diff) >= 2 {
		e.smoothed = target
	} else {
		e.smoothed += e.smoothingFactor * diff
	}
	return e.wrap(e.smoothed)
}

func (e *ClientEstimator) wrap(v float64) uint16 {
	r := math.Round(v)
	if r < 0 {
		r = 0
	}
	// wrap into uint16 range exactly like the 16-bit wrapping counters
	// elsewhere on the wire.
	mod := math.Mod(r, 65536)
	if mod < 0 {
		mod += 65536
	}
	return uint16(mod)
}
