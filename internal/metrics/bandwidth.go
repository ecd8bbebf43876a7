package metrics

import (
	"sync"
	"time"
)

// bandwidthSample is one recorded packet, timestamped so it can be
// dropped once it ages out of the rolling window.
type bandwidthSample struct {
	at    time.Time
	bytes int
}

// BandwidthMonitor tracks a rolling-window byte rate for one
// connection's outgoing or incoming packet stream (SPEC_FULL §C.1).
// Samples arrive in time order, so expiry is a simple FIFO trim
// rather than the original implementation's time-ordered binary heap.
type BandwidthMonitor struct {
	mu      sync.Mutex
	window  time.Duration
	samples []bandwidthSample
	total   int
	now     func() time.Time
}

// NewBandwidthMonitor returns a monitor measuring the byte rate over
// the trailing window duration.
func NewBandwidthMonitor(window time.Duration) *BandwidthMonitor {
	return &BandwidthMonitor{window: window, now: time.Now}
}

// RecordPacket admits one packet of the given size into the window.
func (m *BandwidthMonitor) RecordPacket(bytes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expire()
	m.samples = append(m.samples, bandwidthSample{at: m.now(), bytes: bytes})
	m.total += bytes
}

// KbpsRate reports the current rolling-window rate in kilobits per
// second.
func (m *BandwidthMonitor) KbpsRate() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expire()
	if m.window <= 0 {
		return 0
	}
	return float64(m.total) * 8 / 1000 / m.window.Seconds()
}

func (m *BandwidthMonitor) expire() {
	cutoff := m.now().Add(-m.window)
	i := 0
	for i < len(m.samples) && m.samples[i].at.Before(cutoff) {
		m.total -= m.samples[i].bytes
		i++
	}
	if i > 0 {
		m.samples = append(m.samples[:0], m.samples[i:]...)
	}
}

// ConnectionBandwidth pairs an outgoing and incoming BandwidthMonitor
// for one Connection, the shape Connection.BandwidthStats() returns.
type ConnectionBandwidth struct {
	Outgoing *BandwidthMonitor
	Incoming *BandwidthMonitor
}

// NewConnectionBandwidth returns a pair of monitors sharing the same
// window duration.
func NewConnectionBandwidth(window time.Duration) *ConnectionBandwidth {
	return &ConnectionBandwidth{
		Outgoing: NewBandwidthMonitor(window),
		Incoming: NewBandwidthMonitor(window),
	}
}
