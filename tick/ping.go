package tick

import (
	"time"

	"github.com/naia-go/naia/wire"
)

// Ping is sent every ping_interval, carrying the sender's current tick
// so the peer can cross-check tick alignment alongside RTT.
type Ping struct {
	PingIndex uint16
	Tick      uint16
}

func (p Ping) Encode(w *wire.Writer) {
	w.WriteU16(p.PingIndex)
	w.WriteU16(p.Tick)
}

func DecodePing(r *wire.Reader) (Ping, error) {
	var p Ping
	var err error
	if p.PingIndex, err = r.ReadU16(); err != nil {
		return p, err
	}
	if p.Tick, err = r.ReadU16(); err != nil {
		return p, err
	}
	return p, nil
}

// Pong is the immediate (not tick-gated) reply to a Ping.
type Pong struct {
	PingIndex uint16
	Tick      uint16
}

func (p Pong) Encode(w *wire.Writer) {
	w.WriteU16(p.PingIndex)
	w.WriteU16(p.Tick)
}

func DecodePong(r *wire.Reader) (Pong, error) {
	var p Pong
	var err error
	if p.PingIndex, err = r.ReadU16(); err != nil {
		return p, err
	}
	if p.Tick, err = r.ReadU16(); err != nil {
		return p, err
	}
	return p, nil
}

// PingManager drives the periodic ping/pong exchange and feeds
// resulting RTT samples into an RTTTracker.
type PingManager struct {
	interval    time.Duration
	lastSent    time.Time
	nextIndex   uint16
	outstanding map[uint16]time.Time
	tracker     *RTTTracker
}

// NewPingManager constructs a manager that pings every interval and
// reports RTT samples into tracker.
func NewPingManager(interval time.Duration, tracker *RTTTracker) *PingManager {
	return &PingManager{
		interval:    interval,
		outstanding: make(map[uint16]time.Time),
		tracker:     tracker,
	}
}

// ShouldSendPing reports whether interval has elapsed since the last
// ping was sent, and if so returns the Ping to send and records it as
// outstanding.
func (p *PingManager) ShouldSendPing(now time.Time, currentTick uint16) (Ping, bool) {
	if !p.lastSent.IsZero() && now.Sub(p.lastSent) < p.interval {
		return Ping{}, false
	}
	p.lastSent = now
	idx := p.nextIndex
	p.nextIndex++
	p.outstanding[idx] = now
	return Ping{PingIndex: idx, Tick: currentTick}, true
}

// HandlePong resolves an outstanding ping by index, records the RTT
// sample, and reports the peer's reported tick for tick-alignment use.
func (p *PingManager) HandlePong(now time.Time, pong Pong) (sample RTTSample, ok bool) {
	sentAt, found := p.outstanding[pong.PingIndex]
	if !found {
		return RTTSample{}, false
	}
	delete(p.outstanding, pong.PingIndex)
	sample = RTTSample{RTT: now.Sub(sentAt)}
	p.tracker.Update(sample)
	return sample, true
}

// HandlePing builds the immediate Pong reply to an incoming Ping.
func HandlePing(ping Ping, localTick uint16) Pong {
	return Pong{PingIndex: ping.PingIndex, Tick: localTick}
}
