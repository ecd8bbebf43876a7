package transport

import (
	"math/rand"
	"sync"
	"time"
)

var _ Client = (*Endpoint)(nil)

// ConditionerConfig describes simulated network conditions: latency,
// jitter, and drop probability applied to every datagram passing
// through a Conditioner. Mirrors the original's
// LinkConditionerConfig presets.
type ConditionerConfig struct {
	Latency time.Duration
	Jitter  time.Duration
	Loss    float64
}

func PerfectCondition() ConditionerConfig { return ConditionerConfig{Latency: time.Millisecond} }

func GoodCondition() ConditionerConfig {
	return ConditionerConfig{Latency: 40 * time.Millisecond, Jitter: 10 * time.Millisecond, Loss: 0.002}
}

func AverageCondition() ConditionerConfig {
	return ConditionerConfig{Latency: 100 * time.Millisecond, Jitter: 25 * time.Millisecond, Loss: 0.02}
}

func PoorCondition() ConditionerConfig {
	return ConditionerConfig{Latency: 200 * time.Millisecond, Jitter: 50 * time.Millisecond, Loss: 0.04}
}

type scheduledDatagram struct {
	at Datagram
	t  time.Time
}

// Conditioner is an in-memory datagram link that applies a
// ConditionerConfig to every datagram sent between two endpoints
// registered under an address, for deterministic tests of loss/jitter
// handling without a real socket. Endpoint wraps one of its addresses
// as a transport.Client; Conditioner itself does not implement
// transport.Server (it has no Recv, Accept or Reject). Grounded on the original's
// link_condition_logic.rs process_packet: roll loss first, then
// jitter the latency by +/- jitter before scheduling delivery.
type Conditioner struct {
	cfg ConditionerConfig
	rng *rand.Rand
	now func() time.Time

	mu     sync.Mutex
	inbox  map[string][]scheduledDatagram // keyed by local address
	peers  map[string]string              // addr -> peer addr it talks to
	closed bool
}

func NewConditioner(cfg ConditionerConfig, seed int64, nowFn func() time.Time) *Conditioner {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Conditioner{
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(seed)),
		now:   nowFn,
		inbox: make(map[string][]scheduledDatagram),
		peers: make(map[string]string),
	}
}

// Link registers a and b as a bidirectional pair of addresses, each
// able to Send to and Recv from the other through this Conditioner.
func (c *Conditioner) Link(a, b string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.peers[a] = b
	c.peers[b] = a
}

func (c *Conditioner) Send(fromAddr string, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	dest, ok := c.peers[fromAddr]
	if !ok {
		return nil
	}
	return c.deliver(fromAddr, dest, payload)
}

// SendTo is the Server-shaped send: the caller names both fromAddr and
// the destination toAddr, so no Link registration is consulted.
func (c *Conditioner) SendTo(fromAddr, toAddr string, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deliver(fromAddr, toAddr, payload)
}

func (c *Conditioner) deliver(fromAddr, toAddr string, payload []byte) error {
	if c.rng.Float64() <= c.cfg.Loss {
		return nil
	}
	latency := c.cfg.Latency
	if c.cfg.Jitter > 0 {
		delta := time.Duration(c.rng.Int63n(int64(c.cfg.Jitter)))
		if c.rng.Intn(2) == 0 {
			latency += delta
		} else {
			latency -= delta
			if latency < 0 {
				latency = 0
			}
		}
	}
	cp := append([]byte(nil), payload...)
	c.inbox[toAddr] = append(c.inbox[toAddr], scheduledDatagram{
		at: Datagram{Addr: fromAddr, Payload: cp},
		t:  c.now().Add(latency),
	})
	return nil
}

// RecvAt returns the next datagram whose scheduled delivery time has
// elapsed for addr, or ok=false if nothing is ready yet.
func (c *Conditioner) RecvAt(addr string) (Datagram, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	queue := c.inbox[addr]
	now := c.now()
	readyIdx := -1
	for i, sd := range queue {
		if !now.Before(sd.t) {
			readyIdx = i
			break
		}
	}
	if readyIdx < 0 {
		return Datagram{}, false
	}
	dg := queue[readyIdx].at
	c.inbox[addr] = append(queue[:readyIdx], queue[readyIdx+1:]...)
	return dg, true
}

func (c *Conditioner) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Endpoint is a Client bound to one address inside a Conditioner,
// letting tests drive each side of a simulated link through the
// ordinary transport.Client interface.
type Endpoint struct {
	c    *Conditioner
	addr string
}

// NewEndpoint returns a Client for addr; addr must already be linked
// to a peer via Conditioner.Link.
func NewEndpoint(c *Conditioner, addr string) *Endpoint {
	return &Endpoint{c: c, addr: addr}
}

func (e *Endpoint) Send(payload []byte) error { return e.c.Send(e.addr, payload) }

func (e *Endpoint) Recv() ([]byte, bool, error) {
	dg, ok := e.c.RecvAt(e.addr)
	if !ok {
		return nil, false, nil
	}
	return dg.Payload, true, nil
}

func (e *Endpoint) Close() error { return nil }
