// Package integration exercises the full stack end to end: two real
// connection.Connection (or server.Server/client.Client) instances
// talking over a transport.Conditioner, driven by a manually-advanced
// clock so loss/jitter/retransmit timing is deterministic without
// real sleeping.
package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/naia-go/naia/connection"
	"github.com/naia-go/naia/transport"
	"github.com/stretchr/testify/require"
)

// condServer adapts a transport.Conditioner, bound to one fixed
// listening address, to the transport.Server contract so a real
// server.Server can run over a simulated lossy/jittery link. Accept
// and Reject are no-ops: the Conditioner has no per-peer state to
// tear down.
type condServer struct {
	cond *transport.Conditioner
	addr string
}

func newCondServer(cond *transport.Conditioner, addr string) *condServer {
	return &condServer{cond: cond, addr: addr}
}

func (s *condServer) Send(addr string, payload []byte) error {
	return s.cond.SendTo(s.addr, addr, payload)
}

func (s *condServer) Recv() (transport.Datagram, bool, error) {
	dg, ok := s.cond.RecvAt(s.addr)
	return dg, ok, nil
}

func (s *condServer) Accept(_ context.Context, _ string, _ []byte) error { return nil }
func (s *condServer) Reject(_ string) error                              { return nil }
func (s *condServer) Close() error                                       { return nil }

// clock is a mutex-guarded, manually-advanced time source shared by
// both peers and the transport.Conditioner's nowFn, so a test controls
// wall-clock progression exactly rather than racing real timers.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(start time.Time) *clock {
	return &clock{now: start}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// pump alternates SendAll/Receive between two connections through cond
// for iterations rounds, advancing clk by step each round. Bounded
// iteration counts, not real sleeps, keep the test deterministic.
func pump(t *testing.T, clk *clock, step time.Duration, iterations int, a, b *connection.Connection, addrA, addrB string, cond *transport.Conditioner) {
	t.Helper()
	for i := 0; i < iterations; i++ {
		now := clk.Now()
		a.AdvanceTick(now)
		b.AdvanceTick(now)
		for _, dg := range a.SendAll(now) {
			require.NoError(t, cond.SendTo(addrA, addrB, dg))
		}
		for _, dg := range b.SendAll(now) {
			require.NoError(t, cond.SendTo(addrB, addrA, dg))
		}
		for {
			dg, ok := cond.RecvAt(addrA)
			if !ok {
				break
			}
			require.NoError(t, a.Receive(dg.Payload))
		}
		for {
			dg, ok := cond.RecvAt(addrB)
			if !ok {
				break
			}
			require.NoError(t, b.Receive(dg.Payload))
		}
		clk.Advance(step)
	}
}
