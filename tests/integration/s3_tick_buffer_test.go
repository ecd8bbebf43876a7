package integration

import (
	"fmt"
	"testing"
	"time"

	"github.com/naia-go/naia/channel"
	"github.com/naia-go/naia/connection"
	"github.com/naia-go/naia/protocol"
	"github.com/naia-go/naia/transport"
	"github.com/stretchr/testify/require"
)

// TestS3TickBufferedInputDiscardsStaleReleasesFuture exercises
// channel.TickBufferedReceiver.DrainUpTo through a real connection
// pair: a message tagged for a future tick must stay buffered until
// the receiver's own tick catches up, while a message that arrives
// already stale (its target tick is behind the receiver's current
// tick, as happens when a sender falls behind or reconnects after a
// gap) is dropped rather than ever being surfaced (§4.3, invariant 5).
// Only an input whose target tick exactly matches the tick being
// drained is ever delivered.
func TestS3TickBufferedInputDiscardsStaleReleasesFuture(t *testing.T) {
	reg := protocol.New()
	inputKind := reg.AddChannel(channel.ClientToServer, channel.ModeTickBuffered)

	clk := newClock(time.Unix(30_000, 0))
	cond := transport.NewConditioner(transport.PerfectCondition(), 3, clk.Now)

	const addrA, addrB = "client", "host"
	cond.Link(addrA, addrB)

	const tickInterval = 50 * time.Millisecond
	connA := connection.New(connection.Config{Protocol: reg, Now: clk.Now, TickInterval: tickInterval}, nil, nil, nil)
	connB := connection.New(connection.Config{Protocol: reg, Now: clk.Now, TickInterval: tickInterval}, nil, nil, nil)

	step := func(n int) {
		for i := 0; i < n; i++ {
			now := clk.Now()
			connA.AdvanceTick(now)
			connB.AdvanceTick(now)
			for _, dg := range connA.SendAll(now) {
				require.NoError(t, cond.SendTo(addrA, addrB, dg))
			}
			for _, dg := range connB.SendAll(now) {
				require.NoError(t, cond.SendTo(addrB, addrA, dg))
			}
			for {
				dg, ok := cond.RecvAt(addrA)
				if !ok {
					break
				}
				require.NoError(t, connA.Receive(dg.Payload))
			}
			for {
				dg, ok := cond.RecvAt(addrB)
				if !ok {
					break
				}
				require.NoError(t, connB.Receive(dg.Payload))
			}
			clk.Advance(tickInterval)
		}
	}

	// Prime both tick managers' first Advance call (a no-op that only
	// sets the starting reference instant), then confirm the baseline:
	// an input tagged for a tick a few ticks out (enough for the
	// datagram to actually cross the link before the receiver gets
	// there) is released the instant the receiver's tick reaches it,
	// and not before.
	step(1)
	onTimeTarget := connA.Tick().Current() + 3
	require.True(t, connA.EnqueueTick(inputKind, onTimeTarget, []byte("on-time")))
	for connB.Tick().Current() != onTimeTarget {
		step(1)
	}
	require.Equal(t, [][]byte{[]byte("on-time")}, connB.DrainTick(inputKind))

	// Drive connB's tick far ahead while connA goes quiet, simulating a
	// client that has dropped off the link. connB keeps ticking locally
	// regardless of whether anything arrives from its peer.
	staleTargetTick := connB.Tick().Current()
	const aheadTicks = 50
	for i := 0; i < aheadTicks; i++ {
		connB.AdvanceTick(clk.Now())
		clk.Advance(tickInterval)
	}
	currentAtReconnect := connB.Tick().Current()
	require.Greater(t, currentAtReconnect, staleTargetTick)

	// connA "reconnects" and flushes a queued input that targeted a tick
	// from before the gap. It is stale relative to connB's current tick
	// and must never be surfaced: once its tick has passed, it is
	// worthless input, not a backlog entry to deliver late.
	require.True(t, connA.EnqueueTick(inputKind, staleTargetTick, []byte("stale-after-gap")))
	// Also queue one for a tick far beyond where connB is now; it must
	// not surface until connB's tick actually reaches it.
	futureTick := currentAtReconnect + 100
	require.True(t, connA.EnqueueTick(inputKind, futureTick, []byte("still-future")))
	step(3)

	require.Empty(t, connB.DrainTick(inputKind),
		"stale tick-buffered input must be discarded, never delivered, and the future one must stay buffered")

	// Advance connB's tick the rest of the way to futureTick and confirm
	// the still-buffered message is now released.
	for connB.Tick().Current() != futureTick {
		connB.AdvanceTick(clk.Now())
		clk.Advance(tickInterval)
	}
	got := connB.DrainTick(inputKind)
	require.Equal(t, [][]byte{[]byte("still-future")}, got,
		fmt.Sprintf("input tagged for tick %d must release once the receiver reaches it", futureTick))
}
