package channel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnorderedUnreliableSenderFIFOAndBudget(t *testing.T) {
	s := NewUnorderedUnreliableSender(Kind(1))
	s.Enqueue([]byte("one"))
	s.Enqueue([]byte("two"))

	b := newBuilder()
	s.Collect(b)
	_, msgs := decodedBlock(t, b)
	require.Len(t, msgs, 2)
	require.Equal(t, []byte("one"), msgs[0].Payload)
	require.Equal(t, []byte("two"), msgs[1].Payload)
}

func TestUnorderedUnreliableSenderDefersWhatDoesNotFit(t *testing.T) {
	s := NewUnorderedUnreliableSender(Kind(1))
	big := make([]byte, 400)
	s.Enqueue(big)
	s.Enqueue(big) // won't fit alongside the first in one MTU budget

	b := newBuilder()
	s.Collect(b)
	_, msgs := decodedBlock(t, b)
	require.Len(t, msgs, 1, "only the first message should have fit")
	require.Len(t, s.pending, 1, "what didn't fit stays queued for the next packet")
}

func TestUnorderedUnreliableReceiverPassesThroughNoDedup(t *testing.T) {
	r := NewUnorderedUnreliableReceiver()
	r.Receive([]Indexed{{Index: 0, Payload: []byte("a")}})
	r.Receive([]Indexed{{Index: 0, Payload: []byte("a")}}) // duplicate index, still surfaced

	out := r.Drain()
	require.Equal(t, [][]byte{[]byte("a"), []byte("a")}, out)
	require.Empty(t, r.Drain(), "Drain should clear the buffer")
}

func TestSequencedUnreliableReceiverDropsOutOfOrder(t *testing.T) {
	r := NewSequencedUnreliableReceiver()
	out := r.Receive([]Indexed{
		{Index: 2, Payload: []byte("c")},
		{Index: 1, Payload: []byte("b")}, // stale, dropped
		{Index: 5, Payload: []byte("f")},
	})
	require.Equal(t, [][]byte{[]byte("c"), []byte("f")}, out)
}

func TestSequencedUnreliableSenderNeverResends(t *testing.T) {
	s := NewSequencedUnreliableSender(Kind(2))
	s.Enqueue([]byte("x"))

	b := newBuilder()
	s.Collect(b)
	require.Empty(t, s.pending)

	// A second collect with nothing new queued sends nothing further.
	b2 := newBuilder()
	s.Collect(b2)
	require.True(t, b2.Empty(), "nothing queued, so no block is added")
}
