package channel

import (
	"testing"
	"time"

	"github.com/naia-go/naia/packet"
	"github.com/naia-go/naia/wire"
	"github.com/stretchr/testify/require"
)

func newBuilder() *packet.Builder {
	return packet.NewBuilder(packet.Header{Type: packet.TypeData})
}

func decodedBlock(t *testing.T, b *packet.Builder) (Kind, []Indexed) {
	t.Helper()
	raw, err := b.Finish()
	require.NoError(t, err)
	_, payload, err := packet.ParseDatagram(raw)
	require.NoError(t, err)
	kind, msgs, err := DecodeIndexedBlock(wire.NewReader(payload))
	require.NoError(t, err)
	return kind, msgs
}

func TestUnorderedReliableResendsUntilDelivered(t *testing.T) {
	s := NewUnorderedReliableSender(Kind(1))
	r := NewUnorderedReliableReceiver()

	idx := s.Enqueue([]byte("hello"))
	require.Equal(t, uint16(0), idx)

	now := time.Now()
	b := newBuilder()
	notifications := s.Collect(b, now, 50*time.Millisecond, 1.5)
	require.Len(t, notifications, 1)
	require.Equal(t, 1, s.pendingCount())

	// Not due yet, no resend.
	b2 := newBuilder()
	again := s.Collect(b2, now.Add(10*time.Millisecond), 50*time.Millisecond, 1.5)
	require.Empty(t, again)

	// Past the resend threshold, fires again.
	b3 := newBuilder()
	resend := s.Collect(b3, now.Add(100*time.Millisecond), 50*time.Millisecond, 1.5)
	require.Len(t, resend, 1)

	s.OnDelivered(notifications)
	require.Equal(t, 0, s.pendingCount())

	_, msgs := decodedBlock(t, b)
	out := r.Receive(msgs)
	require.Equal(t, [][]byte{[]byte("hello")}, out)
}

func TestUnorderedReliableReceiverDedupes(t *testing.T) {
	r := NewUnorderedReliableReceiver()
	msgs := []Indexed{{Index: 3, Payload: []byte("a")}}
	first := r.Receive(msgs)
	second := r.Receive(msgs)
	require.Len(t, first, 1)
	require.Empty(t, second)
}

func TestSequencedReliableReceiverDropsStale(t *testing.T) {
	r := NewSequencedReliableReceiver()
	out := r.Receive([]Indexed{
		{Index: 5, Payload: []byte("e")},
		{Index: 3, Payload: []byte("c")},
		{Index: 7, Payload: []byte("g")},
	})
	require.Equal(t, [][]byte{[]byte("e"), []byte("g")}, out)
}

func TestOrderedReliableReceiverBuffersAndReleasesContiguously(t *testing.T) {
	r := NewOrderedReliableReceiver()

	out := r.Receive([]Indexed{{Index: 0, Payload: []byte("a")}})
	require.Equal(t, [][]byte{[]byte("a")}, out)

	// index 2 arrives before index 1: should buffer, not deliver yet.
	out = r.Receive([]Indexed{{Index: 2, Payload: []byte("c")}})
	require.Empty(t, out)

	// filling the gap releases 1 and 2 in order.
	out = r.Receive([]Indexed{{Index: 1, Payload: []byte("b")}})
	require.Equal(t, [][]byte{[]byte("b"), []byte("c")}, out)
}

func TestOrderedReliableReceiverIgnoresDuplicatesAndOld(t *testing.T) {
	r := NewOrderedReliableReceiver()
	_ = r.Receive([]Indexed{{Index: 0, Payload: []byte("a")}})

	out := r.Receive([]Indexed{
		{Index: 0, Payload: []byte("a-dup")},
		{Index: 1, Payload: []byte("b")},
		{Index: 1, Payload: []byte("b-dup")},
	})
	require.Equal(t, [][]byte{[]byte("b")}, out)
}

func TestOutboxRetiresAfterMaxRetries(t *testing.T) {
	s := NewOrderedReliableSender(Kind(2))
	s.maxRetries = 2
	s.Enqueue([]byte("x"))

	now := time.Now()
	for i := 0; i < 3; i++ {
		b := newBuilder()
		s.Collect(b, now, time.Millisecond, 0.0001)
		now = now.Add(time.Second)
	}
	require.Equal(t, 0, s.pendingCount(), "message should be retired after exceeding maxRetries")
}

func TestOutboxOnDroppedForcesImmediateResend(t *testing.T) {
	s := NewSequencedReliableSender(Kind(3))
	s.Enqueue([]byte("y"))

	now := time.Now()
	b := newBuilder()
	notifications := s.Collect(b, now, time.Hour, 1.0)
	require.Len(t, notifications, 1)

	// Without a drop signal, it shouldn't resend so soon.
	b2 := newBuilder()
	again := s.Collect(b2, now.Add(time.Millisecond), time.Hour, 1.0)
	require.Empty(t, again)

	s.OnDropped(notifications)
	b3 := newBuilder()
	resend := s.Collect(b3, now.Add(2*time.Millisecond), time.Hour, 1.0)
	require.Len(t, resend, 1)
}

func TestOutboxRespectsPacketBudget(t *testing.T) {
	s := NewUnorderedReliableSender(Kind(4))
	big := make([]byte, 400)
	s.Enqueue(big)
	s.Enqueue(big)

	b := newBuilder()
	notifications := s.Collect(b, time.Now(), time.Millisecond, 1.0)
	require.Len(t, notifications, 1, "second message should not fit in the same packet")
}
