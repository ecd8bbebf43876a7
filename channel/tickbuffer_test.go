package channel

import (
	"testing"

	"github.com/naia-go/naia/packet"
	"github.com/naia-go/naia/wire"
	"github.com/stretchr/testify/require"
)

func TestTickBufferedSenderReplacesSameTick(t *testing.T) {
	s := NewTickBufferedSender(Kind(9))
	s.Enqueue(5, []byte("first"))
	s.Enqueue(5, []byte("second"))

	b := newBuilder()
	s.Collect(b)
	_, msgs, err := decodeTicked(t, b)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, []byte("second"), msgs[0].Payload)
	require.Empty(t, s.pending, "Collect should drain the queue")
}

func TestTickBufferedReceiverReleasesOnlyExactTick(t *testing.T) {
	r := NewTickBufferedReceiver()
	r.Receive([]Ticked{
		{TargetTick: 10, Payload: []byte("ten")},
		{TargetTick: 8, Payload: []byte("eight")},
		{TargetTick: 12, Payload: []byte("twelve")},
	})

	require.Empty(t, r.DrainUpTo(9), "nothing targets tick 9 yet, and tick 8 already passed")

	out := r.DrainUpTo(10)
	require.Equal(t, [][]byte{[]byte("ten")}, out)

	require.Empty(t, r.DrainUpTo(11))
	out = r.DrainUpTo(12)
	require.Equal(t, [][]byte{[]byte("twelve")}, out)
}

func TestTickBufferedReceiverDiscardsStaleTicks(t *testing.T) {
	r := NewTickBufferedReceiver()
	r.Receive([]Ticked{{TargetTick: 5, Payload: []byte("stale")}})

	require.Empty(t, r.DrainUpTo(10), "a target tick already behind currentTick must be dropped, not delivered")
	require.Empty(t, r.DrainUpTo(5), "the stale entry must not linger for a later exact match either")
}

func TestTickBufferedReceiverHandlesWraparound(t *testing.T) {
	r := NewTickBufferedReceiver()
	r.Receive([]Ticked{{TargetTick: 65535, Payload: []byte("before-wrap")}})
	require.Equal(t, [][]byte{[]byte("before-wrap")}, r.DrainUpTo(65535))

	r.Receive([]Ticked{{TargetTick: 1, Payload: []byte("after-wrap")}})
	require.Empty(t, r.DrainUpTo(0), "tick 1 hasn't arrived yet just after wrapping past 65535")
	require.Equal(t, [][]byte{[]byte("after-wrap")}, r.DrainUpTo(1))
}

func decodeTicked(t *testing.T, b *packet.Builder) (Kind, []Ticked, error) {
	t.Helper()
	raw, err := b.Finish()
	require.NoError(t, err)
	_, payload, err := packet.ParseDatagram(raw)
	require.NoError(t, err)
	return DecodeTickBufferedBlock(wire.NewReader(payload))
}
