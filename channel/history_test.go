package channel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHistoryReplaysInOrder(t *testing.T) {
	h := NewHistory[string]()
	h.Insert(1, "turn left")
	h.Insert(2, "go straight")

	replays := h.Replays(0)
	require.Len(t, replays, 2)
	require.Equal(t, uint16(1), replays[0].Tick)
	require.Equal(t, "turn left", replays[0].Value)
	require.Equal(t, uint16(2), replays[1].Tick)
	require.Equal(t, "go straight", replays[1].Value)
}

func TestHistoryReplaysDropsUpToStartTick(t *testing.T) {
	h := NewHistory[int]()
	h.Insert(1, 10)
	h.Insert(2, 20)
	h.Insert(3, 30)

	replays := h.Replays(2)
	require.Len(t, replays, 1)
	require.Equal(t, uint16(3), replays[0].Tick)
	require.Equal(t, 1, h.Len())
}

func TestHistoryRejectsNonIncreasingInsert(t *testing.T) {
	h := NewHistory[int]()
	h.Insert(5, 1)
	require.False(t, h.CanInsert(5))
	require.False(t, h.CanInsert(4))
	require.Panics(t, func() { h.Insert(5, 2) })
}
