package replication

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiffMaskSetClearIsClean(t *testing.T) {
	m := NewDiffMask(10)
	require.True(t, m.IsClean())

	m.Set(3)
	m.Set(9)
	require.False(t, m.IsClean())
	require.True(t, m.IsSet(3))
	require.True(t, m.IsSet(9))
	require.False(t, m.IsSet(4))

	require.Equal(t, []int{3, 9}, m.SetIndices())

	m.Clear(3)
	require.False(t, m.IsSet(3))
}

func TestDiffMaskSnapshotAndClearBits(t *testing.T) {
	m := NewDiffMask(4)
	m.Set(0)
	m.Set(2)
	snap := m.Snapshot()

	m.Set(1) // mutated again after the snapshot was taken
	m.ClearBits(snap)

	require.False(t, m.IsSet(0))
	require.False(t, m.IsSet(2))
	require.True(t, m.IsSet(1), "bits set after the snapshot must survive ClearBits")
}

func TestMutChannelFansOutToAllSubscribers(t *testing.T) {
	ch := NewMutChannel(8)
	maskA := ch.Subscribe(ConnectionID(1))
	maskB := ch.Subscribe(ConnectionID(2))

	ch.MarkDirty(5)
	require.True(t, maskA.IsSet(5))
	require.True(t, maskB.IsSet(5))

	ch.Unsubscribe(ConnectionID(1))
	ch.MarkDirty(6)
	require.False(t, maskA.IsSet(6), "unsubscribed connection's mask must not receive further fanout")
	require.True(t, maskB.IsSet(6))
}

func TestPropertyMutatorMarksDirtyThroughChannel(t *testing.T) {
	ch := NewMutChannel(4)
	mask := ch.Subscribe(ConnectionID(1))
	mutator := NewPropertyMutator(PropertyHandle{PropertyIndex: 2}, ch)

	mutator.MarkDirty()
	require.True(t, mask.IsSet(2))
}
