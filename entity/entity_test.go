package entity

import (
	"testing"
	"time"

	"github.com/naia-go/naia/wire"
	"github.com/stretchr/testify/require"
)

func TestOwnedNetEntityRoundTrip(t *testing.T) {
	o := NewHostOwned(42)
	w := wire.NewWriter()
	o.Encode(w)

	decoded, err := DecodeOwnedNetEntity(wire.NewReader(w.Bytes()))
	require.NoError(t, err)
	require.Equal(t, o, decoded)
	require.True(t, decoded.IsHost())
}

func TestOwnedNetEntityReversed(t *testing.T) {
	o := NewRemoteOwned(7)
	rev := o.Reversed()
	require.True(t, rev.IsHost())
	require.Equal(t, NetEntity(7), rev.ID)
}

func TestPoolDoesNotReuseWithinQuarantine(t *testing.T) {
	now := time.Now()
	p := NewPool(time.Minute)
	p.now = func() time.Time { return now }

	a := p.Generate()
	b := p.Generate()
	require.NotEqual(t, a, b)

	p.Recycle(a)
	c := p.Generate()
	require.NotEqual(t, a, c, "recycled id must not be reused before quarantine elapses")
}

func TestPoolReusesAfterQuarantineElapses(t *testing.T) {
	now := time.Now()
	p := NewPool(time.Minute)
	p.now = func() time.Time { return now }

	a := p.Generate()
	p.Recycle(a)

	now = now.Add(2 * time.Minute)
	reused := p.Generate()
	require.Equal(t, a, reused)
}

func TestBimapIsBijective(t *testing.T) {
	b := NewBimap()
	b.Insert(NetEntity(1), GlobalEntity(100))

	g, ok := b.Global(NetEntity(1))
	require.True(t, ok)
	require.Equal(t, GlobalEntity(100), g)

	n, ok := b.Net(GlobalEntity(100))
	require.True(t, ok)
	require.Equal(t, NetEntity(1), n)

	b.Remove(NetEntity(1))
	_, ok = b.Global(NetEntity(1))
	require.False(t, ok)
	_, ok = b.Net(GlobalEntity(100))
	require.False(t, ok)
}

func TestGlobalEntityMapSpawnDespawn(t *testing.T) {
	m := NewGlobalEntityMap()
	g := m.Spawn(55)

	host, ok := m.HostEntity(g)
	require.True(t, ok)
	require.Equal(t, uint64(55), host)

	m.Despawn(g)
	_, ok = m.HostEntity(g)
	require.False(t, ok)
}

func TestEntityRecordAdvanceIsMonotonic(t *testing.T) {
	r := NewEntityRecord(NetEntity(1))
	require.Equal(t, Creating, r.Locality)

	require.True(t, r.Advance(Created))
	require.True(t, r.Advance(Deleting))
	require.False(t, r.Advance(Creating), "must not re-enter Creating without full removal")
}
