package world

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/naia-go/naia/entity"
	"github.com/naia-go/naia/protocol"
	"github.com/naia-go/naia/replication"
	"github.com/naia-go/naia/replication/interp"
	"github.com/stretchr/testify/require"
)

func encodePosition(v any) ([]byte, error) {
	p := v.(*Position)
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(p.X))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(p.Y))
	return buf, nil
}

func decodePosition(b []byte) (any, error) {
	return &Position{
		X: math.Float32frombits(binary.LittleEndian.Uint32(b[0:4])),
		Y: math.Float32frombits(binary.LittleEndian.Uint32(b[4:8])),
	}, nil
}

func applyPositionDiff(dst any, payload []byte) error {
	p := dst.(*Position)
	decoded, err := decodePosition(payload)
	if err != nil {
		return err
	}
	*p = *decoded.(*Position)
	return nil
}

func newPositionProtocol(kind protocol.ComponentKind) *protocol.Protocol {
	reg := protocol.New()
	reg.AddComponent(protocol.ComponentCodec{
		PropertyCount: 2,
		Decode:        decodePosition,
		Encode:        encodePosition,
		ApplyDiff:     applyPositionDiff,
	})
	_ = kind
	return reg
}

func TestReplicationAdapterInsertAndUpdate(t *testing.T) {
	w := NewMemoryWorld()
	reg := newPositionProtocol(0)
	adapter := NewReplicationAdapter(w, reg)

	host := adapter.SpawnEntity()
	payload, err := encodePosition(&Position{X: 3, Y: 4})
	require.NoError(t, err)

	require.NoError(t, adapter.InsertComponentFromBytes(host, 0, payload))

	k := NewKindOf()
	Register[Position](k, 0)
	ref, ok := Component[Position](w, k, Entity(host))
	require.True(t, ok)
	require.Equal(t, float32(3), ref.Get().X)

	updatePayload, err := encodePosition(&Position{X: 10, Y: 20})
	require.NoError(t, err)
	require.NoError(t, adapter.ApplyUpdateFromBytes(host, 0, updatePayload))

	ref2, _ := Component[Position](w, k, Entity(host))
	require.Equal(t, float32(10), ref2.Get().X)

	adapter.RemoveComponent(host, 0)
	require.False(t, HasComponent[Position](w, k, Entity(host)))
}

func TestReplicationAdapterSatisfiesRemoteEngineWorld(t *testing.T) {
	w := NewMemoryWorld()
	reg := newPositionProtocol(0)
	adapter := NewReplicationAdapter(w, reg)
	globals := entity.NewGlobalEntityMap()

	engine := replication.NewRemoteEngine(adapter, globals, nil)
	require.NotNil(t, engine)
}

func newInterpolatablePositionProtocol() *protocol.Protocol {
	reg := protocol.New()
	reg.AddComponent(protocol.ComponentCodec{
		PropertyCount: 2,
		Decode:        decodePosition,
		Encode:        encodePosition,
		ApplyDiff:     applyPositionDiff,
		Interpolatable: func(v any) []float64 {
			p := v.(*Position)
			return []float64{float64(p.X), float64(p.Y)}
		},
	})
	return reg
}

func TestRecordInterpolationSampleIsNoOpWithoutOptIn(t *testing.T) {
	w := NewMemoryWorld()
	adapter := NewReplicationAdapter(w, newInterpolatablePositionProtocol())
	host := adapter.SpawnEntity()
	payload, err := encodePosition(&Position{X: 1, Y: 2})
	require.NoError(t, err)
	require.NoError(t, adapter.InsertComponentFromBytes(host, 0, payload))

	// Interp is nil: recording must be a harmless no-op.
	require.NoError(t, adapter.RecordInterpolationSample(host, 0, 5))
}

func TestRecordInterpolationSampleFeedsManager(t *testing.T) {
	w := NewMemoryWorld()
	adapter := NewReplicationAdapter(w, newInterpolatablePositionProtocol())
	adapter.Interp = interp.NewManager()

	host := adapter.SpawnEntity()
	p1, err := encodePosition(&Position{X: 0, Y: 0})
	require.NoError(t, err)
	require.NoError(t, adapter.InsertComponentFromBytes(host, 0, p1))
	require.NoError(t, adapter.RecordInterpolationSample(host, 0, 0))

	p2, err := encodePosition(&Position{X: 10, Y: 20})
	require.NoError(t, err)
	require.NoError(t, adapter.ApplyUpdateFromBytes(host, 0, p2))
	require.NoError(t, adapter.RecordInterpolationSample(host, 0, 2))

	xKey := interp.Key{Entity: host, Kind: 0, Property: 0}
	yKey := interp.Key{Entity: host, Kind: 0, Property: 1}

	gotX, ok := adapter.Interp.Interpolate(xKey, 1)
	require.True(t, ok)
	require.InDelta(t, 5.0, gotX, 1e-6)

	gotY, ok := adapter.Interp.Interpolate(yKey, 1)
	require.True(t, ok)
	require.InDelta(t, 10.0, gotY, 1e-6)
}
