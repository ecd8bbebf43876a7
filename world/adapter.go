package world

import (
	"github.com/naia-go/naia/naiaerr"
	"github.com/naia-go/naia/protocol"
	"github.com/naia-go/naia/replication"
	"github.com/naia-go/naia/replication/interp"
)

var _ replication.World = (*ReplicationAdapter)(nil)

// ReplicationAdapter presents a World plus its Protocol registry as
// the narrower, byte-level interface replication.RemoteEngine needs
// (replication never decodes a payload itself; that's the
// application's registered codec, reached here instead of threaded
// through every RemoteEngine caller).
type ReplicationAdapter struct {
	World World
	Proto *protocol.Protocol
	// Interp is consulted by RecordInterpolationSample and left nil by
	// NewReplicationAdapter; set it to opt the adapter into
	// interpolation bookkeeping for components whose codec declares
	// Interpolatable.
	Interp *interp.Manager
}

func NewReplicationAdapter(w World, p *protocol.Protocol) *ReplicationAdapter {
	return &ReplicationAdapter{World: w, Proto: p}
}

// RecordInterpolationSample reads hostEntity's current kind component
// value and, if Interp is set and the component's codec declares
// Interpolatable, records one interp.Sample per interpolatable
// property at tick. A no-op if either is unset, so callers can call it
// unconditionally after every ApplyUpdateFromBytes/
// InsertComponentFromBytes without checking for opt-in first.
func (a *ReplicationAdapter) RecordInterpolationSample(hostEntity uint64, kind protocol.ComponentKind, tick uint16) error {
	if a.Interp == nil {
		return nil
	}
	codec, err := a.Proto.Component(kind)
	if err != nil {
		return err
	}
	if codec.Interpolatable == nil {
		return nil
	}
	value, ok := a.World.Component(Entity(hostEntity), kind)
	if !ok {
		return naiaerr.UnknownComponentKind(uint16(kind))
	}
	for i, f := range codec.Interpolatable(value) {
		key := interp.Key{Entity: hostEntity, Kind: uint16(kind), Property: i}
		a.Interp.Record(key, interp.Sample{Tick: tick, Value: f})
	}
	return nil
}

func (a *ReplicationAdapter) SpawnEntity() uint64 { return uint64(a.World.SpawnEntity()) }

func (a *ReplicationAdapter) DespawnEntity(hostEntity uint64) {
	a.World.DespawnEntity(Entity(hostEntity))
}

func (a *ReplicationAdapter) InsertComponentFromBytes(hostEntity uint64, kind protocol.ComponentKind, payload []byte) error {
	codec, err := a.Proto.Component(kind)
	if err != nil {
		return err
	}
	value, err := codec.Decode(payload)
	if err != nil {
		return err
	}
	a.World.InsertComponent(Entity(hostEntity), kind, value)
	return nil
}

func (a *ReplicationAdapter) ApplyUpdateFromBytes(hostEntity uint64, kind protocol.ComponentKind, payload []byte) error {
	codec, err := a.Proto.Component(kind)
	if err != nil {
		return err
	}
	dst, ok := a.World.ComponentMut(Entity(hostEntity), kind)
	if !ok {
		return naiaerr.UnknownComponentKind(uint16(kind))
	}
	return codec.ApplyDiff(dst, payload)
}

func (a *ReplicationAdapter) RemoveComponent(hostEntity uint64, kind protocol.ComponentKind) {
	a.World.RemoveComponent(Entity(hostEntity), kind)
}
