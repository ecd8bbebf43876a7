package replication

import (
	"github.com/naia-go/naia/entity"
	"github.com/naia-go/naia/protocol"
	"github.com/naia-go/naia/wire"
)

// ActionKind tags which replication action a wire block encodes (§4.5).
type ActionKind uint8

const (
	ActionSpawnEntity ActionKind = iota
	ActionInsertComponent
	ActionUpdateComponent
	ActionRemoveComponent
	ActionDespawnEntity
)

// Action is one replication action addressed to a NetEntity, ordered
// within that entity by ActionIndex (a monotonic per-entity counter
// that gives "Replication actions for a single entity are totally
// ordered" per §5).
type Action struct {
	Kind              ActionKind
	Entity            entity.NetEntity
	ActionIndex       uint16
	ComponentKind     protocol.ComponentKind   // zero value unused for Spawn/Despawn
	Components        []protocol.ComponentKind // Spawn: initial component list
	ComponentPayloads [][]byte                 // Spawn: full encoding of each entry in Components, same order
	Payload           []byte                   // Insert/Update: a single component's payload
}

func (a Action) Encode(w *wire.Writer) {
	w.WriteBits(uint64(a.Kind), 3)
	w.WriteVarU64(uint64(a.Entity))
	w.WriteU16(a.ActionIndex)

	switch a.Kind {
	case ActionSpawnEntity:
		w.WriteVarU64(uint64(len(a.Components)))
		for i, c := range a.Components {
			w.WriteU16(uint16(c))
			w.WriteVarU64(uint64(len(a.ComponentPayloads[i])))
			w.WriteBytes(a.ComponentPayloads[i])
		}
	case ActionInsertComponent:
		w.WriteU16(uint16(a.ComponentKind))
		w.WriteVarU64(uint64(len(a.Payload)))
		w.WriteBytes(a.Payload)
	case ActionUpdateComponent:
		w.WriteU16(uint16(a.ComponentKind))
		w.WriteVarU64(uint64(len(a.Payload)))
		w.WriteBytes(a.Payload)
	case ActionRemoveComponent:
		w.WriteU16(uint16(a.ComponentKind))
	case ActionDespawnEntity:
		// no further fields
	}
}

func DecodeAction(r *wire.Reader) (Action, error) {
	var a Action
	kindBits, err := r.ReadBits(3)
	if err != nil {
		return a, err
	}
	a.Kind = ActionKind(kindBits)

	entRaw, err := r.ReadVarU64()
	if err != nil {
		return a, err
	}
	a.Entity = entity.NetEntity(entRaw)

	if a.ActionIndex, err = r.ReadU16(); err != nil {
		return a, err
	}

	switch a.Kind {
	case ActionSpawnEntity:
		count, cerr := r.ReadVarU64()
		if cerr != nil {
			return a, cerr
		}
		a.Components = make([]protocol.ComponentKind, 0, count)
		a.ComponentPayloads = make([][]byte, 0, count)
		for i := uint64(0); i < count; i++ {
			kind, kerr := r.ReadU16()
			if kerr != nil {
				return a, kerr
			}
			plen, perr := r.ReadVarU64()
			if perr != nil {
				return a, perr
			}
			payload, berr := r.ReadBytes(int(plen))
			if berr != nil {
				return a, berr
			}
			a.Components = append(a.Components, protocol.ComponentKind(kind))
			a.ComponentPayloads = append(a.ComponentPayloads, payload)
		}
	case ActionInsertComponent, ActionUpdateComponent:
		kind, kerr := r.ReadU16()
		if kerr != nil {
			return a, kerr
		}
		a.ComponentKind = protocol.ComponentKind(kind)
		plen, perr := r.ReadVarU64()
		if perr != nil {
			return a, perr
		}
		if a.Payload, err = r.ReadBytes(int(plen)); err != nil {
			return a, err
		}
	case ActionRemoveComponent:
		kind, kerr := r.ReadU16()
		if kerr != nil {
			return a, kerr
		}
		a.ComponentKind = protocol.ComponentKind(kind)
	case ActionDespawnEntity:
		// no further fields
	}
	return a, nil
}
