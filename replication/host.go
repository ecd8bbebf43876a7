package replication

import (
	"github.com/naia-go/naia/entity"
	"github.com/naia-go/naia/internal/logger"
	"github.com/naia-go/naia/protocol"
)

// HostComponentState is everything the host engine needs to know about
// one replicated component instance attached to an entity in scope for
// one connection: its kind, its per-connection DiffMask, and whether it
// has already been told to the remote (so a freshly inserted component
// ships as InsertComponent, not a redundant field of SpawnEntity).
type HostComponentState struct {
	Kind        protocol.ComponentKind
	Mask        *DiffMask
	Told        bool
	lastPayload []byte
}

// HostEntityState is the host engine's per-connection bookkeeping for
// one in-scope entity, combining the generic EntityRecord with the
// component states the engine needs to diff against.
type HostEntityState struct {
	Record     *entity.EntityRecord
	Components map[protocol.ComponentKind]*HostComponentState
	nextAction uint16
}

func newHostEntityState(net entity.NetEntity) *HostEntityState {
	return &HostEntityState{Record: entity.NewEntityRecord(net), Components: make(map[protocol.ComponentKind]*HostComponentState)}
}

// HostEngine produces the minimal set of replication Actions for one
// connection, given its current scope and each in-scope entity's
// diffed component state (§4.5 "Host side").
type HostEngine struct {
	entities map[entity.GlobalEntity]*HostEntityState
	pool     *entity.Pool
	log      logger.Logger
}

// NewHostEngine constructs a HostEngine. log may be nil, in which case
// replication actions are produced silently.
func NewHostEngine(pool *entity.Pool, log logger.Logger) *HostEngine {
	return &HostEngine{entities: make(map[entity.GlobalEntity]*HostEntityState), pool: pool, log: logger.OrNop(log)}
}

// EnsureScoped returns (creating it if needed) the per-connection state
// for a GlobalEntity that has just entered this connection's scope.
func (h *HostEngine) EnsureScoped(g entity.GlobalEntity) *HostEntityState {
	if s, ok := h.entities[g]; ok {
		return s
	}
	s := newHostEntityState(h.pool.Generate())
	h.entities[g] = s
	return s
}

func (h *HostEngine) Get(g entity.GlobalEntity) (*HostEntityState, bool) {
	s, ok := h.entities[g]
	return s, ok
}

// MarkDeleting begins the despawn sequence for g (scope exclusion or
// an actual host-side despawn both route through here).
func (h *HostEngine) MarkDeleting(g entity.GlobalEntity) {
	if s, ok := h.entities[g]; ok {
		s.Record.Advance(entity.Deleting)
	}
}

// DropAfterDespawnAcked removes all bookkeeping for g and recycles its
// NetEntity, once the DespawnEntity action has been acked (§4.5: "on
// ack, drop the record").
func (h *HostEngine) DropAfterDespawnAcked(g entity.GlobalEntity) {
	if s, ok := h.entities[g]; ok {
		h.pool.Recycle(s.Record.Net)
		delete(h.entities, g)
	}
}

// Produce walks every in-scope entity and emits its actions: a
// SpawnEntity for a Creating entity, InsertComponent/UpdateComponent
// actions for a Created one, and a DespawnEntity for a Deleting one.
// Entities, and the components of one entity, are visited in map
// iteration order, so the result has no global spawns-before-updates
// ordering. Per-entity ActionIndex is assigned monotonically so
// ordering within an entity survives reordering across the channel.
// RemoveComponent actions come from RemoveComponent, not from Produce.
// proto resolves each dirty component's codec so updates ship only the
// properties the DiffMask marks dirty (§4.5 "Partial property
// encoding"), clearing the mask once encoded.
func (h *HostEngine) Produce(proto *protocol.Protocol, encodeSpawn func(g entity.GlobalEntity) ([]protocol.ComponentKind, [][]byte)) ([]Action, error) {
	var actions []Action
	for g, s := range h.entities {
		switch s.Record.Locality {
		case entity.Creating:
			comps, payloads := encodeSpawn(g)
			actions = append(actions, Action{
				Kind:              ActionSpawnEntity,
				Entity:            s.Record.Net,
				ActionIndex:       s.nextAction,
				Components:        comps,
				ComponentPayloads: payloads,
			})
			s.nextAction++
			s.Record.Advance(entity.Created)
			h.log.Debug("replication entity spawned", logger.Any("entity", s.Record.Net), logger.Int("components", len(comps)))
			for _, c := range comps {
				if cs, ok := s.Components[c]; ok {
					cs.Told = true
					cs.Mask.ClearAll()
				}
			}
		case entity.Created:
			for kind, cs := range s.Components {
				if !cs.Told {
					actions = append(actions, Action{
						Kind:          ActionInsertComponent,
						Entity:        s.Record.Net,
						ActionIndex:   s.nextAction,
						ComponentKind: kind,
						Payload:       cs.lastPayload,
					})
					s.nextAction++
					cs.Told = true
					cs.Mask.ClearAll()
					continue
				}
				if !cs.Mask.IsClean() {
					diff, err := encodeComponentDiff(proto, kind, cs)
					if err != nil {
						return nil, err
					}
					actions = append(actions, Action{
						Kind:          ActionUpdateComponent,
						Entity:        s.Record.Net,
						ActionIndex:   s.nextAction,
						ComponentKind: kind,
						Payload:       diff,
					})
					s.nextAction++
					cs.Mask.ClearAll()
				}
			}
		case entity.Deleting:
			actions = append(actions, Action{
				Kind:        ActionDespawnEntity,
				Entity:      s.Record.Net,
				ActionIndex: s.nextAction,
			})
			s.nextAction++
			h.log.Debug("replication entity despawning", logger.Any("entity", s.Record.Net))
		}
	}
	return actions, nil
}

// encodeComponentDiff decodes a component's last full value and
// re-encodes it through its codec's EncodeDiff, carrying only the
// properties cs.Mask currently marks dirty.
func encodeComponentDiff(proto *protocol.Protocol, kind protocol.ComponentKind, cs *HostComponentState) ([]byte, error) {
	codec, err := proto.Component(kind)
	if err != nil {
		return nil, err
	}
	value, err := codec.Decode(cs.lastPayload)
	if err != nil {
		return nil, err
	}
	return codec.EncodeDiff(value, cs.Mask.Snapshot())
}

// SetPayload records the latest encoded value of an in-scope
// component, read back by Produce the next time it ships an
// InsertComponent or UpdateComponent action for it. The host
// application (or the server package wiring it to a MutChannel) is
// responsible for calling this whenever the underlying value changes
// and for marking the relevant DiffMask bits dirty separately — this
// only updates what bytes would be sent, not whether a send is due.
func (h *HostEngine) SetPayload(g entity.GlobalEntity, kind protocol.ComponentKind, payload []byte) {
	s, ok := h.entities[g]
	if !ok {
		return
	}
	if cs, ok := s.Components[kind]; ok {
		cs.lastPayload = payload
	}
}

// RemoveComponent enqueues a RemoveComponent action for an already-told
// component and drops its bookkeeping.
func (h *HostEngine) RemoveComponent(g entity.GlobalEntity, kind protocol.ComponentKind) *Action {
	s, ok := h.entities[g]
	if !ok {
		return nil
	}
	cs, ok := s.Components[kind]
	if !ok {
		return nil
	}
	delete(s.Components, kind)
	if !cs.Told {
		return nil // never told the remote about it; nothing to remove on the wire
	}
	a := Action{Kind: ActionRemoveComponent, Entity: s.Record.Net, ActionIndex: s.nextAction, ComponentKind: kind}
	s.nextAction++
	return &a
}
