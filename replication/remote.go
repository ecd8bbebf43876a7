package replication

import (
	"github.com/naia-go/naia/entity"
	"github.com/naia-go/naia/internal/logger"
	"github.com/naia-go/naia/naiaerr"
	"github.com/naia-go/naia/protocol"
)

// World is the subset of the §6 World contract the remote-side engine
// needs: kind-indexed spawn/despawn/insert/remove driven by ComponentKind
// rather than a static type parameter.
type World interface {
	SpawnEntity() uint64
	DespawnEntity(hostEntity uint64)
	InsertComponentFromBytes(hostEntity uint64, kind protocol.ComponentKind, payload []byte) error
	ApplyUpdateFromBytes(hostEntity uint64, kind protocol.ComponentKind, payload []byte) error
	RemoveComponent(hostEntity uint64, kind protocol.ComponentKind)
}

// pendingAction buffers an action that arrived before its entity was
// known (§7 ScopeViolation recovery: "if SpawnEntity is missing but
// InsertComponent arrives, the action is buffered pending spawn").
type pendingAction struct {
	action Action
}

const maxPendingPerEntity = 32

// RemoteEngine applies incoming Actions to a World, maintaining the
// NetEntity<->GlobalEntity bimap and per-entity locality/component
// bookkeeping for one connection (§4.5 "Remote side").
type RemoteEngine struct {
	world   World
	bimap   *entity.Bimap
	globals *entity.GlobalEntityMap
	records map[entity.NetEntity]*entity.EntityRecord
	pending map[entity.NetEntity][]pendingAction
	log     logger.Logger
}

// NewRemoteEngine constructs a RemoteEngine. log may be nil, in which
// case applied actions are not logged.
func NewRemoteEngine(world World, globals *entity.GlobalEntityMap, log logger.Logger) *RemoteEngine {
	return &RemoteEngine{
		world:   world,
		bimap:   entity.NewBimap(),
		globals: globals,
		records: make(map[entity.NetEntity]*entity.EntityRecord),
		pending: make(map[entity.NetEntity][]pendingAction),
		log:     logger.OrNop(log),
	}
}

// Apply processes one action, mutating the World and local bookkeeping.
// Errors returned are always naiaerr values recoverable at the packet
// boundary (§7): the caller should log and continue, never tear down
// the connection for an Apply error.
func (r *RemoteEngine) Apply(protocolReg *protocol.Protocol, a Action) error {
	switch a.Kind {
	case ActionSpawnEntity:
		for _, kind := range a.Components {
			if _, err := protocolReg.Component(kind); err != nil {
				return err
			}
		}
		return r.applySpawn(a)
	case ActionInsertComponent, ActionUpdateComponent, ActionRemoveComponent:
		if _, err := protocolReg.Component(a.ComponentKind); err != nil {
			return err
		}
		if a.Kind == ActionInsertComponent {
			return r.applyInsert(a)
		}
		if a.Kind == ActionUpdateComponent {
			return r.applyUpdate(a)
		}
		return r.applyRemove(a)
	case ActionDespawnEntity:
		return r.applyDespawn(a)
	default:
		return naiaerr.MalformedPacket(nil)
	}
}

func (r *RemoteEngine) applySpawn(a Action) error {
	if rec, ok := r.records[a.Entity]; ok {
		if rec.Locality != entity.Creating {
			return nil // idempotent: already spawned, ignore duplicate
		}
	}

	hostEntity := r.world.SpawnEntity()
	global := r.globals.Spawn(hostEntity)
	r.bimap.Insert(a.Entity, global)

	rec := entity.NewEntityRecord(a.Entity)
	r.records[a.Entity] = rec

	for i, kind := range a.Components {
		if err := r.world.InsertComponentFromBytes(hostEntity, kind, a.ComponentPayloads[i]); err != nil {
			return naiaerr.MalformedPacket(err)
		}
		rec.KnownComponents[kind] = true
	}
	rec.Advance(entity.Created)
	r.flushPending(a.Entity)
	r.log.Debug("replication entity spawned", logger.Any("net_entity", a.Entity), logger.Int("components", len(a.Components)))
	return nil
}

func (r *RemoteEngine) applyInsert(a Action) error {
	rec, ok := r.records[a.Entity]
	if !ok {
		return r.buffer(a)
	}
	if rec.KnownComponents[a.ComponentKind] {
		return nil // warn-and-ignore: already known
	}
	global, _ := r.bimap.Global(a.Entity)
	hostEntity, _ := r.globals.HostEntity(global)
	if err := r.world.InsertComponentFromBytes(hostEntity, a.ComponentKind, a.Payload); err != nil {
		return naiaerr.MalformedPacket(err)
	}
	rec.KnownComponents[a.ComponentKind] = true
	return nil
}

func (r *RemoteEngine) applyUpdate(a Action) error {
	rec, ok := r.records[a.Entity]
	if !ok {
		return r.buffer(a)
	}
	if !rec.KnownComponents[a.ComponentKind] {
		return naiaerr.ScopeViolation("update for component never inserted")
	}
	global, _ := r.bimap.Global(a.Entity)
	hostEntity, _ := r.globals.HostEntity(global)
	if err := r.world.ApplyUpdateFromBytes(hostEntity, a.ComponentKind, a.Payload); err != nil {
		return naiaerr.MalformedPacket(err)
	}
	return nil
}

func (r *RemoteEngine) applyRemove(a Action) error {
	rec, ok := r.records[a.Entity]
	if !ok {
		return nil // idempotent
	}
	if !rec.KnownComponents[a.ComponentKind] {
		return nil
	}
	global, _ := r.bimap.Global(a.Entity)
	hostEntity, _ := r.globals.HostEntity(global)
	r.world.RemoveComponent(hostEntity, a.ComponentKind)
	delete(rec.KnownComponents, a.ComponentKind)
	return nil
}

func (r *RemoteEngine) applyDespawn(a Action) error {
	rec, ok := r.records[a.Entity]
	if !ok || rec.Locality == entity.Deleting {
		return nil // idempotent
	}
	rec.Advance(entity.Deleting)

	global, _ := r.bimap.Global(a.Entity)
	hostEntity, _ := r.globals.HostEntity(global)
	r.world.DespawnEntity(hostEntity)
	r.globals.Despawn(global)
	r.bimap.Remove(a.Entity)
	delete(r.records, a.Entity)
	delete(r.pending, a.Entity)
	r.log.Debug("replication entity despawned", logger.Any("net_entity", a.Entity))
	return nil
}

// buffer stores an action whose entity hasn't spawned yet, bounded per
// entity so a malicious or buggy peer can't grow this unboundedly (§7:
// "the action is buffered pending spawn (bounded)").
func (r *RemoteEngine) buffer(a Action) error {
	q := r.pending[a.Entity]
	if len(q) >= maxPendingPerEntity {
		r.log.Warn("replication pending buffer full, rejecting action", logger.Any("net_entity", a.Entity))
		return naiaerr.ScopeViolation("too many actions buffered for unspawned entity")
	}
	r.pending[a.Entity] = append(q, pendingAction{action: a})
	return nil
}

func (r *RemoteEngine) flushPending(net entity.NetEntity) {
	q := r.pending[net]
	delete(r.pending, net)
	for _, p := range q {
		switch p.action.Kind {
		case ActionInsertComponent:
			_ = r.applyInsert(p.action)
		case ActionRemoveComponent:
			_ = r.applyRemove(p.action)
			// Buffered ActionUpdateComponent entries are dropped, not replayed.
		}
	}
}

// Pending returns the actions buffered for an entity that has not
// spawned yet. The spawn clears the buffer (see flushPending), so
// after it Pending returns nothing.
func (r *RemoteEngine) Pending(net entity.NetEntity) []Action {
	q := r.pending[net]
	out := make([]Action, len(q))
	for i, p := range q {
		out[i] = p.action
	}
	return out
}
