package entity

import "github.com/naia-go/naia/protocol"

// Locality tracks where a scoped entity is in its per-connection
// replication lifecycle (§3: "Creating → Created → Deleting
// transitions monotonically").
type Locality int

const (
	Creating Locality = iota
	Created
	Deleting
)

// Owner identifies which peer controls spawning/despawning a
// GlobalEntity (§3's GlobalEntityRecord.EntityOwner).
type Owner int

const (
	OwnerServer Owner = iota
	OwnerClient
	OwnerClientPublic
	OwnerClientWaiting
	OwnerLocal
)

// ReplicationConfig controls who may mutate a GlobalEntity's components.
type ReplicationConfig int

const (
	Private ReplicationConfig = iota
	Public
	Delegated
)

// GlobalEntityRecord is the process-wide bookkeeping for a replicated
// entity (§3).
type GlobalEntityRecord struct {
	Components    map[protocol.ComponentKind]bool
	Owner         Owner
	OwnerUserKey  uint64
	Config        ReplicationConfig
	IsReplicating bool
}

func NewGlobalEntityRecord(owner Owner, config ReplicationConfig) *GlobalEntityRecord {
	return &GlobalEntityRecord{
		Components: make(map[protocol.ComponentKind]bool),
		Owner:      owner,
		Config:     config,
	}
}

func (r *GlobalEntityRecord) HasComponent(kind protocol.ComponentKind) bool {
	return r.Components[kind]
}

func (r *GlobalEntityRecord) AddComponent(kind protocol.ComponentKind) {
	r.Components[kind] = true
}

func (r *GlobalEntityRecord) RemoveComponent(kind protocol.ComponentKind) {
	delete(r.Components, kind)
}

// EntityRecord is the per-connection, per-scoped-entity bookkeeping
// (§3): which NetEntity the remote knows this entity as, which
// components it has been told about, and its Locality. It holds no
// DiffMasks: those live in package replication (which imports entity),
// on the HostComponentState values replication.HostEntityState keeps
// beside this record.
type EntityRecord struct {
	Net             NetEntity
	Locality        Locality
	KnownComponents map[protocol.ComponentKind]bool
}

func NewEntityRecord(net NetEntity) *EntityRecord {
	return &EntityRecord{Net: net, Locality: Creating, KnownComponents: make(map[protocol.ComponentKind]bool)}
}

// Advance moves the record forward in its Creating -> Created ->
// Deleting lifecycle. Returns false if the transition would move
// backward (§3 invariant: "no entity re-enters Creating without first
// being fully removed"), in which case the caller should treat it as a
// ScopeViolation rather than applying it. Re-asserting the current
// state is a harmless no-op.
func (r *EntityRecord) Advance(to Locality) bool {
	if to < r.Locality {
		return false
	}
	r.Locality = to
	return true
}
