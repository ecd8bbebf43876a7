// Package entity implements the identifier types of spec.md §3:
// process-wide GlobalEntity, per-connection NetEntity (with host/remote
// origin), and the recycle-with-timeout pool that hands NetEntity ids
// out and reclaims them after a quarantine window.
package entity

import (
	"sync"
	"time"

	"github.com/naia-go/naia/wire"
)

// GlobalEntity is a process-wide opaque identifier for an entity,
// stable for the entity's lifetime from host spawn to host despawn.
type GlobalEntity uint64

// NetEntity is a per-connection 16-bit identifier assigned by whichever
// peer owns the entity; it is recycled after a quarantine period.
type NetEntity uint16

// Origin distinguishes whether a NetEntity was assigned locally or by
// the remote peer, since both peers may spawn public entities.
type Origin int

const (
	OriginHost Origin = iota
	OriginRemote
)

// OwnedNetEntity pairs a NetEntity with its assignment origin.
type OwnedNetEntity struct {
	ID     NetEntity
	Origin Origin
}

func NewHostOwned(id NetEntity) OwnedNetEntity   { return OwnedNetEntity{ID: id, Origin: OriginHost} }
func NewRemoteOwned(id NetEntity) OwnedNetEntity { return OwnedNetEntity{ID: id, Origin: OriginRemote} }

func (o OwnedNetEntity) IsHost() bool { return o.Origin == OriginHost }

// Reversed flips which side "owns" the id — used when a message about
// a locally-owned entity is being described from the remote's point of
// view, or vice versa.
func (o OwnedNetEntity) Reversed() OwnedNetEntity {
	if o.Origin == OriginHost {
		return OwnedNetEntity{ID: o.ID, Origin: OriginRemote}
	}
	return OwnedNetEntity{ID: o.ID, Origin: OriginHost}
}

func (o OwnedNetEntity) Encode(w *wire.Writer) {
	w.WriteBool(o.IsHost())
	w.WriteVarU64(uint64(o.ID))
}

func DecodeOwnedNetEntity(r *wire.Reader) (OwnedNetEntity, error) {
	isHost, err := r.ReadBool()
	if err != nil {
		return OwnedNetEntity{}, err
	}
	value, err := r.ReadVarU64()
	if err != nil {
		return OwnedNetEntity{}, err
	}
	origin := OriginRemote
	if isHost {
		origin = OriginHost
	}
	return OwnedNetEntity{ID: NetEntity(value), Origin: origin}, nil
}

// recycleEntry is a retired NetEntity awaiting quarantine expiry
// before it can be handed out again (grounded on the original's
// KeyGenerator: a VecDeque of (key, retire_instant) pairs).
type recycleEntry struct {
	id       NetEntity
	retireAt time.Time
}

// Pool hands out NetEntity ids, recycling retired ones only after
// recycleTimeout has elapsed so no in-flight reference to a just-freed
// id can collide with a freshly reused one (§9 "Resource lifecycles",
// default 120s).
type Pool struct {
	mu             sync.Mutex
	recycleTimeout time.Duration
	quarantine     []recycleEntry
	ready          []NetEntity
	next           NetEntity
	now            func() time.Time
}

const DefaultRecycleTimeout = 120 * time.Second

func NewPool(recycleTimeout time.Duration) *Pool {
	return &Pool{recycleTimeout: recycleTimeout, now: time.Now}
}

// Generate returns an unused NetEntity, preferring a quarantine-expired
// recycled id over minting a new one.
func (p *Pool) Generate() NetEntity {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	for len(p.quarantine) > 0 && !now.Before(p.quarantine[0].retireAt) {
		p.ready = append(p.ready, p.quarantine[0].id)
		p.quarantine = p.quarantine[1:]
	}

	if len(p.ready) > 0 {
		id := p.ready[0]
		p.ready = p.ready[1:]
		return id
	}

	id := p.next
	p.next++
	return id
}

// Recycle retires id, making it eligible for reuse after recycleTimeout.
func (p *Pool) Recycle(id NetEntity) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.quarantine = append(p.quarantine, recycleEntry{id: id, retireAt: p.now().Add(p.recycleTimeout)})
}
