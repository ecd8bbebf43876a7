// Package authority implements the per-entity authority state machine
// of spec.md §4.6 for Delegated entities: Available/Requested/Granted/
// Denied/Releasing, with the server acting as arbiter.
package authority

import (
	"sync"

	"github.com/naia-go/naia/entity"
	"github.com/naia-go/naia/internal/logger"
	"github.com/naia-go/naia/naiaerr"
)

// Status is one of the five authority states an entity can be in.
type Status int

const (
	Available Status = iota
	Requested
	Granted
	Denied
	Releasing
)

// HolderKey identifies whichever peer currently requests/holds
// authority; the server tracks it per UserKey, the client only cares
// whether it itself is the holder.
type HolderKey uint64

type entry struct {
	status    Status
	holder    HolderKey
	hasHolder bool
}

// Manager is the server-side arbiter keeping one authority record per
// Delegated GlobalEntity: the "process-wide bimap Entity ↔
// Arc<RwLock<AuthStatus>>" of §4.6, using one map-wide RWMutex since Go has no
// equivalent of a per-entry Arc<RwLock> without heavier machinery.
type Manager struct {
	mu      sync.RWMutex
	entries map[entity.GlobalEntity]*entry
	log     logger.Logger
}

// NewManager constructs a Manager. log may be nil, in which case
// authority transitions are discarded rather than logged.
func NewManager(log logger.Logger) *Manager {
	return &Manager{entries: make(map[entity.GlobalEntity]*entry), log: logger.OrNop(log)}
}

// Status reports e's current authority state and holder (if any).
func (m *Manager) Status(e entity.GlobalEntity) (Status, HolderKey, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ent, ok := m.entries[e]
	if !ok {
		return Available, 0, false
	}
	return ent.status, ent.holder, ent.hasHolder
}

// Request handles an AuthRequest from requester for e. Returns true
// (Granted) if no one holds authority or the holder has released;
// false (Denied) otherwise. The server is the sole caller (§4.6 rule:
// "the server is arbiter").
func (m *Manager) Request(e entity.GlobalEntity, requester HolderKey) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	ent, ok := m.entries[e]
	if !ok {
		ent = &entry{status: Available}
		m.entries[e] = ent
	}

	switch ent.status {
	case Available:
		ent.status = Granted
		ent.holder = requester
		ent.hasHolder = true
		m.log.Info("authority granted", logger.Any("entity", e), logger.Any("holder", requester))
		return true
	default:
		m.log.Debug("authority request denied", logger.Any("entity", e), logger.Any("holder", requester), logger.Any("status", ent.status))
		return false
	}
}

// Release handles an AuthRelease from holder. Returns an
// AuthorityViolation if holder does not currently hold Granted.
func (m *Manager) Release(e entity.GlobalEntity, holder HolderKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ent, ok := m.entries[e]
	if !ok || ent.status != Granted || !ent.hasHolder || ent.holder != holder {
		m.log.Warn("authority release rejected", logger.Any("entity", e), logger.Any("holder", holder))
		return naiaerr.AuthorityViolation("release from non-holder")
	}
	ent.status = Available
	ent.hasHolder = false
	m.log.Info("authority released", logger.Any("entity", e), logger.Any("holder", holder))
	return nil
}

// ReclaimOnDisconnect atomically returns e to Available if the
// disconnecting peer was its holder (§4.6: "On disconnect of a holder:
// server reclaims authority atomically after connection teardown").
func (m *Manager) ReclaimOnDisconnect(disconnected HolderKey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for e, ent := range m.entries {
		if ent.hasHolder && ent.holder == disconnected {
			ent.status = Available
			ent.hasHolder = false
			m.log.Info("authority reclaimed on disconnect", logger.Any("entity", e), logger.Any("holder", disconnected))
		}
	}
}

// CanMutate reports whether holder may mutate e's components: only the
// current Granted holder may (§4.6: "mutations from non-holders are
// rejected locally").
func (m *Manager) CanMutate(e entity.GlobalEntity, holder HolderKey) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ent, ok := m.entries[e]
	return ok && ent.status == Granted && ent.hasHolder && ent.holder == holder
}

// Exclusive reports, across every tracked entity, whether at most one
// holder is Granted per entity (§8 property 8: "the union of Granted
// authority sets partitions Delegated entities"). Exposed for tests
// exercising the invariant directly; production code never needs to
// call it since Request/Release already enforce it structurally.
func (m *Manager) Exclusive() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ent := range m.entries {
		if ent.status == Granted && !ent.hasHolder {
			return false
		}
	}
	return true
}
