package replication

import "sync"

// MutChannel fans a single component instance's property mutations out
// to one DiffMask per subscribed connection. It is the only structure
// touched from both the connection's send path and the world-mutation
// path (§5): mutation takes the write lock briefly to set a bit across
// every subscriber; the replication engine takes the read lock while
// snapshotting a subscriber's mask for an outgoing packet.
type MutChannel struct {
	mu            sync.RWMutex
	propertyCount int
	subscribers   map[ConnectionID]*DiffMask
}

// ConnectionID identifies a connection's subscription to a MutChannel
// without the replication package depending on the connection package
// (which depends on replication), avoiding an import cycle.
type ConnectionID uint64

func NewMutChannel(propertyCount int) *MutChannel {
	return &MutChannel{propertyCount: propertyCount, subscribers: make(map[ConnectionID]*DiffMask)}
}

// Subscribe registers conn as a receiver, returning its DiffMask
// (creating one, clean, if this is the first subscription).
func (m *MutChannel) Subscribe(conn ConnectionID) *DiffMask {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mask, ok := m.subscribers[conn]; ok {
		return mask
	}
	mask := NewDiffMask(m.propertyCount)
	m.subscribers[conn] = mask
	return mask
}

func (m *MutChannel) Unsubscribe(conn ConnectionID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscribers, conn)
}

// MarkDirty sets propertyIndex in every subscriber's DiffMask. Called
// by a PropertyMutator whenever the host mutates a replicated property.
func (m *MutChannel) MarkDirty(propertyIndex int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mask := range m.subscribers {
		mask.Set(propertyIndex)
	}
}

// Mask returns conn's current DiffMask pointer, or nil if unsubscribed.
func (m *MutChannel) Mask(conn ConnectionID) (*DiffMask, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mask, ok := m.subscribers[conn]
	return mask, ok
}

// PropertyHandle identifies one replicated property of one component
// instance on one entity — the "index handle" of §9's property
// mutation callback design note.
type PropertyHandle struct {
	Global        GlobalEntityID
	ComponentKind uint16
	PropertyIndex int
}

// GlobalEntityID is an alias for the entity package's GlobalEntity,
// redeclared here as a plain uint64 so this package has no import-time
// dependency on package entity (entity does not need to know about
// replication internals, and this avoids any future cycle risk).
type GlobalEntityID uint64

// PropertyMutator is captured by a replicated property at component
// construction time; calling MarkDirty on it performs the MutChannel
// fanout under a short critical section (§9), without the property
// itself needing to know about connections or DiffMasks.
type PropertyMutator struct {
	handle  PropertyHandle
	channel *MutChannel
}

func NewPropertyMutator(handle PropertyHandle, channel *MutChannel) *PropertyMutator {
	return &PropertyMutator{handle: handle, channel: channel}
}

func (p *PropertyMutator) MarkDirty() {
	p.channel.MarkDirty(p.handle.PropertyIndex)
}
