package world

import (
	"sync"

	"github.com/naia-go/naia/protocol"
)

// MemoryWorld is a minimal in-process World used by tests and
// examples that have no real host ECS to adapt: components are held
// as a map of maps guarded by one mutex, the same shape the rest of
// this package's bookkeeping types (replication.ScopeMap, entity.Bimap)
// use for small per-connection or per-process tables.
type MemoryWorld struct {
	mu         sync.Mutex
	nextEntity Entity
	entities   map[Entity]map[protocol.ComponentKind]any
}

func NewMemoryWorld() *MemoryWorld {
	return &MemoryWorld{entities: make(map[Entity]map[protocol.ComponentKind]any)}
}

var _ World = (*MemoryWorld)(nil)

func (w *MemoryWorld) SpawnEntity() Entity {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.nextEntity
	w.nextEntity++
	w.entities[id] = make(map[protocol.ComponentKind]any)
	return id
}

func (w *MemoryWorld) DespawnEntity(e Entity) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.entities, e)
}

func (w *MemoryWorld) HasEntity(e Entity) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.entities[e]
	return ok
}

func (w *MemoryWorld) Entities() []Entity {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Entity, 0, len(w.entities))
	for e := range w.entities {
		out = append(out, e)
	}
	return out
}

func (w *MemoryWorld) HasComponent(e Entity, kind protocol.ComponentKind) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	comps, ok := w.entities[e]
	if !ok {
		return false
	}
	_, ok = comps[kind]
	return ok
}

func (w *MemoryWorld) Component(e Entity, kind protocol.ComponentKind) (any, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	comps, ok := w.entities[e]
	if !ok {
		return nil, false
	}
	v, ok := comps[kind]
	return v, ok
}

func (w *MemoryWorld) ComponentMut(e Entity, kind protocol.ComponentKind) (any, bool) {
	return w.Component(e, kind)
}

func (w *MemoryWorld) InsertComponent(e Entity, kind protocol.ComponentKind, value any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	comps, ok := w.entities[e]
	if !ok {
		return
	}
	comps[kind] = value
}

func (w *MemoryWorld) RemoveComponent(e Entity, kind protocol.ComponentKind) (any, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	comps, ok := w.entities[e]
	if !ok {
		return nil, false
	}
	v, ok := comps[kind]
	if ok {
		delete(comps, kind)
	}
	return v, ok
}
