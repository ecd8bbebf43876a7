// Package world defines the boundary contract naia's core consumes to
// reach into whatever host ECS an application already uses (§6's
// "World Adapter" — the core never owns entity storage itself), plus
// Ref[T]/Mut[T] view types and a ComponentKind-indexed adapter over
// the core's type-parameterized read/write API.
package world

import (
	"reflect"
	"sync"

	"github.com/naia-go/naia/naiaerr"
	"github.com/naia-go/naia/protocol"
)

// Entity is the host ECS's own entity identifier, opaque to naia
// beyond equality and use as a map key (the §3 GlobalEntity/NetEntity
// layer sits above this and is never the same value).
type Entity uint64

// Ref is a read-only view of a component value.
type Ref[T any] struct{ value *T }

func (r Ref[T]) Get() *T { return r.value }

// Mut is a mutable view of a component value.
type Mut[T any] struct{ value *T }

func (m Mut[T]) Get() *T { return m.value }

// World is the full §6 contract: spawn/despawn/enumerate entities,
// and insert/remove/inspect components on them by ComponentKind
// (the Go-idiomatic stand-in for the original's has_component<R>/
// component<R> type-parameterized methods, which reach their callers
// through the generic helpers below instead of on the interface
// itself — Go methods can't add their own type parameters).
type World interface {
	SpawnEntity() Entity
	DespawnEntity(e Entity)
	HasEntity(e Entity) bool
	Entities() []Entity

	HasComponent(e Entity, kind protocol.ComponentKind) bool
	Component(e Entity, kind protocol.ComponentKind) (any, bool)
	ComponentMut(e Entity, kind protocol.ComponentKind) (any, bool)
	InsertComponent(e Entity, kind protocol.ComponentKind, value any)
	RemoveComponent(e Entity, kind protocol.ComponentKind) (any, bool)
}

// KindOf resolves the ComponentKind a Go type was registered under.
// Built alongside a Protocol's AddComponent calls via Register, since
// the core's diff/replication paths already index everything by
// ComponentKind and a second type->kind table is the cheapest way to
// let callers write Component[Position](w, k, e) instead of threading
// kinds through application code by hand.
type KindOf struct {
	mu   sync.RWMutex
	byTy map[reflect.Type]protocol.ComponentKind
}

func NewKindOf() *KindOf {
	return &KindOf{byTy: make(map[reflect.Type]protocol.ComponentKind)}
}

// Register associates T with kind. Call once per component type,
// right after protocol.Protocol.AddComponent returns that type's kind.
func Register[T any](k *KindOf, kind protocol.ComponentKind) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.byTy[reflect.TypeFor[T]()] = kind
}

func kindFor[T any](k *KindOf) (protocol.ComponentKind, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	kind, ok := k.byTy[reflect.TypeFor[T]()]
	return kind, ok
}

// HasComponent reports whether e carries a component of type T.
func HasComponent[T any](w World, k *KindOf, e Entity) bool {
	kind, ok := kindFor[T](k)
	if !ok {
		return false
	}
	return w.HasComponent(e, kind)
}

// Component returns a read-only view of e's T component, if present.
func Component[T any](w World, k *KindOf, e Entity) (Ref[T], bool) {
	kind, ok := kindFor[T](k)
	if !ok {
		return Ref[T]{}, false
	}
	v, ok := w.Component(e, kind)
	if !ok {
		return Ref[T]{}, false
	}
	typed, ok := v.(*T)
	if !ok {
		return Ref[T]{}, false
	}
	return Ref[T]{value: typed}, true
}

// ComponentMut returns a mutable view of e's T component, if present.
func ComponentMut[T any](w World, k *KindOf, e Entity) (Mut[T], bool) {
	kind, ok := kindFor[T](k)
	if !ok {
		return Mut[T]{}, false
	}
	v, ok := w.ComponentMut(e, kind)
	if !ok {
		return Mut[T]{}, false
	}
	typed, ok := v.(*T)
	if !ok {
		return Mut[T]{}, false
	}
	return Mut[T]{value: typed}, true
}

// InsertComponent attaches value to e under T's registered kind.
func InsertComponent[T any](w World, k *KindOf, e Entity, value *T) error {
	kind, ok := kindFor[T](k)
	if !ok {
		return naiaerr.New(naiaerr.KindUnknownComponentKind, "world: component type not registered with a KindOf", nil)
	}
	w.InsertComponent(e, kind, value)
	return nil
}

// RemoveComponent detaches e's T component, returning it if present.
func RemoveComponent[T any](w World, k *KindOf, e Entity) (*T, bool) {
	kind, ok := kindFor[T](k)
	if !ok {
		return nil, false
	}
	v, ok := w.RemoveComponent(e, kind)
	if !ok {
		return nil, false
	}
	typed, ok := v.(*T)
	return typed, ok
}
