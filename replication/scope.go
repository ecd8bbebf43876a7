package replication

import "github.com/naia-go/naia/entity"

// UserKey is the server's 64-bit opaque key for a connected client (§3).
type UserKey uint64

// ScopeMap is the host application's explicit per-user entity scope
// (§4.5 "Scope"): which GlobalEntities are included for which user,
// tracked both ways so a user disconnect or entity despawn can be
// cleaned up in one pass (grounded on the original's EntityScopeMap).
type ScopeMap struct {
	inScope        map[scopeKey]bool
	entitiesOfUser map[UserKey]map[entity.GlobalEntity]bool
	usersOfEntity  map[entity.GlobalEntity]map[UserKey]bool
}

type scopeKey struct {
	user   UserKey
	entity entity.GlobalEntity
}

func NewScopeMap() *ScopeMap {
	return &ScopeMap{
		inScope:        make(map[scopeKey]bool),
		entitiesOfUser: make(map[UserKey]map[entity.GlobalEntity]bool),
		usersOfEntity:  make(map[entity.GlobalEntity]map[UserKey]bool),
	}
}

// Get reports whether e is (still) recorded as being in scope for
// user, and whether any scope decision has been recorded at all.
func (s *ScopeMap) Get(user UserKey, e entity.GlobalEntity) (inScope bool, recorded bool) {
	v, ok := s.inScope[scopeKey{user, e}]
	return v, ok
}

// Include marks e as in scope for user (UserScope::include).
func (s *ScopeMap) Include(user UserKey, e entity.GlobalEntity) { s.set(user, e, true) }

// Exclude marks e as out of scope for user (UserScope::exclude). The
// replication engine is responsible for translating a true->false
// transition into a DespawnEntity action.
func (s *ScopeMap) Exclude(user UserKey, e entity.GlobalEntity) { s.set(user, e, false) }

func (s *ScopeMap) set(user UserKey, e entity.GlobalEntity, value bool) {
	if s.entitiesOfUser[user] == nil {
		s.entitiesOfUser[user] = make(map[entity.GlobalEntity]bool)
	}
	if s.usersOfEntity[e] == nil {
		s.usersOfEntity[e] = make(map[UserKey]bool)
	}
	s.entitiesOfUser[user][e] = true
	s.usersOfEntity[e][user] = true
	s.inScope[scopeKey{user, e}] = value
}

// RemoveUser drops all scope records for a disconnected user.
func (s *ScopeMap) RemoveUser(user UserKey) {
	for e := range s.entitiesOfUser[user] {
		delete(s.usersOfEntity[e], user)
		delete(s.inScope, scopeKey{user, e})
	}
	delete(s.entitiesOfUser, user)
}

// RemoveEntity drops all scope records for a despawned entity.
func (s *ScopeMap) RemoveEntity(e entity.GlobalEntity) {
	for u := range s.usersOfEntity[e] {
		delete(s.entitiesOfUser[u], e)
		delete(s.inScope, scopeKey{u, e})
	}
	delete(s.usersOfEntity, e)
}

// UsersWatching returns every user currently tracked for e (in or out
// of scope), for iterating despawn notifications on removal.
func (s *ScopeMap) UsersWatching(e entity.GlobalEntity) []UserKey {
	out := make([]UserKey, 0, len(s.usersOfEntity[e]))
	for u := range s.usersOfEntity[e] {
		out = append(out, u)
	}
	return out
}

// CacheMap is a bounded FIFO-eviction cache (grounded on the original
// server's CacheMap): once capacity keys are held, inserting a new key
// evicts the oldest one, and re-inserting a held key only replaces its
// value. Neither ScopeMap nor the replication engine uses it.
type CacheMap[K comparable, V any] struct {
	capacity int
	values   map[K]V
	order    []K
}

func NewCacheMap[K comparable, V any](capacity int) *CacheMap[K, V] {
	return &CacheMap[K, V]{capacity: capacity, values: make(map[K]V, capacity)}
}

func (c *CacheMap[K, V]) Get(key K) (V, bool) {
	v, ok := c.values[key]
	return v, ok
}

func (c *CacheMap[K, V]) Insert(key K, value V) {
	if _, exists := c.values[key]; !exists && len(c.order) >= c.capacity && c.capacity > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.values, oldest)
	}
	if _, exists := c.values[key]; !exists {
		c.order = append(c.order, key)
	}
	c.values[key] = value
}
