package server

import (
	"github.com/naia-go/naia/entity"
	"github.com/naia-go/naia/protocol"
	"github.com/naia-go/naia/replication"
)

// SpawnEntity allocates a fresh GlobalEntity for hostEntity (the host
// application's own entity id, e.g. an ECS Entity), initially out of
// scope for every user (§4.5: scope decisions are explicit — see
// Include).
func (s *Server) SpawnEntity(hostEntity uint64) entity.GlobalEntity {
	return s.globals.Spawn(hostEntity)
}

// DespawnEntity begins the despawn sequence for g on every user it is
// currently in scope for, and drops its scope bookkeeping. The
// GlobalEntity's per-connection HostEngine state is dropped once each
// connection's DespawnEntity action is acked (connection/host engine
// lifecycle), not here.
func (s *Server) DespawnEntity(g entity.GlobalEntity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.scope.UsersWatching(g) {
		if in, recorded := s.scope.Get(u, g); recorded && in {
			if uc, ok := s.users[u]; ok {
				uc.conn.HostEngine().MarkDeleting(g)
			}
		}
	}
	s.scope.RemoveEntity(g)
	s.globals.Despawn(g)

	s.mu2.Lock()
	delete(s.mutChannels, g)
	delete(s.payloads, g)
	s.mu2.Unlock()
}

func (s *Server) ensureMutChannel(g entity.GlobalEntity, kind protocol.ComponentKind, propertyCount int) *replication.MutChannel {
	s.mu2.Lock()
	defer s.mu2.Unlock()
	byKind, ok := s.mutChannels[g]
	if !ok {
		byKind = make(map[protocol.ComponentKind]*replication.MutChannel)
		s.mutChannels[g] = byKind
	}
	mc, ok := byKind[kind]
	if !ok {
		mc = replication.NewMutChannel(propertyCount)
		byKind[kind] = mc
	}
	s.propCounts[kind] = propertyCount
	return mc
}

// Include brings g into scope for user: every component currently
// registered on g is attached to user's per-connection HostEngine
// state so the next Broadcast ships a SpawnEntity action carrying
// them (§4.5 "Host side" step 1).
func (s *Server) Include(user replication.UserKey, g entity.GlobalEntity) {
	s.scope.Include(user, g)

	s.mu.Lock()
	uc, ok := s.users[user]
	s.mu.Unlock()
	if !ok {
		return
	}

	state := uc.conn.HostEngine().EnsureScoped(g)
	s.mu2.Lock()
	byKind := s.mutChannels[g]
	s.mu2.Unlock()
	for kind, mc := range byKind {
		if _, already := state.Components[kind]; already {
			continue
		}
		mask := mc.Subscribe(replication.ConnectionID(user))
		state.Components[kind] = &replication.HostComponentState{Kind: kind, Mask: mask}
	}
}

// Exclude removes g from scope for user; the next Produce ships a
// DespawnEntity action to that user only (other users watching g are
// unaffected).
func (s *Server) Exclude(user replication.UserKey, g entity.GlobalEntity) {
	s.scope.Exclude(user, g)
	s.mu.Lock()
	uc, ok := s.users[user]
	s.mu.Unlock()
	if ok {
		uc.conn.HostEngine().MarkDeleting(g)
	}
}

// InsertComponent registers kind on g with its current encoded value,
// attaching it to every user g is already in scope for. propertyCount
// sizes the DiffMask (protocol.Component(kind).PropertyCount).
func (s *Server) InsertComponent(g entity.GlobalEntity, kind protocol.ComponentKind, propertyCount int, payload []byte) {
	mc := s.ensureMutChannel(g, kind, propertyCount)
	s.setCachedPayload(g, kind, payload)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.scope.UsersWatching(g) {
		in, recorded := s.scope.Get(u, g)
		if !recorded || !in {
			continue
		}
		uc, ok := s.users[u]
		if !ok {
			continue
		}
		state := uc.conn.HostEngine().EnsureScoped(g)
		if _, already := state.Components[kind]; !already {
			mask := mc.Subscribe(replication.ConnectionID(u))
			state.Components[kind] = &replication.HostComponentState{Kind: kind, Mask: mask}
		}
		uc.conn.HostEngine().SetPayload(g, kind, payload)
	}
}

// UpdateComponent re-encodes kind's value on g and marks every
// subscribed user's DiffMask dirty across the whole property range,
// since the caller passes one opaque payload rather than a per-
// property diff (a host wanting finer-grained dirty tracking can call
// MarkDirty itself via a replication.PropertyMutator bound to the
// MutChannel InsertComponent already created).
func (s *Server) UpdateComponent(g entity.GlobalEntity, kind protocol.ComponentKind, payload []byte) {
	s.setCachedPayload(g, kind, payload)

	s.mu2.Lock()
	byKind := s.mutChannels[g]
	var mc *replication.MutChannel
	propCount := 0
	if byKind != nil {
		mc = byKind[kind]
		propCount = s.propCounts[kind]
	}
	s.mu2.Unlock()
	if mc == nil {
		return
	}
	for i := 0; i < propCount; i++ {
		mc.MarkDirty(i)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.scope.UsersWatching(g) {
		if uc, ok := s.users[u]; ok {
			uc.conn.HostEngine().SetPayload(g, kind, payload)
		}
	}
}

// RemoveComponent drops kind from g for every user currently
// subscribed. Each user that had already been told about it gets a
// RemoveComponent action queued on its connection right away; the
// actions are also returned.
func (s *Server) RemoveComponent(g entity.GlobalEntity, kind protocol.ComponentKind) []replication.Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	var actions []replication.Action
	for _, u := range s.scope.UsersWatching(g) {
		uc, ok := s.users[u]
		if !ok {
			continue
		}
		if a := uc.conn.HostEngine().RemoveComponent(g, kind); a != nil {
			uc.conn.QueueReplicationActions([]replication.Action{*a})
			actions = append(actions, *a)
		}
	}

	s.mu2.Lock()
	if byKind, ok := s.mutChannels[g]; ok {
		if mc, ok := byKind[kind]; ok {
			for _, u := range s.scope.UsersWatching(g) {
				mc.Unsubscribe(replication.ConnectionID(u))
			}
		}
		delete(byKind, kind)
	}
	if byKind, ok := s.payloads[g]; ok {
		delete(byKind, kind)
	}
	s.mu2.Unlock()

	return actions
}

// produceAll walks every connection's HostEngine and queues its due
// replication actions, called once per Broadcast before SendAll.
func (s *Server) produceAll() error {
	s.mu.Lock()
	conns := make([]*userConn, 0, len(s.users))
	for _, uc := range s.users {
		conns = append(conns, uc)
	}
	s.mu.Unlock()

	for _, uc := range conns {
		actions, err := uc.conn.HostEngine().Produce(s.cfg.Protocol, func(g entity.GlobalEntity) ([]protocol.ComponentKind, [][]byte) {
			return s.spawnPayload(g)
		})
		if err != nil {
			return err
		}
		uc.conn.QueueReplicationActions(actions)
	}
	return nil
}

func (s *Server) spawnPayload(g entity.GlobalEntity) ([]protocol.ComponentKind, [][]byte) {
	s.mu2.Lock()
	defer s.mu2.Unlock()
	byKind := s.payloads[g]
	if len(byKind) == 0 {
		return nil, nil
	}
	kinds := make([]protocol.ComponentKind, 0, len(byKind))
	payloads := make([][]byte, 0, len(byKind))
	for kind, payload := range byKind {
		kinds = append(kinds, kind)
		payloads = append(payloads, payload)
	}
	return kinds, payloads
}

// setCachedPayload keeps the server's own copy of a component's latest
// encoded value, the source Produce's spawn callback reads from (a
// freshly-scoped connection has no HostComponentState yet to read a
// prior value out of).
func (s *Server) setCachedPayload(g entity.GlobalEntity, kind protocol.ComponentKind, payload []byte) {
	s.mu2.Lock()
	defer s.mu2.Unlock()
	byKind, ok := s.payloads[g]
	if !ok {
		byKind = make(map[protocol.ComponentKind][]byte)
		s.payloads[g] = byKind
	}
	byKind[kind] = payload
}
