// Package server is the host-side many-connections driver (§5, §6):
// it fans inbound datagrams out to either the handshake layer (for a
// not-yet-connected remote address) or an established
// connection.Connection, manages per-user entity scope, and produces
// every connection's outgoing datagrams each tick. Grounded on the
// teacher's `pkg/agent/session` manager shape (one map of live peers
// behind a mutex, a background cleanup loop for abandoned handshakes)
// generalized to naia's UserKey/GlobalEntity scoping model.
package server

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/naia-go/naia/authority"
	"github.com/naia-go/naia/channel"
	"github.com/naia-go/naia/connection"
	"github.com/naia-go/naia/entity"
	"github.com/naia-go/naia/handshake"
	"github.com/naia-go/naia/internal/logger"
	"github.com/naia-go/naia/internal/metrics"
	"github.com/naia-go/naia/naiaerr"
	"github.com/naia-go/naia/packet"
	"github.com/naia-go/naia/protocol"
	"github.com/naia-go/naia/replication"
	"github.com/naia-go/naia/transport"
	"golang.org/x/sync/errgroup"
)

// Config bundles what every per-user Connection is built with, plus
// the handshake gate.
type Config struct {
	Protocol        *protocol.Protocol
	Connection      connection.Config
	Validator       handshake.Validator
	HandshakeSecret []byte
	RecycleTimeout  time.Duration // NetEntity quarantine (entity.Pool), per connection
	// MaxConcurrentSend bounds how many connections' SendAll run
	// concurrently per Broadcast call (errgroup.SetLimit).
	MaxConcurrentSend int
	// Logger receives handshake, authority and per-connection log
	// statements for every user served. Nil discards them.
	Logger logger.Logger
}

type userConn struct {
	addr string
	key  replication.UserKey
	conn *connection.Connection
	pool *entity.Pool
}

// Server serves one listening transport.Server, managing every
// connecting remote address through the four-step handshake and then
// as a live connection.Connection.
type Server struct {
	cfg   Config
	trans transport.Server
	hs    *handshake.Server

	mu         sync.Mutex
	users      map[replication.UserKey]*userConn
	addrToUser map[string]replication.UserKey
	nextUser   uint64

	globals *entity.GlobalEntityMap
	scope   *replication.ScopeMap

	// mutChannels/payloads are keyed by (entity, component kind) and
	// shared across every user's per-connection HostEngine, so one
	// MarkDirty call fans out to every subscriber at once (§9 property
	// mutation design note; see replication.MutChannel).
	mu2         sync.Mutex
	mutChannels map[entity.GlobalEntity]map[protocol.ComponentKind]*replication.MutChannel
	propCounts  map[protocol.ComponentKind]int
	payloads    map[entity.GlobalEntity]map[protocol.ComponentKind][]byte

	// auth is the single server-wide arbiter for every Delegated
	// entity (§4.6: "the server is arbiter"). It is not per-connection:
	// two users racing AuthRequest for the same entity must contend
	// for the same Manager, not each get their own.
	auth *authority.Manager
	log  logger.Logger
}

// New constructs a Server over trans, ready to accept handshakes once
// the caller starts feeding it inbound datagrams via Poll. cfg.Logger
// defaults per-connection logging too, unless cfg.Connection.Logger is
// already set.
func New(trans transport.Server, cfg Config) *Server {
	log := logger.OrNop(cfg.Logger)
	if cfg.Connection.Logger == nil {
		cfg.Connection.Logger = log
	}
	return &Server{
		cfg:         cfg,
		trans:       trans,
		hs:          handshake.NewServer(cfg.HandshakeSecret, cfg.Validator, log),
		users:       make(map[replication.UserKey]*userConn),
		addrToUser:  make(map[string]replication.UserKey),
		globals:     entity.NewGlobalEntityMap(),
		scope:       replication.NewScopeMap(),
		mutChannels: make(map[entity.GlobalEntity]map[protocol.ComponentKind]*replication.MutChannel),
		propCounts:  make(map[protocol.ComponentKind]int),
		payloads:    make(map[entity.GlobalEntity]map[protocol.ComponentKind][]byte),
		auth:        authority.NewManager(log),
		log:         log,
	}
}

// Close stops the handshake layer's background cleanup loop.
func (s *Server) Close() { s.hs.Close() }

// Poll drains every datagram currently queued on the transport,
// routing handshake messages to the handshake.Server and everything
// else to the owning Connection. Call it once per server tick before
// Broadcast.
func (s *Server) Poll() error {
	for {
		dg, ok, err := s.trans.Recv()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := s.dispatch(dg); err != nil {
			return err
		}
	}
}

func (s *Server) dispatch(dg transport.Datagram) error {
	header, body, err := packet.ParseDatagram(dg.Payload)
	if err != nil {
		return naiaerr.MalformedPacket(err)
	}

	if header.Type.IsHandshake() {
		return s.handleHandshake(dg.Addr, header.Type, body)
	}
	if header.Type == packet.TypeDisconnect {
		s.forget(dg.Addr)
		return nil
	}

	s.mu.Lock()
	key, ok := s.addrToUser[dg.Addr]
	var uc *userConn
	if ok {
		uc = s.users[key]
	}
	s.mu.Unlock()
	if uc == nil {
		return nil // unknown peer sending post-handshake frames; drop
	}
	return uc.conn.Receive(dg.Payload)
}

func (s *Server) handleHandshake(addr string, typ packet.Type, body []byte) error {
	respType, respPayload, ok, err := s.hs.Receive(addr, typ, body)
	if err != nil {
		return err
	}
	if ok {
		b := packet.NewBuilder(packet.Header{Type: respType})
		b.TryAdd(respPayload)
		out, ferr := b.Finish()
		if ferr != nil {
			return ferr
		}
		if err := s.trans.Send(addr, out); err != nil {
			return err
		}
	}

	state, tracked := s.hs.State(addr)
	if tracked && state == handshake.ServerConnected {
		s.promote(addr)
	}
	return nil
}

// promote instantiates a live Connection for a freshly handshaked
// address, once (idempotent against the handshake layer re-acking a
// retransmitted ServerConnectResponse).
func (s *Server) promote(addr string) {
	s.mu.Lock()
	if _, exists := s.addrToUser[addr]; exists {
		s.mu.Unlock()
		return
	}
	key := replication.UserKey(atomic.AddUint64(&s.nextUser, 1))
	recycle := s.cfg.RecycleTimeout
	if recycle == 0 {
		recycle = time.Minute
	}
	pool := entity.NewPool(recycle)
	conn := connection.New(s.cfg.Connection, nil, nil, pool)
	uc := &userConn{addr: addr, key: key, conn: conn, pool: pool}
	s.users[key] = uc
	s.addrToUser[addr] = key
	s.mu.Unlock()

	if err := s.trans.Accept(context.Background(), addr, nil); err != nil {
		s.forget(addr)
		return
	}
	s.log.Info("user connected", logger.String("addr", addr), logger.Any("user_key", key))
}

func (s *Server) forget(addr string) {
	s.hs.Forget(addr)
	s.mu.Lock()
	key, ok := s.addrToUser[addr]
	if ok {
		delete(s.addrToUser, addr)
		delete(s.users, key)
	}
	s.mu.Unlock()
	if ok {
		s.log.Info("user disconnected", logger.String("addr", addr), logger.Any("user_key", key))
		s.scope.RemoveUser(key)
		s.auth.ReclaimOnDisconnect(authority.HolderKey(key))
		s.mu2.Lock()
		for _, byKind := range s.mutChannels {
			for _, mc := range byKind {
				mc.Unsubscribe(replication.ConnectionID(key))
			}
		}
		s.mu2.Unlock()
	}
	_ = s.trans.Reject(addr)
}

// Users returns every currently connected UserKey.
func (s *Server) Users() []replication.UserKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]replication.UserKey, 0, len(s.users))
	for k := range s.users {
		out = append(out, k)
	}
	return out
}

// AuthorityStatus reports a Delegated entity's current authority state
// and holder, per §4.6 (holder is meaningful only when ok is true).
func (s *Server) AuthorityStatus(g entity.GlobalEntity) (status authority.Status, holder replication.UserKey, ok bool) {
	st, hk, ok := s.auth.Status(g)
	return st, replication.UserKey(hk), ok
}

// RequestAuthority arbitrates an AuthRequest for g from user against
// the server-wide Manager, returning true (Grant) or false (Deny) for
// the host application to relay back over its registered authority
// channel.
func (s *Server) RequestAuthority(user replication.UserKey, g entity.GlobalEntity) bool {
	granted := s.auth.Request(g, authority.HolderKey(user))
	result := "denied"
	if granted {
		result = "granted"
	}
	metrics.AuthorityTransfers.WithLabelValues(result).Inc()
	return granted
}

// ReleaseAuthority processes an AuthRelease from user for g.
func (s *Server) ReleaseAuthority(user replication.UserKey, g entity.GlobalEntity) error {
	err := s.auth.Release(g, authority.HolderKey(user))
	if err == nil {
		metrics.AuthorityTransfers.WithLabelValues("released").Inc()
	}
	return err
}

// Enqueue sends payload to user on kind, using whatever channel mode
// kind was registered with.
func (s *Server) Enqueue(user replication.UserKey, kind channel.Kind, payload []byte) bool {
	s.mu.Lock()
	uc, ok := s.users[user]
	s.mu.Unlock()
	if !ok {
		return false
	}
	return uc.conn.Enqueue(kind, payload)
}

// Drain returns every application message that arrived from user on
// kind since the last call.
func (s *Server) Drain(user replication.UserKey, kind channel.Kind) [][]byte {
	s.mu.Lock()
	uc, ok := s.users[user]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return uc.conn.Drain(kind)
}

// Broadcast advances every connected user's tick, collects their
// pending datagrams, and sends them through the transport, bounded to
// cfg.MaxConcurrentSend connections in flight at once (errgroup fan-
// out, since SendAll/transport.Send for one user never touches
// another user's state).
func (s *Server) Broadcast(now time.Time) error {
	if err := s.produceAll(); err != nil {
		return err
	}

	s.mu.Lock()
	conns := make([]*userConn, 0, len(s.users))
	for _, uc := range s.users {
		conns = append(conns, uc)
	}
	s.mu.Unlock()

	g := new(errgroup.Group)
	if s.cfg.MaxConcurrentSend > 0 {
		g.SetLimit(s.cfg.MaxConcurrentSend)
	}
	for _, uc := range conns {
		uc := uc
		g.Go(func() error {
			uc.conn.AdvanceTick(now)
			for _, dg := range uc.conn.SendAll(now) {
				if err := s.trans.Send(uc.addr, dg); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}
