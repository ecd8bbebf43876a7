// Package httpsession is a reference transport.Server/transport.Client
// pair built on gorilla/websocket: one persistent binary-message
// connection per peer, each inbound frame handed upward as an opaque
// payload. It performs no encryption of its own (delegated to TLS at
// the wss:// layer, per the Non-goal on authenticated encryption);
// it exists so Naia has a drivable default instead of only an
// in-memory test double.
package httpsession

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/naia-go/naia/internal/session"
	"github.com/naia-go/naia/transport"
)

const (
	defaultReadTimeout  = 60 * time.Second
	defaultWriteTimeout = 30 * time.Second

	// sessionHeader carries the correlation id minted for a peer back
	// to it during the WebSocket upgrade, so both sides can tie their
	// log lines for this connection together from the first frame.
	sessionHeader = "X-Naia-Session-Id"
)

type serverConn struct {
	conn      *websocket.Conn
	accepted  bool
	sessionID session.ID
}

// Server accepts inbound WebSocket connections and multiplexes
// binary datagrams across however many peers are currently connected.
// Peers are addressed by the query parameter ?addr= their dial URL
// carries (a proxy for the "remote address" concept naia's contract
// requires); a real deployment would derive this from the connection
// itself once a listener replaces the http.Handler upgrade path.
type Server struct {
	upgrader websocket.Upgrader

	mu    sync.Mutex
	peers map[string]*serverConn

	inbound chan transport.Datagram
}

func NewServer() *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  2048,
			WriteBufferSize: 2048,
		},
		peers:   make(map[string]*serverConn),
		inbound: make(chan transport.Datagram, 256),
	}
}

// Handler returns the http.Handler to mount at the listening endpoint.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		addr := r.URL.Query().Get("addr")
		if addr == "" {
			http.Error(w, "missing addr", http.StatusBadRequest)
			return
		}
		sid := session.New()
		respHeader := http.Header{}
		respHeader.Set(sessionHeader, sid.String())
		conn, err := s.upgrader.Upgrade(w, r, respHeader)
		if err != nil {
			http.Error(w, fmt.Sprintf("upgrade failed: %v", err), http.StatusBadRequest)
			return
		}

		s.mu.Lock()
		s.peers[addr] = &serverConn{conn: conn, sessionID: sid}
		s.mu.Unlock()

		go s.readLoop(addr, conn)
	})
}

func (s *Server) readLoop(addr string, conn *websocket.Conn) {
	defer func() {
		s.mu.Lock()
		delete(s.peers, addr)
		s.mu.Unlock()
		_ = conn.Close()
	}()
	for {
		if err := conn.SetReadDeadline(time.Now().Add(defaultReadTimeout)); err != nil {
			return
		}
		typ, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if typ != websocket.BinaryMessage {
			continue
		}
		s.inbound <- transport.Datagram{Addr: addr, Payload: payload}
	}
}

// Accept marks addr as validated, allowing its datagrams already
// buffered in readLoop to keep flowing (the connection is already
// live from the HTTP upgrade; Accept is the point where the
// handshake-verified identity_token becomes the caller's license to
// treat this peer as connected).
func (s *Server) Accept(ctx context.Context, addr string, identityToken []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pc, ok := s.peers[addr]
	if !ok {
		return fmt.Errorf("httpsession: no connection from %s", addr)
	}
	pc.accepted = true
	return nil
}

// SessionID reports the correlation id minted for addr at upgrade
// time, for use in log fields. ok is false once the peer has
// disconnected or was never seen.
func (s *Server) SessionID(addr string) (id session.ID, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pc, ok := s.peers[addr]
	if !ok {
		return "", false
	}
	return pc.sessionID, true
}

// Reject closes addr's underlying connection and forgets it.
func (s *Server) Reject(addr string) error {
	s.mu.Lock()
	pc, ok := s.peers[addr]
	delete(s.peers, addr)
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return pc.conn.Close()
}

func (s *Server) Send(addr string, payload []byte) error {
	s.mu.Lock()
	pc, ok := s.peers[addr]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("httpsession: no connection to %s", addr)
	}
	if err := pc.conn.SetWriteDeadline(time.Now().Add(defaultWriteTimeout)); err != nil {
		return err
	}
	return pc.conn.WriteMessage(websocket.BinaryMessage, payload)
}

// Recv returns the next buffered inbound datagram without blocking.
func (s *Server) Recv() (transport.Datagram, bool, error) {
	select {
	case dg := <-s.inbound:
		return dg, true, nil
	default:
		return transport.Datagram{}, false, nil
	}
}

func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for addr, pc := range s.peers {
		_ = pc.conn.Close()
		delete(s.peers, addr)
	}
	return nil
}
