package handshake

import (
	"sync"
	"time"

	"github.com/naia-go/naia/internal/logger"
	"github.com/naia-go/naia/naiaerr"
	"github.com/naia-go/naia/packet"
	"github.com/naia-go/naia/wire"
)

// Validator is the host's auth callback gate: given the optional
// auth_message from ClientValidateRequest, it either mints an identity
// token for the requester or rejects it (§4.1, §6 auth callback).
type Validator interface {
	Validate(authMessage []byte) (identityToken []byte, accept bool)
}

// ValidatorFunc adapts a plain function to Validator.
type ValidatorFunc func(authMessage []byte) ([]byte, bool)

func (f ValidatorFunc) Validate(authMessage []byte) ([]byte, bool) { return f(authMessage) }

// AcceptAll is a Validator that admits every client with an
// empty identity token; useful for tests and for hosts that have no
// auth_message gate of their own.
var AcceptAll Validator = ValidatorFunc(func([]byte) ([]byte, bool) { return nil, true })

// remoteState is the server's handshake progress for one remote
// address, keyed outside this struct by the connection driver.
type remoteState struct {
	state           ServerState
	clientTimestamp int64
	identityToken   []byte
	expires         time.Time
}

// pendingTTL bounds how long an address may sit mid-handshake before
// it is reclaimed, so an abandoned ClientChallengeRequest does not
// leak state forever (mirrors the teacher's pending-state TTL cleanup).
const pendingTTL = 30 * time.Second

// Server drives the server side of the exchange for every remote
// address concurrently connecting. One Server instance serves a whole
// listening socket.
type Server struct {
	signer    *Signer
	validator Validator

	mu      sync.Mutex
	remotes map[string]*remoteState

	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	cleanupDone     chan struct{}
	now             func() time.Time
	log             logger.Logger
}

// NewServer constructs a Server. secret seeds the stateless challenge
// signer; validator gates ClientValidateRequest's auth_message. log may
// be nil, in which case handshake events are discarded.
func NewServer(secret []byte, validator Validator, log logger.Logger) *Server {
	if validator == nil {
		validator = AcceptAll
	}
	s := &Server{
		signer:          NewSigner(secret),
		validator:       validator,
		remotes:         make(map[string]*remoteState),
		cleanupInterval: 10 * time.Second,
		stopCleanup:     make(chan struct{}),
		cleanupDone:     make(chan struct{}),
		now:             time.Now,
		log:             logger.OrNop(log),
	}
	go s.cleanupLoop()
	return s
}

// Close stops the background cleanup loop.
func (s *Server) Close() {
	close(s.stopCleanup)
	<-s.cleanupDone
}

func (s *Server) cleanupLoop() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.cleanupExpired(s.now())
		case <-s.stopCleanup:
			close(s.cleanupDone)
			return
		}
	}
}

func (s *Server) cleanupExpired(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for addr, rs := range s.remotes {
		if rs.state != ServerConnected && now.After(rs.expires) {
			s.log.Debug("handshake pending state expired", logger.String("addr", addr), logger.Any("state", rs.state))
			delete(s.remotes, addr)
		}
	}
}

// Forget drops any handshake/connected state tracked for addr, e.g. on
// transport-level disconnect notification or an explicit Disconnect
// message.
func (s *Server) Forget(addr string) {
	s.mu.Lock()
	delete(s.remotes, addr)
	s.mu.Unlock()
}

// Receive processes one inbound handshake datagram from addr and
// returns the packet type and payload the server should send back, or
// ok=false if nothing should be sent (a ConnectRequest from an
// untracked addr or carrying a token other than the one issued to it).
// ChallengeRequest and ValidateRequest are answered whatever addr's
// current state; a ChallengeRequest resets it to
// ServerAwaitingValidateRequest.
func (s *Server) Receive(addr string, typ packet.Type, payload []byte) (respType packet.Type, respPayload []byte, ok bool, err error) {
	r := wire.NewReader(payload)

	switch typ {
	case packet.TypeHandshakeChallengeRequest:
		req, derr := DecodeChallengeRequest(r)
		if derr != nil {
			return 0, nil, false, naiaerr.MalformedPacket(derr)
		}
		sig := s.signer.Sign(req.ClientTimestamp)

		s.mu.Lock()
		s.remotes[addr] = &remoteState{
			state:           ServerAwaitingValidateRequest,
			clientTimestamp: req.ClientTimestamp,
			expires:         s.now().Add(pendingTTL),
		}
		s.mu.Unlock()

		w := wire.NewWriter()
		ChallengeResponse{ClientTimestamp: req.ClientTimestamp, Signature: sig}.Encode(w)
		return packet.TypeHandshakeChallengeResponse, w.Bytes(), true, nil

	case packet.TypeHandshakeValidateRequest:
		req, derr := DecodeValidateRequest(r)
		if derr != nil {
			return 0, nil, false, naiaerr.MalformedPacket(derr)
		}
		if !s.signer.Verify(req.ClientTimestamp, req.Signature) {
			s.log.Warn("handshake challenge signature invalid", logger.String("addr", addr))
			w := wire.NewWriter()
			return packet.TypeHandshakeRejectResponse, w.Bytes(), true, nil
		}

		token, accept := s.validator.Validate(req.AuthMessage)
		if !accept {
			s.log.Info("handshake validator rejected client", logger.String("addr", addr))
			s.mu.Lock()
			delete(s.remotes, addr)
			s.mu.Unlock()
			w := wire.NewWriter()
			return packet.TypeHandshakeRejectResponse, w.Bytes(), true, nil
		}

		s.mu.Lock()
		s.remotes[addr] = &remoteState{
			state:           ServerAwaitingConnectRequest,
			clientTimestamp: req.ClientTimestamp,
			identityToken:   token,
			expires:         s.now().Add(pendingTTL),
		}
		s.mu.Unlock()

		w := wire.NewWriter()
		ValidateResponse{IdentityToken: token}.Encode(w)
		return packet.TypeHandshakeValidateResponse, w.Bytes(), true, nil

	case packet.TypeHandshakeConnectRequest:
		req, derr := DecodeConnectRequest(r)
		if derr != nil {
			return 0, nil, false, naiaerr.MalformedPacket(derr)
		}

		s.mu.Lock()
		rs, exists := s.remotes[addr]
		if !exists || !bytesEqual(rs.identityToken, req.IdentityToken) {
			s.mu.Unlock()
			return 0, nil, false, nil
		}
		rs.state = ServerConnected
		s.mu.Unlock()
		s.log.Info("handshake completed", logger.String("addr", addr))

		w := wire.NewWriter()
		return packet.TypeHandshakeConnectResponse, w.Bytes(), true, nil

	case packet.TypeDisconnect:
		s.Forget(addr)
		return 0, nil, false, nil

	default:
		return 0, nil, false, nil
	}
}

// State reports addr's current handshake state, if tracked.
func (s *Server) State(addr string) (ServerState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs, ok := s.remotes[addr]
	if !ok {
		return 0, false
	}
	return rs.state, true
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
