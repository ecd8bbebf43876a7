package handshake

import (
	"time"

	"github.com/naia-go/naia/internal/logger"
	"github.com/naia-go/naia/naiaerr"
	"github.com/naia-go/naia/packet"
	"github.com/naia-go/naia/wire"
)

// AuthProvider produces the optional auth_message payload attached to
// ClientValidateRequest (§4.1). Returning nil means no credential is
// offered; the host's auth callback decides whether that is acceptable.
type AuthProvider interface {
	AuthMessage() []byte
}

// Client drives the client side of the four-step exchange. It is not
// safe for concurrent use; the connection driver loop owns it.
type Client struct {
	state ClientState

	clientTimestamp int64
	signature       [32]byte
	identityToken   []byte

	auth AuthProvider

	lastSend time.Time
	interval time.Duration
	now      func() time.Time
	log      logger.Logger
}

// NewClient starts a handshake attempt, stamping the challenge with
// nowFn() as the client_timestamp the server will later sign. log may
// be nil, in which case handshake events are discarded.
func NewClient(nowFn func() time.Time, auth AuthProvider, log logger.Logger) *Client {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Client{
		state:           ClientAwaitingChallengeResponse,
		clientTimestamp: nowFn().UnixNano(),
		auth:            auth,
		interval:        DefaultSendInterval,
		now:             nowFn,
		log:             logger.OrNop(log),
	}
}

func (c *Client) State() ClientState { return c.state }

// ShouldSend reports whether the retransmit timer (send_handshake_interval,
// §6) has elapsed for the message appropriate to the current state.
// Connected and Rejected are terminal: nothing more to send.
func (c *Client) ShouldSend() bool {
	if c.state == ClientConnected || c.state == ClientRejected {
		return false
	}
	return c.now().Sub(c.lastSend) >= c.interval
}

// NextOutbound returns the packet type and payload bytes the client
// should (re)send given its current state, marking the retransmit
// timer as reset. Returns a zero Type and nil payload once Connected
// or Rejected, since there is nothing left to (re)send.
func (c *Client) NextOutbound() (packet.Type, []byte) {
	if c.state == ClientConnected || c.state == ClientRejected {
		return 0, nil
	}
	c.lastSend = c.now()
	w := wire.NewWriter()
	switch c.state {
	case ClientAwaitingChallengeResponse:
		ChallengeRequest{ClientTimestamp: c.clientTimestamp}.Encode(w)
		return packet.TypeHandshakeChallengeRequest, w.Bytes()
	case ClientAwaitingValidateResponse:
		var authMsg []byte
		if c.auth != nil {
			authMsg = c.auth.AuthMessage()
		}
		ValidateRequest{
			ClientTimestamp: c.clientTimestamp,
			Signature:       c.signature,
			AuthMessage:     authMsg,
		}.Encode(w)
		return packet.TypeHandshakeValidateRequest, w.Bytes()
	case ClientAwaitingConnectResponse:
		ConnectRequest{IdentityToken: c.identityToken}.Encode(w)
		return packet.TypeHandshakeConnectRequest, w.Bytes()
	default:
		return 0, nil
	}
}

// Receive feeds an inbound handshake datagram of kind typ to the state
// machine, advancing state on a match and otherwise ignoring the
// message (duplicates and out-of-order retransmits are expected on an
// unreliable transport).
func (c *Client) Receive(typ packet.Type, payload []byte) error {
	r := wire.NewReader(payload)
	switch typ {
	case packet.TypeHandshakeChallengeResponse:
		if c.state != ClientAwaitingChallengeResponse {
			return nil
		}
		resp, err := DecodeChallengeResponse(r)
		if err != nil {
			return naiaerr.MalformedPacket(err)
		}
		if resp.ClientTimestamp != c.clientTimestamp {
			return nil
		}
		c.signature = resp.Signature
		c.state = ClientAwaitingValidateResponse
		c.lastSend = time.Time{}
		c.log.Debug("handshake challenge acknowledged")
		return nil

	case packet.TypeHandshakeValidateResponse:
		if c.state != ClientAwaitingValidateResponse {
			return nil
		}
		resp, err := DecodeValidateResponse(r)
		if err != nil {
			return naiaerr.MalformedPacket(err)
		}
		c.identityToken = resp.IdentityToken
		c.state = ClientAwaitingConnectResponse
		c.lastSend = time.Time{}
		c.log.Debug("handshake validated", logger.Int("identity_token_len", len(resp.IdentityToken)))
		return nil

	case packet.TypeHandshakeRejectResponse:
		if c.state != ClientAwaitingValidateResponse {
			return nil
		}
		c.state = ClientRejected
		c.log.Warn("handshake rejected by host")
		return nil

	case packet.TypeHandshakeConnectResponse:
		// Idempotent: a client that is already Connected re-acks a
		// retransmitted ServerConnectResponse rather than erroring
		// (§8 property 9).
		if c.state != ClientAwaitingConnectResponse && c.state != ClientConnected {
			return nil
		}
		wasConnected := c.state == ClientConnected
		c.state = ClientConnected
		if !wasConnected {
			c.log.Info("handshake completed")
		}
		return nil

	default:
		return nil
	}
}
