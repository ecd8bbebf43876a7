// Package client is the single-connection driver a host application
// embeds to talk to one naia server (§5, §6): it owns the four-step
// handshake.Client, promotes it to a live connection.Connection once
// Connected, and wires tick.ClientEstimator to the connection's RTT/
// remote-tick feed so the application always has a predicted client
// tick to drive its own simulation step from. Grounded on the
// teacher's pkg/agent/transport/websocket client (one persistent
// connection, a single background read loop, explicit Connect/Close),
// generalized from one blocking request/response call to naia's
// poll-driven send/receive loop.
package client

import (
	"time"

	"github.com/naia-go/naia/authority"
	"github.com/naia-go/naia/channel"
	"github.com/naia-go/naia/connection"
	"github.com/naia-go/naia/entity"
	"github.com/naia-go/naia/handshake"
	"github.com/naia-go/naia/internal/logger"
	"github.com/naia-go/naia/naiaerr"
	"github.com/naia-go/naia/packet"
	"github.com/naia-go/naia/protocol"
	"github.com/naia-go/naia/replication"
	"github.com/naia-go/naia/tick"
	"github.com/naia-go/naia/transport"
)

// Config bundles what the eventual Connection is built with, plus the
// client-side tick prediction parameters (§4.7).
type Config struct {
	Protocol   *protocol.Protocol
	Connection connection.Config
	Auth       handshake.AuthProvider

	TickInterval    time.Duration
	SmoothingFactor float64 // default 0.10, see tick.ClientEstimator
	JitterBuffer    time.Duration

	Now func() time.Time
}

// Client drives one outbound connection attempt through the handshake
// and, once Connected, through the live protocol stack. Not safe for
// concurrent use; callers own their own poll loop.
type Client struct {
	cfg   Config
	trans transport.Client
	now   func() time.Time

	remoteWorld replication.World
	globals     *entity.GlobalEntityMap

	hs   *handshake.Client
	conn *connection.Connection

	estimator     *tick.ClientEstimator
	fedRemoteTick uint16
	haveFedRemote bool

	log logger.Logger
}

// New starts a handshake attempt over trans. remoteWorld/globals wire
// the eventual Connection's replication receive side (see
// connection.New); both may be nil if the client never receives
// replicated entities from this server.
func New(trans transport.Client, cfg Config, remoteWorld replication.World, globals *entity.GlobalEntityMap) *Client {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	smoothing := cfg.SmoothingFactor
	if smoothing == 0 {
		smoothing = 0.1
	}
	log := logger.OrNop(cfg.Connection.Logger)
	cfg.Connection.Logger = log
	return &Client{
		cfg:         cfg,
		trans:       trans,
		now:         now,
		remoteWorld: remoteWorld,
		globals:     globals,
		hs:          handshake.NewClient(now, cfg.Auth, log),
		estimator:   tick.NewClientEstimator(cfg.TickInterval, smoothing),
		log:         log,
	}
}

// State returns the handshake state machine's current state, terminal
// at ClientConnected or ClientRejected.
func (c *Client) State() handshake.ClientState { return c.hs.State() }

// Connected reports whether the live Connection has been promoted.
func (c *Client) Connected() bool { return c.conn != nil }

// Connection returns the live protocol-stack connection, nil until
// the handshake completes.
func (c *Client) Connection() *connection.Connection { return c.conn }

// Authority exposes the connection's authority arbiter, nil until
// Connected.
func (c *Client) Authority() *authority.Manager {
	if c.conn == nil {
		return nil
	}
	return c.conn.Authority()
}

// Enqueue queues payload for send on kind, once Connected. Returns
// false if not yet connected or if kind is not a registered
// non-TickBuffered channel.
func (c *Client) Enqueue(kind channel.Kind, payload []byte) bool {
	if c.conn == nil {
		return false
	}
	return c.conn.Enqueue(kind, payload)
}

// Drain returns every application message received on kind since the
// last call, nil until Connected.
func (c *Client) Drain(kind channel.Kind) [][]byte {
	if c.conn == nil {
		return nil
	}
	return c.conn.Drain(kind)
}

// PredictedTick returns the client's current predicted tick (§4.7):
// the server's last-known tick, projected forward by elapsed time and
// led by half the RTT plus the configured jitter buffer. Returns 0
// before the first Pong has been exchanged.
func (c *Client) PredictedTick(now time.Time) uint16 {
	if c.conn == nil {
		return 0
	}
	return c.estimator.Compute(now, c.conn.RTT(), c.cfg.JitterBuffer)
}

// Poll drains every datagram currently available from trans, feeding
// the handshake layer or the live Connection depending on state.
func (c *Client) Poll() error {
	for {
		payload, ok, err := c.trans.Recv()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := c.dispatch(payload); err != nil {
			return err
		}
	}
}

func (c *Client) dispatch(payload []byte) error {
	header, body, err := packet.ParseDatagram(payload)
	if err != nil {
		return naiaerr.MalformedPacket(err)
	}

	if header.Type.IsHandshake() {
		if err := c.hs.Receive(header.Type, body); err != nil {
			return err
		}
		if c.hs.State() == handshake.ClientConnected && c.conn == nil {
			c.promote()
		}
		return nil
	}

	if c.conn == nil {
		return nil // post-handshake frame arrived before promotion; drop
	}
	if err := c.conn.Receive(payload); err != nil {
		return err
	}
	c.feedEstimator()
	return nil
}

func (c *Client) promote() {
	c.conn = connection.New(c.cfg.Connection, c.remoteWorld, c.globals, nil)
	c.log.Info("connection promoted after handshake")
}

func (c *Client) feedEstimator() {
	remoteTick, at, ok := c.conn.LastRemoteTick()
	if !ok || (c.haveFedRemote && remoteTick == c.fedRemoteTick) {
		return
	}
	c.estimator.OnServerTickReceived(remoteTick, at)
	c.fedRemoteTick = remoteTick
	c.haveFedRemote = true
}

// SendAll ships whatever is due: a handshake retransmit while
// connecting, or the Connection's outgoing datagrams once Connected.
func (c *Client) SendAll(now time.Time) error {
	if c.conn == nil {
		if !c.hs.ShouldSend() {
			return nil
		}
		typ, payload := c.hs.NextOutbound()
		if payload == nil {
			return nil
		}
		b := packet.NewBuilder(packet.Header{Type: typ})
		b.TryAdd(payload)
		out, err := b.Finish()
		if err != nil {
			return err
		}
		return c.trans.Send(out)
	}

	c.conn.AdvanceTick(now)
	for _, dg := range c.conn.SendAll(now) {
		if err := c.trans.Send(dg); err != nil {
			return err
		}
	}
	return nil
}

// Close tears down the underlying transport.
func (c *Client) Close() error { return c.trans.Close() }
