// Package connection assembles one peer's worth of the protocol
// stack into a single per-session object (§5): the Ack Manager, the
// registered channel senders/receivers, the tick/ping machinery, and
// the replication engines driving a World, once a handshake has
// already produced a live transport.Client/Server pair to read and
// write datagrams through.
package connection

import (
	"time"

	"github.com/naia-go/naia/ack"
	"github.com/naia-go/naia/authority"
	"github.com/naia-go/naia/channel"
	"github.com/naia-go/naia/entity"
	"github.com/naia-go/naia/internal/logger"
	"github.com/naia-go/naia/internal/metrics"
	"github.com/naia-go/naia/naiaerr"
	"github.com/naia-go/naia/packet"
	"github.com/naia-go/naia/protocol"
	"github.com/naia-go/naia/replication"
	"github.com/naia-go/naia/tick"
	"github.com/naia-go/naia/wire"
)

// bandwidthWindow is the rolling window BandwidthStats measures over.
const bandwidthWindow = time.Second

// packetTypeLabel renders a packet.Type as a metrics label. Unknown
// values fall back to "other" rather than panicking.
func packetTypeLabel(t packet.Type) string {
	switch t {
	case packet.TypeData:
		return "data"
	case packet.TypeHeartbeat:
		return "heartbeat"
	case packet.TypePing:
		return "ping"
	case packet.TypePong:
		return "pong"
	case packet.TypeDisconnect:
		return "disconnect"
	default:
		return "handshake"
	}
}

// replicationChannelKind is reserved for entity/component replication
// Actions, carried as an ordered-reliable channel the host application
// never registers or sees directly (§4.5: replication actions for one
// entity must arrive totally ordered, which is exactly what
// OrderedReliable already guarantees for any payload).
const replicationChannelKind channel.Kind = 0xFFFF

// DefaultRTTResendFactor scales measured RTT into the reliable resend
// threshold (§4.3: a message not yet acked after rtt_resend_factor *
// rtt is considered due for retransmission).
const DefaultRTTResendFactor = 1.5

// DefaultPingInterval is how often a Ping is sent to refresh the RTT
// sample and cross-check tick alignment (§4.7).
const DefaultPingInterval = time.Second

// Config bundles the pieces a Connection needs at construction, kept
// as a single value so server and client wiring share one constructor.
type Config struct {
	Protocol        *protocol.Protocol
	TickInterval    time.Duration // zero disables the tick header field entirely
	RTTResendFactor float64
	PingInterval    time.Duration
	Now             func() time.Time
	Logger          logger.Logger // nil discards every subsystem log statement
}

// Connection is one peer's live session: it turns inbound datagrams
// into delivered application messages and applied replication state,
// and turns queued outbound messages plus pending replication diffs
// into outgoing datagrams.
type Connection struct {
	proto    *protocol.Protocol
	channels *ChannelSet
	ack      *ack.Manager

	tickMgr *tick.Manager
	ping    *tick.PingManager
	rtt     *tick.RTTTracker

	remote *replication.RemoteEngine
	host   *replication.HostEngine
	auth   *authority.Manager

	resendFactor float64
	pingInterval time.Duration

	now func() time.Time
	log logger.Logger

	fragmenter  *channel.Fragmenter
	reassembler *channel.Reassembler
	fragmented  map[channel.Kind]bool

	inbox map[channel.Kind][][]byte

	pendingControl [][]byte // raw Ping/Pong/Heartbeat datagrams queued by Receive, drained by SendAll

	lastRemoteTick   uint16
	lastRemoteTickAt time.Time
	haveRemoteTick   bool

	bandwidth *metrics.ConnectionBandwidth
}

// New builds a Connection over cfg's protocol, with world replication
// wired to remoteWorld (the peer's view of entities the other side
// replicates to it) and hostPool (NetEntity allocation for entities
// this side replicates out). Either may be nil if this side only
// plays one role (a pure client never hosts entities of its own, for
// instance).
func New(cfg Config, remoteWorld replication.World, globals *entity.GlobalEntityMap, hostPool *entity.Pool) *Connection {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	resendFactor := cfg.RTTResendFactor
	if resendFactor == 0 {
		resendFactor = DefaultRTTResendFactor
	}
	pingInterval := cfg.PingInterval
	if pingInterval == 0 {
		pingInterval = DefaultPingInterval
	}

	channels := NewChannelSet(cfg.Protocol)
	channels.AddReliableOrderedChannel(replicationChannelKind)

	log := logger.OrNop(cfg.Logger)
	c := &Connection{
		proto:        cfg.Protocol,
		channels:     channels,
		ack:          ack.NewManager(),
		resendFactor: resendFactor,
		pingInterval: pingInterval,
		now:          now,
		log:          log,
		fragmenter:   channel.NewFragmenter(),
		reassembler:  channel.NewReassembler(),
		fragmented:   make(map[channel.Kind]bool),
		inbox:        make(map[channel.Kind][][]byte),
		rtt:          tick.NewRTTTracker(100*time.Millisecond, 20*time.Millisecond, 0.1),
		auth:         authority.NewManager(log),
		bandwidth:    metrics.NewConnectionBandwidth(bandwidthWindow),
	}
	c.ping = tick.NewPingManager(pingInterval, c.rtt)
	if cfg.TickInterval > 0 {
		c.tickMgr = tick.NewManager(cfg.TickInterval)
	}
	if remoteWorld != nil && globals != nil {
		c.remote = replication.NewRemoteEngine(remoteWorld, globals, log)
	}
	if hostPool != nil {
		c.host = replication.NewHostEngine(hostPool, log)
	}
	return c
}

// Authority exposes this connection's own authority.Manager, the
// per-connection view a client uses. server.Server does not arbitrate
// through it; it keeps one shared Manager for all connections.
func (c *Connection) Authority() *authority.Manager { return c.auth }

// HostEngine exposes the host-side replication bookkeeping, nil if
// this Connection was built without a hostPool.
func (c *Connection) HostEngine() *replication.HostEngine { return c.host }

// RemoteEngine exposes the remote-side replication bookkeeping, nil if
// this Connection was built without a remoteWorld.
func (c *Connection) RemoteEngine() *replication.RemoteEngine { return c.remote }

// Tick returns the local tick manager, nil if this Connection was
// built with no TickInterval (a pure unordered-message client with no
// tick-buffered channels has no use for one).
func (c *Connection) Tick() *tick.Manager { return c.tickMgr }

// RTT returns the smoothed round-trip-time estimate fed by the
// ping/pong exchange (§4.7).
func (c *Connection) RTT() time.Duration { return c.rtt.RTT() }

// Jitter returns the smoothed jitter estimate fed by the ping/pong
// exchange (§4.7).
func (c *Connection) Jitter() time.Duration { return c.rtt.Jitter() }

// LastRemoteTick returns the most recent tick the peer reported in a
// Pong, and the local time it was received at — the basis for
// tick.ClientEstimator.OnServerTickReceived. ok is false until the
// first Pong arrives.
func (c *Connection) LastRemoteTick() (t uint16, at time.Time, ok bool) {
	return c.lastRemoteTick, c.lastRemoteTickAt, c.haveRemoteTick
}

// Enqueue queues payload for delivery on kind using whatever mode kind
// was registered with.
func (c *Connection) Enqueue(kind channel.Kind, payload []byte) bool {
	return c.channels.Enqueue(kind, payload)
}

// EnqueueTick queues payload on a TickBuffered channel for the given
// target tick (§4.3, §4.7: client input is tagged with the predicted
// tick it's meant to apply on).
func (c *Connection) EnqueueTick(kind channel.Kind, targetTick uint16, payload []byte) bool {
	return c.channels.EnqueueTick(kind, targetTick, payload)
}

// EnqueueDual queues payload on tickKind (a TickBuffered channel) and
// mirrors it onto fastKind (an UnorderedUnreliable channel) via
// channel.DualSender, so a latency-sensitive input gets both its
// tick-ordered delivery and a chance at arriving sooner, unreliably,
// alongside it. Neither copy is resent. Returns false if either kind isn't
// registered with the matching mode.
func (c *Connection) EnqueueDual(tickKind, fastKind channel.Kind, tick uint16, payload []byte) bool {
	ds, ok := c.channels.DualSender(tickKind, fastKind)
	if !ok {
		return false
	}
	ds.Enqueue(tick, payload)
	return true
}

// EnqueueLarge splits an oversized message into fragments and queues
// each one on kind, which must be an OrderedReliable channel so
// fragments of one message arrive in order relative to each other
// (§4.4). The receiving side must also call MarkFragmented(kind), or
// every fragment payload will be delivered to Drain whole instead of
// being reassembled.
func (c *Connection) EnqueueLarge(kind channel.Kind, payload []byte, maxFragmentPayload int) {
	for _, f := range c.fragmenter.Split(payload, maxFragmentPayload) {
		w := wire.NewWriter()
		f.Encode(w)
		c.channels.Enqueue(kind, w.Bytes())
	}
}

// MarkFragmented declares kind as carrying Fragment-encoded payloads
// (produced by the peer's EnqueueLarge) rather than whole messages, so
// Receive reassembles them before they reach Drain.
func (c *Connection) MarkFragmented(kind channel.Kind) {
	c.fragmented[kind] = true
}

// Drain returns and clears every application message that has arrived
// on kind since the last call.
func (c *Connection) Drain(kind channel.Kind) [][]byte {
	msgs := c.inbox[kind]
	delete(c.inbox, kind)
	return msgs
}

// DrainTick returns every TickBuffered message on kind whose target
// tick is now due, given the connection's current tick.
func (c *Connection) DrainTick(kind channel.Kind) [][]byte {
	if c.tickMgr == nil {
		return nil
	}
	return c.channels.DrainTick(kind, c.tickMgr.Current())
}

// AdvanceTick should be called once per SendAll cycle (or more often)
// to progress the local tick accumulator; it returns how many whole
// ticks fired, mirroring tick.Manager.Advance.
func (c *Connection) AdvanceTick(now time.Time) int {
	if c.tickMgr == nil {
		return 0
	}
	n := c.tickMgr.Advance(now)
	if n > 0 {
		metrics.TicksAdvanced.Add(float64(n))
	}
	return n
}

// BandwidthStats reports this connection's rolling-window outgoing
// and incoming byte rates (SPEC_FULL §C.1).
func (c *Connection) BandwidthStats() *metrics.ConnectionBandwidth { return c.bandwidth }

// Receive decodes one inbound datagram, updating ack/channel/
// replication state and buffering application messages for Drain.
// Handshake and Disconnect datagrams are the caller's responsibility
// (a Connection only exists once the handshake layer reports Connected).
func (c *Connection) Receive(datagram []byte) error {
	header, body, err := packet.ParseDatagram(datagram)
	if err != nil {
		c.log.Warn("dropping malformed datagram", logger.Error(err))
		return naiaerr.MalformedPacket(err)
	}
	c.bandwidth.Incoming.RecordPacket(len(datagram))
	metrics.PacketsReceived.WithLabelValues(packetTypeLabel(header.Type)).Inc()
	if header.Type.IsHandshake() || header.Type == packet.TypeDisconnect {
		return nil
	}

	c.ack.OnReceive(header.SenderPacketIndex)
	delivered, dropped := c.ack.DeliveredAndDropped(header.SenderLastAck, header.SenderAckBitfield)
	c.channels.OnDelivered(delivered)
	c.channels.OnDropped(dropped)

	switch header.Type {
	case packet.TypePing:
		r := wire.NewReader(body)
		ping, err := tick.DecodePing(r)
		if err != nil {
			return naiaerr.MalformedPacket(err)
		}
		var localTick uint16
		if c.tickMgr != nil {
			localTick = c.tickMgr.Current()
		}
		pong := tick.HandlePing(ping, localTick)
		w := wire.NewWriter()
		pong.Encode(w)
		c.pendingControl = append(c.pendingControl, c.buildControlDatagram(packet.TypePong, w.Bytes()))
		return nil
	case packet.TypePong:
		r := wire.NewReader(body)
		pong, err := tick.DecodePong(r)
		if err != nil {
			return naiaerr.MalformedPacket(err)
		}
		c.ping.HandlePong(c.now(), pong)
		c.lastRemoteTick = pong.Tick
		c.lastRemoteTickAt = c.now()
		c.haveRemoteTick = true
		return nil
	case packet.TypeHeartbeat:
		return nil
	case packet.TypeData:
		return c.receiveDataBody(body)
	default:
		return naiaerr.MalformedPacket(nil)
	}
}

func (c *Connection) receiveDataBody(body []byte) error {
	r := wire.NewReader(body)
	for {
		// Each block was encoded by its own writer and zero-padded to a
		// whole byte; skip that padding before reading the next block.
		if pad := r.BitsRemaining() % 8; pad != 0 {
			if _, err := r.ReadBits(pad); err != nil {
				return naiaerr.MalformedPacket(err)
			}
		}
		if !r.Remaining() {
			break
		}
		kindRaw, err := r.PeekU16()
		if err != nil {
			return naiaerr.MalformedPacket(err)
		}
		kind := channel.Kind(kindRaw)

		if c.channels.IsTickBuffered(kind) {
			k, msgs, err := channel.DecodeTickBufferedBlock(r)
			if err != nil {
				return naiaerr.MalformedPacket(err)
			}
			c.channels.ReceiveTickBlock(k, msgs)
			continue
		}

		k, msgs, err := channel.DecodeIndexedBlock(r)
		if err != nil {
			return naiaerr.MalformedPacket(err)
		}
		payloads := c.channels.ReceiveIndexedBlock(k, msgs)
		if k == replicationChannelKind {
			if err := c.applyReplicationPayloads(payloads); err != nil {
				return err
			}
			continue
		}
		if c.fragmented[k] {
			for _, p := range payloads {
				frag, err := channel.DecodeFragment(wire.NewReader(p))
				if err != nil {
					return naiaerr.MalformedPacket(err)
				}
				if whole, done, err := c.reassembler.Add(frag); err != nil {
					return naiaerr.MalformedPacket(err)
				} else if done {
					c.inbox[k] = append(c.inbox[k], whole)
				}
			}
			continue
		}
		if len(payloads) > 0 {
			c.inbox[k] = append(c.inbox[k], payloads...)
		}
	}
	return nil
}

// actionKindLabel renders a replication.ActionKind as a metrics label.
func actionKindLabel(k replication.ActionKind) string {
	switch k {
	case replication.ActionSpawnEntity:
		return "spawn"
	case replication.ActionInsertComponent:
		return "insert"
	case replication.ActionUpdateComponent:
		return "update"
	case replication.ActionRemoveComponent:
		return "remove"
	case replication.ActionDespawnEntity:
		return "despawn"
	default:
		return "other"
	}
}

func (c *Connection) applyReplicationPayloads(payloads [][]byte) error {
	if c.remote == nil {
		return nil
	}
	for _, p := range payloads {
		action, err := replication.DecodeAction(wire.NewReader(p))
		if err != nil {
			return naiaerr.MalformedPacket(err)
		}
		metrics.ReplicationActions.WithLabelValues(actionKindLabel(action.Kind), "applied").Inc()
		if err := c.remote.Apply(c.proto, action); err != nil {
			if ne, ok := err.(*naiaerr.Error); ok && ne.Recoverable() {
				continue
			}
			return err
		}
	}
	return nil
}

// QueueReplicationActions encodes and enqueues host-produced actions
// (from HostEngine.Produce) onto the reserved replication channel.
func (c *Connection) QueueReplicationActions(actions []replication.Action) {
	for _, a := range actions {
		metrics.ReplicationActions.WithLabelValues(actionKindLabel(a.Kind), "produced").Inc()
		w := wire.NewWriter()
		a.Encode(w)
		c.channels.Enqueue(replicationChannelKind, w.Bytes())
	}
}

func (c *Connection) buildControlDatagram(typ packet.Type, payload []byte) []byte {
	lastAck, bitfield := c.ack.AckHeaderFields()
	b := packet.NewBuilder(packet.Header{Type: typ, SenderLastAck: lastAck, SenderAckBitfield: bitfield})
	b.TryAdd(payload)
	b.SetPacketIndex(c.ack.NextOutgoingIndex(nil))
	out, _ := b.Finish()
	return out
}

// maxPacketsPerSendAll bounds how many datagrams one SendAll call will
// assemble, so a connection with an unbounded backlog of unreliable
// enqueues can't stall the caller's send loop indefinitely.
const maxPacketsPerSendAll = 16

// SendAll assembles every datagram this connection is ready to send:
// any queued Ping/Pong control replies from Receive, followed by as
// many TypeData packets as there are due messages across every
// channel (bounded by maxPacketsPerSendAll).
func (c *Connection) SendAll(now time.Time) [][]byte {
	out := c.pendingControl
	c.pendingControl = nil

	if ping, ok := c.ping.ShouldSendPing(now, c.currentTick()); ok {
		w := wire.NewWriter()
		ping.Encode(w)
		out = append(out, c.buildControlDatagram(packet.TypePing, w.Bytes()))
	}

	for i := 0; i < maxPacketsPerSendAll; i++ {
		hasTick := c.tickMgr != nil
		header := packet.Header{Type: packet.TypeData, HasTick: hasTick}
		if hasTick {
			header.Tick = c.tickMgr.Current()
		}
		header.SenderLastAck, header.SenderAckBitfield = c.ack.AckHeaderFields()

		b := packet.NewBuilder(header)
		notes := c.channels.Collect(b, now, c.rtt.RTT(), c.resendFactor)
		if b.Empty() {
			break
		}
		b.SetPacketIndex(c.ack.NextOutgoingIndex(notes))
		datagram, err := b.Finish()
		if err != nil {
			break
		}
		out = append(out, datagram)
	}
	c.recordOutgoing(out)
	return out
}

// recordOutgoing feeds every assembled datagram's size and type into
// the bandwidth monitor and packet counters (SPEC_FULL §B, §C.1).
func (c *Connection) recordOutgoing(datagrams [][]byte) {
	for _, dg := range datagrams {
		c.bandwidth.Outgoing.RecordPacket(len(dg))
		typ := packet.TypeData
		if header, _, err := packet.ParseDatagram(dg); err == nil {
			typ = header.Type
		}
		metrics.PacketsSent.WithLabelValues(packetTypeLabel(typ)).Inc()
	}
}

func (c *Connection) currentTick() uint16 {
	if c.tickMgr == nil {
		return 0
	}
	return c.tickMgr.Current()
}
