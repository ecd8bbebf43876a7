package connection

import (
	"time"

	"github.com/naia-go/naia/ack"
	"github.com/naia-go/naia/channel"
	"github.com/naia-go/naia/packet"
	"github.com/naia-go/naia/protocol"
)

// outboundSender is the shape every §4.3 sender is driven through once
// a packet is being assembled, regardless of delivery mode: reliable
// senders satisfy it directly (their Collect/OnDelivered/OnDropped
// signatures already match), fire-and-forget modes go through
// fireAndForgetSender below.
type outboundSender interface {
	Collect(b *packet.Builder, now time.Time, rtt time.Duration, resendFactor float64) []ack.Notification
	OnDelivered(n []ack.Notification)
	OnDropped(n []ack.Notification)
}

// fireAndForgetSender adapts the unreliable and tick-buffered senders
// (whose Collect takes only a Builder, and which never need
// delivered/dropped callbacks) to outboundSender.
type fireAndForgetSender struct {
	inner interface{ Collect(b *packet.Builder) }
}

func (f fireAndForgetSender) Collect(b *packet.Builder, _ time.Time, _ time.Duration, _ float64) []ack.Notification {
	f.inner.Collect(b)
	return nil
}
func (f fireAndForgetSender) OnDelivered(_ []ack.Notification) {}
func (f fireAndForgetSender) OnDropped(_ []ack.Notification)   {}

// inboundReceiver is the shape every indexed-block receiver is driven
// through on arrival. UnorderedUnreliableReceiver needs an adapter
// since its Receive has no return value of its own (messages are
// pulled separately via Drain).
type inboundReceiver interface {
	Receive(msgs []channel.Indexed) [][]byte
}

type unorderedUnreliableAdapter struct {
	inner *channel.UnorderedUnreliableReceiver
}

func (a unorderedUnreliableAdapter) Receive(msgs []channel.Indexed) [][]byte {
	a.inner.Receive(msgs)
	return a.inner.Drain()
}

// ChannelSet instantiates one live sender/receiver pair per channel a
// Protocol registered, keyed by Kind, plus the TickBuffered channels'
// own pair kept separately since they're framed and drained
// differently from every other mode (§4.3).
type ChannelSet struct {
	senders    map[channel.Kind]outboundSender
	rawSenders map[channel.Kind]any
	receivers  map[channel.Kind]inboundReceiver

	tickSenders   map[channel.Kind]*channel.TickBufferedSender
	tickReceivers map[channel.Kind]*channel.TickBufferedReceiver

	order []channel.Kind // registration order, senders collected in this order
}

// NewChannelSet builds one sender/receiver pair per channel proto has
// registered.
func NewChannelSet(proto *protocol.Protocol) *ChannelSet {
	cs := &ChannelSet{
		senders:       make(map[channel.Kind]outboundSender),
		rawSenders:    make(map[channel.Kind]any),
		receivers:     make(map[channel.Kind]inboundReceiver),
		tickSenders:   make(map[channel.Kind]*channel.TickBufferedSender),
		tickReceivers: make(map[channel.Kind]*channel.TickBufferedReceiver),
	}
	for _, reg := range proto.Channels() {
		kind := reg.Config.Kind
		cs.order = append(cs.order, kind)
		switch reg.Config.Mode {
		case channel.ModeUnorderedUnreliable:
			s := channel.NewUnorderedUnreliableSender(kind)
			r := channel.NewUnorderedUnreliableReceiver()
			cs.rawSenders[kind] = s
			cs.senders[kind] = fireAndForgetSender{s}
			cs.receivers[kind] = unorderedUnreliableAdapter{r}
		case channel.ModeSequencedUnreliable:
			s := channel.NewSequencedUnreliableSender(kind)
			r := channel.NewSequencedUnreliableReceiver()
			cs.rawSenders[kind] = s
			cs.senders[kind] = fireAndForgetSender{s}
			cs.receivers[kind] = r
		case channel.ModeUnorderedReliable:
			s := channel.NewUnorderedReliableSender(kind)
			r := channel.NewUnorderedReliableReceiver()
			cs.rawSenders[kind] = s
			cs.senders[kind] = s
			cs.receivers[kind] = r
		case channel.ModeSequencedReliable:
			s := channel.NewSequencedReliableSender(kind)
			r := channel.NewSequencedReliableReceiver()
			cs.rawSenders[kind] = s
			cs.senders[kind] = s
			cs.receivers[kind] = r
		case channel.ModeOrderedReliable:
			s := channel.NewOrderedReliableSender(kind)
			r := channel.NewOrderedReliableReceiver()
			cs.rawSenders[kind] = s
			cs.senders[kind] = s
			cs.receivers[kind] = r
		case channel.ModeTickBuffered:
			cs.tickSenders[kind] = channel.NewTickBufferedSender(kind)
			cs.tickReceivers[kind] = channel.NewTickBufferedReceiver()
		}
	}
	return cs
}

// AddReliableOrderedChannel registers an extra channel outside the
// application's Protocol, used internally to carry replication
// Actions (see replicationChannelKind in connection.go) on a dedicated ordered-reliable
// Kind the host application never sees.
func (cs *ChannelSet) AddReliableOrderedChannel(kind channel.Kind) {
	s := channel.NewOrderedReliableSender(kind)
	r := channel.NewOrderedReliableReceiver()
	cs.rawSenders[kind] = s
	cs.senders[kind] = s
	cs.receivers[kind] = r
	cs.order = append(cs.order, kind)
}

// Enqueue queues payload on an Unordered/Sequenced/OrderedReliable or
// Unordered/SequencedUnreliable channel for the next outgoing packet.
func (cs *ChannelSet) Enqueue(kind channel.Kind, payload []byte) bool {
	raw, ok := cs.rawSenders[kind]
	if !ok {
		return false
	}
	type enqueuer interface{ Enqueue([]byte) uint16 }
	e, ok := raw.(enqueuer)
	if !ok {
		return false
	}
	e.Enqueue(payload)
	return true
}

// EnqueueTick queues payload on a TickBuffered channel targeting tick.
func (cs *ChannelSet) EnqueueTick(kind channel.Kind, tick uint16, payload []byte) bool {
	s, ok := cs.tickSenders[kind]
	if !ok {
		return false
	}
	s.Enqueue(tick, payload)
	return true
}

// DualSender builds a channel.DualSender mirroring tickKind (a
// TickBuffered channel) onto fastKind (an UnorderedUnreliable
// channel), for callers that want a best-effort low-latency copy
// alongside the tick-buffered one (which is itself sent once, not
// resent). Returns false if either Kind wasn't
// registered with the matching mode.
func (cs *ChannelSet) DualSender(tickKind, fastKind channel.Kind) (*channel.DualSender, bool) {
	ts, ok := cs.tickSenders[tickKind]
	if !ok {
		return nil, false
	}
	raw, ok := cs.rawSenders[fastKind]
	if !ok {
		return nil, false
	}
	us, ok := raw.(*channel.UnorderedUnreliableSender)
	if !ok {
		return nil, false
	}
	return channel.NewDualSender(ts, us), true
}

// Collect asks every non-TickBuffered sender, in registration order,
// to add its due messages to b, then every TickBuffered sender in map
// iteration order, returning the combined notification list to
// register with the Ack Manager for this outgoing packet (TickBuffered
// senders add no notifications).
func (cs *ChannelSet) Collect(b *packet.Builder, now time.Time, rtt time.Duration, resendFactor float64) []ack.Notification {
	var notes []ack.Notification
	for _, kind := range cs.order {
		if s, ok := cs.senders[kind]; ok {
			notes = append(notes, s.Collect(b, now, rtt, resendFactor)...)
		}
	}
	for _, s := range cs.tickSenders {
		s.Collect(b)
	}
	return notes
}

// OnDelivered/OnDropped fan the Ack Manager's resolution for one
// incoming ack header out to whichever channel sender owns each
// notification.
func (cs *ChannelSet) OnDelivered(notes []ack.Notification) {
	for _, kind := range cs.order {
		if s, ok := cs.senders[kind]; ok {
			s.OnDelivered(notes)
		}
	}
}

func (cs *ChannelSet) OnDropped(notes []ack.Notification) {
	for _, kind := range cs.order {
		if s, ok := cs.senders[kind]; ok {
			s.OnDropped(notes)
		}
	}
}

// ReceiveIndexedBlock dispatches a decoded Indexed block to its
// channel's receiver, returning the payloads now ready for the
// application (or for the replication engine, for the reserved
// Action channel).
func (cs *ChannelSet) ReceiveIndexedBlock(kind channel.Kind, msgs []channel.Indexed) [][]byte {
	r, ok := cs.receivers[kind]
	if !ok {
		return nil
	}
	return r.Receive(msgs)
}

func (cs *ChannelSet) ReceiveTickBlock(kind channel.Kind, msgs []channel.Ticked) {
	if r, ok := cs.tickReceivers[kind]; ok {
		r.Receive(msgs)
	}
}

// DrainTick returns the messages on the TickBuffered channel kind that
// TickBufferedReceiver.DrainUpTo releases for currentTick.
func (cs *ChannelSet) DrainTick(kind channel.Kind, currentTick uint16) [][]byte {
	if r, ok := cs.tickReceivers[kind]; ok {
		return r.DrainUpTo(currentTick)
	}
	return nil
}

// IsTickBuffered reports whether kind was registered with
// ModeTickBuffered (the receive loop needs this to pick which block
// decoder a given channel's bytes were framed with).
func (cs *ChannelSet) IsTickBuffered(kind channel.Kind) bool {
	_, ok := cs.tickReceivers[kind]
	return ok
}
