package channel

import (
	"time"

	"github.com/naia-go/naia/ack"
	"github.com/naia-go/naia/packet"
	"github.com/naia-go/naia/seq16"
)

// DefaultMaxRetries bounds reliable resends (§5: "bounded retry").
const DefaultMaxRetries = 15

// outbox is the shared retransmission bookkeeping for all three
// reliable senders (Unordered/Sequenced/Ordered differ only in how
// their receivers interpret delivery, not in how the sender resends).
type outbox struct {
	kind       Kind
	next       uint16
	order      []uint16 // insertion order of still-pending indices
	payloads   map[uint16][]byte
	lastSent   map[uint16]time.Time
	retries    map[uint16]int
	maxRetries int
}

func newOutbox(kind Kind) *outbox {
	return &outbox{
		kind:       kind,
		payloads:   make(map[uint16][]byte),
		lastSent:   make(map[uint16]time.Time),
		retries:    make(map[uint16]int),
		maxRetries: DefaultMaxRetries,
	}
}

func (o *outbox) enqueue(payload []byte) uint16 {
	idx := o.next
	o.next++
	o.order = append(o.order, idx)
	o.payloads[idx] = payload
	return idx
}

// collect appends due messages (never sent, or last sent more than
// resendFactor*rtt ago) to b, returning ack.Notifications for the
// ones actually added.
func (o *outbox) collect(b *packet.Builder, now time.Time, rtt time.Duration, resendFactor float64) []ack.Notification {
	if len(o.order) == 0 {
		return nil
	}
	due := func(idx uint16) bool {
		last, sent := o.lastSent[idx]
		if !sent {
			return true
		}
		threshold := time.Duration(resendFactor * float64(rtt))
		if threshold <= 0 {
			threshold = time.Millisecond
		}
		return now.Sub(last) >= threshold
	}

	var toSend []Indexed
	for _, idx := range o.order {
		if !due(idx) {
			continue
		}
		candidate := append(append([]Indexed{}, toSend...), Indexed{Index: idx, Payload: o.payloads[idx]})
		if len(EncodeIndexedBlock(o.kind, candidate)) > b.Remaining() {
			break
		}
		toSend = candidate
	}
	if len(toSend) == 0 {
		return nil
	}
	b.TryAdd(EncodeIndexedBlock(o.kind, toSend))

	notifications := make([]ack.Notification, 0, len(toSend))
	for _, m := range toSend {
		o.lastSent[m.Index] = now
		o.retries[m.Index]++
		notifications = append(notifications, ack.Notification{ChannelKind: uint16(o.kind), MessageIndex: m.Index})
		if o.retries[m.Index] > o.maxRetries {
			o.retire(m.Index)
		}
	}
	return notifications
}

func (o *outbox) retire(idx uint16) {
	delete(o.payloads, idx)
	delete(o.lastSent, idx)
	delete(o.retries, idx)
	for i, v := range o.order {
		if v == idx {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
}

func (o *outbox) onDelivered(notifications []ack.Notification) {
	for _, n := range notifications {
		if n.ChannelKind == uint16(o.kind) {
			o.retire(n.MessageIndex)
		}
	}
}

// onDropped forces an immediate resend attempt rather than waiting out
// the rtt_resend_factor timer, so loss is recovered as fast as the
// connection can detect it.
func (o *outbox) onDropped(notifications []ack.Notification) {
	for _, n := range notifications {
		if n.ChannelKind == uint16(o.kind) {
			delete(o.lastSent, n.MessageIndex)
		}
	}
}

func (o *outbox) pendingCount() int { return len(o.order) }

// --- Unordered reliable ---------------------------------------------------

// UnorderedReliableSender retransmits until acked; no order guarantee.
type UnorderedReliableSender struct{ *outbox }

func NewUnorderedReliableSender(kind Kind) *UnorderedReliableSender {
	return &UnorderedReliableSender{outbox: newOutbox(kind)}
}

func (s *UnorderedReliableSender) Enqueue(payload []byte) uint16 { return s.enqueue(payload) }
func (s *UnorderedReliableSender) Collect(b *packet.Builder, now time.Time, rtt time.Duration, resendFactor float64) []ack.Notification {
	return s.collect(b, now, rtt, resendFactor)
}
func (s *UnorderedReliableSender) OnDelivered(n []ack.Notification) { s.onDelivered(n) }
func (s *UnorderedReliableSender) OnDropped(n []ack.Notification)   { s.onDropped(n) }

// UnorderedReliableReceiver delivers in arrival order, deduplicated by
// message_index.
type UnorderedReliableReceiver struct {
	seen map[uint16]bool
}

func NewUnorderedReliableReceiver() *UnorderedReliableReceiver {
	return &UnorderedReliableReceiver{seen: make(map[uint16]bool)}
}

func (r *UnorderedReliableReceiver) Receive(msgs []Indexed) [][]byte {
	var out [][]byte
	for _, m := range msgs {
		if r.seen[m.Index] {
			continue
		}
		r.seen[m.Index] = true
		out = append(out, m.Payload)
	}
	return out
}

// --- Sequenced reliable ----------------------------------------------------

// SequencedReliableSender retransmits until acked.
type SequencedReliableSender struct{ *outbox }

func NewSequencedReliableSender(kind Kind) *SequencedReliableSender {
	return &SequencedReliableSender{outbox: newOutbox(kind)}
}

func (s *SequencedReliableSender) Enqueue(payload []byte) uint16 { return s.enqueue(payload) }
func (s *SequencedReliableSender) Collect(b *packet.Builder, now time.Time, rtt time.Duration, resendFactor float64) []ack.Notification {
	return s.collect(b, now, rtt, resendFactor)
}
func (s *SequencedReliableSender) OnDelivered(n []ack.Notification) { s.onDelivered(n) }
func (s *SequencedReliableSender) OnDropped(n []ack.Notification)   { s.onDropped(n) }

// SequencedReliableReceiver drops any message not strictly after the
// highest index already delivered, deduplicated.
type SequencedReliableReceiver struct {
	haveAny bool
	highest uint16
}

func NewSequencedReliableReceiver() *SequencedReliableReceiver {
	return &SequencedReliableReceiver{}
}

func (r *SequencedReliableReceiver) Receive(msgs []Indexed) [][]byte {
	var out [][]byte
	for _, m := range msgs {
		if r.haveAny && !seq16.After(m.Index, r.highest) {
			continue
		}
		r.highest = m.Index
		r.haveAny = true
		out = append(out, m.Payload)
	}
	return out
}

// --- Ordered reliable -------------------------------------------------------

// OrderedReliableSender retransmits until acked.
type OrderedReliableSender struct{ *outbox }

func NewOrderedReliableSender(kind Kind) *OrderedReliableSender {
	return &OrderedReliableSender{outbox: newOutbox(kind)}
}

func (s *OrderedReliableSender) Enqueue(payload []byte) uint16 { return s.enqueue(payload) }
func (s *OrderedReliableSender) Collect(b *packet.Builder, now time.Time, rtt time.Duration, resendFactor float64) []ack.Notification {
	return s.collect(b, now, rtt, resendFactor)
}
func (s *OrderedReliableSender) OnDelivered(n []ack.Notification) { s.onDelivered(n) }
func (s *OrderedReliableSender) OnDropped(n []ack.Notification)   { s.onDropped(n) }

// OrderedReliableReceiver buffers out-of-order messages (up to
// MessageHistorySize) and releases them contiguously once the gap is
// filled (§4.3, §8 property 3).
type OrderedReliableReceiver struct {
	nextExpected uint16
	started      bool
	buffered     map[uint16][]byte
}

func NewOrderedReliableReceiver() *OrderedReliableReceiver {
	return &OrderedReliableReceiver{buffered: make(map[uint16][]byte)}
}

// Receive admits msgs into the reorder buffer and returns whichever
// prefix is now contiguous from nextExpected, in index order.
func (r *OrderedReliableReceiver) Receive(msgs []Indexed) [][]byte {
	for _, m := range msgs {
		if !r.started {
			r.nextExpected = m.Index
			r.started = true
		}
		if seq16.Before(m.Index, r.nextExpected) {
			continue // already delivered
		}
		if _, dup := r.buffered[m.Index]; dup {
			continue
		}
		if len(r.buffered) >= MessageHistorySize {
			continue // bounded buffer; drop rather than grow unbounded
		}
		r.buffered[m.Index] = m.Payload
	}

	var out [][]byte
	for {
		payload, ok := r.buffered[r.nextExpected]
		if !ok {
			break
		}
		out = append(out, payload)
		delete(r.buffered, r.nextExpected)
		r.nextExpected++
	}
	return out
}
