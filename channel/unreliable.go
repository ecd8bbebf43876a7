package channel

import (
	"github.com/naia-go/naia/packet"
	"github.com/naia-go/naia/seq16"
)

// UnorderedUnreliableSender sends FIFO, once, with no resend and no
// delivery tracking: a dropped packet simply loses the message.
type UnorderedUnreliableSender struct {
	kind    Kind
	pending []Indexed
	next    uint16
}

func NewUnorderedUnreliableSender(kind Kind) *UnorderedUnreliableSender {
	return &UnorderedUnreliableSender{kind: kind}
}

// Enqueue queues payload for the next outgoing packet.
func (s *UnorderedUnreliableSender) Enqueue(payload []byte) uint16 {
	idx := s.next
	s.next++
	s.pending = append(s.pending, Indexed{Index: idx, Payload: payload})
	return idx
}

// Collect drains as many pending messages as fit into b, in FIFO
// order. The first message that doesn't fit, and everything after it,
// stays queued for the next packet; a collected message is never resent.
func (s *UnorderedUnreliableSender) Collect(b *packet.Builder) {
	if len(s.pending) == 0 {
		return
	}
	var sent []Indexed
	var rest []Indexed
	for i, m := range s.pending {
		candidate := append(sent, m)
		block := EncodeIndexedBlock(s.kind, candidate)
		if len(block) <= b.Remaining() {
			sent = candidate
		} else {
			rest = s.pending[i:]
			break
		}
	}
	if len(sent) > 0 {
		b.TryAdd(EncodeIndexedBlock(s.kind, sent))
	}
	s.pending = rest
}

// UnorderedUnreliableReceiver surfaces messages in arrival order with
// no deduplication.
type UnorderedUnreliableReceiver struct {
	ready [][]byte
}

func NewUnorderedUnreliableReceiver() *UnorderedUnreliableReceiver {
	return &UnorderedUnreliableReceiver{}
}

func (r *UnorderedUnreliableReceiver) Receive(msgs []Indexed) {
	for _, m := range msgs {
		r.ready = append(r.ready, m.Payload)
	}
}

// Drain returns and clears all messages ready for the application.
func (r *UnorderedUnreliableReceiver) Drain() [][]byte {
	out := r.ready
	r.ready = nil
	return out
}

// SequencedUnreliableSender sends FIFO tagged with a monotonic
// message_index; no resend.
type SequencedUnreliableSender struct {
	kind    Kind
	pending []Indexed
	next    uint16
}

func NewSequencedUnreliableSender(kind Kind) *SequencedUnreliableSender {
	return &SequencedUnreliableSender{kind: kind}
}

func (s *SequencedUnreliableSender) Enqueue(payload []byte) uint16 {
	idx := s.next
	s.next++
	s.pending = append(s.pending, Indexed{Index: idx, Payload: payload})
	return idx
}

func (s *SequencedUnreliableSender) Collect(b *packet.Builder) {
	if len(s.pending) == 0 {
		return
	}
	var sent []Indexed
	var rest []Indexed
	for i, m := range s.pending {
		candidate := append(sent, m)
		block := EncodeIndexedBlock(s.kind, candidate)
		if len(block) <= b.Remaining() {
			sent = candidate
		} else {
			rest = s.pending[i:]
			break
		}
	}
	if len(sent) > 0 {
		b.TryAdd(EncodeIndexedBlock(s.kind, sent))
	}
	s.pending = rest
}

// SequencedUnreliableReceiver drops any message whose index is not
// strictly after the highest index already observed (§8 property 4).
type SequencedUnreliableReceiver struct {
	haveAny bool
	highest uint16
}

func NewSequencedUnreliableReceiver() *SequencedUnreliableReceiver {
	return &SequencedUnreliableReceiver{}
}

// Receive filters msgs down to those newer than anything seen before,
// in the order given, and advances the high-water mark.
func (r *SequencedUnreliableReceiver) Receive(msgs []Indexed) [][]byte {
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
