package packet

import (
	"fmt"

	"github.com/naia-go/naia/wire"
)

// Builder accumulates channel-tagged payload blocks for one outgoing
// datagram, enforcing the MTU budget. Channel senders call TryAdd in
// priority order; a block that would overflow the budget is left
// un-added (and deferred by the caller to the next packet) rather than
// truncated.
type Builder struct {
	header    Header
	blocks    [][]byte
	usedBytes int
}

// NewBuilder starts a datagram for the given header.
func NewBuilder(h Header) *Builder {
	return &Builder{
		header:    h,
		usedBytes: HeaderSize(h.HasTick),
	}
}

// SetPacketIndex overwrites the header's SenderPacketIndex after the
// fact. Assigning an outgoing packet index requires first knowing the
// full notification list a collected packet carries (the Ack Manager
// hands out the index), which is only known once every channel has
// had a chance to add its due messages to this Builder — by which
// point the header was already built with a placeholder index.
func (b *Builder) SetPacketIndex(idx uint16) {
	b.header.SenderPacketIndex = idx
}

// Remaining returns how many more bytes can be added before hitting MTUBudget.
func (b *Builder) Remaining() int {
	r := MTUBudget - b.usedBytes
	if r < 0 {
		return 0
	}
	return r
}

// TryAdd appends block if it fits in the remaining budget. Returns
// false (without modifying the builder) if it would overflow.
func (b *Builder) TryAdd(block []byte) bool {
	if len(block) > b.Remaining() {
		return false
	}
	b.blocks = append(b.blocks, block)
	b.usedBytes += len(block)
	return true
}

// Empty reports whether no payload blocks have been added (only a
// header would be sent — callers typically skip sending such datagrams
// except for heartbeats).
func (b *Builder) Empty() bool {
	return len(b.blocks) == 0
}

// Finish serializes the header followed by all added blocks.
func (b *Builder) Finish() ([]byte, error) {
	w := wire.NewWriterCap(b.usedBytes)
	b.header.Encode(w)
	for _, blk := range b.blocks {
		w.WriteBytes(blk)
	}
	out := w.Bytes()
	if len(out) > MTUBudget {
		return nil, fmt.Errorf("packet: assembled datagram %d bytes exceeds MTU budget %d", len(out), MTUBudget)
	}
	return out, nil
}

// ParseDatagram splits a received datagram into its header and the
// remaining raw payload bytes (channel blocks), for the connection's
// channel-block decoder to walk.
func ParseDatagram(datagram []byte) (Header, []byte, error) {
	r := wire.NewReader(datagram)
	h, err := DecodeHeader(r)
	if err != nil {
		return Header{}, nil, fmt.Errorf("packet: decode header: %w", err)
	}
	consumed := HeaderSize(h.HasTick)
	if consumed > len(datagram) {
		return Header{}, nil, fmt.Errorf("packet: truncated header")
	}
	return h, datagram[consumed:], nil
}
