// Package packet implements the datagram framing of spec.md §4.2: the
// fixed packet header, the PacketType tag, and a Builder that assembles
// channel-tagged payload blocks into MTU-budgeted datagrams.
package packet

import (
	"github.com/naia-go/naia/wire"
)

// MTUBudget is the maximum size, in bytes, of one outgoing datagram (§4.2).
const MTUBudget = 508

// Type tags the purpose of a datagram.
type Type uint8

const (
	TypeData Type = iota
	TypeHeartbeat
	TypePing
	TypePong
	TypeHandshakeChallengeRequest
	TypeHandshakeChallengeResponse
	TypeHandshakeValidateRequest
	TypeHandshakeValidateResponse
	TypeHandshakeRejectResponse
	TypeHandshakeConnectRequest
	TypeHandshakeConnectResponse
	TypeDisconnect
)

func (t Type) IsHandshake() bool {
	return t >= TypeHandshakeChallengeRequest && t <= TypeHandshakeConnectResponse
}

// Header is the fixed portion present at the start of every datagram.
//
//	[1 byte  PacketType]
//	[2 byte  sender_packet_index]
//	[2 byte  sender_last_ack_index]
//	[4 byte  sender_ack_bitfield]
//	[1 byte  has_tick flag in bit 0, other bits zero]
//	[optional 2 byte sender_tick]
type Header struct {
	Type              Type
	SenderPacketIndex uint16
	SenderLastAck     uint16
	SenderAckBitfield uint32
	// Tick is present only for TypeData (and Ping/Pong, which carry a
	// tick in their payload rather than the header — see tick package).
	HasTick bool
	Tick    uint16
}

// HeaderSize returns the exact wire size of h in bytes.
func HeaderSize(hasTick bool) int {
	n := 1 + 2 + 2 + 4 + 1
	if hasTick {
		n += 2
	}
	return n
}

// Encode writes the header onto w.
func (h Header) Encode(w *wire.Writer) {
	w.WriteByte(byte(h.Type))
	w.WriteU16(h.SenderPacketIndex)
	w.WriteU16(h.SenderLastAck)
	w.WriteU32(h.SenderAckBitfield)
	w.WriteBool(h.HasTick)
	w.WriteBits(0, 7) // pad the flag to a whole byte so the payload starts byte-aligned
	if h.HasTick {
		w.WriteU16(h.Tick)
	}
}

// DecodeHeader reads a Header from r.
func DecodeHeader(r *wire.Reader) (Header, error) {
	var h Header
	b, err := r.ReadByte()
	if err != nil {
		return h, err
	}
	h.Type = Type(b)
	if h.SenderPacketIndex, err = r.ReadU16(); err != nil {
		return h, err
	}
	if h.SenderLastAck, err = r.ReadU16(); err != nil {
		return h, err
	}
	if h.SenderAckBitfield, err = r.ReadU32(); err != nil {
		return h, err
	}
	if h.HasTick, err = r.ReadBool(); err != nil {
		return h, err
	}
	if _, err = r.ReadBits(7); err != nil {
		return h, err
	}
	if h.HasTick {
		if h.Tick, err = r.ReadU16(); err != nil {
			return h, err
		}
	}
	return h, nil
}
