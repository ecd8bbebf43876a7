package authority

import (
	"github.com/naia-go/naia/entity"
	"github.com/naia-go/naia/wire"
)

// MessageKind tags one of the four authority-channel messages (§4.6).
type MessageKind uint8

const (
	MsgAuthRequest MessageKind = iota
	MsgAuthGrant
	MsgAuthDeny
	MsgAuthRelease
)

// Message is the wire payload carried on the dedicated authority
// channel: which entity it concerns and which of the four message
// kinds it is.
type Message struct {
	Kind   MessageKind
	Entity entity.NetEntity
}

func (m Message) Encode(w *wire.Writer) {
	w.WriteBits(uint64(m.Kind), 2)
	w.WriteVarU64(uint64(m.Entity))
}

func DecodeMessage(r *wire.Reader) (Message, error) {
	kindBits, err := r.ReadBits(2)
	if err != nil {
		return Message{}, err
	}
	entRaw, err := r.ReadVarU64()
	if err != nil {
		return Message{}, err
	}
	return Message{Kind: MessageKind(kindBits), Entity: entity.NetEntity(entRaw)}, nil
}
