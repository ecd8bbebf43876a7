package channel

import (
	"github.com/naia-go/naia/wire"
)

// Indexed is one message ready to be wire-encoded alongside its index.
type Indexed struct {
	Index   uint16
	Payload []byte
}

// EncodeIndexedBlock writes `[ChannelKind][bool has_messages][varint
// count][messages...]` where each message after the first delta-
// encodes its index against the previous one in the block (§4.3's
// delta-encoded message_index scheme, used by every indexed mode).
func EncodeIndexedBlock(kind Kind, messages []Indexed) []byte {
	w := wire.NewWriter()
	w.WriteU16(uint16(kind))
	w.WriteBool(len(messages) > 0)
	if len(messages) == 0 {
		return w.Bytes()
	}
	w.WriteVarU64(uint64(len(messages)))

	var prev uint16
	for i, m := range messages {
		if i == 0 {
			w.WriteU16(m.Index)
		} else {
			w.WriteVarU64(uint64(m.Index - prev))
		}
		prev = m.Index
		w.WriteVarU64(uint64(len(m.Payload)))
		w.WriteBytes(m.Payload)
	}
	return w.Bytes()
}

// DecodeIndexedBlock reverses EncodeIndexedBlock, returning the
// channel kind and the decoded messages in on-wire order.
func DecodeIndexedBlock(r *wire.Reader) (Kind, []Indexed, error) {
	kindRaw, err := r.ReadU16()
	if err != nil {
		return 0, nil, err
	}
	has, err := r.ReadBool()
	if err != nil {
		return 0, nil, err
	}
	if !has {
		return Kind(kindRaw), nil, nil
	}
	count, err := r.ReadVarU64()
	if err != nil {
		return 0, nil, err
	}

	msgs := make([]Indexed, 0, count)
	var prev uint16
	for i := uint64(0); i < count; i++ {
		var idx uint16
		if i == 0 {
			if idx, err = r.ReadU16(); err != nil {
				return 0, nil, err
			}
		} else {
			delta, derr := r.ReadVarU64()
			if derr != nil {
				return 0, nil, derr
			}
			idx = prev + uint16(delta)
		}
		prev = idx

		plen, perr := r.ReadVarU64()
		if perr != nil {
			return 0, nil, perr
		}
		payload, berr := r.ReadBytes(int(plen))
		if berr != nil {
			return 0, nil, berr
		}
		msgs = append(msgs, Indexed{Index: idx, Payload: payload})
	}
	return Kind(kindRaw), msgs, nil
}

// Ticked is one TickBuffered message tagged with its target tick.
type Ticked struct {
	TargetTick uint16
	Payload    []byte
}

// EncodeTickBufferedBlock writes the TickBuffered channel's block
// format: each message keeps its own fixed-width target tick (no
// delta compression — target ticks are not monotonic across messages
// the way reliable message_index is).
func EncodeTickBufferedBlock(kind Kind, messages []Ticked) []byte {
	w := wire.NewWriter()
	w.WriteU16(uint16(kind))
	w.WriteBool(len(messages) > 0)
	if len(messages) == 0 {
		return w.Bytes()
	}
	w.WriteVarU64(uint64(len(messages)))
	for _, m := range messages {
		w.WriteU16(m.TargetTick)
		w.WriteVarU64(uint64(len(m.Payload)))
		w.WriteBytes(m.Payload)
	}
	return w.Bytes()
}

// DecodeTickBufferedBlock reverses EncodeTickBufferedBlock.
func DecodeTickBufferedBlock(r *wire.Reader) (Kind, []Ticked, error) {
	kindRaw, err := r.ReadU16()
	if err != nil {
		return 0, nil, err
	}
	has, err := r.ReadBool()
	if err != nil {
		return 0, nil, err
	}
	if !has {
		return Kind(kindRaw), nil, nil
	}
	count, err := r.ReadVarU64()
	if err != nil {
		return 0, nil, err
	}
	msgs := make([]Ticked, 0, count)
	for i := uint64(0); i < count; i++ {
		tick, terr := r.ReadU16()
		if terr != nil {
			return 0, nil, terr
		}
		plen, perr := r.ReadVarU64()
		if perr != nil {
			return 0, nil, perr
		}
		payload, berr := r.ReadBytes(int(plen))
		if berr != nil {
			return 0, nil, berr
		}
		msgs = append(msgs, Ticked{TargetTick: tick, Payload: payload})
	}
	return Kind(kindRaw), msgs, nil
}
