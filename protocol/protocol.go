// Package protocol implements the host-facing registration API (§6):
// stable Kind ids for channels, messages, requests, and components,
// assigned in declaration order and shared identically by both peers.
package protocol

import (
	"fmt"

	"github.com/naia-go/naia/channel"
	"github.com/naia-go/naia/naiaerr"
)

// MessageKind is the 16-bit tag identifying a registered message type.
type MessageKind uint16

// ComponentKind is the 16-bit tag identifying a registered component type.
type ComponentKind uint16

// MessageCodec describes how to turn wire bytes into an application
// message and back, keyed by MessageKind (§9's "registry Kind →
// (decoder_fn, encoder_fn, ...)" dynamic-dispatch note).
type MessageCodec struct {
	Kind   MessageKind
	Decode func([]byte) (any, error)
	Encode func(any) ([]byte, error)
}

// ComponentCodec is MessageCodec's analogue for replicated components,
// plus a DiffMask-aware partial encoder used by the replication engine.
type ComponentCodec struct {
	Kind MessageKind
	// PropertyCount is how many replicated properties the component
	// declares; it sizes the component's DiffMask.
	PropertyCount int
	Decode        func([]byte) (any, error)
	Encode        func(any) ([]byte, error)
	// EncodeDiff encodes only the properties marked dirty in mask.
	EncodeDiff func(value any, mask []bool) ([]byte, error)
	// ApplyDiff mutates dst in place using a partial update payload.
	ApplyDiff func(dst any, payload []byte) error
	// Interpolatable opts a component into client-side interpolation
	// (§C.2): given a decoded value, it returns the current numeric
	// reading of each interpolatable property in property-index order.
	// Nil for components with nothing worth interpolating.
	Interpolatable func(value any) []float64
}

// ChannelRegistration wraps a channel's §4.3 Config. It carries no
// resend parameters of its own.
type ChannelRegistration struct {
	Config channel.Config
}

// Protocol is the registry both peers build identically, in the same
// declaration order, before a connection is established (§6, §9).
type Protocol struct {
	channels       []ChannelRegistration
	channelsByKind map[channel.Kind]ChannelRegistration

	messages       []MessageCodec
	messagesByKind map[MessageKind]MessageCodec

	requests       []MessageCodec
	requestsByKind map[MessageKind]MessageCodec

	components       []ComponentCodec
	componentsByKind map[ComponentKind]ComponentCodec

	nextChannelKind   channel.Kind
	nextMessageKind   MessageKind
	nextRequestKind   MessageKind
	nextComponentKind ComponentKind
}

// New returns an empty Protocol ready for registration calls.
func New() *Protocol {
	return &Protocol{
		channelsByKind:   make(map[channel.Kind]ChannelRegistration),
		messagesByKind:   make(map[MessageKind]MessageCodec),
		requestsByKind:   make(map[MessageKind]MessageCodec),
		componentsByKind: make(map[ComponentKind]ComponentCodec),
	}
}

// AddChannel registers a channel with the given direction and mode,
// assigning it the next ChannelKind in declaration order.
func (p *Protocol) AddChannel(direction channel.Direction, mode channel.Mode) channel.Kind {
	kind := p.nextChannelKind
	p.nextChannelKind++
	reg := ChannelRegistration{Config: channel.Config{Kind: kind, Direction: direction, Mode: mode}}
	p.channels = append(p.channels, reg)
	p.channelsByKind[kind] = reg
	return kind
}

// AddMessage registers a message type, assigning it the next MessageKind.
func (p *Protocol) AddMessage(codec MessageCodec) MessageKind {
	kind := p.nextMessageKind
	p.nextMessageKind++
	codec.Kind = kind
	p.messages = append(p.messages, codec)
	p.messagesByKind[kind] = codec
	return kind
}

// AddRequest registers a request/response message type. Requests share
// the message kind space conceptually but are tracked in a separate
// table so a request handler can't accidentally be invoked for a
// fire-and-forget message of the same wire shape.
func (p *Protocol) AddRequest(codec MessageCodec) MessageKind {
	kind := p.nextRequestKind
	p.nextRequestKind++
	codec.Kind = kind
	p.requests = append(p.requests, codec)
	p.requestsByKind[kind] = codec
	return kind
}

// AddComponent registers a replicated component type, assigning it the
// next ComponentKind.
func (p *Protocol) AddComponent(codec ComponentCodec) ComponentKind {
	kind := p.nextComponentKind
	p.nextComponentKind++
	codec.Kind = MessageKind(kind)
	p.components = append(p.components, codec)
	p.componentsByKind[kind] = codec
	return kind
}

func (p *Protocol) Channel(kind channel.Kind) (ChannelRegistration, error) {
	reg, ok := p.channelsByKind[kind]
	if !ok {
		return ChannelRegistration{}, naiaerr.UnknownChannel(uint16(kind))
	}
	return reg, nil
}

func (p *Protocol) Message(kind MessageKind) (MessageCodec, error) {
	codec, ok := p.messagesByKind[kind]
	if !ok {
		return MessageCodec{}, naiaerr.UnknownMessageKind(uint16(kind))
	}
	return codec, nil
}

func (p *Protocol) Request(kind MessageKind) (MessageCodec, error) {
	codec, ok := p.requestsByKind[kind]
	if !ok {
		return MessageCodec{}, naiaerr.UnknownMessageKind(uint16(kind))
	}
	return codec, nil
}

func (p *Protocol) Component(kind ComponentKind) (ComponentCodec, error) {
	codec, ok := p.componentsByKind[kind]
	if !ok {
		return ComponentCodec{}, naiaerr.UnknownComponentKind(uint16(kind))
	}
	return codec, nil
}

// Channels returns every registered channel, in declaration order.
func (p *Protocol) Channels() []ChannelRegistration { return p.channels }

// Validate reports an error if a component registration declares a
// negative PropertyCount. It checks nothing else (a component with
// zero properties but a non-nil EncodeDiff, for instance, passes). It
// is not required for correctness but catches that misconfiguration
// early rather than at first use.
func (p *Protocol) Validate() error {
	for _, c := range p.components {
		if c.PropertyCount < 0 {
			return fmt.Errorf("protocol: component kind %d declares negative PropertyCount", c.Kind)
		}
	}
	return nil
}
