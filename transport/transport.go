// Package transport defines the datagram contract Naia runs over
// (§6): an unordered, best-effort send/recv of opaque byte payloads
// addressed by a transport-defined address string, plus the
// server-side accept/reject hook a handshake-validated identity token
// unlocks. Naia itself implements no authenticated encryption at this
// layer (delegated to the transport, per the Non-goals) — see
// transport/httpsession for a concrete implementation.
package transport

import "context"

// Datagram is one inbound unit of data plus the address it arrived
// from, as returned by a non-blocking Recv.
type Datagram struct {
	Addr    string
	Payload []byte
}

// Client is the client-side half of the contract: send to and receive
// from a single remote peer already dialed out-of-band.
type Client interface {
	// Send transmits payload to the peer. Delivery is not guaranteed;
	// reliability lives in the channel layer above this one.
	Send(payload []byte) error
	// Recv returns the next available inbound payload without
	// blocking, or ok=false if nothing is pending.
	Recv() (payload []byte, ok bool, err error)
	Close() error
}

// Server is the server-side half: many remote addresses multiplexed
// over one listening endpoint.
type Server interface {
	// Send transmits payload to addr.
	Send(addr string, payload []byte) error
	// Recv returns the next available inbound datagram from any
	// remote without blocking, or ok=false if nothing is pending.
	Recv() (dg Datagram, ok bool, err error)
	// Accept admits addr as a recognized peer once its identity_token
	// has been validated by the handshake layer.
	Accept(ctx context.Context, addr string, identityToken []byte) error
	// Reject refuses addr, tearing down any transport-level state
	// held for it (e.g. closing its underlying socket/stream).
	Reject(addr string) error
	Close() error
}
