// Package naiaerr defines the error taxonomy of §7: packet-boundary
// errors that the connection driver loop recovers from, and
// connection-terminal errors that surface a DisconnectEvent to the host.
package naiaerr

import "fmt"

// Kind identifies one of the error classes named in spec.md §7.
type Kind string

const (
	KindMalformedPacket      Kind = "malformed_packet"
	KindUnknownChannel       Kind = "unknown_channel"
	KindUnknownComponentKind Kind = "unknown_component_kind"
	KindUnknownMessageKind   Kind = "unknown_message_kind"
	KindScopeViolation       Kind = "scope_violation"
	KindAuthorityViolation   Kind = "authority_violation"
	KindHandshakeTimeout     Kind = "handshake_timeout"
	KindDisconnected         Kind = "disconnected"
)

// recoverableKinds are dropped at the packet boundary; processing continues.
var recoverableKinds = map[Kind]bool{
	KindMalformedPacket:      true,
	KindUnknownChannel:       true,
	KindUnknownComponentKind: true,
	KindUnknownMessageKind:   true,
	KindScopeViolation:       true,
	KindAuthorityViolation:   true,
}

// Error is a typed, wrapped error carrying a §7 Kind.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Recoverable reports whether the error should be handled at the
// packet boundary (dropped, connection stays open) rather than
// terminating the connection.
func (e *Error) Recoverable() bool { return recoverableKinds[e.Kind] }

// New builds an Error of the given kind wrapping cause (which may be nil).
func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func MalformedPacket(cause error) *Error {
	return New(KindMalformedPacket, "failed to deserialize packet", cause)
}

func UnknownChannel(kind uint16) *Error {
	return New(KindUnknownChannel, fmt.Sprintf("channel kind %d not registered", kind), nil)
}

func UnknownComponentKind(kind uint16) *Error {
	return New(KindUnknownComponentKind, fmt.Sprintf("component kind %d not registered", kind), nil)
}

func UnknownMessageKind(kind uint16) *Error {
	return New(KindUnknownMessageKind, fmt.Sprintf("message kind %d not registered", kind), nil)
}

func ScopeViolation(msg string) *Error {
	return New(KindScopeViolation, msg, nil)
}

func AuthorityViolation(msg string) *Error {
	return New(KindAuthorityViolation, msg, nil)
}

func HandshakeTimeout(msg string) *Error {
	return New(KindHandshakeTimeout, msg, nil)
}

func Disconnected(msg string) *Error {
	return New(KindDisconnected, msg, nil)
}

// Is lets callers use errors.Is(err, naiaerr.New(naiaerr.KindX, "", nil))
// style checks: two *Error values match when their Kinds are equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}
