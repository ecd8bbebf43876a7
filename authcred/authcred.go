// Package authcred implements pluggable auth_message verifiers for the
// handshake's auth callback gate (§4.1, §6): given the bytes a client
// attached to ClientValidateRequest, decide whether to admit it and
// what identity token to hand back.
package authcred

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"

	"github.com/naia-go/naia/handshake"
)

// SharedSecretVerifier admits a client whose auth_message is an
// HMAC-SHA256 of a known shared secret over a caller-supplied
// identity string, e.g. "playerID\x00HMAC(secret, playerID)". It is the
// simplest of the pluggable verifiers, grounded on the same stateless
// HMAC-cookie idea as the handshake challenge itself.
type SharedSecretVerifier struct {
	secret []byte
}

func NewSharedSecretVerifier(secret []byte) *SharedSecretVerifier {
	return &SharedSecretVerifier{secret: secret}
}

// Validate implements handshake.Validator. auth_message format is
// `identity || 0x00 || mac`, where mac = HMAC-SHA256(secret, identity).
// The identity (as-is) becomes the issued identity token.
func (v *SharedSecretVerifier) Validate(authMessage []byte) ([]byte, bool) {
	sep := indexByte(authMessage, 0)
	if sep < 0 {
		return nil, false
	}
	identity, mac := authMessage[:sep], authMessage[sep+1:]

	h := hmac.New(sha256.New, v.secret)
	h.Write(identity)
	expected := h.Sum(nil)
	if subtle.ConstantTimeCompare(expected, mac) != 1 {
		return nil, false
	}
	return identity, true
}

// Sign produces the auth_message bytes a client would send to
// authenticate identity against this verifier's secret; exported so
// client-side AuthProvider implementations and tests can construct
// valid credentials without duplicating the wire format.
func (v *SharedSecretVerifier) Sign(identity []byte) []byte {
	h := hmac.New(sha256.New, v.secret)
	h.Write(identity)
	mac := h.Sum(nil)
	out := make([]byte, 0, len(identity)+1+len(mac))
	out = append(out, identity...)
	out = append(out, 0)
	out = append(out, mac...)
	return out
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

// clientCredential adapts a precomputed auth_message to
// handshake.AuthProvider for the client side of a handshake.
type clientCredential struct{ msg []byte }

// NewClientCredential wraps a precomputed auth_message (e.g. from
// SharedSecretVerifier.Sign, an ethcred/solcred signature, or a raw
// JWT) as a handshake.AuthProvider.
func NewClientCredential(authMessage []byte) handshake.AuthProvider {
	return clientCredential{msg: authMessage}
}

func (c clientCredential) AuthMessage() []byte { return c.msg }
