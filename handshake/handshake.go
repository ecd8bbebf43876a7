// Package handshake implements the four-message connection
// establishment exchange of spec.md §4.1: a stateless HMAC challenge
// cookie, an auth callback gate, and identity-token-based connect
// confirmation, mirrored by parallel client and server state machines.
package handshake

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"time"

	"github.com/naia-go/naia/wire"
)

// ClientState is the client-side handshake state machine's position
// (§4.1).
type ClientState int

const (
	ClientAwaitingChallengeResponse ClientState = iota
	ClientAwaitingValidateResponse
	ClientAwaitingConnectResponse
	ClientConnected
	ClientRejected
)

// ServerState is the server's per-remote-address handshake position.
type ServerState int

const (
	ServerAwaitingValidateRequest ServerState = iota
	ServerAwaitingConnectRequest
	ServerConnected
)

// ChallengeRequest carries only a client timestamp so the server can
// answer without allocating per-address state (§4.1).
type ChallengeRequest struct {
	ClientTimestamp int64
}

func (m ChallengeRequest) Encode(w *wire.Writer) { w.WriteVarI64(m.ClientTimestamp) }
func DecodeChallengeRequest(r *wire.Reader) (ChallengeRequest, error) {
	ts, err := r.ReadVarI64()
	return ChallengeRequest{ClientTimestamp: ts}, err
}

// ChallengeResponse echoes the timestamp plus an HMAC signature over it
// so a later ClientValidateRequest can be verified statelessly.
type ChallengeResponse struct {
	ClientTimestamp int64
	Signature       [32]byte
}

func (m ChallengeResponse) Encode(w *wire.Writer) {
	w.WriteVarI64(m.ClientTimestamp)
	w.WriteBytes(m.Signature[:])
}

func DecodeChallengeResponse(r *wire.Reader) (ChallengeResponse, error) {
	ts, err := r.ReadVarI64()
	if err != nil {
		return ChallengeResponse{}, err
	}
	sigBytes, err := r.ReadBytes(32)
	if err != nil {
		return ChallengeResponse{}, err
	}
	var resp ChallengeResponse
	resp.ClientTimestamp = ts
	copy(resp.Signature[:], sigBytes)
	return resp, nil
}

// ValidateRequest re-presents the signed challenge plus an optional,
// application-defined credential payload for the host's auth callback.
type ValidateRequest struct {
	ClientTimestamp int64
	Signature       [32]byte
	AuthMessage     []byte
}

func (m ValidateRequest) Encode(w *wire.Writer) {
	w.WriteVarI64(m.ClientTimestamp)
	w.WriteBytes(m.Signature[:])
	w.WriteVarU64(uint64(len(m.AuthMessage)))
	w.WriteBytes(m.AuthMessage)
}

func DecodeValidateRequest(r *wire.Reader) (ValidateRequest, error) {
	var m ValidateRequest
	ts, err := r.ReadVarI64()
	if err != nil {
		return m, err
	}
	sigBytes, err := r.ReadBytes(32)
	if err != nil {
		return m, err
	}
	alen, err := r.ReadVarU64()
	if err != nil {
		return m, err
	}
	authMsg, err := r.ReadBytes(int(alen))
	if err != nil {
		return m, err
	}
	m.ClientTimestamp = ts
	copy(m.Signature[:], sigBytes)
	m.AuthMessage = authMsg
	return m, nil
}

// ValidateResponse carries the identity token minted for an accepted
// client, opaque to this package (its format is authcred's concern).
type ValidateResponse struct {
	IdentityToken []byte
}

func (m ValidateResponse) Encode(w *wire.Writer) {
	w.WriteVarU64(uint64(len(m.IdentityToken)))
	w.WriteBytes(m.IdentityToken)
}

func DecodeValidateResponse(r *wire.Reader) (ValidateResponse, error) {
	tlen, err := r.ReadVarU64()
	if err != nil {
		return ValidateResponse{}, err
	}
	tok, err := r.ReadBytes(int(tlen))
	return ValidateResponse{IdentityToken: tok}, err
}

// ConnectRequest resolves a previously issued identity token back to a
// pending UserKey on the server.
type ConnectRequest struct {
	IdentityToken []byte
}

func (m ConnectRequest) Encode(w *wire.Writer) {
	w.WriteVarU64(uint64(len(m.IdentityToken)))
	w.WriteBytes(m.IdentityToken)
}

func DecodeConnectRequest(r *wire.Reader) (ConnectRequest, error) {
	tlen, err := r.ReadVarU64()
	if err != nil {
		return ConnectRequest{}, err
	}
	tok, err := r.ReadBytes(int(tlen))
	return ConnectRequest{IdentityToken: tok}, err
}

// Signer computes and verifies the stateless HMAC-SHA256 challenge
// cookie over a client timestamp, using a server secret that never
// leaves the process (§4.1: "an opaque HMAC over client_timestamp with
// a server-secret").
type Signer struct {
	secret []byte
}

func NewSigner(secret []byte) *Signer { return &Signer{secret: secret} }

func (s *Signer) Sign(clientTimestamp int64) [32]byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(clientTimestamp))
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(buf[:])
	var out [32]byte
	copy(out[:], mac.Sum(nil))
	return out
}

func (s *Signer) Verify(clientTimestamp int64, signature [32]byte) bool {
	expected := s.Sign(clientTimestamp)
	return hmac.Equal(expected[:], signature[:])
}

// DefaultSendInterval is send_handshake_interval (§6, default 1s).
const DefaultSendInterval = time.Second
