// Package solcred verifies Solana wallet signatures as an auth_message
// credential: the client signs the handshake's client_timestamp with
// its Ed25519 wallet key, and the server verifies against the claimed
// base58 public key, mirroring the teacher's did/solana client's use
// of github.com/gagliardetto/solana-go for wallet-key handling.
package solcred

import (
	"crypto/ed25519"
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Credential is the auth_message payload: the claimed wallet public
// key, the client_timestamp it was signed over, and the 64-byte
// Ed25519 signature.
type Credential struct {
	PublicKey       solana.PublicKey
	ClientTimestamp int64
	Signature       [64]byte
}

func (c Credential) Encode() []byte {
	out := make([]byte, 32+8+64)
	copy(out[0:32], c.PublicKey[:])
	binary.BigEndian.PutUint64(out[32:40], uint64(c.ClientTimestamp))
	copy(out[40:104], c.Signature[:])
	return out
}

func Decode(b []byte) (Credential, error) {
	var c Credential
	if len(b) != 104 {
		return c, fmt.Errorf("solcred: credential must be 104 bytes, got %d", len(b))
	}
	copy(c.PublicKey[:], b[0:32])
	c.ClientTimestamp = int64(binary.BigEndian.Uint64(b[32:40]))
	copy(c.Signature[:], b[40:104])
	return c, nil
}

func signedMessage(clientTimestamp int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(clientTimestamp))
	return buf
}

// Sign produces a Credential for wallet key over clientTimestamp.
func Sign(key ed25519.PrivateKey, clientTimestamp int64) Credential {
	msg := signedMessage(clientTimestamp)
	sig := ed25519.Sign(key, msg)
	var pub solana.PublicKey
	copy(pub[:], key.Public().(ed25519.PublicKey))
	var cred Credential
	cred.PublicKey = pub
	cred.ClientTimestamp = clientTimestamp
	copy(cred.Signature[:], sig)
	return cred
}

// Verifier implements handshake.Validator: it accepts any well-formed
// credential whose Ed25519 signature checks out against the claimed
// public key, issuing the key's base58 form as the identity token.
type Verifier struct{}

func (Verifier) Validate(authMessage []byte) ([]byte, bool) {
	cred, err := Decode(authMessage)
	if err != nil {
		return nil, false
	}
	msg := signedMessage(cred.ClientTimestamp)
	pub := ed25519.PublicKey(cred.PublicKey[:])
	if !ed25519.Verify(pub, msg, cred.Signature[:]) {
		return nil, false
	}
	return []byte(cred.PublicKey.String()), true
}
