// Package ethcred verifies Ethereum wallet signatures as an
// auth_message credential: the client signs its claimed wallet address
// over the handshake's client_timestamp, and the server recovers the
// signer's address from the signature rather than trusting a
// pre-shared key, following the same address-from-pubkey derivation
// the teacher's crypto/chain/ethereum provider uses for DID addresses.
package ethcred

import (
	"crypto/ecdsa"
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Credential is the auth_message payload: the claimed address, the
// client_timestamp it was signed over, and the 65-byte recoverable
// signature.
type Credential struct {
	Address         common.Address
	ClientTimestamp int64
	Signature       [65]byte
}

// Encode packs the credential into the flat bytes carried as
// ClientValidateRequest's auth_message.
func (c Credential) Encode() []byte {
	out := make([]byte, 20+8+65)
	copy(out[0:20], c.Address.Bytes())
	binary.BigEndian.PutUint64(out[20:28], uint64(c.ClientTimestamp))
	copy(out[28:93], c.Signature[:])
	return out
}

func Decode(b []byte) (Credential, error) {
	var c Credential
	if len(b) != 93 {
		return c, fmt.Errorf("ethcred: credential must be 93 bytes, got %d", len(b))
	}
	c.Address = common.BytesToAddress(b[0:20])
	c.ClientTimestamp = int64(binary.BigEndian.Uint64(b[20:28]))
	copy(c.Signature[:], b[28:93])
	return c, nil
}

// signingHash is the digest both Sign and Verify operate over: the
// Keccak256 of the big-endian client_timestamp, matching the
// handshake's own choice of hashing the timestamp rather than a
// free-form message.
func signingHash(clientTimestamp int64) [32]byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(clientTimestamp))
	return crypto.Keccak256Hash(buf[:])
}

// Sign produces a Credential for key over clientTimestamp, for use by
// a client-side handshake.AuthProvider.
func Sign(key *ecdsa.PrivateKey, clientTimestamp int64) (Credential, error) {
	digest := signingHash(clientTimestamp)
	sig, err := crypto.Sign(digest[:], key)
	if err != nil {
		return Credential{}, err
	}
	var sigArr [65]byte
	copy(sigArr[:], sig)
	return Credential{
		Address:         crypto.PubkeyToAddress(key.PublicKey),
		ClientTimestamp: clientTimestamp,
		Signature:       sigArr,
	}, nil
}

// RecoverAddress recovers the signer address from a 65-byte
// recoverable ECDSA signature over clientTimestamp's digest.
func RecoverAddress(clientTimestamp int64, sig [65]byte) (common.Address, error) {
	digest := signingHash(clientTimestamp)
	pub, err := crypto.SigToPub(digest[:], sig[:])
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// Verifier implements handshake.Validator: it accepts any well-formed
// credential whose recovered signer matches its claimed address,
// issuing the address's hex string as the identity token. Callers
// needing an allowlist should wrap Verifier and inspect the returned
// token before admitting the connection further upstream (e.g. in the
// server's user-scope setup).
type Verifier struct{}

func (Verifier) Validate(authMessage []byte) ([]byte, bool) {
	cred, err := Decode(authMessage)
	if err != nil {
		return nil, false
	}
	recovered, err := RecoverAddress(cred.ClientTimestamp, cred.Signature)
	if err != nil || recovered != cred.Address {
		return nil, false
	}
	return []byte(cred.Address.Hex()), true
}
