// Package hpkecred optionally HPKE-seals the handshake's auth_message
// (§4.1, §6) to the server's X25519 public key, so the bearer
// credential an inner Validator checks (a shared secret, a signed
// token) isn't sent in the clear during the bootstrap step. It never
// touches the replicated data channel; that stays delegated to
// transport per the Non-goal on authenticated encryption.
package hpkecred

import (
	"crypto/ecdh"
	"crypto/rand"
	"fmt"

	"github.com/cloudflare/circl/hpke"

	"github.com/naia-go/naia/handshake"
)

var suite = hpke.NewSuite(hpke.KEM_X25519_HKDF_SHA256, hpke.KDF_HKDF_SHA256, hpke.AEAD_ChaCha20Poly1305)

// encLen is the X25519 KEM's encapsulated-key length, fixed by the
// suite above.
const encLen = 32

// Seal encrypts innerAuthMessage to serverPub, producing the bytes a
// client attaches as ClientValidateRequest's auth_message. info binds
// the ciphertext to this handshake context (e.g. the server's
// advertised address) so a sealed payload captured from one server
// can't be replayed against another.
func Seal(serverPub *ecdh.PublicKey, innerAuthMessage, info []byte) ([]byte, error) {
	kem := hpke.KEM_X25519_HKDF_SHA256.Scheme()
	rp, err := kem.UnmarshalBinaryPublicKey(serverPub.Bytes())
	if err != nil {
		return nil, fmt.Errorf("hpkecred: unmarshal server pub: %w", err)
	}
	sender, err := suite.NewSender(rp, info)
	if err != nil {
		return nil, fmt.Errorf("hpkecred: new sender: %w", err)
	}
	enc, sealer, err := sender.Setup(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("hpkecred: sender setup: %w", err)
	}
	ct, err := sealer.Seal(innerAuthMessage, info)
	if err != nil {
		return nil, fmt.Errorf("hpkecred: seal: %w", err)
	}
	return append(enc, ct...), nil
}

// Verifier implements handshake.Validator by HPKE-opening the sealed
// auth_message with priv before handing the recovered plaintext to
// inner. A client that didn't seal to the matching public key, or
// whose ciphertext was tampered with, fails at the open step and
// inner never sees anything.
type Verifier struct {
	priv  *ecdh.PrivateKey
	info  []byte
	inner handshake.Validator
}

// NewVerifier wraps inner behind an HPKE-open step keyed by priv. info
// must match whatever the sender passed to Seal.
func NewVerifier(priv *ecdh.PrivateKey, info []byte, inner handshake.Validator) *Verifier {
	return &Verifier{priv: priv, info: info, inner: inner}
}

func (v *Verifier) Validate(sealed []byte) ([]byte, bool) {
	if len(sealed) < encLen {
		return nil, false
	}
	enc, ct := sealed[:encLen], sealed[encLen:]

	kem := hpke.KEM_X25519_HKDF_SHA256.Scheme()
	skR, err := kem.UnmarshalBinaryPrivateKey(v.priv.Bytes())
	if err != nil {
		return nil, false
	}
	receiver, err := suite.NewReceiver(skR, v.info)
	if err != nil {
		return nil, false
	}
	opener, err := receiver.Setup(enc)
	if err != nil {
		return nil, false
	}
	plain, err := opener.Open(ct, v.info)
	if err != nil {
		return nil, false
	}
	return v.inner.Validate(plain)
}
