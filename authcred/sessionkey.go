package authcred

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

// DeriveSessionKey derives an n-byte symmetric key from a shared
// secret (e.g. the one a SharedSecretVerifier was constructed with)
// using HKDF-SHA256 with no salt and info as the HKDF info input, so keys derived for different
// purposes or different connections never collide even when drawn
// from the same secret. Naia itself never calls this: the data
// channel's confidentiality is delegated to transport per the
// Non-goal on authenticated encryption. It exists for a host that
// wants to layer its own AEAD over Enqueue/Drain payloads without
// inventing a second key schedule next to the one authcred already
// manages for handshake admission.
func DeriveSessionKey(secret, info []byte, n int) ([]byte, error) {
	r := hkdf.New(sha256.New, secret, nil, info)
	key := make([]byte, n)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}
