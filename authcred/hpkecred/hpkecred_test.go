package hpkecred

import (
	"crypto/ecdh"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/naia-go/naia/authcred"
)

func mustServerKey(t *testing.T) (*ecdh.PrivateKey, *ecdh.PublicKey) {
	t.Helper()
	priv, err := ecdh.X25519().GenerateKey(rand.Reader)
	require.NoError(t, err)
	return priv, priv.PublicKey()
}

func TestSealThenVerifyRoundTrips(t *testing.T) {
	priv, pub := mustServerKey(t)
	info := []byte("naia-handshake:server-1")

	inner := authcred.NewSharedSecretVerifier([]byte("shared-secret"))
	innerMessage := inner.Sign([]byte("player-1"))

	sealed, err := Seal(pub, innerMessage, info)
	require.NoError(t, err)
	require.NotEqual(t, innerMessage, sealed, "sealed bytes must not equal the plaintext")

	v := NewVerifier(priv, info, inner)
	token, ok := v.Validate(sealed)
	require.True(t, ok)
	require.Equal(t, []byte("player-1"), token)
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	_, pub := mustServerKey(t)
	otherPriv, _ := mustServerKey(t)
	info := []byte("naia-handshake:server-1")

	inner := authcred.NewSharedSecretVerifier([]byte("shared-secret"))
	sealed, err := Seal(pub, []byte("whatever"), info)
	require.NoError(t, err)

	v := NewVerifier(otherPriv, info, inner)
	_, ok := v.Validate(sealed)
	require.False(t, ok, "opening with the wrong private key must fail")
}

func TestVerifyRejectsMismatchedInfo(t *testing.T) {
	priv, pub := mustServerKey(t)

	inner := authcred.NewSharedSecretVerifier([]byte("shared-secret"))
	sealed, err := Seal(pub, []byte("whatever"), []byte("ctx-a"))
	require.NoError(t, err)

	v := NewVerifier(priv, []byte("ctx-b"), inner)
	_, ok := v.Validate(sealed)
	require.False(t, ok, "info must bind the ciphertext to its handshake context")
}

func TestVerifyRejectsTruncatedPayload(t *testing.T) {
	priv, _ := mustServerKey(t)
	inner := authcred.NewSharedSecretVerifier([]byte("shared-secret"))
	v := NewVerifier(priv, []byte("ctx"), inner)

	_, ok := v.Validate([]byte("short"))
	require.False(t, ok)
}
