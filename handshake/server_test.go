package handshake

import (
	"testing"
	"time"

	"github.com/naia-go/naia/packet"
	"github.com/stretchr/testify/require"
)

func TestFullHandshakeHappyPath(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	secret := []byte("test-secret")
	server := NewServer(secret, AcceptAll, nil)
	defer server.Close()

	client := NewClient(clock.now, nil, nil)
	const addr = "10.0.0.1:9000"

	typ, payload := client.NextOutbound()
	require.Equal(t, packet.TypeHandshakeChallengeRequest, typ)

	respType, respPayload, ok, err := server.Receive(addr, typ, payload)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, packet.TypeHandshakeChallengeResponse, respType)

	require.NoError(t, client.Receive(respType, respPayload))
	require.Equal(t, ClientAwaitingValidateResponse, client.State())

	typ, payload = client.NextOutbound()
	require.Equal(t, packet.TypeHandshakeValidateRequest, typ)

	respType, respPayload, ok, err = server.Receive(addr, typ, payload)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, packet.TypeHandshakeValidateResponse, respType)

	require.NoError(t, client.Receive(respType, respPayload))
	require.Equal(t, ClientAwaitingConnectResponse, client.State())

	typ, payload = client.NextOutbound()
	require.Equal(t, packet.TypeHandshakeConnectRequest, typ)

	respType, respPayload, ok, err = server.Receive(addr, typ, payload)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, packet.TypeHandshakeConnectResponse, respType)

	require.NoError(t, client.Receive(respType, respPayload))
	require.Equal(t, ClientConnected, client.State())

	state, tracked := server.State(addr)
	require.True(t, tracked)
	require.Equal(t, ServerConnected, state)
}

// TestRejectedValidateRequestMirrorsS6 mirrors spec.md's S6 scenario:
// a client whose auth_message fails the host's callback is rejected
// rather than admitted, and its local state reflects the rejection.
func TestRejectedValidateRequestMirrorsS6(t *testing.T) {
	clock := &fakeClock{t: time.Unix(2000, 0)}
	server := NewServer([]byte("secret"), ValidatorFunc(func([]byte) ([]byte, bool) {
		return nil, false
	}), nil)
	defer server.Close()

	client := NewClient(clock.now, nil, nil)
	const addr = "10.0.0.2:9000"

	typ, payload := client.NextOutbound()
	respType, respPayload, _, err := server.Receive(addr, typ, payload)
	require.NoError(t, err)
	require.NoError(t, client.Receive(respType, respPayload))

	typ, payload = client.NextOutbound()
	respType, respPayload, ok, err := server.Receive(addr, typ, payload)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, packet.TypeHandshakeRejectResponse, respType)

	require.NoError(t, client.Receive(respType, respPayload))
	require.Equal(t, ClientRejected, client.State())

	_, tracked := server.State(addr)
	require.False(t, tracked)
}

func TestTamperedSignatureIsRejected(t *testing.T) {
	server := NewServer([]byte("secret"), AcceptAll, nil)
	defer server.Close()

	clock := &fakeClock{t: time.Unix(3000, 0)}
	client := NewClient(clock.now, nil, nil)
	const addr = "10.0.0.3:9000"

	typ, payload := client.NextOutbound()
	_, _, _, err := server.Receive(addr, typ, payload)
	require.NoError(t, err)

	client.signature = [32]byte{0xFF} // corrupt before validating
	typ, payload = client.NextOutbound()

	respType, _, ok, err := server.Receive(addr, typ, payload)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, packet.TypeHandshakeRejectResponse, respType)
}

func TestServerIgnoresConnectRequestWithWrongToken(t *testing.T) {
	server := NewServer([]byte("secret"), AcceptAll, nil)
	defer server.Close()
	const addr = "10.0.0.4:9000"

	clock := &fakeClock{t: time.Unix(4000, 0)}
	client := NewClient(clock.now, nil, nil)

	typ, payload := client.NextOutbound()
	respType, respPayload, _, _ := server.Receive(addr, typ, payload)
	client.Receive(respType, respPayload)

	typ, payload = client.NextOutbound()
	respType, respPayload, _, _ = server.Receive(addr, typ, payload)
	client.Receive(respType, respPayload)

	client.identityToken = []byte("forged")
	typ, payload = client.NextOutbound()

	_, _, ok, err := server.Receive(addr, typ, payload)
	require.NoError(t, err)
	require.False(t, ok)

	state, tracked := server.State(addr)
	require.True(t, tracked)
	require.Equal(t, ServerAwaitingConnectRequest, state)
}

func TestConnectResponseIsIdempotentAfterConnected(t *testing.T) {
	server := NewServer([]byte("secret"), AcceptAll, nil)
	defer server.Close()
	const addr = "10.0.0.5:9000"
	clock := &fakeClock{t: time.Unix(5000, 0)}
	client := NewClient(clock.now, nil, nil)

	for i := 0; i < 3; i++ {
		typ, payload := client.NextOutbound()
		respType, respPayload, ok, err := server.Receive(addr, typ, payload)
		require.NoError(t, err)
		require.True(t, ok)
		require.NoError(t, client.Receive(respType, respPayload))
	}
	require.Equal(t, ClientConnected, client.State())

	// Re-deliver the final ServerConnectResponse as if it were a
	// transport-level retransmit; the client stays Connected (§8
	// property 9).
	_, payload := client.NextOutbound()
	require.Nil(t, payload) // NextOutbound on Connected yields no message
	require.NoError(t, client.Receive(packet.TypeHandshakeConnectResponse, nil))
	require.Equal(t, ClientConnected, client.State())
}

func TestCleanupExpiresAbandonedHandshakes(t *testing.T) {
	server := NewServer([]byte("secret"), AcceptAll, nil)
	defer server.Close()
	const addr = "10.0.0.6:9000"

	clock := &fakeClock{t: time.Unix(6000, 0)}
	server.now = clock.now
	client := NewClient(clock.now, nil, nil)

	typ, payload := client.NextOutbound()
	_, _, _, err := server.Receive(addr, typ, payload)
	require.NoError(t, err)

	_, tracked := server.State(addr)
	require.True(t, tracked)

	clock.advance(pendingTTL + time.Second)
	server.cleanupExpired(clock.now())

	_, tracked = server.State(addr)
	require.False(t, tracked)
}
