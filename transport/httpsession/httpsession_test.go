package httpsession

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, recv func() ([]byte, bool, error)) []byte {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		payload, ok, err := recv()
		require.NoError(t, err)
		if ok {
			return payload
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timed out waiting for datagram")
	return nil
}

func TestClientServerRoundTrip(t *testing.T) {
	srv := NewServer()
	httpSrv := httptest.NewServer(srv.Handler())
	defer httpSrv.Close()
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(httpSrv.URL, "http")
	client, err := Dial(wsURL, "client-1")
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Send([]byte("ping")))
	dg := waitFor(t, func() ([]byte, bool, error) {
		d, ok, err := srv.Recv()
		return d.Payload, ok, err
	})
	require.Equal(t, []byte("ping"), dg)

	require.NoError(t, srv.Accept(context.Background(), "client-1", []byte("token")))
	require.NoError(t, srv.Send("client-1", []byte("pong")))

	payload := waitFor(t, client.Recv)
	require.Equal(t, []byte("pong"), payload)
}

func TestServerRejectClosesConnection(t *testing.T) {
	srv := NewServer()
	httpSrv := httptest.NewServer(srv.Handler())
	defer httpSrv.Close()
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(httpSrv.URL, "http")
	client, err := Dial(wsURL, "client-2")
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Send([]byte("hello")))
	waitFor(t, func() ([]byte, bool, error) {
		d, ok, err := srv.Recv()
		return d.Payload, ok, err
	})

	require.NoError(t, srv.Reject("client-2"))
	require.Error(t, srv.Send("client-2", []byte("too-late")))
}

func TestUpgradeMintsMatchingSessionID(t *testing.T) {
	srv := NewServer()
	httpSrv := httptest.NewServer(srv.Handler())
	defer httpSrv.Close()
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(httpSrv.URL, "http")
	client, err := Dial(wsURL, "client-3")
	require.NoError(t, err)
	defer client.Close()

	require.NotEmpty(t, client.SessionID())

	serverSide, ok := srv.SessionID("client-3")
	require.True(t, ok)
	require.Equal(t, client.SessionID(), serverSide)
}
