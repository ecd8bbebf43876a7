package client

import (
	"testing"
	"time"

	"github.com/naia-go/naia/channel"
	"github.com/naia-go/naia/connection"
	"github.com/naia-go/naia/handshake"
	"github.com/naia-go/naia/packet"
	"github.com/naia-go/naia/protocol"
	"github.com/stretchr/testify/require"
)

// loopbackTransport answers a handshake.Server's expected sequence directly,
// bypassing the server package so this test only exercises Client.
type loopbackTransport struct {
	toServer   [][]byte
	toClient   [][]byte
	hs         *handshake.Server
	addr       string
	promotedCh *connection.Connection
}

func (l *loopbackTransport) Send(payload []byte) error {
	header, body, err := packet.ParseDatagram(payload)
	if err != nil {
		return err
	}
	respType, respPayload, ok, err := l.hs.Receive(l.addr, header.Type, body)
	if err != nil {
		return err
	}
	if ok {
		b := packet.NewBuilder(packet.Header{Type: respType})
		b.TryAdd(respPayload)
		out, ferr := b.Finish()
		if ferr != nil {
			return ferr
		}
		l.toClient = append(l.toClient, out)
	}
	return nil
}

func (l *loopbackTransport) Recv() ([]byte, bool, error) {
	if len(l.toClient) == 0 {
		return nil, false, nil
	}
	dg := l.toClient[0]
	l.toClient = l.toClient[1:]
	return dg, true, nil
}

func (l *loopbackTransport) Close() error { return nil }

func testProtocol() (*protocol.Protocol, channel.Kind) {
	reg := protocol.New()
	chatKind := reg.AddChannel(channel.Bidirectional, channel.ModeUnorderedReliable)
	return reg, chatKind
}

func newTestClient(t *testing.T, now time.Time) (*Client, *loopbackTransport) {
	t.Helper()
	proto, _ := testProtocol()
	hs := handshake.NewServer([]byte("test-secret"), handshake.ValidatorFunc(func([]byte) ([]byte, bool) { return nil, true }), nil)
	t.Cleanup(hs.Close)

	lb := &loopbackTransport{hs: hs, addr: "client-1"}
	cl := New(lb, Config{
		Protocol:     proto,
		Connection:   connection.Config{Protocol: proto},
		TickInterval: 50 * time.Millisecond,
		Now:          func() time.Time { return now },
	}, nil, nil)
	return cl, lb
}

func driveToConnected(t *testing.T, cl *Client, now time.Time) {
	t.Helper()
	for i := 0; i < 10 && cl.State() != handshake.ClientConnected; i++ {
		require.NoError(t, cl.SendAll(now))
		require.NoError(t, cl.Poll())
	}
	require.Equal(t, handshake.ClientConnected, cl.State())
}

func TestClientReachesConnectedAndPromotesConnection(t *testing.T) {
	now := time.Unix(1000, 0)
	cl, _ := newTestClient(t, now)

	driveToConnected(t, cl, now)

	require.True(t, cl.Connected())
	require.NotNil(t, cl.Connection())
}

func TestClientDrainBeforeConnectedReturnsNil(t *testing.T) {
	now := time.Unix(2000, 0)
	cl, _ := newTestClient(t, now)
	_, chatKind := testProtocol()

	require.Nil(t, cl.Drain(chatKind))
	require.False(t, cl.Enqueue(chatKind, []byte("hi")))
	require.Equal(t, uint16(0), cl.PredictedTick(now))
}

func TestClientSendAllNoopsWhenNothingDue(t *testing.T) {
	now := time.Unix(3000, 0)
	cl, _ := newTestClient(t, now)
	driveToConnected(t, cl, now)

	// A second SendAll at the same instant ships whatever is due
	// (control datagrams aside, an idle connection ships nothing new)
	// without erroring.
	require.NoError(t, cl.SendAll(now))
}
