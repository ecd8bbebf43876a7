package httpsession

import (
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/naia-go/naia/internal/session"
)

// Client dials a Server's Handler and exchanges binary datagrams with
// it. A background goroutine drains the socket so Recv never blocks.
type Client struct {
	conn      *websocket.Conn
	sessionID session.ID

	queue  chan []byte
	closed chan struct{}
}

// Dial connects to a Server listening at rawURL (ws:// or wss://),
// identifying itself as localAddr so the server can key its peer map.
func Dial(rawURL, localAddr string) (*Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("httpsession: bad url: %w", err)
	}
	q := u.Query()
	q.Set("addr", localAddr)
	u.RawQuery = q.Encode()

	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("httpsession: dial: %w", err)
	}

	c := &Client{
		conn:      conn,
		sessionID: session.ID(resp.Header.Get(sessionHeader)),
		queue:     make(chan []byte, 256),
		closed:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// SessionID reports the correlation id the server minted for this
// connection during the upgrade, for use in log fields.
func (c *Client) SessionID() session.ID { return c.sessionID }

func (c *Client) readLoop() {
	defer close(c.queue)
	for {
		if err := c.conn.SetReadDeadline(time.Now().Add(defaultReadTimeout)); err != nil {
			return
		}
		typ, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if typ != websocket.BinaryMessage {
			continue
		}
		select {
		case c.queue <- payload:
		case <-c.closed:
			return
		}
	}
}

func (c *Client) Send(payload []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(defaultWriteTimeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.BinaryMessage, payload)
}

// Recv returns the next buffered inbound payload without blocking.
func (c *Client) Recv() ([]byte, bool, error) {
	select {
	case payload, ok := <-c.queue:
		if !ok {
			return nil, false, nil
		}
		return payload, true, nil
	default:
		return nil, false, nil
	}
}

func (c *Client) Close() error {
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}
	return c.conn.Close()
}
