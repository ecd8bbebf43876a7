package handshake

import (
	"crypto/rand"

	"github.com/naia-go/naia/wire"
)

// GenerateSecret returns a fresh random server secret suitable for
// NewSigner/NewServer.
func GenerateSecret() ([]byte, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	return secret, nil
}

// DisconnectMessage is the payload of a TypeDisconnect datagram: a
// reliable-best-effort notice resent a bounded number of times rather
// than acked (§6).
type DisconnectMessage struct {
	Reason string
}

func (m DisconnectMessage) Encode(w *wire.Writer) { w.WriteString(m.Reason) }

func DecodeDisconnectMessage(r *wire.Reader) (DisconnectMessage, error) {
	reason, err := r.ReadString()
	return DisconnectMessage{Reason: reason}, err
}

// DefaultDisconnectResends is how many times a Disconnect datagram is
// retransmitted before the sender gives up waiting for the transport
// to have delivered it (§6: "resent N times").
const DefaultDisconnectResends = 5
