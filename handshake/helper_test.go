package handshake

import "time"

// fakeClock lets tests advance time deterministically instead of
// sleeping on the real send_handshake_interval timer.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }
