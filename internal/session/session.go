// Package session mints connection correlation ids: a short-lived
// identifier assigned to one transport-level peer (one
// transport/httpsession upgrade, one handshake attempt) so log lines
// emitted across goroutines for the same peer can be tied together.
// It carries no authentication weight of its own; that's the
// handshake layer's job. Grounded on the teacher's session.Metadata
// builder (session/metadata.go), which stamped every in-flight
// exchange with a uuid.NewString() id before a channel existed to
// address it by anything else.
package session

import (
	"time"

	"github.com/google/uuid"
)

// ID is a connection correlation id, stable for the lifetime of one
// transport-level peer.
type ID string

// New mints a fresh correlation id.
func New() ID { return ID(uuid.NewString()) }

// String renders id for log fields.
func (id ID) String() string { return string(id) }

// Record pairs a correlation id with when it was minted, so a caller
// logging connection churn can report how long a peer has been
// tracked.
type Record struct {
	ID        ID
	CreatedAt time.Time
}

// NewRecord mints a Record stamped at now.
func NewRecord(now time.Time) Record {
	return Record{ID: New(), CreatedAt: now}
}

// Age reports how long ago r was minted, relative to now.
func (r Record) Age(now time.Time) time.Duration {
	return now.Sub(r.CreatedAt)
}
