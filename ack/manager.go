// Package ack implements the per-connection Ack Manager of spec.md §4.2:
// outgoing packet indexing and notification tracking, incoming
// sliding-window ack-bitfield computation, and delivered/dropped event
// emission.
package ack

import (
	"github.com/naia-go/naia/seq16"
)

// WindowSize is the depth of the incoming received-packet sliding window.
const WindowSize = 32

// NotificationDepth is the depth of the outbound notification buffer;
// a packet that falls out the back without being confirmed delivered
// is declared dropped (spec.md §4.2: "depth = 2 × window").
const NotificationDepth = 2 * WindowSize

// Notification identifies one message sent in a given outgoing packet,
// keyed loosely: callers define ChannelKind/MessageIndex as uint16s so
// this package has no dependency on the channel package.
type Notification struct {
	ChannelKind  uint16
	MessageIndex uint16
}

// outgoingEntry is one slot in the notification ring buffer.
type outgoingEntry struct {
	valid         bool
	packetIndex   uint16
	notifications []Notification
	delivered     bool
}

// Manager tracks both directions of acknowledgement for one connection.
type Manager struct {
	// outgoing
	nextOutIndex uint16
	hasSentOne   bool
	ring         []outgoingEntry // fixed size NotificationDepth, indexed by packetIndex % depth
	outstanding  int

	// incoming
	highestRecv    uint16
	hasReceivedOne bool
	recvWindow     uint64 // bit n set => highestRecv-n was received (n in [0, 63])

	lastDropped []Notification
}

// NewManager constructs an empty Manager.
func NewManager() *Manager {
	return &Manager{
		ring: make([]outgoingEntry, NotificationDepth),
	}
}

// NextOutgoingIndex assigns and returns the next wrapping packet index,
// recording its notification list for later delivered/dropped resolution.
func (m *Manager) NextOutgoingIndex(notifications []Notification) uint16 {
	idx := m.nextOutIndex
	m.nextOutIndex++
	m.hasSentOne = true

	slot := int(idx) % len(m.ring)
	evicted := m.ring[slot]
	m.ring[slot] = outgoingEntry{valid: true, packetIndex: idx, notifications: notifications}
	m.outstanding++

	if evicted.valid {
		m.outstanding--
		if !evicted.delivered {
			m.lastDropped = append(m.lastDropped, evicted.notifications...)
		}
	}
	return idx
}

// AckHeaderFields returns the (last_ack_index, ack_bitfield) pair to
// stamp into the next outgoing packet header, reflecting which of the
// remote's packets we have received.
func (m *Manager) AckHeaderFields() (lastAck uint16, bitfield uint32) {
	if !m.hasReceivedOne {
		return 0, 0
	}
	var bits uint32
	for n := 0; n < 32; n++ {
		if m.recvWindow&(1<<uint(n+1)) != 0 {
			bits |= 1 << uint(n)
		}
	}
	return m.highestRecv, bits
}

// OnReceive records that a datagram carrying remotePacketIndex arrived,
// sliding the window forward if it is newer than anything seen so far.
func (m *Manager) OnReceive(remotePacketIndex uint16) {
	if !m.hasReceivedOne {
		m.hasReceivedOne = true
		m.highestRecv = remotePacketIndex
		m.recvWindow = 1 // bit 0 == highestRecv itself
		return
	}

	if remotePacketIndex == m.highestRecv {
		m.recvWindow |= 1
		return
	}

	if seq16.After(remotePacketIndex, m.highestRecv) {
		shift := seq16.Diff(remotePacketIndex, m.highestRecv)
		if shift >= 64 {
			m.recvWindow = 0
		} else {
			m.recvWindow <<= uint(shift)
		}
		m.recvWindow |= 1
		m.highestRecv = remotePacketIndex
		return
	}

	// older than highestRecv: mark the corresponding back-bit if in range
	back := seq16.Diff(m.highestRecv, remotePacketIndex)
	if back > 0 && back < 64 {
		m.recvWindow |= 1 << uint(back)
	}
}

// DeliveredAndDropped processes a received remote header's ack fields
// (the remote's view of which of OUR packets it has received) and
// returns the newly-delivered notifications plus any notifications
// that have aged out of the buffer undelivered since the last call.
func (m *Manager) DeliveredAndDropped(remoteLastAck uint16, remoteBitfield uint32) (delivered, dropped []Notification) {
	mark := func(idx uint16) {
		slot := int(idx) % len(m.ring)
		e := &m.ring[slot]
		if e.valid && e.packetIndex == idx && !e.delivered {
			e.delivered = true
			delivered = append(delivered, e.notifications...)
		}
	}
	mark(remoteLastAck)
	for n := 0; n < 32; n++ {
		if remoteBitfield&(1<<uint(n)) != 0 {
			mark(remoteLastAck - uint16(n+1))
		}
	}

	if m.lastDropped != nil {
		dropped = append(dropped, m.lastDropped...)
		m.lastDropped = nil
	}
	return delivered, dropped
}
