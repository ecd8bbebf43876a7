package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PacketsSent tracks outgoing datagrams by packet.Type name.
	PacketsSent = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "packets",
			Name:      "sent_total",
			Help:      "Total datagrams sent, by packet type.",
		},
		[]string{"type"},
	)

	// PacketsReceived tracks inbound datagrams by packet.Type name.
	PacketsReceived = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "packets",
			Name:      "received_total",
			Help:      "Total datagrams received, by packet type.",
		},
		[]string{"type"},
	)

	// TicksAdvanced tracks tick.Manager.Advance calls that actually
	// fired (returned a nonzero tick delta), summed across every
	// Connection sharing this process's Registry.
	TicksAdvanced = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tick",
			Name:      "advanced_total",
			Help:      "Total tick advances across all connections.",
		},
	)

	// ReplicationActions tracks replication.Action traffic by action
	// kind (spawn, insert, update, remove, despawn) and direction
	// (produced by this side, or applied from the remote side).
	ReplicationActions = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replication",
			Name:      "actions_total",
			Help:      "Total replication actions, by kind and direction.",
		},
		[]string{"kind", "direction"},
	)

	// AuthorityTransfers tracks authority.Manager outcomes by result
	// (granted, denied, released).
	AuthorityTransfers = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "authority",
			Name:      "transfers_total",
			Help:      "Total authority grants, denials, and releases.",
		},
		[]string{"result"},
	)
)
