package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/naia-go/naia/channel"
	"github.com/naia-go/naia/packet"
	"github.com/spf13/cobra"
)

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Print the built-in packet type and channel mode reference tables",
	Long: `registry prints the fixed, compile-time constants every naia
deployment shares: the packet.Type tags a datagram's header can carry,
and the six channel.Mode delivery semantics a protocol.Protocol can
register a channel.Kind under (§4.2, §4.3). Unlike "wire dump", nothing
here depends on an application's own protocol registration.`,
	RunE: runRegistry,
}

func init() {
	rootCmd.AddCommand(registryCmd)
}

var packetTypeNames = map[packet.Type]string{
	packet.TypeData:                       "Data",
	packet.TypeHeartbeat:                  "Heartbeat",
	packet.TypePing:                       "Ping",
	packet.TypePong:                       "Pong",
	packet.TypeHandshakeChallengeRequest:  "HandshakeChallengeRequest",
	packet.TypeHandshakeChallengeResponse: "HandshakeChallengeResponse",
	packet.TypeHandshakeValidateRequest:   "HandshakeValidateRequest",
	packet.TypeHandshakeValidateResponse:  "HandshakeValidateResponse",
	packet.TypeHandshakeRejectResponse:    "HandshakeRejectResponse",
	packet.TypeHandshakeConnectRequest:    "HandshakeConnectRequest",
	packet.TypeHandshakeConnectResponse:   "HandshakeConnectResponse",
	packet.TypeDisconnect:                 "Disconnect",
}

func typeName(t packet.Type) string {
	if name, ok := packetTypeNames[t]; ok {
		return fmt.Sprintf("%s (%d)", name, t)
	}
	return fmt.Sprintf("unknown (%d)", t)
}

var channelModeNames = map[channel.Mode]string{
	channel.ModeUnorderedUnreliable: "UnorderedUnreliable",
	channel.ModeSequencedUnreliable: "SequencedUnreliable",
	channel.ModeUnorderedReliable:   "UnorderedReliable",
	channel.ModeSequencedReliable:   "SequencedReliable",
	channel.ModeOrderedReliable:     "OrderedReliable",
	channel.ModeTickBuffered:        "TickBuffered",
}

func runRegistry(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "PACKET TYPE\tVALUE\tHANDSHAKE")
	for t := packet.TypeData; int(t) <= int(packet.TypeDisconnect); t++ {
		fmt.Fprintf(w, "%s\t%d\t%v\n", packetTypeNames[t], t, t.IsHandshake())
	}
	w.Flush()

	fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CHANNEL MODE\tVALUE\tRELIABLE")
	for m := channel.ModeUnorderedUnreliable; m <= channel.ModeTickBuffered; m++ {
		fmt.Fprintf(w, "%s\t%d\t%v\n", channelModeNames[m], m, m.Reliable())
	}
	w.Flush()
	return nil
}
