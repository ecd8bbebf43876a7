package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/naia-go/naia/packet"
	"github.com/naia-go/naia/wire"
	"github.com/spf13/cobra"
)

var wireDumpFile string

var wireCmd = &cobra.Command{
	Use:   "wire",
	Short: "Inspect raw wire datagrams",
}

var wireDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Decode a hex-encoded datagram's fixed header",
	Long: `dump decodes the fixed packet header of a single hex-encoded
datagram (§4.2) and prints its fields, plus a hex dump of the channel
blocks that follow. The blocks themselves aren't decoded here — which
channel Kind maps to which mode is a property of the application's own
protocol.Protocol registration, which naiactl has no access to.`,
	Example: `  naiactl wire dump --file packet.hex
  echo -n "00..." | naiactl wire dump`,
	RunE: runWireDump,
}

func init() {
	rootCmd.AddCommand(wireCmd)
	wireCmd.AddCommand(wireDumpCmd)
	wireDumpCmd.Flags().StringVarP(&wireDumpFile, "file", "f", "", "file containing a hex-encoded datagram (reads stdin if omitted)")
}

func runWireDump(cmd *cobra.Command, args []string) error {
	var raw []byte
	var err error
	if wireDumpFile != "" {
		raw, err = os.ReadFile(wireDumpFile)
	} else {
		raw, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	decoded, err := hex.DecodeString(trimHex(raw))
	if err != nil {
		return fmt.Errorf("decode hex: %w", err)
	}

	header, body, err := packet.ParseDatagram(decoded)
	if err != nil {
		return fmt.Errorf("parse datagram: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "type:                %s\n", typeName(header.Type))
	fmt.Fprintf(cmd.OutOrStdout(), "sender_packet_index: %d\n", header.SenderPacketIndex)
	fmt.Fprintf(cmd.OutOrStdout(), "sender_last_ack:     %d\n", header.SenderLastAck)
	fmt.Fprintf(cmd.OutOrStdout(), "sender_ack_bitfield: %032b\n", header.SenderAckBitfield)
	if header.HasTick {
		fmt.Fprintf(cmd.OutOrStdout(), "tick:                %d\n", header.Tick)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "body bytes:          %d\n", len(body))
	if len(body) > 0 {
		if firstKind, err := wire.NewReader(body).PeekU16(); err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "leading channel kind tag: %d\n", firstKind)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", hex.Dump(body))
	}
	return nil
}

func trimHex(b []byte) string {
	out := make([]byte, 0, len(b))
	for _, c := range b {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
			out = append(out, c)
		}
	}
	return string(out)
}
