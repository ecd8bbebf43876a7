// naiactl is the devtool CLI bundled with naia: wire-level packet
// inspection, a reference table of the built-in packet/channel
// constants, and a link-conditioner harness for exercising the
// transport package's simulated network conditions. Grounded on the
// teacher's cmd/sage-crypto layout: a package-var rootCmd in main.go,
// each subcommand in its own file registering itself via init().
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "naiactl",
	Short: "naia devtool CLI",
	Long: `naiactl bundles small operational tools for working with a naia
deployment: decoding raw wire datagrams, printing the built-in packet
type and channel mode reference tables, and running a link-conditioner
harness to see how a given network profile affects message delivery.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env is not an error — naiactl runs fine from a
		// bare environment or flags alone.
		_ = godotenv.Load()
		return nil
	},
}

func main() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
