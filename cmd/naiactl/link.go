package main

import (
	"fmt"
	"time"

	"github.com/naia-go/naia/config"
	"github.com/naia-go/naia/transport"
	"github.com/spf13/cobra"
)

var (
	linkPreset string
	linkCount  int
)

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Run a link-conditioner harness",
	Long: `link stands up two in-memory transport.Endpoint peers over a
transport.Conditioner configured with the given network profile, sends
a batch of test datagrams across it, and reports how many arrived
within the profile's latency plus jitter plus two seconds (§6: simulated latency/jitter/loss for
testing without a real socket).

"custom" reads latency/jitter/drop-rate from the loaded naia
configuration's link section (see naiactl's .env / config file) rather
than from a canned preset.`,
	Example: `  naiactl link --preset poor --count 200
  naiactl link --preset custom`,
	RunE: runLink,
}

func init() {
	rootCmd.AddCommand(linkCmd)
	linkCmd.Flags().StringVarP(&linkPreset, "preset", "p", "average", "perfect|good|average|poor|custom")
	linkCmd.Flags().IntVarP(&linkCount, "count", "n", 100, "number of datagrams to send")
}

func presetConfig(name string) (transport.ConditionerConfig, error) {
	switch name {
	case "perfect":
		return transport.PerfectCondition(), nil
	case "good":
		return transport.GoodCondition(), nil
	case "average":
		return transport.AverageCondition(), nil
	case "poor":
		return transport.PoorCondition(), nil
	case "custom":
		cfg, err := config.Load()
		if err != nil {
			return transport.ConditionerConfig{}, fmt.Errorf("load config for custom preset: %w", err)
		}
		if !cfg.Link.Enabled {
			return transport.ConditionerConfig{}, fmt.Errorf("custom preset requires link.enabled: true in the loaded configuration")
		}
		return transport.ConditionerConfig{
			Latency: cfg.Link.LatencyMean,
			Jitter:  cfg.Link.Jitter,
			Loss:    cfg.Link.DropRate,
		}, nil
	default:
		return transport.ConditionerConfig{}, fmt.Errorf("unknown preset %q: want perfect|good|average|poor|custom", name)
	}
}

func runLink(cmd *cobra.Command, args []string) error {
	condCfg, err := presetConfig(linkPreset)
	if err != nil {
		return err
	}

	cond := transport.NewConditioner(condCfg, time.Now().UnixNano(), nil)
	cond.Link("client", "server")
	client := transport.NewEndpoint(cond, "client")
	server := transport.NewEndpoint(cond, "server")

	for i := 0; i < linkCount; i++ {
		if err := client.Send([]byte(fmt.Sprintf("probe-%d", i))); err != nil {
			return fmt.Errorf("send probe %d: %w", i, err)
		}
	}

	deadline := time.Now().Add(condCfg.Latency + condCfg.Jitter + 2*time.Second)
	received := 0
	for received < linkCount && time.Now().Before(deadline) {
		if _, ok, recvErr := server.Recv(); recvErr != nil {
			return recvErr
		} else if ok {
			received++
		} else {
			time.Sleep(5 * time.Millisecond)
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "preset:    %s\n", linkPreset)
	fmt.Fprintf(out, "latency:   %s +/- %s\n", condCfg.Latency, condCfg.Jitter)
	fmt.Fprintf(out, "sent:      %d\n", linkCount)
	fmt.Fprintf(out, "received:  %d\n", received)
	if linkCount > 0 {
		fmt.Fprintf(out, "loss rate: %.1f%% (configured %.1f%%)\n",
			100*float64(linkCount-received)/float64(linkCount), 100*condCfg.Loss)
	}
	return nil
}
