package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/netseek/netseek/internal/config"
	"github.com/netseek/netseek/internal/event"
	"github.com/netseek/netseek/internal/netinfo"
	"github.com/netseek/netseek/internal/sweep"
	"github.com/netseek/netseek/pkg/plugin"
)

var (
	scanPort    int
	scanTimeout time.Duration
	scanBatch   int
	scanVerbose bool
)

func init() {
	scanCmd.Flags().IntVar(&scanPort, "port", 0, "probe port (default from config)")
	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", 0, "per-probe timeout (default from config)")
	scanCmd.Flags().IntVar(&scanBatch, "batch", 0, "probes in flight at once (default from config)")
	scanCmd.Flags().BoolVar(&scanVerbose, "verbose", false, "log probe details")
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Sweep the local subnet for running instances",
	Long: `Sweep every usable address in the device's subnet and report which
hosts answer as a running NetSeek instance.`,
	Example: `  # Sweep with config defaults
  netseek scan

  # Probe a non-standard port with a longer timeout
  netseek scan --port 8734 --timeout 5s`,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	logger := zap.NewNop()
	if scanVerbose {
		var err error
		if logger, err = zap.NewDevelopment(); err != nil {
			return fmt.Errorf("create logger: %w", err)
		}
		defer logger.Sync()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if scanPort == 0 {
		scanPort = cfg.GetInt("modules.sweep.probe_port")
	}
	if scanTimeout == 0 {
		scanTimeout = cfg.GetDuration("modules.sweep.probe_timeout")
	}
	if scanBatch == 0 {
		scanBatch = cfg.GetInt("modules.sweep.batch_size")
	}

	bus := event.NewBus(logger)
	unsubscribe := bus.SubscribeAll(printScanEvent)
	defer unsubscribe()

	scanner := sweep.NewScanner(
		sweep.NewHTTPChecker(scanPort, scanTimeout),
		netinfo.NewDetector(),
		bus,
		logger,
		nil,
		scanBatch,
	)

	matches, err := scanner.Run(cmd.Context())
	if err != nil {
		switch {
		case errors.Is(err, netinfo.ErrUnavailable):
			return errors.New("local network scanning unavailable: no network interfaces found")
		case errors.Is(err, netinfo.ErrNoAddress):
			return errors.New("cannot determine this device's IPv4 address")
		default:
			return fmt.Errorf("error scanning network: %w", err)
		}
	}

	fmt.Println()
	if len(matches) == 0 {
		fmt.Println("No instances found. Try entering an address manually with 'netseek probe'.")
		return nil
	}
	fmt.Printf("Found %d instance(s):\n", len(matches))
	for _, match := range matches {
		fmt.Printf("  %-12s http://%s\n", match.Label, match.Address)
	}
	return nil
}

// printScanEvent renders bus events as terminal progress. Events arrive
// in publish order; progress redraws in place.
func printScanEvent(_ context.Context, e plugin.Event) {
	switch payload := e.Payload.(type) {
	case sweep.ScanStartedEvent:
		fmt.Printf("Scanning %s/%d (%d hosts, port %d)\n", payload.IP, payload.Prefix, payload.Total, scanPort)
	case sweep.ScanProgressEvent:
		fmt.Printf("\r%3d%% (%d/%d)", payload.Percent, payload.Processed, payload.Total)
	case sweep.InstanceFoundEvent:
		fmt.Printf("\r  %s at %s\n", payload.Match.Label, payload.Match.Address)
	case sweep.ScanErrorEvent:
		fmt.Printf("\rscan failed: %s\n", payload.Error)
	}
}
