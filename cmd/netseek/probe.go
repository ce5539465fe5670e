package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/netseek/netseek/internal/config"
	"github.com/netseek/netseek/internal/sweep"
	"github.com/netseek/netseek/pkg/netaddr"
)

func init() {
	probeCmd.Flags().IntVar(&scanPort, "port", 0, "probe port (default from config)")
	probeCmd.Flags().DurationVar(&scanTimeout, "timeout", 0, "probe timeout (default from config)")
	rootCmd.AddCommand(probeCmd)
}

var probeCmd = &cobra.Command{
	Use:   "probe <address>",
	Short: "Check a single address for a running instance",
	Args:  cobra.ExactArgs(1),
	Example: `  netseek probe 192.168.1.42
  netseek probe 10.0.0.7 --port 8734`,
	RunE: runProbe,
}

func runProbe(cmd *cobra.Command, args []string) error {
	address := args[0]
	if _, err := netaddr.ParseIPv4(address); err != nil {
		return fmt.Errorf("invalid IPv4 address %q", address)
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

	checker := sweep.NewHTTPChecker(scanPort, scanTimeout)
	if checker.Check(cmd.Context(), address) {
		fmt.Printf("%s is a running instance\n", address)
		return nil
	}
	fmt.Printf("%s did not answer as a running instance\n", address)
	return nil
}
