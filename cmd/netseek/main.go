// Netseek finds running NetSeek instances on the local network.
//
// The serve command runs the full HTTP server with the sweep, watch,
// instances, and ws modules. The scan command performs a one-shot subnet
// sweep from the terminal.
//
// Usage:
//
//	netseek [command] [flags]
//
// See 'netseek --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/netseek/netseek/internal/version"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "netseek",
	Short:   "NetSeek local network instance discovery",
	Long:    `NetSeek discovers running NetSeek instances on the local network by probing every usable address in the device's subnet.`,
	Version: version.Version,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to configuration file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Info())
	},
}
