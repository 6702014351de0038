// Package cmd provides the CLI commands for schemagate.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "schemagate",
	Short: "schemagate - JSON Schema request validation gate",
	Long: `schemagate validates JSON payloads against JSON Schema documents.

It checks every schema when it is loaded, rejects requests whose payload
does not conform and lists the violations ordered by document path.

Configuration:
  Config is loaded from the file given with --config or $SCHEMAGATE_CONFIG.
  Environment variables override config values with the SCHEMAGATE_ prefix.
  Example: SCHEMAGATE_SERVER_ADDR=0.0.0.0:9090

Commands:
  serve       Serve one validation route per schema
  check       Check schema files without starting the server
  validate    Validate documents against a schema
  version     Print version information`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $SCHEMAGATE_CONFIG)")
}
