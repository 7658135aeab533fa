// Package cli implements the volley command tree.
package cli

import (
	"github.com/spf13/cobra"
)

var version = "0.1.0"

// RootCmd is the base command when called without any subcommands.
var RootCmd = &cobra.Command{
	Use:     "volley",
	Short:   "API load testing with staged ramps, checks, and thresholds",
	Version: version,
	Long: `Volley runs staged load tests against a registered environment,
records latency and error metrics per endpoint, evaluates threshold
conditions, and reports a pass/fail verdict suitable for CI pipelines.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	RootCmd.AddCommand(runCmd)
	RootCmd.AddCommand(envCmd)
}
