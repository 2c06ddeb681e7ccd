// SPDX-License-Identifier: MIT

// Package cli implements the lersgen command line tool for bulk report
// generation across the local vendor server and remote gateway instances.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/1001011000101101/lers-plugins-sub000/internal/log"
	"github.com/1001011000101101/lers-plugins-sub000/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "lersgen",
	Short: "Bulk metering report generation across LERS servers",
	Long: `lersgen generates one report template for every measure point or
building across the local LERS server and any number of remote gateway
instances, then collects the results into a directory or archive.`,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		level, _ := cmd.Flags().GetString("log-level")
		log.Configure(log.Config{Level: level, Service: "lersgen", Version: version.Version})
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().String("history", "", "Path to the batch history database (empty disables history)")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Printf("lersgen %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
	},
}
