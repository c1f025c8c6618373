// pgsource: PostgreSQL bulk-read source for heterogeneous data federation
// SPDX-License-Identifier: MIT

package main

import (
	"github.com/spf13/cobra"

	"github.com/dataxfer/pgsource/internal/version"
)

var rootCmd = &cobra.Command{
	Use:           "pgxtract",
	Short:         "Bulk-read a PostgreSQL query to stdout",
	Long:          "pgxtract drives a pgsource.Source over one or more partitioned queries and streams the decoded rows to stdout as CSV or newline-delimited JSON.",
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       version.Info().Version,
	RunE:          runExtract,
}

func init() {
	// Flags are informational only; internal/config.Load reads os.Args
	// directly (viper+pflag, matching the rest of the config surface) so
	// the actual values always come from there, not from cobra's parse.
	rootCmd.Flags().String("dsn", "", "PostgreSQL DSN (postgres://…), or pass as a positional argument")
	rootCmd.Flags().String("query", "", "SQL query to read")
	rootCmd.Flags().StringSlice("partitions", nil, "Per-partition SQL overrides (repeatable)")
	rootCmd.Flags().String("protocol", "binary", "Wire protocol: binary|csv|cursor")
	rootCmd.Flags().Int("nconn", 4, "Pool size / number of concurrent partitions")
	rootCmd.Flags().String("output", "csv", "Output format: csv|json")
	rootCmd.Flags().String("log_level", "info", "Log level")
	rootCmd.Flags().StringP("config", "c", "", "Config file path (yaml|json|toml)")
}
