package commands

import (
	"github.com/spf13/cobra"
)

var verbose bool

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "screener",
	Short: "Historical-high stock screener",
	Long: `Screener finds equities trading furthest below their historical
high across the S&P 500 and STOXX Europe 600 universes.

Usage:
  go run ./cmd/screener [command]

Examples:
  go run ./cmd/screener migrate
  go run ./cmd/screener ingest --type all
  go run ./cmd/screener screen --threshold 40
  go run ./cmd/screener api`,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
