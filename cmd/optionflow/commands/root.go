package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "optionflow",
	Short: "Optionflow - daily US options chain ingestion",
	Long: `Optionflow Unified CLI

Fetches full option-chain snapshots from Polygon during the US
trading session, scores every contract, and upserts the day's rows
into Postgres.

Usage:
  go run ./cmd/optionflow [command]

Examples:
  go run ./cmd/optionflow api
  go run ./cmd/optionflow collect --symbol SPY
  go run ./cmd/optionflow scheduler start
  go run ./cmd/optionflow migrate`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "development", "environment (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
