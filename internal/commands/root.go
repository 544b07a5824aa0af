package commands

import (
	"github.com/spf13/cobra"
)

var (
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "asset-pulse",
	Short: "Personal Asset Tracker",
	Long: `A personal asset tracker backend built with Go, covering stocks and
cryptocurrencies with live price refresh.

Features:
• Asset catalog with favorites (stocks and crypto)
• Live prices via CoinGecko, Alpha Vantage and Yahoo Finance
• Daily rate budget with automatic fallback providers
• Price caching to keep provider calls within free-tier limits
• Optional NATS price update events`,
	Version: "1.0.0",
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
