package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Abhay-hack/Asset-Pulse/internal/app"
	"github.com/Abhay-hack/Asset-Pulse/pkg/config"
	"github.com/Abhay-hack/Asset-Pulse/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	refreshTimeout time.Duration
)

var refreshCmd = &cobra.Command{
	Use:   "refresh [symbols...]",
	Short: "Force a one-shot price refresh",
	Long: `Fetch live prices for tracked assets and store them.

The refresh bypasses the price cache and walks the full provider chain:
CoinGecko for crypto, Alpha Vantage with Yahoo Finance fallback for
equities. Equity calls are paced and counted against the daily budget.

Examples:
  asset-pulse refresh                 # Refresh all assets
  asset-pulse refresh BTC AAPL        # Refresh selected symbols only
  asset-pulse refresh --timeout 10m   # Allow more time for large catalogs`,
	RunE: runRefresh,
}

func init() {
	refreshCmd.Flags().DurationVar(&refreshTimeout, "timeout", 5*time.Minute, "Overall refresh deadline")
	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, args []string) error {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Printf("Note: .env file not loaded: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, _ := logger.New(&cfg.Logging)

	application := app.New(cfg, log)
	if err := application.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer application.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	assets, err := application.Store().ListAssets(ctx)
	if err != nil {
		return fmt.Errorf("failed to list assets: %w", err)
	}

	if len(args) > 0 {
		wanted := make(map[string]bool, len(args))
		for _, symbol := range args {
			wanted[strings.ToUpper(symbol)] = true
		}

		filtered := assets[:0]
		for _, asset := range assets {
			if wanted[asset.Symbol] {
				filtered = append(filtered, asset)
			}
		}
		assets = filtered
	}

	if len(assets) == 0 {
		fmt.Println("No assets to refresh")
		return nil
	}

	fmt.Printf("Refreshing %d asset(s)...\n\n", len(assets))

	prices, err := application.Refresher().PriceBatch(ctx, assets, true)

	for _, asset := range assets {
		price, ok := prices[asset.Symbol]
		if !ok {
			fmt.Printf("  %-12s (no price)\n", asset.Symbol)
			continue
		}
		fmt.Printf("  %-12s ₹%.2f\n", asset.Symbol, price)
	}

	if err != nil {
		return fmt.Errorf("refresh incomplete: %w", err)
	}

	fmt.Printf("\n✅ Refreshed %d asset(s)\n", len(prices))
	return nil
}
