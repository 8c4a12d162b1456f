package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/drivelane/dealersync/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "dealersync",
	Short: "Dealer inventory synchronization for the marketplace",
	Long:  "Pulls dealer car inventory from CSV/JSON feeds or site scrapes (sitemap + JSON-LD), normalizes it into canonical listings, and ages out stale stock.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
