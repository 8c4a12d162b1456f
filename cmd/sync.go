package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/drivelane/dealersync/internal/config"
	"github.com/drivelane/dealersync/internal/model"
	"github.com/drivelane/dealersync/internal/syncer"
)

var (
	syncDealerID     string
	syncFeedURL      string
	syncInventoryURL string
	syncSitemapURL   string
	syncMode         string
	syncAll          bool
	syncDealersFile  string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync dealer inventory into the listings store",
	Long:  "Syncs a single dealer given its source URLs, or every dealer in the roster file with --all.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		orch := newOrchestrator(st)
		mode := model.SyncMode(syncMode)

		if syncAll {
			return syncRoster(ctx, orch, mode)
		}

		if syncDealerID == "" {
			return eris.New("--dealer-id is required (or use --all)")
		}

		result := orch.SyncDealer(ctx, model.DealerSyncConfig{
			DealerID:     syncDealerID,
			FeedURL:      syncFeedURL,
			InventoryURL: syncInventoryURL,
			SitemapURL:   syncSitemapURL,
		}, mode)

		return printResult(result)
	},
}

// syncRoster syncs every dealer in the roster file, a bounded number at a
// time. One dealer's failure never fails the run; each result is printed.
func syncRoster(ctx context.Context, orch *syncer.Orchestrator, mode model.SyncMode) error {
	path := syncDealersFile
	if path == "" {
		path = cfg.Sync.DealersFile
	}
	dealers, err := config.LoadDealers(path)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Sync.MaxConcurrentDealers)

	results := make([]model.SyncResult, len(dealers))
	for i, dealer := range dealers {
		g.Go(func() error {
			results[i] = orch.SyncDealer(ctx, dealer, mode)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	ok := 0
	for i, r := range results {
		if r.OK {
			ok++
		} else {
			zap.L().Warn("dealer sync failed",
				zap.String("dealer_id", dealers[i].DealerID),
				zap.String("error", r.Error),
			)
		}
	}
	zap.L().Info("roster sync finished", zap.Int("dealers", len(dealers)), zap.Int("ok", ok))
	return nil
}

func printResult(result model.SyncResult) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func init() {
	syncCmd.Flags().StringVar(&syncDealerID, "dealer-id", "", "dealer to sync")
	syncCmd.Flags().StringVar(&syncFeedURL, "feed-url", "", "dealer feed URL (CSV or JSON)")
	syncCmd.Flags().StringVar(&syncInventoryURL, "inventory-url", "", "dealer inventory page URL")
	syncCmd.Flags().StringVar(&syncSitemapURL, "sitemap-url", "", "dealer sitemap URL")
	syncCmd.Flags().StringVar(&syncMode, "mode", "auto", "sync mode: auto, feed, or scrape")
	syncCmd.Flags().BoolVar(&syncAll, "all", false, "sync every dealer in the roster file")
	syncCmd.Flags().StringVar(&syncDealersFile, "file", "", "dealer roster file (defaults to sync.dealers_file)")
	rootCmd.AddCommand(syncCmd)
}
