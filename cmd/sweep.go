package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/drivelane/dealersync/internal/sweep"
)

var (
	sweepSoldAfter   int
	sweepExpireAfter int
	sweepDryRun      bool
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Age out stale available listings to sold/expired",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if sweepSoldAfter == 0 {
			sweepSoldAfter = cfg.Sweep.SoldAfterDays
		}
		if sweepExpireAfter == 0 {
			sweepExpireAfter = cfg.Sweep.ExpireAfterDays
		}

		result, err := sweep.New(st).Run(ctx, sweep.Options{
			SoldAfterDays:   sweepSoldAfter,
			ExpireAfterDays: sweepExpireAfter,
			DryRun:          sweepDryRun,
		})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	sweepCmd.Flags().IntVar(&sweepSoldAfter, "sold-after", 0, "days unseen before a listing is marked sold (default from config)")
	sweepCmd.Flags().IntVar(&sweepExpireAfter, "expire-after", 0, "days unseen before a listing is marked expired (default from config)")
	sweepCmd.Flags().BoolVar(&sweepDryRun, "dry-run", false, "compute counts without writing")
	rootCmd.AddCommand(sweepCmd)
}
