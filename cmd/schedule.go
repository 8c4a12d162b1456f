package main

import (
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/drivelane/dealersync/internal/config"
	"github.com/drivelane/dealersync/internal/model"
	"github.com/drivelane/dealersync/internal/sweep"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run periodic roster syncs and the nightly lifecycle sweep",
	Long:  "Stays in the foreground, syncing every dealer in the roster file on sync.schedule and sweeping stale listings on sweep.schedule.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		orch := newOrchestrator(st)
		sweeper := sweep.New(st)
		log := zap.L().With(zap.String("component", "scheduler"))

		c := cron.New()

		_, err = c.AddFunc(cfg.Sync.Schedule, func() {
			dealers, err := config.LoadDealers(cfg.Sync.DealersFile)
			if err != nil {
				log.Error("load dealer roster", zap.Error(err))
				return
			}

			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(cfg.Sync.MaxConcurrentDealers)
			for _, dealer := range dealers {
				g.Go(func() error {
					result := orch.SyncDealer(gctx, dealer, model.ModeAuto)
					if !result.OK {
						log.Warn("scheduled sync failed",
							zap.String("dealer_id", dealer.DealerID),
							zap.String("error", result.Error),
						)
					}
					return nil
				})
			}
			_ = g.Wait()
		})
		if err != nil {
			return err
		}

		_, err = c.AddFunc(cfg.Sweep.Schedule, func() {
			result, err := sweeper.Run(ctx, sweep.Options{
				SoldAfterDays:   cfg.Sweep.SoldAfterDays,
				ExpireAfterDays: cfg.Sweep.ExpireAfterDays,
			})
			if err != nil {
				log.Error("scheduled sweep failed", zap.Error(err))
				return
			}
			log.Info("scheduled sweep finished",
				zap.Int("checked", result.Checked),
				zap.Int("sold", result.Sold),
				zap.Int("expired", result.Expired),
			)
		})
		if err != nil {
			return err
		}

		log.Info("scheduler started",
			zap.String("sync_schedule", cfg.Sync.Schedule),
			zap.String("sweep_schedule", cfg.Sweep.Schedule),
		)
		c.Start()
		<-ctx.Done()
		<-c.Stop().Done()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}
