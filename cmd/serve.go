package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/drivelane/dealersync/internal/model"
	"github.com/drivelane/dealersync/internal/sweep"
	"github.com/drivelane/dealersync/internal/syncer"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for sync and sweep triggers",
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

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST"},
		}))

		r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
		r.Post("/v1/sync", handleSync(orch))
		r.Post("/v1/sweep", handleSweep(sweeper))

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("http server listening", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

// handleSync runs one dealer sync from a JSON body carrying the dealer's
// sync configuration and an optional mode hint.
func handleSync(orch *syncer.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			model.DealerSyncConfig
			Mode model.SyncMode `json:"mode"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if req.DealerID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "dealer_id is required"})
			return
		}

		result := orch.SyncDealer(r.Context(), req.DealerSyncConfig, req.Mode)
		writeJSON(w, http.StatusOK, result)
	}
}

// handleSweep runs a lifecycle sweep; thresholds and dry_run come from the
// body, defaults from config.
func handleSweep(sweeper *sweep.Sweeper) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			SoldAfterDays   int  `json:"sold_after_days"`
			ExpireAfterDays int  `json:"expire_after_days"`
			DryRun          bool `json:"dry_run"`
		}
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
				return
			}
		}
		if req.SoldAfterDays == 0 {
			req.SoldAfterDays = cfg.Sweep.SoldAfterDays
		}
		if req.ExpireAfterDays == 0 {
			req.ExpireAfterDays = cfg.Sweep.ExpireAfterDays
		}

		result, err := sweeper.Run(r.Context(), sweep.Options{
			SoldAfterDays:   req.SoldAfterDays,
			ExpireAfterDays: req.ExpireAfterDays,
			DryRun:          req.DryRun,
		})
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (defaults to server.port)")
	rootCmd.AddCommand(serveCmd)
}
