package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tunebench/hypertune/internal/hpod"
	"github.com/tunebench/hypertune/internal/mlp"
	"github.com/tunebench/hypertune/pkg/logger"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the experiment HTTP service",
		Long: `serve starts the HTTP API: experiments are created against the
registered objectives, run asynchronously and can be inspected, streamed
and stopped over /v1/experiments.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			httpAddr, _ := cmd.Flags().GetString("http-addr")
			seed, _ := cmd.Flags().GetInt64("dataset-seed")
			samples, _ := cmd.Flags().GetInt("samples")
			features, _ := cmd.Flags().GetInt("features")
			classes, _ := cmd.Flags().GetInt("classes")
			folds, _ := cmd.Flags().GetInt("folds")

			ds, err := mlp.SyntheticClusters(seed, samples, features, classes)
			if err != nil {
				return fmt.Errorf("failed to build dataset: %w", err)
			}

			registry := hpod.NewRegistry()
			if err := registry.Register(hpod.NewFuncProvider("mlp", mlp.Space, mlp.Objective(ds, folds))); err != nil {
				return err
			}

			store := hpod.NewExperimentStore()
			executor := hpod.NewExecutor(store, registry, hpod.NewNotifier())

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			httpSrv := &http.Server{
				Addr:              httpAddr,
				Handler:           hpod.NewHTTPServer(store, registry, executor).Handler(),
				ReadHeaderTimeout: 5 * time.Second,
				IdleTimeout:       120 * time.Second,
				MaxHeaderBytes:    1 << 20,
			}

			go func() {
				logger.Info("HTTP server listening", "addr", httpAddr)
				if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("HTTP server error", "error", err)
					stop()
				}
			}()

			<-ctx.Done()
			logger.Info("shutdown requested")
			stop()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := httpSrv.Shutdown(shutdownCtx); err != nil {
				logger.Error("HTTP shutdown error", "error", err)
			}
			return nil
		},
	}

	cmd.Flags().String("http-addr", ":8080", "HTTP listen address")
	cmd.Flags().Int64("dataset-seed", 0, "Seed for the built-in synthetic dataset")
	cmd.Flags().Int("samples", 600, "Synthetic dataset size")
	cmd.Flags().Int("features", 8, "Synthetic dataset feature count")
	cmd.Flags().Int("classes", 3, "Synthetic dataset class count")
	cmd.Flags().Int("folds", 5, "Cross-validation folds")

	return cmd
}
