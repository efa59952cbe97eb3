package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tunebench/hypertune/internal/hpo"
	"github.com/tunebench/hypertune/internal/mlp"
	"github.com/tunebench/hypertune/internal/runhistory"
	"github.com/tunebench/hypertune/internal/space"
	"github.com/tunebench/hypertune/internal/tae"
	"github.com/tunebench/hypertune/pkg/config"
	"github.com/tunebench/hypertune/pkg/logger"
)

func newOptimizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Tune the classifier objective and report the incumbent",
		Long: `optimize evaluates the default configuration at the maximum budget,
searches the parameter space and prints the incumbent configuration with
its cost. Interrupting the search keeps the best incumbent found so far.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			scenarioPath, _ := cmd.Flags().GetString("scenario")
			spacePath, _ := cmd.Flags().GetString("space")
			seed, _ := cmd.Flags().GetInt64("seed")
			folds, _ := cmd.Flags().GetInt("folds")
			samples, _ := cmd.Flags().GetInt("samples")
			features, _ := cmd.Flags().GetInt("features")
			classes, _ := cmd.Flags().GetInt("classes")
			historyDB, _ := cmd.Flags().GetString("history-db")
			jsonOut, _ := cmd.Flags().GetBool("json")

			scenario := config.DefaultScenario()
			if scenarioPath != "" {
				loaded, err := config.LoadScenario(scenarioPath)
				if err != nil {
					return err
				}
				if loaded.Intensifier == nil {
					loaded.Intensifier = scenario.Intensifier
				}
				scenario = loaded
			}

			sp, err := loadSpace(spacePath)
			if err != nil {
				return err
			}

			ds, err := mlp.SyntheticClusters(seed, samples, features, classes)
			if err != nil {
				return fmt.Errorf("failed to build dataset: %w", err)
			}

			facade, err := hpo.New(scenario, sp, mlp.Objective(ds, folds), seed)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			defaultRes, err := facade.EvaluateDefault(ctx)
			if err != nil {
				return fmt.Errorf("default evaluation failed: %w", err)
			}
			if !jsonOut {
				fmt.Printf("Default cost: %.4f\n", defaultRes.Cost)
			}

			incumbent, err := facade.Optimize(ctx)
			if err != nil {
				return err
			}

			// Confirm the incumbent at the full budget
			_, finalCost, _ := facade.Incumbent()
			if finalRes, err := facade.Evaluate(ctx, incumbent, scenario.Intensifier.MaxBudget); err == nil && finalRes.Status == tae.StatusSuccess {
				finalCost = finalRes.Cost
			}

			if historyDB != "" {
				if err := persistHistory(cmd.Context(), historyDB, facade); err != nil {
					logger.Warn("failed to persist run history", "path", historyDB, "error", err)
				}
			}

			if jsonOut {
				return json.NewEncoder(os.Stdout).Encode(map[string]any{
					"experiment_id":  facade.ExperimentID(),
					"default_cost":   defaultRes.Cost,
					"incumbent":      incumbent,
					"incumbent_cost": finalCost,
					"trials":         facade.History().Len(),
				})
			}

			fmt.Printf("Incumbent: %s\n", incumbent.Key())
			fmt.Printf("Incumbent cost: %.4f\n", finalCost)
			fmt.Printf("Trials: %d\n", facade.History().Len())
			return nil
		},
	}

	cmd.Flags().String("scenario", "", "Scenario YAML file (defaults to built-in settings)")
	cmd.Flags().String("space", "", "Parameter space YAML file (defaults to the classifier space)")
	cmd.Flags().Int64("seed", 0, "Random seed")
	cmd.Flags().Int("folds", 5, "Cross-validation folds")
	cmd.Flags().Int("samples", 600, "Synthetic dataset size")
	cmd.Flags().Int("features", 8, "Synthetic dataset feature count")
	cmd.Flags().Int("classes", 3, "Synthetic dataset class count")
	cmd.Flags().String("history-db", "", "SQLite file to persist the trial history")

	return cmd
}

func loadSpace(path string) (*space.Space, error) {
	if path == "" {
		return mlp.Space()
	}
	return space.Load(path)
}

func persistHistory(ctx context.Context, path string, facade *hpo.Facade) error {
	store, err := runhistory.OpenSQLite(path)
	if err != nil {
		return err
	}
	defer store.Close()

	history := facade.History()
	for _, trial := range history.List(history.Len(), 0) {
		if err := store.Save(ctx, trial); err != nil {
			return err
		}
	}
	return nil
}
