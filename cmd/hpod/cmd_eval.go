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
	"github.com/tunebench/hypertune/internal/space"
	"github.com/tunebench/hypertune/pkg/config"
)

func newEvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate a single configuration at a given budget",
		Long: `eval runs the classifier objective once for a configuration and
prints the resulting cost. Without --config the space's default
configuration is evaluated.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			scenarioPath, _ := cmd.Flags().GetString("scenario")
			spacePath, _ := cmd.Flags().GetString("space")
			configJSON, _ := cmd.Flags().GetString("config")
			budget, _ := cmd.Flags().GetFloat64("budget")
			seed, _ := cmd.Flags().GetInt64("seed")
			folds, _ := cmd.Flags().GetInt("folds")
			samples, _ := cmd.Flags().GetInt("samples")
			features, _ := cmd.Flags().GetInt("features")
			classes, _ := cmd.Flags().GetInt("classes")
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

			cfg := sp.DefaultConfiguration()
			if configJSON != "" {
				cfg = space.Configuration{}
				if err := json.Unmarshal([]byte(configJSON), &cfg); err != nil {
					return fmt.Errorf("invalid --config JSON: %w", err)
				}
			}

			if budget <= 0 {
				budget = scenario.Intensifier.MaxBudget
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

			res, err := facade.Evaluate(ctx, cfg, budget)
			if err != nil {
				return err
			}

			if jsonOut {
				return json.NewEncoder(os.Stdout).Encode(map[string]any{
					"config":     cfg,
					"budget":     budget,
					"status":     res.Status,
					"cost":       res.Cost,
					"runtime_ms": res.Runtime.Milliseconds(),
					"error":      res.Error,
				})
			}

			fmt.Printf("Config: %s\n", cfg.Key())
			fmt.Printf("Status: %s\n", res.Status)
			fmt.Printf("Cost: %.4f (budget %.0f, runtime %s)\n", res.Cost, budget, res.Runtime)
			return nil
		},
	}

	cmd.Flags().String("scenario", "", "Scenario YAML file (defaults to built-in settings)")
	cmd.Flags().String("space", "", "Parameter space YAML file (defaults to the classifier space)")
	cmd.Flags().String("config", "", "Configuration to evaluate, as JSON (defaults to the space default)")
	cmd.Flags().Float64("budget", 0, "Evaluation budget in epochs (defaults to the maximum budget)")
	cmd.Flags().Int64("seed", 0, "Random seed")
	cmd.Flags().Int("folds", 5, "Cross-validation folds")
	cmd.Flags().Int("samples", 600, "Synthetic dataset size")
	cmd.Flags().Int("features", 8, "Synthetic dataset feature count")
	cmd.Flags().Int("classes", 3, "Synthetic dataset class count")

	return cmd
}
