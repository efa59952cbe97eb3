package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tunebench/hypertune/pkg/logger"
)

var version = "0.1.0-dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "hpod",
		Short: "Hyperparameter optimization daemon and CLI",
		Long: `hpod tunes hyperparameters against budgeted objectives.

It evaluates a default configuration, searches the parameter space with
budget-ladder intensification and reports the incumbent, either as a
one-shot CLI run or as a long-running HTTP service.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level, _ := cmd.Flags().GetString("log-level")
			logger.SetDefault(logger.NewText(level, os.Stderr))
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")

	rootCmd.AddCommand(
		newVersionCmd(),
		newOptimizeCmd(),
		newEvalCmd(),
		newServeCmd(),
		newTrialsCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				json.NewEncoder(os.Stdout).Encode(map[string]string{"version": version})
			} else {
				fmt.Printf("hpod version %s\n", version)
			}
		},
	}
}
