package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tunebench/hypertune/internal/runhistory"
)

func newTrialsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trials",
		Short: "List persisted trials from a run-history database",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath, _ := cmd.Flags().GetString("db")
			experimentID, _ := cmd.Flags().GetString("experiment")
			limit, _ := cmd.Flags().GetInt("limit")
			incumbentsOnly, _ := cmd.Flags().GetBool("incumbents")
			jsonOut, _ := cmd.Flags().GetBool("json")

			if dbPath == "" {
				return fmt.Errorf("--db is required")
			}

			store, err := runhistory.OpenSQLite(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			var trials []*runhistory.Trial
			if incumbentsOnly {
				if experimentID == "" {
					return fmt.Errorf("--incumbents requires --experiment")
				}
				trials, err = store.Incumbents(cmd.Context(), experimentID)
			} else {
				trials, err = store.List(cmd.Context(), experimentID, limit)
			}
			if err != nil {
				return err
			}

			if jsonOut {
				return json.NewEncoder(os.Stdout).Encode(map[string]any{
					"trials": trials,
					"count":  len(trials),
				})
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TRIAL\tSTATUS\tBUDGET\tCOST\tINCUMBENT\tCONFIG")
			for _, t := range trials {
				marker := ""
				if t.Incumbent {
					marker = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%.0f\t%.4f\t%s\t%s\n",
					t.ID, t.Status, t.Budget, t.Cost, marker, t.ConfigKey)
			}
			return w.Flush()
		},
	}

	cmd.Flags().String("db", "", "Path to the run-history SQLite file")
	cmd.Flags().String("experiment", "", "Filter by experiment ID")
	cmd.Flags().Int("limit", 50, "Maximum trials to list")
	cmd.Flags().Bool("incumbents", false, "Show only the incumbent trajectory")

	return cmd
}
