package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"graphshift/internal/config"
	"graphshift/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List persisted conversion runs",
	Long: `Runs lists past conversion runs from the results database, newest first.
Requires databasePath to be set in the configuration.

Examples:
  graphshift runs
  graphshift runs --limit 5`,
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")
		root, _ := cmd.Flags().GetString("project")

		cfg, err := config.Load(root)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if cfg.DatabasePath == "" {
			fmt.Fprintln(os.Stderr, "Error: no databasePath configured; runs are not being persisted")
			os.Exit(1)
		}

		db, err := store.Open(cfg.DatabasePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()

		runs, err := db.ListRuns(context.Background(), limit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded yet")
			return
		}

		cyan := color.New(color.FgCyan).SprintFunc()
		fmt.Printf("%-36s  %-19s  %7s  %9s  %s\n", "RUN", "WHEN", "USAGES", "READINESS", "FILES")
		for _, r := range runs {
			fmt.Printf("%-36s  %-19s  %7d  %8.1f%%  %d\n",
				cyan(r.RunID), r.CreatedAt.Format("2006-01-02 15:04:05"),
				r.TotalUsages, r.ReadinessPercent, r.FilesProcessed)
		}
	},
}

func init() {
	runsCmd.Flags().Int("limit", 20, "Maximum number of runs to list")
	runsCmd.Flags().String("project", ".", "Project root whose configuration to use")
	rootCmd.AddCommand(runsCmd)
}
