package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var readinessCmd = &cobra.Command{
	Use:   "readiness <path>",
	Short: "Assess how much of a project's EWS surface can be migrated",
	Long: `Readiness scans the project without calling any model backend: it locates
every EWS usage, resolves each against the migration roadmap, and reports
the migratable share broken down by tier and target status.

Examples:
  graphshift readiness ./src
  graphshift readiness ./src --json`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		asJSON, _ := cmd.Flags().GetBool("json")

		env, err := buildEnvironment(args[0], 0, false)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer env.close()

		report, err := env.runner.Readiness(context.Background(), args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()

		fmt.Printf("%s\n", cyan("Migration readiness"))
		fmt.Printf("  Files scanned:    %d (%d with EWS usages)\n", report.TotalFiles, report.FilesWithUsages)
		fmt.Printf("  Usages found:     %d\n", report.TotalUsages)
		fmt.Printf("  Migratable:       %s\n", green(fmt.Sprintf("%.1f%%", report.ReadyPercent)))
		if report.Unmapped > 0 {
			fmt.Printf("  Unmapped:         %s\n", red(fmt.Sprint(report.Unmapped)))
		}

		if len(report.Operations) > 0 {
			fmt.Printf("\n  %-28s %-6s %-10s %s\n", "OPERATION", "TIER", "STATUS", "COUNT")
			for _, op := range report.Operations {
				status := string(op.Status)
				if op.Status.IsGap() {
					status = red(status)
				}
				fmt.Printf("  %-28s %-6d %-10s %d\n", op.DisplayName, op.Tier, status, op.Count)
			}
		}

		if len(report.FileFailures) > 0 {
			yellow := color.New(color.FgYellow).SprintFunc()
			fmt.Printf("\n%s %d file(s) could not be scanned:\n", yellow("⚠"), len(report.FileFailures))
			for _, f := range report.FileFailures {
				fmt.Printf("  %s: %s\n", f.FilePath, f.Error)
			}
		}
	},
}

func init() {
	readinessCmd.Flags().Bool("json", false, "Emit JSON instead of human-readable output")
	rootCmd.AddCommand(readinessCmd)
}
