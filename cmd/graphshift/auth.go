package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var authCmd = &cobra.Command{
	Use:   "auth <file>",
	Short: "Rewrite a file's EWS authentication block to Azure.Identity + GraphServiceClient",
	Long: `Auth converts only the ExchangeService setup block of one source file
(service construction, credentials, endpoint URL) to the Graph SDK's
token-credential pattern. Other EWS call sites are left untouched; run
convert for those. The rewrite is deterministic and needs no API key.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		write, _ := cmd.Flags().GetBool("write")

		env, err := buildEnvironment(args[0], 0, false)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer env.close()

		source, err := os.ReadFile(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		batch, err := env.pipeline.ConvertAuth(context.Background(), args[0], source)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if batch.AuthRewrite == nil {
			fmt.Printf("No EWS authentication block found in %s\n", args[0])
			return
		}

		r := batch.AuthRewrite
		fmt.Printf("%s  auth rewrite  lines %d-%d\n", confidenceBadge(r.Confidence), r.StartLine, r.EndLine)
		for _, e := range r.ValidationErrors {
			fmt.Printf("    %s\n", e)
		}
		if len(batch.MergedImports) > 0 {
			fmt.Printf("  imports: %s\n", strings.Join(batch.MergedImports, " "))
		}
		if batch.UnifiedDiff != "" {
			fmt.Printf("\n%s\n", batch.UnifiedDiff)
		}

		if write && batch.UpdatedSource != "" {
			if err := os.WriteFile(args[0], []byte(batch.UpdatedSource), 0644); err != nil {
				fmt.Fprintf(os.Stderr, "Error: writing %s: %v\n", args[0], err)
				os.Exit(1)
			}
			fmt.Printf("\nWrote %s\n", args[0])
		}
	},
}

func init() {
	authCmd.Flags().Bool("write", false, "Write the rewritten source back to disk")
	rootCmd.AddCommand(authCmd)
}
