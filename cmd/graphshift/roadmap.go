package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"graphshift/internal/kb"
	"graphshift/internal/types"
)

var roadmapCmd = &cobra.Command{
	Use:   "roadmap [operation]",
	Short: "Show the EWS-to-Graph migration roadmap",
	Long: `Roadmap lists every operation the tool knows how to migrate, or shows the
full mapping for one operation. The operation may be given as the EWS SOAP
operation, the managed SDK method, or the fully qualified API name.

Examples:
  graphshift roadmap
  graphshift roadmap FindItems
  graphshift roadmap Microsoft.Exchange.WebServices.Data.ExchangeService.Bind`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		roadmapPath, _ := cmd.Flags().GetString("roadmap")
		asJSON, _ := cmd.Flags().GetBool("json")

		roadmap, err := kb.Load(roadmapPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if len(args) == 1 {
			entry := lookupAnyKey(roadmap, args[0])
			if entry == nil {
				fmt.Fprintf(os.Stderr, "Error: no roadmap entry for %q\n", args[0])
				os.Exit(1)
			}
			if asJSON {
				printJSON(entry)
				return
			}
			printEntry(entry)
			return
		}

		if asJSON {
			printJSON(roadmap.Entries())
			return
		}
		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		fmt.Printf("%s (%d operations)\n\n", cyan("Migration roadmap"), roadmap.Len())
		fmt.Printf("%-28s %-6s %-10s %s\n", "OPERATION", "TIER", "STATUS", "GRAPH API")
		for _, e := range roadmap.Entries() {
			status := string(e.Status)
			if e.Status.IsGap() {
				status = color.RedString(status)
			}
			fmt.Printf("%-28s %-6d %-10s %s\n", e.DisplayName, e.Tier, status, e.GraphAPI)
		}
	},
}

// lookupAnyKey tries the three roadmap indexes in turn.
func lookupAnyKey(roadmap *kb.Accessor, key string) *types.RoadmapEntry {
	for _, kind := range []kb.KeyKind{kb.KeyQualifiedName, kb.KeySDKMethod, kb.KeyProtocolOperation} {
		if e, ok := roadmap.Lookup(key, kind); ok {
			return e
		}
	}
	return nil
}

func printEntry(e *types.RoadmapEntry) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()

	fmt.Printf("%s\n", cyan(e.DisplayName))
	fmt.Printf("  Qualified name:  %s\n", e.QualifiedName)
	fmt.Printf("  Protocol op:     %s\n", e.ProtocolOperation)
	fmt.Printf("  Tier:            %d\n", e.Tier)
	fmt.Printf("  Status:          %s\n", e.Status)
	if e.GraphAPI != "" {
		fmt.Printf("  Graph API:       %s\n", e.GraphAPI)
	}
	if e.GraphSDKCall != "" {
		fmt.Printf("  SDK call:        %s\n", e.GraphSDKCall)
	}
	if e.RequiredPackage != "" {
		fmt.Printf("  NuGet package:   %s\n", e.RequiredPackage)
	}
	for _, imp := range e.RequiredImports {
		fmt.Printf("  Import:          %s\n", imp)
	}
	if e.DocURL != "" {
		fmt.Printf("  Docs:            %s\n", e.DocURL)
	}
	if e.Guidance != "" {
		fmt.Printf("\n  %s\n", e.Guidance)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	roadmapCmd.Flags().String("roadmap", "", "Path to a roadmap YAML overriding the built-in one")
	roadmapCmd.Flags().Bool("json", false, "Emit JSON instead of human-readable output")
	rootCmd.AddCommand(roadmapCmd)
}
