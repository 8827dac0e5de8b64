package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the graphshift version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("graphshift %s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
