// sentinel is the incident analysis service: hybrid retrieval over past
// incidents plus a three-stage agent pipeline that drafts a runbook.
//
// Usage:
//
//	sentinel serve
//	sentinel seed
//	sentinel analyze "<symptoms>" [--domain=<domain>] [--top-k=<n>]
//	sentinel version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/sentinel/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "sentinel",
	Short: "Hybrid incident retrieval and remediation pipeline",
	Long: "sentinel matches new incident symptoms against a bank of past incidents\n" +
		"(BM25 + vector search fused by RRF) and drafts a root cause and runbook.",
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.Version = version.Version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
