package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/sentinel/internal/domain/analysis"
	chiTransport "github.com/kailas-cloud/sentinel/internal/transport/chi"
)

var (
	analyzeDomain string
	analyzeTopK   int
)

var analyzeCmd = &cobra.Command{
	Use:   `analyze "<symptoms>"`,
	Short: "Run the analysis pipeline once and print the run as JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeDomain, "domain", "", "restrict retrieval to one domain")
	analyzeCmd.Flags().IntVar(&analyzeTopK, "top-k", analysis.DefaultTopK, "number of matches to retrieve (1-20)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	req, err := analysis.NewRequest(strings.Join(args, " "), analyzeDomain, analyzeTopK)
	if err != nil {
		return err //nolint:wrapcheck // validation message is user-facing
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	run, err := a.orchestrator.Analyze(a.baseContext(cmd.Context()), req)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(chiTransport.NewAnalyzeResponse(run)) //nolint:wrapcheck // stdout write
}
