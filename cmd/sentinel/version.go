package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/sentinel/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build metadata",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "sentinel "+version.String())
	},
}
