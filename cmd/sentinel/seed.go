package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the bundled demo incidents into the slice bank",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		n, err := a.slices.Seed(a.baseContext(cmd.Context()))
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		a.logger.Info("Demo slices seeded", zap.Int("count", n))
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d slices\n", n)
		return nil
	},
}
