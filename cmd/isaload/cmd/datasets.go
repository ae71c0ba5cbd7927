package cmd

import (
	"fmt"

	"github.com/mesdata/isaload/internal/dataset"
	"github.com/mesdata/isaload/internal/report"
	"github.com/spf13/cobra"
)

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "List the built-in dataset levels",
	Long: `Datasets lists every built-in ISA-95 dataset level with its units and
declared references. The registry is compiled in; no config file or
database is needed.

Example:
  isaload datasets`,
	RunE: runDatasets,
}

func init() {
	rootCmd.AddCommand(datasetsCmd)
}

func runDatasets(cmd *cobra.Command, args []string) error {
	if err := dataset.ValidateAll(); err != nil {
		return fmt.Errorf("dataset registry validation failed: %w", err)
	}

	report.NewRenderer(outputWriter).Datasets(dataset.Levels())
	return nil
}
