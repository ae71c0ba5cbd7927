package cmd

import (
	"context"
	"fmt"

	"github.com/mesdata/isaload/internal/config"
	"github.com/mesdata/isaload/internal/dataset"
	"github.com/mesdata/isaload/internal/loader"
	"github.com/mesdata/isaload/internal/logger"
	"github.com/mesdata/isaload/internal/report"
	"github.com/spf13/cobra"
)

var dryrunLevel int

var dryrunCmd = &cobra.Command{
	Use:   "dryrun",
	Short: "Size a load without touching the database",
	Long: `Dryrun resolves every CSV artifact of one dataset level, counts its data
rows and bytes, and prints the load plan. The sink database is never
contacted.

The dryrun shows:
  - Load order (parent relations first)
  - Per-unit row and byte estimates
  - Missing source files, which a load would skip

Example:
  isaload dryrun --config isaload.yaml --level 2`,
	RunE: runDryrun,
}

func init() {
	dryrunCmd.Flags().IntVarP(&dryrunLevel, "level", "l", 0,
		"Dataset level to size, 1-4 (required)")
	dryrunCmd.MarkFlagRequired("level")

	rootCmd.AddCommand(dryrunCmd)
}

func runDryrun(cmd *cobra.Command, args []string) error {
	// Validate the compiled-in registry before touching anything else
	if err := dataset.ValidateAll(); err != nil {
		return fmt.Errorf("dataset registry validation failed: %w", err)
	}

	ds, err := dataset.ByLevel(dryrunLevel)
	if err != nil {
		return err
	}

	// Load configuration
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Apply CLI overrides
	overrides := GetCLIOverrides()
	cfg.ApplyOverrides(overrides.LogLevel, overrides.LogFormat,
		overrides.DataDir, overrides.SinkDatabase,
		overrides.LockTimeout, false, false)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Initialize logger
	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	estimator := loader.NewEstimator(cfg.Data.Dir, log)

	result, err := estimator.Estimate(context.Background(), ds)
	if err != nil {
		return fmt.Errorf("estimation failed: %w", err)
	}

	report.NewRenderer(outputWriter).Estimate(result, cfg.Data.Dir)
	return nil
}
