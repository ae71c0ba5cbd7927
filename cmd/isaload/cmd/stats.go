package cmd

import (
	"fmt"

	"github.com/mesdata/isaload/internal/config"
	"github.com/mesdata/isaload/internal/database"
	"github.com/mesdata/isaload/internal/dataset"
	"github.com/mesdata/isaload/internal/logger"
	"github.com/mesdata/isaload/internal/report"
	"github.com/mesdata/isaload/internal/verifier"
	"github.com/spf13/cobra"
)

var statsLevel int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Report row counts for a dataset level",
	Long: `Stats counts the rows of every relation in one dataset level, in load
order, and prints them as a table. The pass is read-only; a relation whose
count query fails is left out of the report.

Example:
  isaload stats --config isaload.yaml --level 2`,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().IntVarP(&statsLevel, "level", "l", 0,
		"Dataset level to report, 1-4 (required)")
	statsCmd.MarkFlagRequired("level")

	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	// Validate the compiled-in registry before touching anything else
	if err := dataset.ValidateAll(); err != nil {
		return fmt.Errorf("dataset registry validation failed: %w", err)
	}

	ds, err := dataset.ByLevel(statsLevel)
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

	wipe, err := resolveSecret(cfg)
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	defer wipe()

	// Create database manager
	dbManager := database.NewManager(cfg)

	// An operator interrupt cancels the in-flight count query
	ctx := database.SetupSignalHandler()

	// Connect to the sink database
	if err := dbManager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to sink database: %w", err)
	}
	defer dbManager.Close()
	wipe()

	// Test the connection
	if err := dbManager.Probe(ctx); err != nil {
		return fmt.Errorf("sink connection failed: %w", err)
	}

	v, err := verifier.NewVerifier(dbManager.Sink, log)
	if err != nil {
		return fmt.Errorf("failed to create verifier: %w", err)
	}

	result, err := v.Stats(ctx, ds)
	if err != nil {
		return fmt.Errorf("statistics pass failed: %w", err)
	}

	report.NewRenderer(outputWriter).Stats(result)
	return nil
}
