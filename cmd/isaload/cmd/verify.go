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

var verifyLevel int

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check referential integrity of a dataset level",
	Long: `Verify counts orphaned child rows for every declared reference of one
dataset level: rows whose foreign key value has no matching parent row.
Zero orphans means the relationship is satisfied.

Violations are reported, not corrected, and do not change the exit code.
The pass is read-only; a reference whose check query fails is left out of
the report.

Example:
  isaload verify --config isaload.yaml --level 2`,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().IntVarP(&verifyLevel, "level", "l", 0,
		"Dataset level to verify, 1-4 (required)")
	verifyCmd.MarkFlagRequired("level")

	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	// Validate the compiled-in registry before touching anything else
	if err := dataset.ValidateAll(); err != nil {
		return fmt.Errorf("dataset registry validation failed: %w", err)
	}

	ds, err := dataset.ByLevel(verifyLevel)
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

	// An operator interrupt cancels the in-flight check query
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

	result, err := v.CheckIntegrity(ctx, ds)
	if err != nil {
		return fmt.Errorf("integrity pass failed: %w", err)
	}

	report.NewRenderer(outputWriter).Integrity(result)
	return nil
}
