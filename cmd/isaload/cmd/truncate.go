package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mesdata/isaload/internal/config"
	"github.com/mesdata/isaload/internal/database"
	"github.com/mesdata/isaload/internal/dataset"
	"github.com/mesdata/isaload/internal/loader"
	"github.com/mesdata/isaload/internal/lock"
	"github.com/mesdata/isaload/internal/logger"
	"github.com/mesdata/isaload/internal/prompt"
	"github.com/spf13/cobra"
)

var (
	truncateLevel int
	truncateYes   bool
)

var truncateCmd = &cobra.Command{
	Use:   "truncate",
	Short: "Empty all relations of a dataset level",
	Long: `Truncate empties every relation of one dataset level in child-first
(reverse dependency) order, with foreign key checks disabled for the
session and restored afterward.

WARNING: This permanently deletes every row of every dataset relation.

Example:
  isaload truncate --config isaload.yaml --level 2 --yes`,
	RunE: runTruncate,
}

func init() {
	truncateCmd.Flags().IntVarP(&truncateLevel, "level", "l", 0,
		"Dataset level to truncate, 1-4 (required)")
	truncateCmd.MarkFlagRequired("level")

	truncateCmd.Flags().BoolVarP(&truncateYes, "yes", "y", false,
		"Skip the confirmation prompt")

	rootCmd.AddCommand(truncateCmd)
}

func runTruncate(cmd *cobra.Command, args []string) error {
	// Validate the compiled-in registry before touching anything else
	if err := dataset.ValidateAll(); err != nil {
		return fmt.Errorf("dataset registry validation failed: %w", err)
	}

	ds, err := dataset.ByLevel(truncateLevel)
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

	// Confirm before the sink is touched. Non-interactive runs must pass
	// --yes; the prompt answers no on anything but an explicit yes.
	if !truncateYes {
		label := fmt.Sprintf("Truncate all %d relations of dataset %s in database %s?",
			len(ds.Units), ds.Name, cfg.Sink.Database)
		if !prompt.Confirm(label) {
			return fmt.Errorf("truncate not confirmed (pass --yes to skip the prompt)")
		}
	}

	wipe, err := resolveSecret(cfg)
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	defer wipe()

	// Create database manager
	dbManager := database.NewManager(cfg)

	// Setup context with signal handling
	ctx := database.SetupSignalHandlerWithCallback(func(os.Signal) {
		log.Warn("Received shutdown signal - stopping truncate...")
	})

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

	// The FOREIGN_KEY_CHECKS toggle is session state; pin one connection
	conn, err := dbManager.Sink.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to pin session connection: %w", err)
	}
	defer conn.Close()

	// Acquire the advisory lock so no load runs against this level meanwhile
	sessionLock := lock.NewDatasetLock(conn, truncateLevel)
	if err := sessionLock.AcquireOrFail(ctx, cfg.Load.LockTimeout); err != nil {
		if errors.Is(err, lock.ErrLockTimeout) {
			return fmt.Errorf("another session is working on level %d (waited %ds)",
				truncateLevel, cfg.Load.LockTimeout)
		}
		return fmt.Errorf("failed to acquire session lock: %w", err)
	}
	defer sessionLock.ReleaseLock(context.Background())

	phase, err := loader.NewTruncatePhase(conn, log)
	if err != nil {
		return fmt.Errorf("failed to create truncate phase: %w", err)
	}

	stats, err := phase.Truncate(ctx, ds)
	if err != nil {
		return fmt.Errorf("truncate failed: %w", err)
	}

	// Display results
	fmt.Printf("\n=== Truncate Complete ===\n")
	fmt.Printf("Dataset: %s (level %d)\n", ds.Name, ds.Level)
	fmt.Printf("Relations truncated: %d\n", stats.UnitsTruncated)
	fmt.Printf("Duration: %s\n", stats.Duration)

	return nil
}
