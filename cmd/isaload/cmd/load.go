package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mesdata/isaload/internal/config"
	"github.com/mesdata/isaload/internal/database"
	"github.com/mesdata/isaload/internal/dataset"
	"github.com/mesdata/isaload/internal/loader"
	"github.com/mesdata/isaload/internal/lock"
	"github.com/mesdata/isaload/internal/logger"
	"github.com/mesdata/isaload/internal/prompt"
	"github.com/mesdata/isaload/internal/report"
	"github.com/mesdata/isaload/internal/verifier"
	"github.com/spf13/cobra"
)

var (
	loadLevel    int
	loadTruncate bool
	loadJournal  bool
	loadStats    bool
	loadVerify   bool
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load a dataset level into the sink database",
	Long: `Load streams every CSV artifact of one dataset level into the sink
database in dependency order (parent relations first).

The load process follows these steps:
  1. Validate the dataset registry and resolve the load order
  2. Verify sink connectivity and run the schema preflight
  3. Optionally truncate all dataset relations child-first
  4. Stream each <unit>.csv via LOAD DATA LOCAL INFILE
  5. Print the session summary and offer the diagnostic passes

Missing artifacts are skipped and sink rejections are reported per unit;
neither aborts the session nor changes the exit code.

Example:
  isaload load --config isaload.yaml --level 2 --truncate`,
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().IntVarP(&loadLevel, "level", "l", 0,
		"Dataset level to load, 1-4 (required)")
	loadCmd.MarkFlagRequired("level")

	loadCmd.Flags().BoolVar(&loadTruncate, "truncate", false,
		"Truncate all dataset relations child-first before loading")
	loadCmd.Flags().BoolVar(&loadJournal, "journal", false,
		"Record this session in the run journal")
	loadCmd.Flags().BoolVar(&loadStats, "stats", false,
		"Run the statistics pass after loading without prompting")
	loadCmd.Flags().BoolVar(&loadVerify, "verify", false,
		"Run the integrity pass after loading without prompting")

	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	// Validate the compiled-in registry before touching anything else
	if err := dataset.ValidateAll(); err != nil {
		return fmt.Errorf("dataset registry validation failed: %w", err)
	}

	ds, err := dataset.ByLevel(loadLevel)
	if err != nil {
		return err
	}

	// Load configuration
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Apply CLI overrides
	overrides := GetCLIOverrides()
	cfg.ApplyOverrides(overrides.LogLevel, overrides.LogFormat,
		overrides.DataDir, overrides.SinkDatabase,
		overrides.LockTimeout, loadTruncate, loadJournal)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Initialize logger
	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	log.Infow("Starting load session",
		"dataset", ds.Name,
		"level", ds.Level,
		"config", configFile,
	)

	// First fatal precondition. A missing artifact root aborts before the
	// sink is contacted; the session re-checks it under the lock.
	if err := loader.CheckDataDir(cfg.Data.Dir); err != nil {
		return err
	}

	// Resolve the sink password. The deferred wipe covers early aborts; the
	// explicit call after Connect clears the credential as soon as the pool
	// holds it.
	wipe, err := resolveSecret(cfg)
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	defer wipe()

	// Reader handlers must exist before the first connection handshake or the
	// driver will not announce the local-infile capability to the server.
	streams := loader.NewStreamRegistry(ds.UnitNames())
	streams.Register()
	defer streams.Deregister()

	// Create database manager
	dbManager := database.NewManager(cfg)

	// Setup context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	// The advisory lock and the FOREIGN_KEY_CHECKS toggle are session
	// state; pin one connection for the whole load.
	conn, err := dbManager.Sink.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to pin session connection: %w", err)
	}
	defer conn.Close()

	// Acquire the advisory lock to prevent concurrent loads of this level
	sessionLock := lock.NewDatasetLock(conn, loadLevel)
	if err := sessionLock.AcquireOrFail(ctx, cfg.Load.LockTimeout); err != nil {
		if errors.Is(err, lock.ErrLockTimeout) {
			return fmt.Errorf("another session is loading level %d (waited %ds)",
				loadLevel, cfg.Load.LockTimeout)
		}
		return fmt.Errorf("failed to acquire session lock: %w", err)
	}
	defer sessionLock.ReleaseLock(context.Background())
	log.Infow("Acquired advisory lock", "lock", sessionLock.LockName())

	// Create the load session
	session, err := loader.NewSession(cfg, ds, dbManager.Sink, conn, streams, log)
	if err != nil {
		return fmt.Errorf("failed to create load session: %w", err)
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Warn("Received shutdown signal - stopping after current unit...")
		cancel()
	}()

	// Run the loading pass
	result, err := session.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("Load session cancelled by operator")
			if result != nil {
				report.NewRenderer(outputWriter).Summary(result)
			}
			return nil
		}
		return fmt.Errorf("load session failed: %w", err)
	}

	// Display the summary table
	report.NewRenderer(outputWriter).Summary(result)

	// Offer the optional read-only passes
	runDiagnostics(ctx, dbManager.Sink, ds, log)

	return nil
}

// runDiagnostics offers the statistics and integrity passes after the summary.
// --stats and --verify force their pass without prompting; non-interactive
// sessions answer no to both prompts. A failed pass is logged, never fatal:
// the main pass already completed.
func runDiagnostics(ctx context.Context, db *sql.DB, ds *dataset.Dataset, log *logger.Logger) {
	v, err := verifier.NewVerifier(db, log)
	if err != nil {
		log.Errorf("Cannot run diagnostic passes: %v", err)
		return
	}
	renderer := report.NewRenderer(outputWriter)

	if loadStats || prompt.Confirm("Generate statistics report?") {
		if stats, err := v.Stats(ctx, ds); err != nil {
			log.Errorf("Statistics pass failed: %v", err)
		} else {
			renderer.Stats(stats)
		}
	}

	if loadVerify || prompt.Confirm("Run integrity verification?") {
		if integrity, err := v.CheckIntegrity(ctx, ds); err != nil {
			log.Errorf("Integrity pass failed: %v", err)
		} else {
			renderer.Integrity(integrity)
		}
	}
}
