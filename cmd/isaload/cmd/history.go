package cmd

import (
	"errors"
	"fmt"

	"github.com/mesdata/isaload/internal/config"
	"github.com/mesdata/isaload/internal/database"
	"github.com/mesdata/isaload/internal/loader"
	"github.com/mesdata/isaload/internal/logger"
	"github.com/mesdata/isaload/internal/report"
	"github.com/spf13/cobra"
)

var (
	historyLevel int
	historyLimit int
	historyRun   int64
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent load sessions from the run journal",
	Long: `History lists recent load sessions recorded in the run journal, newest
first. With --run it shows one session's per-unit detail instead.

The journal only has entries for sessions run with journaling enabled
(config journal.enabled, or load --journal).

Example:
  isaload history --config isaload.yaml --limit 20
  isaload history --config isaload.yaml --run 42`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLevel, "level", "l", 0,
		"Only list sessions of this dataset level (default: all)")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10,
		"Maximum number of sessions to list")
	historyCmd.Flags().Int64Var(&historyRun, "run", 0,
		"Show per-unit detail for one run id")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
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

	// An operator interrupt cancels the in-flight journal query
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

	journal, err := loader.NewJournal(dbManager.Sink, cfg.Journal.Enabled, log)
	if err != nil {
		return fmt.Errorf("failed to open run journal: %w", err)
	}

	renderer := report.NewRenderer(outputWriter)

	// One run's per-unit detail
	if historyRun > 0 {
		run, err := journal.Run(ctx, historyRun)
		if err != nil {
			if errors.Is(err, loader.ErrNoJournal) {
				return fmt.Errorf("no journal tables in the sink; run a load with journaling enabled first")
			}
			return err
		}
		units, err := journal.RunUnits(ctx, historyRun)
		if err != nil {
			return err
		}
		renderer.RunDetail(run, units)
		return nil
	}

	runs, err := journal.RecentRuns(ctx, historyLimit)
	if err != nil {
		if errors.Is(err, loader.ErrNoJournal) {
			return fmt.Errorf("no journal tables in the sink; run a load with journaling enabled first")
		}
		return err
	}

	if historyLevel > 0 {
		filtered := runs[:0]
		for _, r := range runs {
			if r.Level == historyLevel {
				filtered = append(filtered, r)
			}
		}
		runs = filtered
	}

	renderer.History(runs)
	return nil
}
