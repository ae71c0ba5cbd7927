package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags at build time)
var (
	Version = "0.0.1-dev"
	Commit  = "unknown"
)

// CLI flags that override config file values
var (
	cfgFile      string
	logLevel     string
	logFormat    string
	dataDir      string
	sinkDatabase string
	lockTimeout  int
)

var rootCmd = &cobra.Command{
	Use:   "isaload",
	Short: "ISA-95 CSV Bulk Loader for MySQL",
	Long: `A production-grade CLI tool for loading ISA-95 manufacturing CSV datasets
into MySQL in dependency order via streaming LOAD DATA LOCAL INFILE.

Features:
  - Four built-in dataset levels (process sensing to business planning)
  - Automatic load ordering using Kahn's algorithm
  - Streaming bulk load with rate-limited progress reporting
  - Row statistics and referential integrity reports
  - Optional run journal with load history`,
	Version: Version,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Config file flag
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "isaload.yaml",
		"Path to configuration file")

	// Logging overrides
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Override log format (json, text)")

	// Data and sink overrides
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "",
		"Override directory containing the <unit>.csv artifacts")
	rootCmd.PersistentFlags().StringVar(&sinkDatabase, "database", "",
		"Override sink database (schema) name")
	rootCmd.PersistentFlags().IntVar(&lockTimeout, "lock-timeout", 0,
		"Override session lock timeout in seconds")
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// CLIOverrides contains flag values that override config file settings
type CLIOverrides struct {
	LogLevel     string
	LogFormat    string
	DataDir      string
	SinkDatabase string
	LockTimeout  int
}

// GetCLIOverrides returns the CLI flag override values
func GetCLIOverrides() CLIOverrides {
	return CLIOverrides{
		LogLevel:     logLevel,
		LogFormat:    logFormat,
		DataDir:      dataDir,
		SinkDatabase: sinkDatabase,
		LockTimeout:  lockTimeout,
	}
}
