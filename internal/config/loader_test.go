package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test.yaml")

	configContent := `
sink:
  host: localhost
  port: 3306
  user: loader
  password: secret
  database: mes_level1
  tls: disable
  max_connections: 5
  max_idle_connections: 2

data:
  dir: /srv/mes/exports

load:
  truncate: true
  progress_interval: 10
  lock_timeout: 60

journal:
  enabled: true

logging:
  level: debug
  format: text
  output: stdout
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Verify sink config
	if cfg.Sink.Host != "localhost" {
		t.Errorf("expected sink host 'localhost', got %s", cfg.Sink.Host)
	}
	if cfg.Sink.Port != 3306 {
		t.Errorf("expected sink port 3306, got %d", cfg.Sink.Port)
	}
	if cfg.Sink.User != "loader" {
		t.Errorf("expected sink user 'loader', got %s", cfg.Sink.User)
	}
	if cfg.Sink.Database != "mes_level1" {
		t.Errorf("expected sink database 'mes_level1', got %s", cfg.Sink.Database)
	}
	if cfg.Sink.MaxConnections != 5 {
		t.Errorf("expected sink max_connections 5, got %d", cfg.Sink.MaxConnections)
	}

	// Verify data config
	if cfg.Data.Dir != "/srv/mes/exports" {
		t.Errorf("expected data dir '/srv/mes/exports', got %s", cfg.Data.Dir)
	}

	// Verify load config
	if !cfg.Load.Truncate {
		t.Error("expected truncate true")
	}
	if cfg.Load.ProgressInterval != 10 {
		t.Errorf("expected progress_interval 10, got %d", cfg.Load.ProgressInterval)
	}
	if cfg.Load.LockTimeout != 60 {
		t.Errorf("expected lock_timeout 60, got %d", cfg.Load.LockTimeout)
	}
	// Keys absent from the file keep their defaults
	if !cfg.Load.DisableForeignKeyChecks {
		t.Error("expected disable_foreign_key_checks to keep its default")
	}

	// Verify journal config
	if !cfg.Journal.Enabled {
		t.Error("expected journal enabled")
	}

	// Verify logging config
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected logging level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("expected logging format 'text', got %s", cfg.Logging.Format)
	}
}

func TestLoadWithEnvVars(t *testing.T) {
	// Set environment variables for test
	os.Setenv("TEST_DB_HOST", "env-host")
	os.Setenv("TEST_DB_USER", "env-user")
	os.Setenv("TEST_DB_PASS", "env-pass")
	defer func() {
		os.Unsetenv("TEST_DB_HOST")
		os.Unsetenv("TEST_DB_USER")
		os.Unsetenv("TEST_DB_PASS")
	}()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-env.yaml")

	configContent := `
sink:
  host: ${TEST_DB_HOST}
  port: 3306
  user: ${TEST_DB_USER}
  password: ${TEST_DB_PASS}
  database: mes_level1
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Sink.Host != "env-host" {
		t.Errorf("expected sink host 'env-host', got %s", cfg.Sink.Host)
	}
	if cfg.Sink.User != "env-user" {
		t.Errorf("expected sink user 'env-user', got %s", cfg.Sink.User)
	}
	if cfg.Sink.Password != "env-pass" {
		t.Errorf("expected sink password 'env-pass', got %s", cfg.Sink.Password)
	}
}

func TestExpandEnvVar(t *testing.T) {
	os.Setenv("TEST_VAR", "test-value")
	defer os.Unsetenv("TEST_VAR")

	tests := []struct {
		input    string
		expected string
	}{
		{"${TEST_VAR}", "test-value"},
		{"$TEST_VAR", "test-value"},
		{"prefix-${TEST_VAR}-suffix", "prefix-test-value-suffix"},
		{"${NONEXISTENT}", "${NONEXISTENT}"}, // Unset vars remain unchanged
		{"no-vars-here", "no-vars-here"},
	}

	for _, tt := range tests {
		result := expandEnvVar(tt.input)
		if result != tt.expected {
			t.Errorf("expandEnvVar(%q) = %q, expected %q", tt.input, result, tt.expected)
		}
	}
}

func TestLoadNonExistentFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error for non-existent file")
	}
}

func TestApplyOverrides(t *testing.T) {
	// Start with a default config
	cfg := DefaultConfig()

	// Verify defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("expected default log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Load.Truncate != false {
		t.Error("expected default truncate to be false")
	}
	if cfg.Journal.Enabled != false {
		t.Error("expected default journal to be disabled")
	}

	// Apply some overrides
	cfg.ApplyOverrides("debug", "text", "/tmp/exports", "mes_level2", 120, true, true)

	// Verify overrides were applied
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug' after override, got %s", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("expected log format 'text' after override, got %s", cfg.Logging.Format)
	}
	if cfg.Data.Dir != "/tmp/exports" {
		t.Errorf("expected data dir '/tmp/exports' after override, got %s", cfg.Data.Dir)
	}
	if cfg.Sink.Database != "mes_level2" {
		t.Errorf("expected database 'mes_level2' after override, got %s", cfg.Sink.Database)
	}
	if cfg.Load.LockTimeout != 120 {
		t.Errorf("expected lock timeout 120 after override, got %d", cfg.Load.LockTimeout)
	}
	if cfg.Load.Truncate != true {
		t.Error("expected truncate to be true after override")
	}
	if cfg.Journal.Enabled != true {
		t.Error("expected journal to be enabled after override")
	}
}

func TestApplyOverridesZeroValues(t *testing.T) {
	// Start with a custom config
	cfg := &Config{
		Sink: DatabaseConfig{
			Database: "mes_level3",
		},
		Data: DataConfig{
			Dir: "/var/lib/mes",
		},
		Load: LoadConfig{
			LockTimeout: 45,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "json",
		},
	}

	// Apply zero values (should NOT override)
	cfg.ApplyOverrides("", "", "", "", 0, false, false)

	// Verify original values are preserved
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected log level 'warn' to be preserved, got %s", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("expected log format 'json' to be preserved, got %s", cfg.Logging.Format)
	}
	if cfg.Data.Dir != "/var/lib/mes" {
		t.Errorf("expected data dir '/var/lib/mes' to be preserved, got %s", cfg.Data.Dir)
	}
	if cfg.Sink.Database != "mes_level3" {
		t.Errorf("expected database 'mes_level3' to be preserved, got %s", cfg.Sink.Database)
	}
	if cfg.Load.LockTimeout != 45 {
		t.Errorf("expected lock timeout 45 to be preserved, got %d", cfg.Load.LockTimeout)
	}
	if cfg.Load.Truncate != false {
		t.Error("expected truncate to remain false")
	}
	if cfg.Journal.Enabled != false {
		t.Error("expected journal to remain disabled")
	}
}

func TestApplyOverridesPartial(t *testing.T) {
	// Start with a default config
	cfg := DefaultConfig()

	// Apply only some overrides
	cfg.ApplyOverrides("error", "", "", "", 0, false, true)

	// Verify only specified overrides were applied
	if cfg.Logging.Level != "error" {
		t.Errorf("expected log level 'error' after override, got %s", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" { // Should keep default
		t.Errorf("expected log format to remain 'json', got %s", cfg.Logging.Format)
	}
	if cfg.Load.LockTimeout != 30 { // Should keep default (0 doesn't override)
		t.Errorf("expected lock timeout to remain 30, got %d", cfg.Load.LockTimeout)
	}
	if cfg.Load.Truncate != false {
		t.Error("expected truncate to remain false")
	}
	if cfg.Journal.Enabled != true {
		t.Error("expected journal to be enabled after override")
	}
}
