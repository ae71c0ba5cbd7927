package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/mesdata/isaload/internal/config"
	"github.com/mesdata/isaload/internal/logger"
)

// ============================================================================
// Test Helpers
// ============================================================================

var level1Order = []string{
	"sensors", "actuators", "sensor_readings",
	"actuator_commands", "control_loops", "device_diagnostics",
}

func createTestConfig(dataDir string) *config.Config {
	return &config.Config{
		Sink: config.DatabaseConfig{
			Host:     "localhost",
			Port:     3306,
			User:     "loader",
			Database: "mes",
		},
		Data: config.DataConfig{
			Dir: dataDir,
		},
		Load: config.LoadConfig{
			DisableForeignKeyChecks: true,
		},
		Journal: config.JournalConfig{
			Enabled: false,
		},
		Logging: config.LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// expectVerify queues the connection verification round trip.
func expectVerify(mock sqlmock.Sqlmock) {
	mock.ExpectPing()
	mock.ExpectQuery("SELECT 1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
}

// expectPreflight queues a fully passing schema preflight.
func expectPreflight(mock sqlmock.Sqlmock) {
	mock.ExpectQuery("SELECT TABLE_NAME FROM information_schema.TABLES").
		WillReturnRows(allLevel1Units())
	mock.ExpectQuery("SELECT @@GLOBAL.local_infile").
		WillReturnRows(localInfileRow(1))
	mock.ExpectQuery("FROM information_schema.KEY_COLUMN_USAGE").
		WillReturnRows(allLevel1ForeignKeys())
}

// expectUnitLoaded queues the count, load, count round trips for one unit.
func expectUnitLoaded(mock sqlmock.Sqlmock, unit string, before, added int64) {
	mock.ExpectQuery(countQueryPattern(unit)).WillReturnRows(countRows(before))
	mock.ExpectExec(loadStatementPattern(unit)).WillReturnResult(sqlmock.NewResult(0, added))
	mock.ExpectQuery(countQueryPattern(unit)).WillReturnRows(countRows(before + added))
}

func newTestSession(t *testing.T, cfg *config.Config) (*Session, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, conn := newMockConn(t)
	ds := testDataset(t, 1)
	streams := NewStreamRegistry(ds.UnitNames())

	sess, err := NewSession(cfg, ds, db, conn, streams, logger.NewDefault())
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	return sess, mock
}

// ============================================================================
// NewSession Tests
// ============================================================================

func TestNewSession_Success(t *testing.T) {
	sess, _ := newTestSession(t, createTestConfig(t.TempDir()))

	if sess.State() != StateInit {
		t.Errorf("State = %s, want %s", sess.State(), StateInit)
	}

	order := sess.Order()
	if len(order) != len(level1Order) {
		t.Fatalf("Order length = %d, want %d", len(order), len(level1Order))
	}
	for i, unit := range level1Order {
		if order[i] != unit {
			t.Errorf("Order[%d] = %s, want %s", i, order[i], unit)
		}
	}
}

func TestNewSession_Validation(t *testing.T) {
	db, _, conn := newMockConn(t)
	cfg := createTestConfig(t.TempDir())
	ds := testDataset(t, 1)
	streams := NewStreamRegistry(ds.UnitNames())
	log := logger.NewDefault()

	if _, err := NewSession(nil, ds, db, conn, streams, log); err == nil {
		t.Error("Expected error for nil config")
	}
	if _, err := NewSession(cfg, nil, db, conn, streams, log); err == nil {
		t.Error("Expected error for nil dataset")
	}
	if _, err := NewSession(cfg, ds, nil, conn, streams, log); err == nil {
		t.Error("Expected error for nil database")
	}
	if _, err := NewSession(cfg, ds, db, nil, streams, log); err == nil {
		t.Error("Expected error for nil connection")
	}
	if _, err := NewSession(cfg, ds, db, conn, nil, log); err == nil {
		t.Error("Expected error for nil stream registry")
	}
}

// ============================================================================
// Run Tests
// ============================================================================

func TestSessionRun_Success(t *testing.T) {
	dir := t.TempDir()
	for _, unit := range level1Order {
		writeCSV(t, dir, unit, 2)
	}

	sess, mock := newTestSession(t, createTestConfig(dir))

	expectVerify(mock)
	expectPreflight(mock)
	mock.ExpectExec("SET FOREIGN_KEY_CHECKS = 0").WillReturnResult(sqlmock.NewResult(0, 0))
	for _, unit := range level1Order {
		expectUnitLoaded(mock, unit, 0, 2)
	}
	mock.ExpectExec("SET FOREIGN_KEY_CHECKS = 1").WillReturnResult(sqlmock.NewResult(0, 0))

	result, err := sess.Run(context.Background())

	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Loaded != 6 {
		t.Errorf("Loaded = %d, want 6", result.Loaded)
	}
	if result.Skipped != 0 || result.Failed != 0 {
		t.Errorf("Skipped = %d, Failed = %d, want 0, 0", result.Skipped, result.Failed)
	}
	if result.RowsLoaded != 12 {
		t.Errorf("RowsLoaded = %d, want 12", result.RowsLoaded)
	}
	if result.Truncated {
		t.Error("Truncated = true, want false")
	}
	if sess.State() != StateDone {
		t.Errorf("State = %s, want %s", sess.State(), StateDone)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestSessionRun_TruncateFirst(t *testing.T) {
	dir := t.TempDir()
	for _, unit := range level1Order {
		writeCSV(t, dir, unit, 1)
	}

	cfg := createTestConfig(dir)
	cfg.Load.Truncate = true
	cfg.Load.DisableForeignKeyChecks = false
	sess, mock := newTestSession(t, cfg)

	expectVerify(mock)
	expectPreflight(mock)

	// Truncate brackets its own foreign key toggle.
	mock.ExpectExec("SET FOREIGN_KEY_CHECKS = 0").WillReturnResult(sqlmock.NewResult(0, 0))
	for i := len(level1Order) - 1; i >= 0; i-- {
		mock.ExpectExec("TRUNCATE TABLE `" + level1Order[i] + "`").
			WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectExec("SET FOREIGN_KEY_CHECKS = 1").WillReturnResult(sqlmock.NewResult(0, 0))

	for _, unit := range level1Order {
		expectUnitLoaded(mock, unit, 0, 1)
	}

	result, err := sess.Run(context.Background())

	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !result.Truncated {
		t.Error("Truncated = false, want true")
	}
	if result.Loaded != 6 {
		t.Errorf("Loaded = %d, want 6", result.Loaded)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestSessionRun_DataDirMissing(t *testing.T) {
	cfg := createTestConfig(filepath.Join(t.TempDir(), "missing"))
	sess, mock := newTestSession(t, cfg)
	// No expectations: a failed precondition must not touch the sink.

	result, err := sess.Run(context.Background())

	if err == nil {
		t.Fatal("Expected error for missing data directory")
	}
	if !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("Unexpected error: %v", err)
	}
	if result != nil {
		t.Error("Expected nil result for aborted session")
	}
	if sess.State() != StateAborted {
		t.Errorf("State = %s, want %s", sess.State(), StateAborted)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Sink was touched before preconditions passed: %v", err)
	}
}

func TestCheckDataDir(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "sensors.csv")
	if err := os.WriteFile(file, []byte("sensor_id\n"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if err := CheckDataDir(dir); err != nil {
		t.Errorf("CheckDataDir(%q) = %v, want nil", dir, err)
	}

	missing := filepath.Join(dir, "nope")
	if err := CheckDataDir(missing); err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("CheckDataDir(missing) = %v, want does-not-exist error", err)
	}

	if err := CheckDataDir(file); err == nil || !strings.Contains(err.Error(), "not a directory") {
		t.Errorf("CheckDataDir(file) = %v, want not-a-directory error", err)
	}
}

func TestSessionRun_PingFails(t *testing.T) {
	sess, mock := newTestSession(t, createTestConfig(t.TempDir()))

	mock.ExpectPing().WillReturnError(errors.New("dial tcp 127.0.0.1:3306: connection refused"))

	_, err := sess.Run(context.Background())

	if err == nil {
		t.Fatal("Expected error for failed ping")
	}
	if !strings.Contains(err.Error(), "sink ping failed") {
		t.Errorf("Unexpected error: %v", err)
	}
	if sess.State() != StateAborted {
		t.Errorf("State = %s, want %s", sess.State(), StateAborted)
	}
}

func TestSessionRun_PreflightFatal(t *testing.T) {
	sess, mock := newTestSession(t, createTestConfig(t.TempDir()))

	expectVerify(mock)
	// Only one relation exists in the sink.
	mock.ExpectQuery("SELECT TABLE_NAME FROM information_schema.TABLES").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME"}).AddRow("sensors"))

	_, err := sess.Run(context.Background())

	if err == nil {
		t.Fatal("Expected error for failed preflight")
	}
	if !strings.Contains(err.Error(), "schema preflight failed") {
		t.Errorf("Unexpected error: %v", err)
	}

	var preflightErr *PreflightError
	if !errors.As(err, &preflightErr) {
		t.Fatalf("Expected wrapped PreflightError, got %T", err)
	}
	if sess.State() != StateAborted {
		t.Errorf("State = %s, want %s", sess.State(), StateAborted)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestSessionRun_ContinuesPastUnitFailures(t *testing.T) {
	dir := t.TempDir()
	// control_loops has no source file; actuators will be rejected.
	for _, unit := range []string{"sensors", "actuators", "sensor_readings", "actuator_commands", "device_diagnostics"} {
		writeCSV(t, dir, unit, 2)
	}

	sess, mock := newTestSession(t, createTestConfig(dir))

	expectVerify(mock)
	expectPreflight(mock)
	mock.ExpectExec("SET FOREIGN_KEY_CHECKS = 0").WillReturnResult(sqlmock.NewResult(0, 0))

	expectUnitLoaded(mock, "sensors", 0, 2)
	mock.ExpectQuery(countQueryPattern("actuators")).WillReturnRows(countRows(0))
	mock.ExpectExec(loadStatementPattern("actuators")).
		WillReturnError(errors.New("Error 1366 (HY000): Incorrect integer value"))
	expectUnitLoaded(mock, "sensor_readings", 0, 2)
	expectUnitLoaded(mock, "actuator_commands", 0, 2)
	// control_loops: no sink traffic for a missing source.
	expectUnitLoaded(mock, "device_diagnostics", 0, 2)

	mock.ExpectExec("SET FOREIGN_KEY_CHECKS = 1").WillReturnResult(sqlmock.NewResult(0, 0))

	result, err := sess.Run(context.Background())

	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Loaded != 4 {
		t.Errorf("Loaded = %d, want 4", result.Loaded)
	}
	if result.Failed != 1 {
		t.Errorf("Failed = %d, want 1", result.Failed)
	}
	if result.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", result.Skipped)
	}
	if sess.State() != StateDone {
		t.Errorf("State = %s, want %s", sess.State(), StateDone)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestSessionRun_JournalRecords(t *testing.T) {
	dir := t.TempDir()
	for _, unit := range level1Order {
		writeCSV(t, dir, unit, 2)
	}

	cfg := createTestConfig(dir)
	cfg.Journal.Enabled = true
	sess, mock := newTestSession(t, cfg)

	expectVerify(mock)
	expectPreflight(mock)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS isaload_run").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS isaload_run_unit").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO isaload_run").WillReturnResult(sqlmock.NewResult(42, 1))

	mock.ExpectExec("SET FOREIGN_KEY_CHECKS = 0").WillReturnResult(sqlmock.NewResult(0, 0))
	for _, unit := range level1Order {
		expectUnitLoaded(mock, unit, 0, 2)
		mock.ExpectExec("INSERT INTO isaload_run_unit").WillReturnResult(sqlmock.NewResult(1, 1))
	}
	mock.ExpectExec("UPDATE isaload_run SET status").
		WithArgs(RunStatusCompleted, 6, 0, 0, int64(12), int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("SET FOREIGN_KEY_CHECKS = 1").WillReturnResult(sqlmock.NewResult(0, 0))

	result, err := sess.Run(context.Background())

	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.RunID != 42 {
		t.Errorf("RunID = %d, want 42", result.RunID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestSessionRun_JournalUnavailable(t *testing.T) {
	dir := t.TempDir()
	for _, unit := range level1Order {
		writeCSV(t, dir, unit, 1)
	}

	cfg := createTestConfig(dir)
	cfg.Journal.Enabled = true
	sess, mock := newTestSession(t, cfg)

	expectVerify(mock)
	expectPreflight(mock)

	// The journal cannot create its tables; the load proceeds anyway.
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS isaload_run").
		WillReturnError(errors.New("Error 1142 (42000): CREATE command denied"))

	mock.ExpectExec("SET FOREIGN_KEY_CHECKS = 0").WillReturnResult(sqlmock.NewResult(0, 0))
	for _, unit := range level1Order {
		expectUnitLoaded(mock, unit, 0, 1)
	}
	mock.ExpectExec("SET FOREIGN_KEY_CHECKS = 1").WillReturnResult(sqlmock.NewResult(0, 0))

	result, err := sess.Run(context.Background())

	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.RunID != 0 {
		t.Errorf("RunID = %d, want 0", result.RunID)
	}
	if result.Loaded != 6 {
		t.Errorf("Loaded = %d, want 6", result.Loaded)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestSessionRun_Interrupted(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "sensors", 1)

	sess, mock := newTestSession(t, createTestConfig(dir))

	expectVerify(mock)
	expectPreflight(mock)
	mock.ExpectExec("SET FOREIGN_KEY_CHECKS = 0").WillReturnResult(sqlmock.NewResult(0, 0))

	// The first count outlives the deadline; the loop must stop before the
	// second unit.
	mock.ExpectQuery(countQueryPattern("sensors")).
		WillDelayFor(500 * time.Millisecond).
		WillReturnRows(countRows(0))
	mock.ExpectExec("SET FOREIGN_KEY_CHECKS = 1").WillReturnResult(sqlmock.NewResult(0, 0))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	result, err := sess.Run(ctx)

	if err == nil {
		t.Fatal("Expected error for interrupted session")
	}
	if !strings.Contains(err.Error(), "load interrupted") {
		t.Errorf("Unexpected error: %v", err)
	}
	if result == nil {
		t.Fatal("Expected partial result for interrupted session")
	}
	if result.Failed != 1 {
		t.Errorf("Failed = %d, want 1", result.Failed)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

// ============================================================================
// SessionResult Tests
// ============================================================================

func TestSessionResult_Add(t *testing.T) {
	var result SessionResult

	result.Add(UnitResult{Unit: "sensors", Status: StatusLoaded, RowsLoaded: 5})
	result.Add(UnitResult{Unit: "actuators", Status: StatusLoaded, RowsLoaded: 7})
	result.Add(UnitResult{Unit: "sensor_readings", Status: StatusSkipped, Reason: "source not found"})
	result.Add(UnitResult{Unit: "actuator_commands", Status: StatusFailed, Reason: "sink rejected"})

	if result.Loaded != 2 {
		t.Errorf("Loaded = %d, want 2", result.Loaded)
	}
	if result.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", result.Skipped)
	}
	if result.Failed != 1 {
		t.Errorf("Failed = %d, want 1", result.Failed)
	}
	if result.RowsLoaded != 12 {
		t.Errorf("RowsLoaded = %d, want 12", result.RowsLoaded)
	}
	if len(result.Units) != 4 {
		t.Errorf("Units length = %d, want 4", len(result.Units))
	}
}
