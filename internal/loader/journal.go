package loader

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/mesdata/isaload/internal/logger"
)

// RunStatus represents the state of a journaled load session.
type RunStatus string

const (
	RunStatusRunning     RunStatus = "running"
	RunStatusCompleted   RunStatus = "completed"
	RunStatusInterrupted RunStatus = "interrupted"
)

// ErrNoJournal indicates the journal tables have never been created in the
// sink schema.
var ErrNoJournal = errors.New("no journal tables in sink schema")

const createRunTableSQL = `
CREATE TABLE IF NOT EXISTS isaload_run (
	run_id BIGINT AUTO_INCREMENT PRIMARY KEY,
	dataset VARCHAR(32) NOT NULL,
	level TINYINT NOT NULL,
	truncated TINYINT(1) NOT NULL DEFAULT 0,
	status VARCHAR(20) NOT NULL DEFAULT 'running',
	started_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	finished_at TIMESTAMP NULL DEFAULT NULL,
	units_loaded INT NOT NULL DEFAULT 0,
	units_skipped INT NOT NULL DEFAULT 0,
	units_failed INT NOT NULL DEFAULT 0,
	rows_loaded BIGINT NOT NULL DEFAULT 0,
	INDEX idx_dataset (dataset),
	INDEX idx_started (started_at)
) ENGINE=InnoDB;
`

const createRunUnitTableSQL = `
CREATE TABLE IF NOT EXISTS isaload_run_unit (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	run_id BIGINT NOT NULL,
	unit VARCHAR(64) NOT NULL,
	status VARCHAR(20) NOT NULL,
	reason VARCHAR(255) NULL,
	error_message TEXT NULL,
	file_bytes BIGINT NOT NULL DEFAULT 0,
	rows_before BIGINT NOT NULL DEFAULT 0,
	rows_loaded BIGINT NOT NULL DEFAULT 0,
	rows_total BIGINT NOT NULL DEFAULT 0,
	duration_ms BIGINT NOT NULL DEFAULT 0,
	INDEX idx_run (run_id),
	FOREIGN KEY (run_id) REFERENCES isaload_run(run_id) ON DELETE CASCADE
) ENGINE=InnoDB;
`

// RunRecord is one journaled load session.
type RunRecord struct {
	RunID        int64
	Dataset      string
	Level        int
	Truncated    bool
	Status       RunStatus
	StartedAt    time.Time
	FinishedAt   sql.NullTime
	UnitsLoaded  int
	UnitsSkipped int
	UnitsFailed  int
	RowsLoaded   int64
}

// UnitRecord is one journaled unit result.
type UnitRecord struct {
	Unit       string
	Status     UnitStatus
	Reason     sql.NullString
	Error      sql.NullString
	FileBytes  int64
	RowsBefore int64
	RowsLoaded int64
	RowsTotal  int64
	DurationMS int64
}

// Journal records load sessions in the sink so operators can review past
// runs with the history command. Writes go through the pool rather than the
// session connection; a journal problem must never fail a load, so callers
// downgrade every returned error to a warning.
type Journal struct {
	db      *sql.DB
	enabled bool
	logger  *logger.Logger
}

// NewJournal creates a journal. Recording is a no-op unless enabled; the
// read methods work regardless, since tables from earlier runs may exist.
func NewJournal(db *sql.DB, enabled bool, log *logger.Logger) (*Journal, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	if log == nil {
		log = logger.NewDefault()
	}

	return &Journal{
		db:      db,
		enabled: enabled,
		logger:  log,
	}, nil
}

// Enabled reports whether sessions are being recorded.
func (j *Journal) Enabled() bool {
	return j.enabled
}

// InitializeTables creates the journal tables if they don't exist.
// Idempotent and safe to call on every run.
func (j *Journal) InitializeTables(ctx context.Context) error {
	if _, err := j.db.ExecContext(ctx, createRunTableSQL); err != nil {
		return fmt.Errorf("failed to create isaload_run table: %w", err)
	}
	if _, err := j.db.ExecContext(ctx, createRunUnitTableSQL); err != nil {
		return fmt.Errorf("failed to create isaload_run_unit table: %w", err)
	}

	j.logger.Debug("Journal tables initialized")
	return nil
}

// StartRun records the start of a session and returns its run id.
// Returns 0 with no error when journaling is disabled.
func (j *Journal) StartRun(ctx context.Context, datasetName string, level int, truncated bool) (int64, error) {
	if !j.enabled {
		return 0, nil
	}

	if err := j.InitializeTables(ctx); err != nil {
		return 0, err
	}

	res, err := j.db.ExecContext(ctx,
		"INSERT INTO isaload_run (dataset, level, truncated, status) VALUES (?, ?, ?, ?)",
		datasetName, level, truncated, RunStatusRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to record run start: %w", err)
	}

	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}

	j.logger.Debugf("Journal run %d started for dataset %q", runID, datasetName)
	return runID, nil
}

// RecordUnit appends one unit result to a run.
func (j *Journal) RecordUnit(ctx context.Context, runID int64, r UnitResult) error {
	if !j.enabled || runID == 0 {
		return nil
	}

	var reason interface{}
	if r.Reason != "" {
		reason = r.Reason
	}
	var errMsg interface{}
	if r.Err != nil {
		errMsg = r.Err.Error()
	}

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO isaload_run_unit
			(run_id, unit, status, reason, error_message, file_bytes, rows_before, rows_loaded, rows_total, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, r.Unit, r.Status, reason, errMsg,
		r.FileBytes, r.RowsBefore, r.RowsLoaded, r.RowsTotal, r.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to record unit %s: %w", r.Unit, err)
	}

	return nil
}

// FinishRun records a session's final status and totals.
func (j *Journal) FinishRun(ctx context.Context, runID int64, result *SessionResult, status RunStatus) error {
	if !j.enabled || runID == 0 {
		return nil
	}

	_, err := j.db.ExecContext(ctx,
		`UPDATE isaload_run
			SET status = ?, finished_at = CURRENT_TIMESTAMP,
			    units_loaded = ?, units_skipped = ?, units_failed = ?, rows_loaded = ?
			WHERE run_id = ?`,
		status, result.Loaded, result.Skipped, result.Failed, result.RowsLoaded, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to record run finish: %w", err)
	}

	j.logger.Debugf("Journal run %d finished with status %s", runID, status)
	return nil
}

// Run returns one journaled session by id.
// Returns ErrNoJournal when the tables have never been created.
func (j *Journal) Run(ctx context.Context, runID int64) (*RunRecord, error) {
	row := j.db.QueryRowContext(ctx,
		`SELECT run_id, dataset, level, truncated, status, started_at, finished_at,
			units_loaded, units_skipped, units_failed, rows_loaded
			FROM isaload_run WHERE run_id = ?`,
		runID,
	)

	var r RunRecord
	err := row.Scan(&r.RunID, &r.Dataset, &r.Level, &r.Truncated, &r.Status,
		&r.StartedAt, &r.FinishedAt,
		&r.UnitsLoaded, &r.UnitsSkipped, &r.UnitsFailed, &r.RowsLoaded)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("run %d not found in journal", runID)
		}
		if isMissingTable(err) {
			return nil, ErrNoJournal
		}
		return nil, fmt.Errorf("failed to query run: %w", err)
	}

	return &r, nil
}

// RecentRuns returns the most recent journaled sessions, newest first.
// Returns ErrNoJournal when the tables have never been created.
func (j *Journal) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := j.db.QueryContext(ctx,
		`SELECT run_id, dataset, level, truncated, status, started_at, finished_at,
			units_loaded, units_skipped, units_failed, rows_loaded
			FROM isaload_run ORDER BY run_id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		if isMissingTable(err) {
			return nil, ErrNoJournal
		}
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.RunID, &r.Dataset, &r.Level, &r.Truncated, &r.Status,
			&r.StartedAt, &r.FinishedAt,
			&r.UnitsLoaded, &r.UnitsSkipped, &r.UnitsFailed, &r.RowsLoaded); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// RunUnits returns the unit results of one journaled session in load order.
func (j *Journal) RunUnits(ctx context.Context, runID int64) ([]UnitRecord, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT unit, status, reason, error_message, file_bytes, rows_before, rows_loaded, rows_total, duration_ms
			FROM isaload_run_unit WHERE run_id = ? ORDER BY id ASC`,
		runID,
	)
	if err != nil {
		if isMissingTable(err) {
			return nil, ErrNoJournal
		}
		return nil, fmt.Errorf("failed to query run units: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var units []UnitRecord
	for rows.Next() {
		var u UnitRecord
		if err := rows.Scan(&u.Unit, &u.Status, &u.Reason, &u.Error,
			&u.FileBytes, &u.RowsBefore, &u.RowsLoaded, &u.RowsTotal, &u.DurationMS); err != nil {
			return nil, fmt.Errorf("failed to scan run unit: %w", err)
		}
		units = append(units, u)
	}

	return units, rows.Err()
}

// isMissingTable reports whether err is MySQL's ER_NO_SUCH_TABLE.
func isMissingTable(err error) bool {
	var merr *mysql.MySQLError
	return errors.As(err, &merr) && merr.Number == 1146
}
