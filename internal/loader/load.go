package loader

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mesdata/isaload/internal/dataset"
	"github.com/mesdata/isaload/internal/logger"
	"github.com/mesdata/isaload/internal/sqlutil"
)

// BulkLoader streams unit CSVs into their sink relations with
// LOAD DATA LOCAL INFILE. It is bound to a single session connection so
// session state set by the caller (foreign key checks, advisory lock)
// applies to every statement it runs.
type BulkLoader struct {
	conn             *sql.Conn
	streams          *StreamRegistry
	dataDir          string
	progressInterval time.Duration
	logger           *logger.Logger
}

// NewBulkLoader creates a loader bound to one session connection.
func NewBulkLoader(conn *sql.Conn, streams *StreamRegistry, dataDir string, progressInterval time.Duration, log *logger.Logger) (*BulkLoader, error) {
	if conn == nil {
		return nil, fmt.Errorf("session connection is nil")
	}
	if streams == nil {
		return nil, fmt.Errorf("stream registry is nil")
	}
	if log == nil {
		log = logger.NewDefault()
	}

	return &BulkLoader{
		conn:             conn,
		streams:          streams,
		dataDir:          dataDir,
		progressInterval: progressInterval,
		logger:           log,
	}, nil
}

// LoadUnit loads a single unit's CSV into its relation. Every recoverable
// problem is folded into the returned result so the session can continue
// with the next unit.
func (bl *BulkLoader) LoadUnit(ctx context.Context, ds *dataset.Dataset, unit string) UnitResult {
	start := time.Now()
	result := UnitResult{
		Unit: unit,
		File: filepath.Join(bl.dataDir, ds.FileName(unit)),
	}

	info, err := os.Stat(result.File)
	if errors.Is(err, os.ErrNotExist) || (err == nil && info.IsDir()) {
		return skip(result, start, "source not found", nil)
	}
	if err != nil {
		return skip(result, start, "source not readable", err)
	}
	result.FileBytes = info.Size()

	// Counting before the load makes the per-run delta explicit; re-running
	// an additive load shows up as a delta instead of a silent inflation.
	before, err := bl.countRows(ctx, unit)
	if err != nil {
		return fail(result, start, "count failed", err)
	}
	result.RowsBefore = before

	f, err := os.Open(result.File)
	if err != nil {
		return skip(result, start, "source not readable", err)
	}
	defer func() { _ = f.Close() }()

	progress := NewProgressReader(f, unit, result.FileBytes, bl.progressInterval, bl.logger)
	bl.streams.Set(unit, progress)
	defer bl.streams.Clear(unit)

	res, err := bl.conn.ExecContext(ctx, loadStatement(unit))
	if err != nil {
		return fail(result, start, "sink rejected", err)
	}
	result.RowsLoaded, _ = res.RowsAffected()

	total, err := bl.countRows(ctx, unit)
	if err != nil {
		// The post-load count is informational; fall back to the computed total.
		bl.logger.Warnf("Post-load count failed for %s: %v", unit, err)
		total = result.RowsBefore + result.RowsLoaded
	}
	result.RowsTotal = total

	result.Status = StatusLoaded
	result.Duration = time.Since(start)
	return result
}

// countRows returns the current row count of a unit's relation.
func (bl *BulkLoader) countRows(ctx context.Context, unit string) (int64, error) {
	var n int64
	if err := bl.conn.QueryRowContext(ctx, sqlutil.CountQuery(unit)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count query failed: %w", err)
	}
	return n, nil
}

// loadStatement builds the bulk-load statement for a unit. No column list:
// CSV field order maps positionally to the relation's column order, and the
// header line is skipped rather than interpreted.
func loadStatement(unit string) string {
	return fmt.Sprintf(
		"LOAD DATA LOCAL INFILE '%s' INTO TABLE %s"+
			" FIELDS TERMINATED BY ',' OPTIONALLY ENCLOSED BY '\"'"+
			" LINES TERMINATED BY '\\n' IGNORE 1 LINES",
		SourceName(unit),
		sqlutil.QuoteIdentifier(unit),
	)
}

func skip(r UnitResult, start time.Time, reason string, err error) UnitResult {
	r.Status = StatusSkipped
	r.Reason = reason
	r.Err = err
	r.Duration = time.Since(start)
	return r
}

// fail marks a unit failed, keeping the sink's error verbatim.
func fail(r UnitResult, start time.Time, reason string, err error) UnitResult {
	r.Status = StatusFailed
	r.Reason = reason
	r.Err = err
	r.Duration = time.Since(start)
	return r
}
