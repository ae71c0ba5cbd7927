package loader

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mesdata/isaload/internal/dataset"
	"github.com/mesdata/isaload/internal/logger"
	"github.com/mesdata/isaload/internal/sqlutil"
)

// TruncateStats contains statistics about a truncate operation.
type TruncateStats struct {
	UnitsTruncated int
	Duration       time.Duration
}

// TruncatePhase empties dataset relations in child-first order so a load
// can start from a clean sink. Foreign key checks are disabled for the
// session while it runs and restored afterward; MySQL refuses to truncate
// a relation referenced by a foreign key otherwise.
type TruncatePhase struct {
	conn   *sql.Conn
	logger *logger.Logger
}

// NewTruncatePhase creates a truncate phase bound to one session connection.
func NewTruncatePhase(conn *sql.Conn, log *logger.Logger) (*TruncatePhase, error) {
	if conn == nil {
		return nil, fmt.Errorf("session connection is nil")
	}
	if log == nil {
		log = logger.NewDefault()
	}

	return &TruncatePhase{
		conn:   conn,
		logger: log,
	}, nil
}

// Truncate empties every relation in the dataset, children before parents.
// Any failure stops the phase; a partially emptied sink must not be loaded
// into as if it were clean.
func (tp *TruncatePhase) Truncate(ctx context.Context, ds *dataset.Dataset) (*TruncateStats, error) {
	startTime := time.Now()

	order, err := ds.TruncateOrder()
	if err != nil {
		return nil, fmt.Errorf("failed to get truncate order: %w", err)
	}

	tp.logger.Infof("Truncating %d relations in reverse dependency order", len(order))

	if err := setForeignKeyChecks(ctx, tp.conn, true); err != nil {
		return nil, err
	}
	defer func() {
		// Restore even when the phase is interrupted; the session
		// connection outlives it.
		if err := setForeignKeyChecks(context.Background(), tp.conn, false); err != nil {
			tp.logger.Warnf("Failed to restore FOREIGN_KEY_CHECKS: %v", err)
		}
	}()

	stats := &TruncateStats{}
	for _, unit := range order {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("truncate interrupted: %w", err)
		}

		if _, err := tp.conn.ExecContext(ctx, "TRUNCATE TABLE "+sqlutil.QuoteIdentifier(unit)); err != nil {
			return stats, fmt.Errorf("failed to truncate %s: %w", unit, err)
		}

		stats.UnitsTruncated++
		tp.logger.Debugf("Truncated %q", unit)
	}

	stats.Duration = time.Since(startTime)
	tp.logger.Infof("Truncate complete: %d relations in %s", stats.UnitsTruncated, stats.Duration)

	return stats, nil
}

// setForeignKeyChecks toggles FOREIGN_KEY_CHECKS on the session connection.
func setForeignKeyChecks(ctx context.Context, conn *sql.Conn, disable bool) error {
	value := 1
	if disable {
		value = 0
	}

	query := fmt.Sprintf("SET FOREIGN_KEY_CHECKS = %d", value)
	if _, err := conn.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to set FOREIGN_KEY_CHECKS: %w", err)
	}

	return nil
}
