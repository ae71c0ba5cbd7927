// Package verifier provides post-load statistics and referential
// integrity checks for isaload.
package verifier

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mesdata/isaload/internal/dataset"
	"github.com/mesdata/isaload/internal/logger"
	"github.com/mesdata/isaload/internal/sqlutil"
)

// UnitCount is one relation's row count from the statistics pass.
type UnitCount struct {
	Unit string
	Rows int64
}

// StatsResult holds the statistics pass for one dataset.
type StatsResult struct {
	Dataset   string
	Level     int
	Units     []UnitCount
	TotalRows int64
	Omitted   int // units whose count query failed
	Duration  time.Duration
}

// IntegrityFinding is one declared reference and its orphan count.
// Zero orphans means the reference is satisfied.
type IntegrityFinding struct {
	Reference dataset.Reference
	Orphans   int64
}

// Satisfied reports whether the reference held for every child row.
func (f IntegrityFinding) Satisfied() bool {
	return f.Orphans == 0
}

// IntegrityResult holds the integrity pass for one dataset.
type IntegrityResult struct {
	Dataset  string
	Level    int
	Findings []IntegrityFinding
	Violated int // findings with orphans
	Omitted  int // references whose query failed
	Duration time.Duration
}

// Passed reports whether every executed check found zero orphans.
func (r *IntegrityResult) Passed() bool {
	return r.Violated == 0
}

// Verifier runs read-only checks against the sink: per-unit row counts
// and left-anti-join orphan counts for every declared reference. Both
// passes report; neither corrects, and violations never fail the run.
type Verifier struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewVerifier creates a verifier over the sink database.
func NewVerifier(db *sql.DB, log *logger.Logger) (*Verifier, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	if log == nil {
		log = logger.NewDefault()
	}

	return &Verifier{
		db:     db,
		logger: log,
	}, nil
}

// Stats counts every unit's relation in load order. A failed count query
// omits that line item; the pass itself only fails when the dataset's
// order cannot be computed or the run is interrupted.
func (v *Verifier) Stats(ctx context.Context, ds *dataset.Dataset) (*StatsResult, error) {
	startTime := time.Now()

	order, err := ds.LoadOrder()
	if err != nil {
		return nil, fmt.Errorf("failed to get load order: %w", err)
	}

	v.logger.Infof("Collecting statistics for %d units", len(order))

	result := &StatsResult{
		Dataset: ds.Name,
		Level:   ds.Level,
	}

	for _, unit := range order {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("statistics interrupted: %w", err)
		}

		var count int64
		if err := v.db.QueryRowContext(ctx, sqlutil.CountQuery(unit)).Scan(&count); err != nil {
			result.Omitted++
			v.logger.Debugf("Omitting %q from statistics: %v", unit, err)
			continue
		}

		result.Units = append(result.Units, UnitCount{Unit: unit, Rows: count})
		result.TotalRows += count
	}

	result.Duration = time.Since(startTime)
	v.logger.Infof("Statistics complete: %d units, %d total rows", len(result.Units), result.TotalRows)

	return result, nil
}

// CheckIntegrity computes the orphan count for every declared reference.
// Violations are reported findings, not errors; a failed query omits
// that line item.
func (v *Verifier) CheckIntegrity(ctx context.Context, ds *dataset.Dataset) (*IntegrityResult, error) {
	startTime := time.Now()

	v.logger.Infof("Checking %d declared references", len(ds.References))

	result := &IntegrityResult{
		Dataset: ds.Name,
		Level:   ds.Level,
	}

	for _, ref := range ds.References {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("integrity check interrupted: %w", err)
		}

		query := sqlutil.AntiJoinCountQuery(ref.Child, ref.FKColumn, ref.Parent, ref.ParentKey)

		var orphans int64
		if err := v.db.QueryRowContext(ctx, query).Scan(&orphans); err != nil {
			result.Omitted++
			v.logger.Debugf("Omitting %s from integrity check: %v", ref, err)
			continue
		}

		result.Findings = append(result.Findings, IntegrityFinding{Reference: ref, Orphans: orphans})
		if orphans > 0 {
			result.Violated++
			v.logger.Warnf("Reference violated: %s (%d orphans)", ref, orphans)
		} else {
			v.logger.Debugf("Reference satisfied: %s", ref)
		}
	}

	result.Duration = time.Since(startTime)
	if result.Passed() {
		v.logger.Infof("Integrity check complete: %d references satisfied", len(result.Findings))
	} else {
		v.logger.Warnf("Integrity check complete: %d of %d references violated",
			result.Violated, len(result.Findings))
	}

	return result, nil
}
