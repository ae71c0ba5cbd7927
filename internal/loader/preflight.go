package loader

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/mesdata/isaload/internal/dataset"
	"github.com/mesdata/isaload/internal/logger"
	"github.com/mesdata/isaload/internal/sqlutil"
)

// PreflightError represents a preflight check failure.
type PreflightError struct {
	Check   string
	Message string
	Units   []string
}

func (e *PreflightError) Error() string {
	if len(e.Units) > 0 {
		return fmt.Sprintf("%s: %s (units: %v)", e.Check, e.Message, e.Units)
	}
	return fmt.Sprintf("%s: %s", e.Check, e.Message)
}

// PreflightChecker verifies the sink schema can take a dataset before any
// unit is touched. Missing relations and a disabled local_infile are fatal;
// declared references without a matching FOREIGN KEY constraint are only
// reported, since load order follows the declared graph either way.
type PreflightChecker struct {
	conn   *sql.Conn
	schema string
	logger *logger.Logger
}

// NewPreflightChecker creates a preflight checker for the given sink schema.
func NewPreflightChecker(conn *sql.Conn, schema string, log *logger.Logger) (*PreflightChecker, error) {
	if conn == nil {
		return nil, fmt.Errorf("session connection is nil")
	}
	if schema == "" {
		return nil, fmt.Errorf("sink schema name is required")
	}
	if log == nil {
		log = logger.NewDefault()
	}

	return &PreflightChecker{
		conn:   conn,
		schema: schema,
		logger: log,
	}, nil
}

// Run executes all preflight checks for a dataset.
func (p *PreflightChecker) Run(ctx context.Context, ds *dataset.Dataset) error {
	p.logger.Debug("Running schema preflight checks...")

	if err := p.ValidateUnitsExist(ctx, ds.UnitNames()); err != nil {
		return err
	}

	if err := p.CheckLocalInfile(ctx); err != nil {
		return err
	}

	if err := p.WarnMissingForeignKeys(ctx, ds); err != nil {
		return err
	}

	p.logger.Debug("Schema preflight checks PASSED")
	return nil
}

// ValidateUnitsExist checks that every unit's relation exists in the sink
// schema.
func (p *PreflightChecker) ValidateUnitsExist(ctx context.Context, units []string) error {
	const query = `
		SELECT TABLE_NAME
		FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = ?
		AND TABLE_NAME IN (?)`

	rows, err := p.conn.QueryContext(ctx, expandInList(query, len(units)), inListArgs(p.schema, units)...)
	if err != nil {
		return fmt.Errorf("failed to query relations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	existing := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		existing[name] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}

	var missing []string
	for _, unit := range units {
		if !existing[unit] {
			missing = append(missing, unit)
		}
	}

	if len(missing) > 0 {
		return &PreflightError{
			Check:   "RELATION_EXISTENCE_CHECK",
			Message: "Relations not found in sink schema",
			Units:   missing,
		}
	}

	p.logger.Debugf("Relation existence check PASSED (%d units)", len(units))
	return nil
}

// CheckLocalInfile verifies the server accepts LOAD DATA LOCAL INFILE.
func (p *PreflightChecker) CheckLocalInfile(ctx context.Context) error {
	var enabled int
	if err := p.conn.QueryRowContext(ctx, "SELECT @@GLOBAL.local_infile").Scan(&enabled); err != nil {
		return fmt.Errorf("failed to query local_infile: %w", err)
	}

	if enabled != 1 {
		return &PreflightError{
			Check:   "LOCAL_INFILE_CHECK",
			Message: "local_infile is disabled on the server. Enable it with: SET GLOBAL local_infile = 1",
		}
	}

	p.logger.Debug("local_infile check PASSED")
	return nil
}

// WarnMissingForeignKeys reports declared references that have no matching
// FOREIGN KEY constraint in the sink schema. This is informational only.
func (p *PreflightChecker) WarnMissingForeignKeys(ctx context.Context, ds *dataset.Dataset) error {
	constraints, err := p.schemaForeignKeys(ctx, ds.UnitNames())
	if err != nil {
		return fmt.Errorf("failed to query foreign keys: %w", err)
	}

	var unenforced []string
	for _, ref := range ds.References {
		key := fmt.Sprintf("%s.%s->%s.%s", ref.Child, ref.FKColumn, ref.Parent, ref.ParentKey)
		if !constraints[key] {
			unenforced = append(unenforced, ref.String())
		}
	}

	if len(unenforced) > 0 {
		p.logger.Warnf("Declared references without a FOREIGN KEY constraint in the schema (%d): %v",
			len(unenforced), unenforced)
	} else {
		p.logger.Debug("Foreign key parity check complete (all declared references enforced)")
	}

	return nil
}

// schemaForeignKeys returns the set of FK constraints on the given units,
// keyed as "child.col->parent.key".
func (p *PreflightChecker) schemaForeignKeys(ctx context.Context, units []string) (map[string]bool, error) {
	const query = `
		SELECT TABLE_NAME, COLUMN_NAME, REFERENCED_TABLE_NAME, REFERENCED_COLUMN_NAME
		FROM information_schema.KEY_COLUMN_USAGE
		WHERE TABLE_SCHEMA = ?
		AND REFERENCED_TABLE_NAME IS NOT NULL
		AND TABLE_NAME IN (?)`

	rows, err := p.conn.QueryContext(ctx, expandInList(query, len(units)), inListArgs(p.schema, units)...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	constraints := make(map[string]bool)
	for rows.Next() {
		var child, column, parent, parentKey string
		if err := rows.Scan(&child, &column, &parent, &parentKey); err != nil {
			return nil, err
		}
		constraints[fmt.Sprintf("%s.%s->%s.%s", child, column, parent, parentKey)] = true
	}

	return constraints, rows.Err()
}

// expandInList replaces the single "(?)" marker with n placeholders.
func expandInList(query string, n int) string {
	return strings.Replace(query, "(?)", "("+sqlutil.Placeholders(n)+")", 1)
}

// inListArgs prepends the schema name to the unit list as query arguments.
func inListArgs(schema string, units []string) []interface{} {
	args := make([]interface{}, len(units)+1)
	args[0] = schema
	for i, unit := range units {
		args[i+1] = unit
	}
	return args
}
