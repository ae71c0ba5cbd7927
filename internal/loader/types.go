package loader

import "time"

// UnitStatus is the outcome of one unit's load attempt.
type UnitStatus string

const (
	StatusLoaded  UnitStatus = "loaded"
	StatusSkipped UnitStatus = "skipped"
	StatusFailed  UnitStatus = "failed"
)

// UnitResult holds the outcome of loading a single unit.
type UnitResult struct {
	Unit       string
	File       string        // Resolved CSV path
	Status     UnitStatus
	Reason     string        // Short reason for a skip or failure
	Err        error         // Verbatim sink error for failures
	FileBytes  int64         // Size of the source file
	RowsBefore int64         // Row count before the load
	RowsLoaded int64         // Rows loaded this run (bulk-load rows affected)
	RowsTotal  int64         // Row count after the load
	Duration   time.Duration
}

// SessionResult aggregates the outcome of a whole load session.
type SessionResult struct {
	Dataset    string
	Level      int
	StartedAt  time.Time
	Duration   time.Duration
	Truncated  bool
	RunID      int64 // Journal run id, 0 when journaling is off
	Units      []UnitResult
	Loaded     int
	Skipped    int
	Failed     int
	RowsLoaded int64
}

// Add appends a unit result and updates the tallies.
func (sr *SessionResult) Add(r UnitResult) {
	sr.Units = append(sr.Units, r)
	switch r.Status {
	case StatusLoaded:
		sr.Loaded++
		sr.RowsLoaded += r.RowsLoaded
	case StatusSkipped:
		sr.Skipped++
	case StatusFailed:
		sr.Failed++
	}
}
