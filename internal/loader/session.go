package loader

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mesdata/isaload/internal/config"
	"github.com/mesdata/isaload/internal/dataset"
	"github.com/mesdata/isaload/internal/logger"
)

// SessionState tracks where a load session is in its lifecycle.
type SessionState string

const (
	StateInit               SessionState = "init"
	StateConnectionVerified SessionState = "connection_verified"
	StateLoading            SessionState = "loading"
	StateSummarized         SessionState = "summarized"
	StateDone               SessionState = "done"
	StateAborted            SessionState = "aborted"
)

// Session runs the batch loading pass for one dataset: preconditions,
// schema preflight, optional truncate, then every unit in dependency order.
// Per-unit problems never abort the session; only the preconditions and the
// pre-load phases do.
//
// All sink statements ride one dedicated connection so session state
// (foreign key checks, the advisory lock held by the caller) applies to
// every one of them.
type Session struct {
	cfg     *config.Config
	ds      *dataset.Dataset
	conn    *sql.Conn
	streams *StreamRegistry
	journal *Journal
	logger  *logger.Logger
	order   []string
	state   SessionState
}

// NewSession creates a load session. The dataset's load order is computed
// up front so a broken registry fails before the sink is touched.
func NewSession(cfg *config.Config, ds *dataset.Dataset, db *sql.DB, conn *sql.Conn, streams *StreamRegistry, log *logger.Logger) (*Session, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if ds == nil {
		return nil, fmt.Errorf("dataset is nil")
	}
	if db == nil {
		return nil, fmt.Errorf("database is nil")
	}
	if conn == nil {
		return nil, fmt.Errorf("session connection is nil")
	}
	if streams == nil {
		return nil, fmt.Errorf("stream registry is nil")
	}
	if log == nil {
		log = logger.NewDefault()
	}

	order, err := ds.LoadOrder()
	if err != nil {
		return nil, err
	}

	journal, err := NewJournal(db, cfg.Journal.Enabled, log)
	if err != nil {
		return nil, err
	}

	log.Infow("Load session initialized",
		"dataset", ds.Name,
		"units", len(order),
		"order", order,
	)

	return &Session{
		cfg:     cfg,
		ds:      ds,
		conn:    conn,
		streams: streams,
		journal: journal,
		logger:  log.WithDataset(ds.Name),
		order:   order,
		state:   StateInit,
	}, nil
}

// State returns the session's current lifecycle state.
func (s *Session) State() SessionState {
	return s.state
}

// Order returns the unit load order.
func (s *Session) Order() []string {
	return s.order
}

func (s *Session) advance(to SessionState) {
	s.logger.Debugf("Session state: %s -> %s", s.state, to)
	s.state = to
}

// Run executes the whole loading pass and returns the session summary.
// The returned error is non-nil only for fatal conditions: failed
// preconditions or pre-load phases, or interruption. Per-unit failures are
// reported in the result with a nil error.
func (s *Session) Run(ctx context.Context) (*SessionResult, error) {
	result := &SessionResult{
		Dataset:   s.ds.Name,
		Level:     s.ds.Level,
		StartedAt: time.Now(),
	}

	// Both preconditions are fatal before any unit is attempted.
	if err := s.checkDataDir(); err != nil {
		s.advance(StateAborted)
		return nil, err
	}
	if err := s.verifyConnection(ctx); err != nil {
		s.advance(StateAborted)
		return nil, err
	}
	s.advance(StateConnectionVerified)

	preflight, err := NewPreflightChecker(s.conn, s.cfg.Sink.Database, s.logger)
	if err != nil {
		s.advance(StateAborted)
		return nil, err
	}
	if err := preflight.Run(ctx, s.ds); err != nil {
		s.advance(StateAborted)
		return nil, fmt.Errorf("schema preflight failed: %w", err)
	}

	if s.cfg.Load.Truncate {
		truncate, err := NewTruncatePhase(s.conn, s.logger)
		if err != nil {
			s.advance(StateAborted)
			return nil, err
		}
		if _, err := truncate.Truncate(ctx, s.ds); err != nil {
			s.advance(StateAborted)
			return nil, err
		}
		result.Truncated = true
	}

	runID, err := s.journal.StartRun(ctx, s.ds.Name, s.ds.Level, result.Truncated)
	if err != nil {
		s.logger.Warnf("Run journal unavailable: %v", err)
	}
	result.RunID = runID

	if s.cfg.Load.DisableForeignKeyChecks {
		if err := setForeignKeyChecks(ctx, s.conn, true); err != nil {
			s.advance(StateAborted)
			return nil, err
		}
		defer func() {
			if err := setForeignKeyChecks(context.Background(), s.conn, false); err != nil {
				s.logger.Warnf("Failed to restore FOREIGN_KEY_CHECKS: %v", err)
			}
		}()
	}

	bulk, err := NewBulkLoader(s.conn, s.streams, s.cfg.Data.Dir,
		time.Duration(s.cfg.Load.ProgressInterval)*time.Second, s.logger)
	if err != nil {
		s.advance(StateAborted)
		return nil, err
	}

	s.advance(StateLoading)
	for _, unit := range s.order {
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(result.StartedAt)
			s.finishJournal(result, RunStatusInterrupted)
			return result, fmt.Errorf("load interrupted: %w", err)
		}

		r := bulk.LoadUnit(ctx, s.ds, unit)
		result.Add(r)
		s.reportUnit(r)

		if err := s.journal.RecordUnit(ctx, runID, r); err != nil {
			s.logger.Warnf("Failed to journal unit %s: %v", r.Unit, err)
		}
	}

	result.Duration = time.Since(result.StartedAt)
	s.advance(StateSummarized)
	s.finishJournal(result, RunStatusCompleted)
	s.advance(StateDone)

	return result, nil
}

// CheckDataDir verifies the artifact root exists and is a directory. Callers
// run it before contacting the sink; the session re-checks on Run.
func CheckDataDir(dir string) error {
	info, err := os.Stat(dir)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("data directory %q does not exist", dir)
	}
	if err != nil {
		return fmt.Errorf("cannot access data directory %q: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("data path %q is not a directory", dir)
	}
	return nil
}

func (s *Session) checkDataDir() error {
	return CheckDataDir(s.cfg.Data.Dir)
}

// verifyConnection probes the session connection with a ping and a trivial
// round trip.
func (s *Session) verifyConnection(ctx context.Context) error {
	if err := s.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("sink ping failed: %w", err)
	}
	var one int
	if err := s.conn.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("sink probe query failed: %w", err)
	}
	return nil
}

// reportUnit logs one unit's outcome inline, immediately after the attempt.
func (s *Session) reportUnit(r UnitResult) {
	log := s.logger.WithUnit(r.Unit)
	switch r.Status {
	case StatusLoaded:
		log.Infof("Loaded %d rows in %s (%d before, %d total)",
			r.RowsLoaded, r.Duration.Round(time.Millisecond), r.RowsBefore, r.RowsTotal)
	case StatusSkipped:
		log.Infof("Skipped: %s", r.Reason)
	case StatusFailed:
		log.Errorf("Failed (%s): %v", r.Reason, r.Err)
	}
}

// finishJournal records the session's end, downgrading problems to warnings.
func (s *Session) finishJournal(result *SessionResult, status RunStatus) {
	if err := s.journal.FinishRun(context.Background(), result.RunID, result, status); err != nil {
		s.logger.Warnf("Failed to journal run finish: %v", err)
	}
}
