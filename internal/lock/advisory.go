// Package lock provides MySQL advisory locking for isaload sessions.
package lock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrLockTimeout is returned when lock acquisition times out because
// another session is holding the lock.
var ErrLockTimeout = errors.New("lock acquisition timed out")

// TimeoutImmediate returns immediately if the lock cannot be acquired (no wait).
const TimeoutImmediate = 0

// querier is the subset of database/sql the lock calls need. Both *sql.DB
// and *sql.Conn satisfy it.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// AdvisoryLock represents a MySQL advisory lock preventing concurrent load
// sessions against the same dataset. It uses MySQL's GET_LOCK() function to
// acquire a named lock that is automatically released when the connection
// closes or RELEASE_LOCK() is called.
//
// GET_LOCK is scoped to the connection that acquired it. Acquire and release
// must ride the same session, so callers working against a pool should pass
// a dedicated *sql.Conn rather than the *sql.DB itself.
type AdvisoryLock struct {
	db       querier
	lockName string
	held     bool
}

// NewAdvisoryLock creates a new advisory lock with the given name.
// The lock is not acquired until AcquireLock is called.
func NewAdvisoryLock(db querier, lockName string) *AdvisoryLock {
	return &AdvisoryLock{
		db:       db,
		lockName: lockName,
		held:     false,
	}
}

// AcquireLock attempts to acquire the advisory lock with the specified timeout.
// Returns true if the lock was acquired, false if timeout was reached.
// Returns an error if the database query fails.
//
// MySQL GET_LOCK() return values:
//   - 1: Lock was obtained successfully
//   - 0: Timeout was reached without obtaining the lock
//   - NULL: An error occurred (e.g., out of memory, thread killed)
//
// Timeout is specified in seconds.
func (a *AdvisoryLock) AcquireLock(ctx context.Context, timeoutSeconds int) (bool, error) {
	if a.held {
		return true, nil // Already holding the lock
	}

	query := "SELECT GET_LOCK(?, ?)"
	var result sql.NullInt64

	err := a.db.QueryRowContext(ctx, query, a.lockName, timeoutSeconds).Scan(&result)
	if err != nil {
		return false, fmt.Errorf("failed to execute GET_LOCK: %w", err)
	}

	// Check if result is NULL (error case)
	if !result.Valid {
		return false, fmt.Errorf("GET_LOCK returned NULL for lock %q (possible database error)", a.lockName)
	}

	// Check result value
	switch result.Int64 {
	case 1:
		a.held = true
		return true, nil
	case 0:
		// Timeout reached - another session is holding the lock
		return false, nil
	default:
		return false, fmt.Errorf("unexpected GET_LOCK return value: %d", result.Int64)
	}
}

// ReleaseLock releases the advisory lock.
// Returns true if the lock was released successfully, false if the lock was not held.
// Returns an error if the database query fails.
//
// MySQL RELEASE_LOCK() return values:
//   - 1: Lock was released successfully
//   - 0: Lock was not established by this thread (not held)
//   - NULL: Named lock did not exist
//
// Note: Locks are automatically released when the database connection closes,
// but explicit release is recommended for proper cleanup.
func (a *AdvisoryLock) ReleaseLock(ctx context.Context) (bool, error) {
	if !a.held {
		return false, nil // Not holding the lock
	}

	query := "SELECT RELEASE_LOCK(?)"
	var result sql.NullInt64

	err := a.db.QueryRowContext(ctx, query, a.lockName).Scan(&result)
	if err != nil {
		return false, fmt.Errorf("failed to execute RELEASE_LOCK: %w", err)
	}

	// Check if result is NULL (lock didn't exist)
	if !result.Valid {
		a.held = false // Update state even if NULL
		return false, fmt.Errorf("RELEASE_LOCK returned NULL for lock %q (lock did not exist)", a.lockName)
	}

	// Check result value
	switch result.Int64 {
	case 1:
		a.held = false
		return true, nil
	case 0:
		// Lock was not established by this thread
		a.held = false // Update state to reflect reality
		return false, nil
	default:
		return false, fmt.Errorf("unexpected RELEASE_LOCK return value: %d", result.Int64)
	}
}

// IsHeld returns true if this lock is currently held by this session.
func (a *AdvisoryLock) IsHeld() bool {
	return a.held
}

// LockName returns the name of the advisory lock.
func (a *AdvisoryLock) LockName() string {
	return a.lockName
}

// TryAcquire attempts to acquire the lock immediately without waiting.
// Returns true if acquired, false if the lock is already held by another session.
// Returns an error only if there is a database failure.
func (a *AdvisoryLock) TryAcquire(ctx context.Context) (bool, error) {
	return a.AcquireLock(ctx, TimeoutImmediate)
}

// AcquireOrFail attempts to acquire the lock within the given timeout.
// Returns nil if the lock is acquired successfully.
// Returns ErrLockTimeout if another session is holding the lock.
// Returns other errors for database failures.
func (a *AdvisoryLock) AcquireOrFail(ctx context.Context, timeoutSeconds int) error {
	acquired, err := a.AcquireLock(ctx, timeoutSeconds)
	if err != nil {
		return err
	}
	if !acquired {
		return fmt.Errorf("%w: lock %q is held by another session", ErrLockTimeout, a.lockName)
	}
	return nil
}

// DatasetLockName creates a consistent lock name for a dataset level.
// Lock names follow the format "isaload:level{N}".
//
// This ensures:
//   - Consistent naming across all isaload instances
//   - Namespacing to avoid conflicts with other MySQL locks
//   - Easy identification in MySQL's lock tables
//
// Example: DatasetLockName(3) returns "isaload:level3"
func DatasetLockName(level int) string {
	return fmt.Sprintf("isaload:level%d", level)
}

// NewDatasetLock creates the advisory lock guarding one dataset level.
// The lock name is automatically generated using DatasetLockName.
//
// This is the recommended way to create locks for load sessions so two
// processes cannot interleave loads of the same dataset.
//
// Example:
//
//	lk := lock.NewDatasetLock(conn, 3)
//	if err := lk.AcquireOrFail(ctx, cfg.Load.LockTimeout); err != nil {
//	    if errors.Is(err, lock.ErrLockTimeout) {
//	        log.Error("another session is loading this dataset")
//	    }
//	    return err
//	}
//	defer lk.ReleaseLock(context.Background())
func NewDatasetLock(db querier, level int) *AdvisoryLock {
	return NewAdvisoryLock(db, DatasetLockName(level))
}
