// Package database provides MySQL connection management for isaload.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver

	"github.com/mesdata/isaload/internal/config"
)

// Manager handles the sink database connection.
type Manager struct {
	Sink   *sql.DB
	config *config.Config
}

// NewManager creates a new database manager from configuration.
func NewManager(cfg *config.Config) *Manager {
	return &Manager{
		config: cfg,
	}
}

// Connect establishes the connection to the sink database.
func (m *Manager) Connect(ctx context.Context) error {
	var err error

	m.Sink, err = m.connectWithRetry(ctx, &m.config.Sink)
	if err != nil {
		return fmt.Errorf("failed to connect to sink database: %w", err)
	}

	return nil
}

// connectWithRetry attempts to connect with exponential backoff.
func (m *Manager) connectWithRetry(ctx context.Context, cfg *config.DatabaseConfig) (*sql.DB, error) {
	var db *sql.DB
	var err error

	maxRetries := 3
	backoff := time.Second

	for i := 0; i < maxRetries; i++ {
		db, err = m.connect(cfg)
		if err == nil {
			// Verify connection
			if pingErr := db.PingContext(ctx); pingErr == nil {
				return db, nil
			} else {
				db.Close()
				err = pingErr
			}
		}

		if i < maxRetries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
				backoff *= 2 // Exponential backoff
			}
		}
	}

	return nil, fmt.Errorf("failed after %d retries: %w", maxRetries, err)
}

// connect creates a database connection.
func (m *Manager) connect(cfg *config.DatabaseConfig) (*sql.DB, error) {
	dsn := BuildDSN(cfg)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Configure connection pool
	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
	}
	if cfg.MaxIdleConnections > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConnections)
	}
	db.SetConnMaxLifetime(10 * time.Minute)

	return db, nil
}

// BuildDSN constructs a MySQL DSN from configuration.
func BuildDSN(cfg *config.DatabaseConfig) string {
	// Format: user:password@tcp(host:port)/database?params
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
	)

	if cfg.Database != "" {
		dsn += cfg.Database
	}

	// Add TLS configuration
	params := "?parseTime=true&multiStatements=true"
	switch cfg.TLS {
	case "disable":
		params += "&tls=false"
	case "required":
		params += "&tls=true"
	case "preferred", "":
		params += "&tls=preferred"
	}

	return dsn + params
}

// RedactDSN returns the DSN with the password masked, safe for debug logs.
func RedactDSN(dsn string) string {
	// The password may itself contain '@', so anchor on the fixed
	// "@tcp(" separator that BuildDSN always emits.
	at := strings.LastIndex(dsn, "@tcp(")
	if at < 0 {
		return dsn
	}
	colon := strings.Index(dsn[:at], ":")
	if colon < 0 {
		return dsn
	}
	return dsn[:colon+1] + "****" + dsn[at:]
}

// Probe verifies the sink connection end to end: a driver ping followed
// by a trivial round-trip query.
func (m *Manager) Probe(ctx context.Context) error {
	if m.Sink == nil {
		return fmt.Errorf("sink database is not connected")
	}

	if err := m.Sink.PingContext(ctx); err != nil {
		return fmt.Errorf("sink ping failed: %w", err)
	}

	var one int
	if err := m.Sink.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("sink probe query failed: %w", err)
	}

	return nil
}

// Close closes the sink connection gracefully.
func (m *Manager) Close() error {
	if m.Sink != nil {
		if err := m.Sink.Close(); err != nil {
			return fmt.Errorf("sink close: %w", err)
		}
	}
	return nil
}
