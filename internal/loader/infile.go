// Package loader implements the batch loading pass: streaming unit CSVs
// into their sink relations in dependency order.
package loader

import (
	"io"
	"sync"

	"github.com/go-sql-driver/mysql"
)

// readerPrefix is how LOAD DATA LOCAL INFILE statements address a
// registered reader handler instead of a file path.
const readerPrefix = "Reader::"

// SourceName returns the infile source a unit's LOAD DATA statement
// references, e.g. "Reader::sensors".
func SourceName(unit string) string {
	return readerPrefix + unit
}

// StreamRegistry owns the driver-level reader handlers that feed
// LOAD DATA LOCAL INFILE. One handler is installed per unit; the active
// stream for a unit is swapped in just before its statement runs and
// cleared right after.
//
// Register must run before the first sink connection: the driver only
// announces the local-infile capability on handshakes made while a handler
// exists, and pooled connections live for the whole session.
type StreamRegistry struct {
	mu         sync.Mutex
	units      []string
	streams    map[string]io.Reader
	registered bool
}

// NewStreamRegistry creates a registry covering the given units.
func NewStreamRegistry(units []string) *StreamRegistry {
	return &StreamRegistry{
		units:   units,
		streams: make(map[string]io.Reader, len(units)),
	}
}

// Register installs a driver reader handler for every unit. Safe to call
// once per registry; repeated calls are no-ops.
func (sr *StreamRegistry) Register() {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	if sr.registered {
		return
	}
	for _, unit := range sr.units {
		mysql.RegisterReaderHandler(unit, func() io.Reader {
			return sr.take(unit)
		})
	}
	sr.registered = true
}

// Deregister removes every handler installed by Register.
func (sr *StreamRegistry) Deregister() {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	if !sr.registered {
		return
	}
	for _, unit := range sr.units {
		mysql.DeregisterReaderHandler(unit)
	}
	sr.registered = false
}

// Set makes src the active stream for a unit. The driver picks it up when
// the unit's LOAD DATA statement executes.
func (sr *StreamRegistry) Set(unit string, src io.Reader) {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	sr.streams[unit] = src
}

// Clear drops the active stream for a unit. A LOAD DATA referencing a
// cleared unit fails inside the driver rather than re-reading stale data.
func (sr *StreamRegistry) Clear(unit string) {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	delete(sr.streams, unit)
}

// take returns the active stream for a unit, or nil when none is set.
func (sr *StreamRegistry) take(unit string) io.Reader {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	return sr.streams[unit]
}
