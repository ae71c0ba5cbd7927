package loader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mesdata/isaload/internal/dataset"
	"github.com/mesdata/isaload/internal/logger"
)

// UnitEstimate sizes one unit's source file.
type UnitEstimate struct {
	Unit      string
	File      string
	Present   bool
	FileBytes int64
	DataRows  int64 // Line count minus the header
}

// EstimateResult holds dry-run results for one dataset.
type EstimateResult struct {
	Dataset    string
	Level      int
	Order      []string
	Units      []UnitEstimate
	TotalBytes int64
	TotalRows  int64
	Missing    int
}

// Estimator sizes a load from the source files alone, without touching the
// sink. Row estimates come from counting lines, so large files take a full
// read; that is the point of a dry run.
type Estimator struct {
	dataDir string
	logger  *logger.Logger
}

// NewEstimator creates an estimator over the given data directory.
func NewEstimator(dataDir string, log *logger.Logger) *Estimator {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Estimator{
		dataDir: dataDir,
		logger:  log,
	}
}

// Estimate sizes every unit of a dataset in load order.
func (e *Estimator) Estimate(ctx context.Context, ds *dataset.Dataset) (*EstimateResult, error) {
	order, err := ds.LoadOrder()
	if err != nil {
		return nil, fmt.Errorf("failed to get load order: %w", err)
	}

	result := &EstimateResult{
		Dataset: ds.Name,
		Level:   ds.Level,
		Order:   order,
	}

	for _, unit := range order {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("estimate interrupted: %w", err)
		}

		ue := UnitEstimate{
			Unit: unit,
			File: filepath.Join(e.dataDir, ds.FileName(unit)),
		}

		info, err := os.Stat(ue.File)
		if err != nil || info.IsDir() {
			result.Missing++
			result.Units = append(result.Units, ue)
			continue
		}

		ue.Present = true
		ue.FileBytes = info.Size()

		rows, err := e.countDataRows(ue.File)
		if err != nil {
			e.logger.Warnf("Failed to count rows in %s: %v", ue.File, err)
		} else {
			ue.DataRows = rows
		}

		result.TotalBytes += ue.FileBytes
		result.TotalRows += ue.DataRows
		result.Units = append(result.Units, ue)
	}

	return result, nil
}

// countDataRows counts the data lines of a CSV file, excluding the header.
func (e *Estimator) countDataRows(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()

	lines, err := countLines(f)
	if err != nil {
		return 0, err
	}
	if lines <= 1 {
		return 0, nil
	}
	return lines - 1, nil
}

// countLines counts newline-terminated lines, treating a final unterminated
// line as a line.
func countLines(r io.Reader) (int64, error) {
	buf := make([]byte, 64*1024)
	var lines int64
	var last byte

	for {
		n, err := r.Read(buf)
		if n > 0 {
			lines += int64(bytes.Count(buf[:n], []byte{'\n'}))
			last = buf[n-1]
		}
		if err == io.EOF {
			if last != 0 && last != '\n' {
				lines++
			}
			return lines, nil
		}
		if err != nil {
			return lines, err
		}
	}
}
