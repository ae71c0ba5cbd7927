package loader

import (
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/mesdata/isaload/internal/logger"
)

// ProgressReader wraps a unit's CSV stream and logs read progress at a
// bounded rate while the driver drains it. The driver reads synchronously
// from a single goroutine, so no locking is needed.
type ProgressReader struct {
	src      io.Reader
	unit     string
	total    int64 // File size in bytes, 0 when unknown
	read     int64
	interval time.Duration // Minimum time between progress lines, <=0 disables
	started  time.Time
	lastLog  time.Time
	logger   *logger.Logger
}

// NewProgressReader wraps src for a unit of the given total size.
func NewProgressReader(src io.Reader, unit string, total int64, interval time.Duration, log *logger.Logger) *ProgressReader {
	if log == nil {
		log = logger.NewDefault()
	}
	now := time.Now()
	return &ProgressReader{
		src:      src,
		unit:     unit,
		total:    total,
		interval: interval,
		started:  now,
		lastLog:  now,
		logger:   log,
	}
}

// Read implements io.Reader, counting bytes as the driver consumes them.
func (p *ProgressReader) Read(b []byte) (int, error) {
	n, err := p.src.Read(b)
	if n > 0 {
		p.read += int64(n)
		p.maybeLog()
	}
	return n, err
}

// BytesRead returns the number of bytes consumed so far.
func (p *ProgressReader) BytesRead() int64 {
	return p.read
}

// maybeLog emits a progress line when at least one interval has elapsed
// since the previous one.
func (p *ProgressReader) maybeLog() {
	if p.interval <= 0 {
		return
	}
	now := time.Now()
	if now.Sub(p.lastLog) < p.interval {
		return
	}
	p.lastLog = now

	elapsed := now.Sub(p.started).Seconds()
	var rate float64
	if elapsed > 0 {
		rate = float64(p.read) / elapsed
	}

	if p.total > 0 {
		pct := float64(p.read) / float64(p.total) * 100
		p.logger.Infof("Streaming %s: %.1f%% (%s of %s, %s/s)",
			p.unit, pct, humanize.Bytes(uint64(p.read)), humanize.Bytes(uint64(p.total)), humanize.Bytes(uint64(rate)))
	} else {
		p.logger.Infof("Streaming %s: %s read (%s/s)",
			p.unit, humanize.Bytes(uint64(p.read)), humanize.Bytes(uint64(rate)))
	}
}
