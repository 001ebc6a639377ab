package batch

import (
	"sync"
	"time"
)

// QuietCollector flushes after a quiet period (no new records for the window)
type QuietCollector struct {
	mu      sync.Mutex
	records []Record
	timer   *time.Timer
	quiet   time.Duration
	onFlush FlushFunc
}

// NewQuietCollector creates a new QuietCollector
func NewQuietCollector(quiet time.Duration, onFlush FlushFunc) *QuietCollector {
	return &QuietCollector{
		quiet:   quiet,
		onFlush: onFlush,
	}
}

// Add adds a record and resets the quiet timer
func (c *QuietCollector) Add(rec Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.records = append(c.records, rec)

	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.quiet, c.flush)
}

// flush sends accumulated records to the flush callback
func (c *QuietCollector) flush() {
	c.mu.Lock()
	records := c.records
	c.records = nil
	c.mu.Unlock()

	if len(records) > 0 {
		c.onFlush(records)
	}
}

// Close stops the timer and flushes any remaining records
func (c *QuietCollector) Close() {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
	}
	records := c.records
	c.records = nil
	c.mu.Unlock()

	if len(records) > 0 {
		c.onFlush(records)
	}
}
