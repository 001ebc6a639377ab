package batch

import (
	"sync"
	"time"
)

// IntervalCollector flushes on a fixed window after the first record
type IntervalCollector struct {
	mu       sync.Mutex
	records  []Record
	interval time.Duration
	timer    *time.Timer
	started  bool
	onFlush  FlushFunc
}

// NewIntervalCollector creates a new IntervalCollector
func NewIntervalCollector(interval time.Duration, onFlush FlushFunc) *IntervalCollector {
	return &IntervalCollector{
		interval: interval,
		onFlush:  onFlush,
	}
}

// Add adds a record and starts the window timer if not already running
func (c *IntervalCollector) Add(rec Record) {
	c.mu.Lock()
	c.records = append(c.records, rec)

	if !c.started {
		c.timer = time.AfterFunc(c.interval, c.flush)
		c.started = true
	}
	c.mu.Unlock()
}

// flush sends accumulated records to the flush callback
func (c *IntervalCollector) flush() {
	c.mu.Lock()
	records := c.records
	c.records = nil
	c.started = false
	c.mu.Unlock()

	if len(records) > 0 {
		c.onFlush(records)
	}
}

// Close stops the timer and flushes any remaining records
func (c *IntervalCollector) Close() {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
	}
	records := c.records
	c.records = nil
	c.started = false
	c.mu.Unlock()

	if len(records) > 0 {
		c.onFlush(records)
	}
}
