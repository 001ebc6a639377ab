package batch

import "sync"

// CountCollector flushes after N records
type CountCollector struct {
	mu      sync.Mutex
	records []Record
	target  int
	onFlush FlushFunc
}

// NewCountCollector creates a new CountCollector
func NewCountCollector(count int, onFlush FlushFunc) *CountCollector {
	if count < 1 {
		count = 1
	}
	return &CountCollector{
		target:  count,
		onFlush: onFlush,
	}
}

// Add adds a record and flushes if the target count is reached
func (c *CountCollector) Add(rec Record) {
	c.mu.Lock()
	c.records = append(c.records, rec)
	shouldFlush := len(c.records) >= c.target
	var records []Record
	if shouldFlush {
		records = c.records
		c.records = nil
	}
	c.mu.Unlock()

	if shouldFlush {
		c.onFlush(records)
	}
}

// Close flushes any remaining records
func (c *CountCollector) Close() {
	c.mu.Lock()
	records := c.records
	c.records = nil
	c.mu.Unlock()

	if len(records) > 0 {
		c.onFlush(records)
	}
}
