package batch

// ImmediateCollector flushes on every record (pass-through)
type ImmediateCollector struct {
	onFlush FlushFunc
}

// NewImmediateCollector creates a new ImmediateCollector
func NewImmediateCollector(onFlush FlushFunc) *ImmediateCollector {
	return &ImmediateCollector{onFlush: onFlush}
}

// Add immediately flushes the record
func (c *ImmediateCollector) Add(rec Record) {
	c.onFlush([]Record{rec})
}

// Close is a no-op for ImmediateCollector
func (c *ImmediateCollector) Close() {}
