// Package batch provides write coalescing for the event ledger. Consumers
// add records one at a time; the collector decides when to hand the
// accumulated slice to the flush callback.
package batch

import (
	"fmt"
	"time"
)

// Record is one pending ledger write.
type Record struct {
	EventType string
	Group     string
	Payload   map[string]any
}

// FlushFunc is called when a collector flushes records
type FlushFunc func(records []Record)

// Collector accumulates records and flushes based on strategy
type Collector interface {
	Add(rec Record)
	Close()
}

// New creates a collector for the named strategy.
// Window applies to "interval" and "quiet"; size applies to "count".
func New(strategy string, window time.Duration, size int, onFlush FlushFunc) (Collector, error) {
	switch strategy {
	case "", "immediate":
		return NewImmediateCollector(onFlush), nil
	case "interval":
		return NewIntervalCollector(window, onFlush), nil
	case "quiet":
		return NewQuietCollector(window, onFlush), nil
	case "count":
		return NewCountCollector(size, onFlush), nil
	default:
		return nil, fmt.Errorf("unknown flush strategy: %s", strategy)
	}
}
