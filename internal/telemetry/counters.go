package telemetry

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Counters is a concurrency-safe Metrics implementation backed by named
// atomic counters. Components report through the Metrics interface; the
// bootstrap snapshots the whole table for diagnostics.
type Counters struct {
	mu     sync.Mutex
	values map[string]*atomic.Uint64
}

// NewCounters constructs an empty counter table.
func NewCounters() *Counters {
	return &Counters{values: make(map[string]*atomic.Uint64)}
}

func (c *Counters) counter(key string) *atomic.Uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	if !ok {
		v = &atomic.Uint64{}
		c.values[key] = v
	}
	return v
}

// Add implements Metrics.
func (c *Counters) Add(key string, delta uint64) {
	if c == nil {
		return
	}
	c.counter(key).Add(delta)
}

// Store implements Metrics.
func (c *Counters) Store(key string, value uint64) {
	if c == nil {
		return
	}
	c.counter(key).Store(value)
}

// Load reports the current value of one counter.
func (c *Counters) Load(key string) uint64 {
	if c == nil {
		return 0
	}
	return c.counter(key).Load()
}

// Snapshot copies every counter into a plain map for reporting.
func (c *Counters) Snapshot() map[string]uint64 {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]uint64, len(c.values))
	for key, v := range c.values {
		out[key] = v.Load()
	}
	return out
}

// Keys reports the counter names in sorted order.
func (c *Counters) Keys() []string {
	snap := c.Snapshot()
	keys := make([]string, 0, len(snap))
	for key := range snap {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

var _ Metrics = (*Counters)(nil)
