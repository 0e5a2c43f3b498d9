// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Named atomic counters for reactor and socket telemetry.

package control

import (
	"sync"
	"sync/atomic"
)

// Counters is a registry of int64 counters created on first use.
// A nil *Counters discards updates.
type Counters struct {
	mu sync.RWMutex
	m  map[string]*atomic.Int64
}

// NewCounters creates an empty registry.
func NewCounters() *Counters {
	return &Counters{m: make(map[string]*atomic.Int64)}
}

// Add adds delta to the named counter.
func (c *Counters) Add(key string, delta int64) {
	if c == nil {
		return
	}
	c.counter(key).Add(delta)
}

// Get returns the named counter, zero if it was never touched.
func (c *Counters) Get(key string) int64 {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	v := c.m[key]
	c.mu.RUnlock()
	if v == nil {
		return 0
	}
	return v.Load()
}

// GetSnapshot returns the current value of every counter.
func (c *Counters) GetSnapshot() map[string]int64 {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]int64, len(c.m))
	for k, v := range c.m {
		out[k] = v.Load()
	}
	return out
}

func (c *Counters) counter(key string) *atomic.Int64 {
	c.mu.RLock()
	v := c.m[key]
	c.mu.RUnlock()
	if v != nil {
		return v
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if v = c.m[key]; v == nil {
		v = new(atomic.Int64)
		c.m[key] = v
	}
	return v
}
