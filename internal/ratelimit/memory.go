package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryCounter is a process-local Counter for development and tests.
// Expired entries are dropped lazily and by a periodic cleanup loop.
type MemoryCounter struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
	done    chan struct{}
	once    sync.Once
}

type entry struct {
	count     int64
	expiresAt time.Time
}

// NewMemoryCounter starts a counter whose cleanup loop runs every cleanup
func NewMemoryCounter(cleanup time.Duration) *MemoryCounter {
	c := &MemoryCounter{
		entries: make(map[string]*entry),
		now:     time.Now,
		done:    make(chan struct{}),
	}
	if cleanup > 0 {
		go c.cleanupLoop(cleanup)
	}
	return c
}

// WithClock replaces the time source
func (c *MemoryCounter) WithClock(now func() time.Time) *MemoryCounter {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
	return c
}

func (c *MemoryCounter) Acquire(_ context.Context, key string, limit int64, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	e, exists := c.entries[key]
	if !exists || !now.Before(e.expiresAt) {
		e = &entry{expiresAt: now.Add(ttl)}
		c.entries[key] = e
	}

	if e.count >= limit {
		return false, nil
	}
	e.count++
	return true, nil
}

// Count returns the live count at key
func (c *MemoryCounter) Count(key string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.expiresAt) {
		return 0
	}
	return e.count
}

// Close stops the cleanup loop
func (c *MemoryCounter) Close() {
	c.once.Do(func() { close(c.done) })
}

func (c *MemoryCounter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := c.now()
			for key, e := range c.entries {
				if !now.Before(e.expiresAt) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}
