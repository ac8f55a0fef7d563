package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is a mutex-protected TTL map with a janitor goroutine that
// evicts expired entries.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	stopCh  chan struct{}
	doneCh  chan struct{}
}

type memoryEntry struct {
	value   string
	expires time.Time
}

// janitorInterval is how often expired entries are swept.
const janitorInterval = 30 * time.Second

// NewMemoryCache creates a memory cache and starts its janitor.
func NewMemoryCache() *MemoryCache {
	c := &MemoryCache{
		entries: make(map[string]memoryEntry),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	go c.janitor()
	return c
}

func (c *MemoryCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.expires) {
		return "", false, nil
	}
	return entry.value, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	c.mu.Lock()
	c.entries[key] = memoryEntry{value: value, expires: time.Now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

// Close stops the janitor. The cache remains usable afterwards but no longer
// sweeps expired entries; Get still respects expiry on read.
func (c *MemoryCache) Close() error {
	close(c.stopCh)
	<-c.doneCh
	return nil
}

func (c *MemoryCache) janitor() {
	defer close(c.doneCh)

	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case now := <-ticker.C:
			c.mu.Lock()
			for key, entry := range c.entries {
				if now.After(entry.expires) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}
