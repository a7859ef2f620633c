package util

import (
	"sync"
	"time"
)

// Cooldown remembers string keys for a fixed window. scraperd uses it to
// keep an info hash from being re-scraped before its window expires.
type Cooldown struct {
	ttl time.Duration

	mu   sync.Mutex
	seen map[string]time.Time
}

func NewCooldown(ttl time.Duration) *Cooldown {
	return &Cooldown{
		ttl:  ttl,
		seen: make(map[string]time.Time),
	}
}

// Touch records the key and reports whether it was cold. A second Touch
// inside the window returns false and does not extend the window.
func (c *Cooldown) Touch(key string) bool {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if expiry, ok := c.seen[key]; ok && now.Before(expiry) {
		return false
	}
	c.seen[key] = now.Add(c.ttl)
	c.prune(now)
	return true
}

func (c *Cooldown) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

// prune drops expired entries; called with the lock held.
func (c *Cooldown) prune(now time.Time) {
	for key, expiry := range c.seen {
		if now.After(expiry) {
			delete(c.seen, key)
		}
	}
}
