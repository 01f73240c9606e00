package session

import (
	"sync"
	"time"
)

// userCache is a small TTL cache keyed by external user id.
type userCache struct {
	mu   sync.RWMutex
	data map[string]cacheEntry
	ttl  time.Duration
	now  func() time.Time

	cleanup *time.Ticker
	done    chan struct{}
	once    sync.Once
}

type cacheEntry struct {
	user      User
	expiresAt time.Time
}

func newUserCache(ttl time.Duration) *userCache {
	c := &userCache{
		data:    make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
		cleanup: time.NewTicker(ttl),
		done:    make(chan struct{}),
	}
	go c.cleanupExpired()
	return c
}

func (c *userCache) Get(id string) (User, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.data[id]
	if !ok || c.now().After(entry.expiresAt) {
		return User{}, false
	}
	return entry.user, true
}

func (c *userCache) Set(id string, u User) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[id] = cacheEntry{user: u, expiresAt: c.now().Add(c.ttl)}
}

func (c *userCache) Delete(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.data, id)
}

func (c *userCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

func (c *userCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for id, entry := range c.data {
		if now.After(entry.expiresAt) {
			delete(c.data, id)
		}
	}
}

func (c *userCache) cleanupExpired() {
	for {
		select {
		case <-c.cleanup.C:
			c.sweep()
		case <-c.done:
			return
		}
	}
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (c *userCache) Stop() {
	c.once.Do(func() {
		c.cleanup.Stop()
		close(c.done)
	})
}
