// Package dedup holds the bounded, time-expiring set of event keys the
// dispatcher has already accepted.
package dedup

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache remembers keys for at most ttl and holds at most size keys; the
// oldest entry is evicted first when full.
type Cache struct {
	mu  sync.Mutex
	lru *expirable.LRU[string, struct{}]
}

// New creates a Cache. size and ttl must be positive.
func New(size int, ttl time.Duration) *Cache {
	return &Cache{lru: expirable.NewLRU[string, struct{}](size, nil, ttl)}
}

// Seen reports whether key was already recorded and records it if not.
// The check and the insert happen under one lock, so two concurrent
// deliveries of the same key cannot both observe false.
func (c *Cache) Seen(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Peek honours expiry even before the background sweep has removed the entry.
	if _, ok := c.lru.Peek(key); ok {
		return true
	}
	c.lru.Add(key, struct{}{})
	return false
}

// Forget drops key so a redelivery is processed again.
func (c *Cache) Forget(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Remove(key)
}

// Len returns the number of live keys.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
