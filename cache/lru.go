// Package cache provides row caches for mappify clients.
package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// LRU is an in-process cache evicting the least recently used entries
// once full. Entries also expire after a fixed TTL.
// It is safe for concurrent use.
type LRU struct {
	lru *expirable.LRU[string, []byte]
}

// NewLRU returns a cache holding up to size entries. A ttl of zero keeps
// entries until they are evicted.
func NewLRU(size int, ttl time.Duration) *LRU {
	return &LRU{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

// Get returns the cached value, or nil when the key is absent.
func (c *LRU) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := c.lru.Get(key)
	if !ok {
		return nil, nil
	}
	return v, nil
}

// Set stores value under key.
func (c *LRU) Set(_ context.Context, key string, value []byte) error {
	c.lru.Add(key, value)
	return nil
}

// Delete removes key.
func (c *LRU) Delete(_ context.Context, key string) error {
	c.lru.Remove(key)
	return nil
}

// Len returns the number of cached entries.
func (c *LRU) Len() int {
	return c.lru.Len()
}

// Purge drops every entry.
func (c *LRU) Purge() {
	c.lru.Purge()
}
