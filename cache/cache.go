// Package cache is a bounded in-memory cache for scrape responses,
// keyed by operation kind and URL.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/use-agent/harvest/models"
)

// Operation kinds used in cache keys.
const (
	KindProduct = "product"
	KindSearch  = "search"
)

type entry struct {
	product   *models.ScrapedProduct
	search    *models.ScrapedSearchResult
	provider  string
	createdAt time.Time
}

// Cache stores successful scrape results. Safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
}

// New creates a Cache holding at most maxEntries results. A background
// goroutine evicts entries older than 1 hour every 5 minutes.
func New(maxEntries int) *Cache {
	c := &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
	}
	go c.cleanupLoop()
	return c
}

// Key generates a cache key from the operation kind and URL.
func Key(kind, url string) string {
	h := sha256.New()
	h.Write([]byte(kind))
	h.Write([]byte("|"))
	h.Write([]byte(url))
	return hex.EncodeToString(h.Sum(nil))
}

// GetProduct retrieves a cached product if one exists and is younger
// than maxAgeMs milliseconds. maxAgeMs <= 0 disables the lookup.
func (c *Cache) GetProduct(key string, maxAgeMs int) (*models.ScrapedProduct, string, bool) {
	e, ok := c.fresh(key, maxAgeMs)
	if !ok || e.product == nil {
		return nil, "", false
	}
	return e.product, e.provider, true
}

// GetSearch retrieves a cached search result under the same rules.
func (c *Cache) GetSearch(key string, maxAgeMs int) (*models.ScrapedSearchResult, string, bool) {
	e, ok := c.fresh(key, maxAgeMs)
	if !ok || e.search == nil {
		return nil, "", false
	}
	return e.search, e.provider, true
}

// SetProduct stores a product result.
func (c *Cache) SetProduct(key string, product *models.ScrapedProduct, provider string) {
	c.set(key, &entry{product: product, provider: provider, createdAt: time.Now()})
}

// SetSearch stores a search result.
func (c *Cache) SetSearch(key string, result *models.ScrapedSearchResult, provider string) {
	c.set(key, &entry{search: result, provider: provider, createdAt: time.Now()})
}

func (c *Cache) fresh(key string, maxAgeMs int) (*entry, bool) {
	if maxAgeMs <= 0 {
		return nil, false
	}

	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if time.Since(e.createdAt) > time.Duration(maxAgeMs)*time.Millisecond {
		return nil, false
	}
	return e, true
}

func (c *Cache) set(key string, e *entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Evict one random entry if at capacity (map iteration is random in Go).
	if len(c.store) >= c.maxEntries {
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}
	c.store[key] = e
}

// cleanupLoop evicts entries older than 1 hour every 5 minutes.
func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-1 * time.Hour)
		c.mu.Lock()
		for k, e := range c.store {
			if e.createdAt.Before(cutoff) {
				delete(c.store, k)
			}
		}
		c.mu.Unlock()
	}
}
