package pricing

import (
	"sync"
	"time"
)

// PriceCache caches pricing data to reduce API calls
type PriceCache struct {
	data  map[string]*cacheEntry
	ttl   time.Duration
	mutex sync.RWMutex
}

type cacheEntry struct {
	costInfo  *CostInfo
	expiresAt time.Time
}

func NewPriceCache(ttl time.Duration) *PriceCache {
	return &PriceCache{
		data: make(map[string]*cacheEntry),
		ttl:  ttl,
	}
}

// Get returns the cached rate card, or nil when absent or expired. Expired
// entries stay until the next Set overwrites them.
func (c *PriceCache) Get(key string) *CostInfo {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, exists := c.data[key]
	if !exists || time.Now().After(entry.expiresAt) {
		return nil
	}

	return entry.costInfo
}

func (c *PriceCache) Set(key string, costInfo *CostInfo) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data[key] = &cacheEntry{
		costInfo:  costInfo,
		expiresAt: time.Now().Add(c.ttl),
	}
}

func (c *PriceCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data = make(map[string]*cacheEntry)
}
