package application

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

// blockCache stores expanded upcoming blocks per user, local date and range so
// repeated previews skip the expansion while intervals remain unchanged.
type blockCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]blockCacheEntry
}

type blockCacheEntry struct {
	blocks    []UpcomingBlock
	expiresAt time.Time
}

func newBlockCache(ttl time.Duration, maxEntries int, now func() time.Time) *blockCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 128
	}
	if now == nil {
		now = time.Now
	}
	return &blockCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]blockCacheEntry),
	}
}

func (c *blockCache) Get(key string) ([]UpcomingBlock, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return cloneBlocks(entry.blocks), true
}

func (c *blockCache) Store(key string, blocks []UpcomingBlock) {
	if c == nil {
		return
	}
	cloned := cloneBlocks(blocks)
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[key] = blockCacheEntry{blocks: cloned, expiresAt: expiry}
}

// InvalidateUser drops every entry of userID.
func (c *blockCache) InvalidateUser(userID string) {
	if c == nil {
		return
	}
	prefix := userID + "|"
	c.mu.Lock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()
}

func (c *blockCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *blockCache) evictOneLocked() {
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}

func cloneBlocks(blocks []UpcomingBlock) []UpcomingBlock {
	if len(blocks) == 0 {
		return nil
	}
	out := make([]UpcomingBlock, len(blocks))
	copy(out, blocks)
	return out
}

// buildBlockCacheKey keys previews by zone so a timezone change misses.
func buildBlockCacheKey(userID, zone, localDate string, days int) string {
	return userID + "|" + zone + "|" + localDate + "|" + strconv.Itoa(days)
}
