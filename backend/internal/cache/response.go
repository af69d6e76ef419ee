package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"sync"
	"time"
)

// ResponseCache memoizes serialized analyze responses so repeated submissions
// of the same brief (form keystrokes, retries) skip re-encoding.
// Entries expire after ttl; the oldest entry is evicted at capacity.
type ResponseCache struct {
	mu      sync.Mutex
	entries map[string]*Entry
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

// Entry represents a cached response
type Entry struct {
	Key       string
	Response  []byte
	Headers   map[string]string
	Value     any // decoded form of Response, when the caller keeps one
	CreatedAt time.Time
	Hits      int
}

// NewResponseCache creates a new cache with given max size and TTL
func NewResponseCache(maxSize int, ttl time.Duration) *ResponseCache {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &ResponseCache{
		entries: make(map[string]*Entry),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// HashKey generates a deterministic hash over the request parts. Each part is
// length-prefixed so no two part lists share a key.
func HashKey(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(strconv.Itoa(len(p))))
		h.Write([]byte{':'})
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get retrieves a cached entry if available and not expired
func (c *ResponseCache) Get(key string) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		return nil, false
	}

	if c.now().Sub(entry.CreatedAt) > c.ttl {
		delete(c.entries, key)
		return nil, false
	}

	entry.Hits++
	return entry, true
}

// Set stores a response in the cache
func (c *ResponseCache) Set(key string, response []byte, headers map[string]string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	c.entries[key] = &Entry{
		Key:       key,
		Response:  response,
		Headers:   headers,
		Value:     value,
		CreatedAt: c.now(),
	}
}

// evictOldest removes the oldest entry
func (c *ResponseCache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, entry := range c.entries {
		if oldestKey == "" || entry.CreatedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.CreatedAt
		}
	}

	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// Stats returns cache statistics
func (c *ResponseCache) Stats() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()

	totalHits := 0
	for _, entry := range c.entries {
		totalHits += entry.Hits
	}

	return map[string]any{
		"size":       len(c.entries),
		"max_size":   c.maxSize,
		"total_hits": totalHits,
		"ttl_sec":    c.ttl.Seconds(),
	}
}

// Clear empties the cache
func (c *ResponseCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*Entry)
}
