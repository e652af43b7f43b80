package sentiment

import (
	"strings"
	"sync"
)

const (
	cacheKeyRunes      = 100
	defaultCacheSize   = 100
	cacheRetainPercent = 80
)

// ResultCache maps a normalized text prefix to its final score. When full it
// drops the oldest insertions, keeping the newest 80%.
type ResultCache struct {
	mu       sync.Mutex
	capacity int
	scores   map[string]float64
	order    []string
}

// NewResultCache creates a cache holding up to capacity entries.
func NewResultCache(capacity int) *ResultCache {
	if capacity <= 0 {
		capacity = defaultCacheSize
	}
	return &ResultCache{capacity: capacity, scores: make(map[string]float64, capacity)}
}

func cacheKey(text string) string {
	k := strings.ToLower(strings.TrimSpace(text))
	if r := []rune(k); len(r) > cacheKeyRunes {
		k = string(r[:cacheKeyRunes])
	}
	return k
}

// Get returns the cached score for text.
func (c *ResultCache) Get(text string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.scores[cacheKey(text)]
	return v, ok
}

// Put stores score for text, evicting first if the cache is full.
func (c *ResultCache) Put(text string, score float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(text)
	if _, ok := c.scores[key]; ok {
		c.scores[key] = score
		return
	}
	if len(c.order) >= c.capacity {
		keep := c.capacity * cacheRetainPercent / 100
		drop := len(c.order) - keep
		for _, k := range c.order[:drop] {
			delete(c.scores, k)
		}
		c.order = append([]string(nil), c.order[drop:]...)
	}
	c.scores[key] = score
	c.order = append(c.order, key)
}

// Len returns the number of cached entries.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

// Reset empties the cache.
func (c *ResultCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scores = make(map[string]float64, c.capacity)
	c.order = nil
}
