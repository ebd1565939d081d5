package tokenizer

import "sync"

// View is the read-only cache surface handed to consumers that must not
// write, such as the tree transformer.
type View interface {
	Get(hash, modelID string) (int, bool)
}

type cacheKey struct {
	hash  string
	model string
}

// Cache stores observed token counts keyed by content hash and model. It
// lives for the process and is append-only: the first value written for a
// key wins, so a key never changes under a concurrent reader.
type Cache struct {
	mu      sync.RWMutex
	entries map[cacheKey]int
}

func NewCache() *Cache {
	return &Cache{entries: make(map[cacheKey]int)}
}

func (c *Cache) Get(hash, modelID string) (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tokens, ok := c.entries[cacheKey{hash: hash, model: modelID}]
	return tokens, ok
}

// Put records a count unless the key is already present.
func (c *Cache) Put(hash, modelID string, tokens int) {
	key := cacheKey{hash: hash, model: modelID}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok {
		return
	}
	c.entries[key] = tokens
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
