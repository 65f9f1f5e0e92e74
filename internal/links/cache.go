package links

import (
	"fmt"
	"sync"

	"github.com/SteelMorgan/chatlog-notifier/internal/domain"
)

// Cache stores resolved link text. Entries are never invalidated.
type Cache interface {
	// Get returns the cached text and whether it was present
	Get(kind domain.LinkKind, id string) (string, bool)

	// Put stores a successfully resolved text
	Put(kind domain.LinkKind, id, text string) error

	// Close releases underlying resources
	Close() error
}

// MemoryCache is a process-lifetime Cache
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewMemoryCache creates an empty in-memory cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]string)}
}

// Get implements Cache
func (c *MemoryCache) Get(kind domain.LinkKind, id string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	text, ok := c.entries[makeKey(kind, id)]
	return text, ok
}

// Put implements Cache
func (c *MemoryCache) Put(kind domain.LinkKind, id, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[makeKey(kind, id)] = text
	return nil
}

// Len returns the number of cached entries
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close implements Cache
func (c *MemoryCache) Close() error {
	return nil
}

// makeKey creates a composite key from link kind and id
func makeKey(kind domain.LinkKind, id string) string {
	return fmt.Sprintf("%s:%s", kind, id)
}
