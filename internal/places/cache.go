package places

import (
	"context"
	"sync"
)

// CacheKey is the versioned key under which the resolved identifier is stored.
const CacheKey = "ld_google_place_id_v1"

// IDCache remembers the last identifier that produced details.
// Get returns "" when nothing is cached.
type IDCache interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

// MemoryIDCache keeps the identifier in process memory.
type MemoryIDCache struct {
	mu sync.RWMutex
	id string
}

var _ IDCache = (*MemoryIDCache)(nil)

// NewMemoryIDCache returns an empty in-process cache.
func NewMemoryIDCache() *MemoryIDCache {
	return &MemoryIDCache{}
}

// Get implements IDCache.
func (c *MemoryIDCache) Get(context.Context) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.id, nil
}

// Set implements IDCache.
func (c *MemoryIDCache) Set(_ context.Context, id string) error {
	c.mu.Lock()
	c.id = id
	c.mu.Unlock()
	return nil
}

// Clear implements IDCache.
func (c *MemoryIDCache) Clear(context.Context) error {
	c.mu.Lock()
	c.id = ""
	c.mu.Unlock()
	return nil
}
