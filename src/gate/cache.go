package gate

import (
	"fmt"
	"sync"
	"time"

	"firecontrol/src/repository"
)

type snapshot struct {
	exposure  repository.Exposure
	fetchedAt time.Time
}

// exposureCache holds per-(user, symbol) exposure snapshots with a TTL.
// It is a cache over the authoritative reporting store, never a source of
// truth.
type exposureCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]snapshot
	now     func() time.Time
}

func newExposureCache(ttl time.Duration) *exposureCache {
	return &exposureCache{
		ttl:     ttl,
		entries: make(map[string]snapshot),
		now:     time.Now,
	}
}

func cacheKey(userID uint, symbol string) string {
	return fmt.Sprintf("%d:%s", userID, symbol)
}

// get returns the cached snapshot unless it is stale.
func (c *exposureCache) get(userID uint, symbol string) (repository.Exposure, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap, ok := c.entries[cacheKey(userID, symbol)]
	if !ok || c.stale(snap) {
		return repository.Exposure{}, false
	}
	return snap.exposure, true
}

func (c *exposureCache) put(userID uint, symbol string, exposure repository.Exposure) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[cacheKey(userID, symbol)] = snapshot{
		exposure:  exposure,
		fetchedAt: c.now(),
	}
}

func (c *exposureCache) invalidate(userID uint, symbol string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, cacheKey(userID, symbol))
}

// stale is the explicit staleness predicate: a snapshot older than the TTL
// must not be used for a decision.
func (c *exposureCache) stale(snap snapshot) bool {
	return c.now().Sub(snap.fetchedAt) > c.ttl
}
