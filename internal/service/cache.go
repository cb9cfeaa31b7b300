package service

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/mwoo-bridge/mwoo/internal/store"
)

const (
	cacheSweepEvery   = 10 * time.Second // janitor wake-up
	ttlBase           = 40 * time.Second // cold entry expires after this
	ttlHitBonus       = 4 * time.Second  // each extra read adds this much TTL
	maxTrackedEntries = 100_000          // hard memory cap
)

// ledgerState is the latest committed state of a record.
type ledgerState struct {
	obj      map[string]any // never modified once cached
	rev      store.RevisionID
	distance int // patches since the last snapshot
	lastRead int64 // unix-nsec; atomic
	hitCount uint32
}

// stateCache is a cache of ledgerState objects.
type stateCache struct {
	mu     sync.RWMutex
	data   map[string]*ledgerState
	stopCh chan struct{}
	once   sync.Once
}

// newStateCache returns a new state cache with a janitor that evicts cold entries.
func newStateCache() *stateCache {
	c := &stateCache{
		data:   make(map[string]*ledgerState, 1024),
		stopCh: make(chan struct{}),
	}
	go c.janitor()
	return c
}

// close stops the janitor and clears the cache.
func (c *stateCache) close() {
	c.once.Do(func() {
		close(c.stopCh)
		c.mu.Lock()
		c.data = nil
		c.mu.Unlock()
	})
}

func (c *stateCache) evictCold(now time.Time) {
	c.mu.Lock()
	for k, e := range c.data {
		age := now.Sub(time.Unix(0, atomic.LoadInt64(&e.lastRead)))
		ttl := ttlBase + time.Duration(atomic.LoadUint32(&e.hitCount))*ttlHitBonus
		if age > ttl {
			delete(c.data, k)
		} else {
			// decay hit counter so “old” popularity fades
			if hc := atomic.LoadUint32(&e.hitCount); hc > 0 {
				atomic.StoreUint32(&e.hitCount, hc/2)
			}
		}
	}
	c.mu.Unlock()
}

// janitor evicts cold entries.  Cheap O(n) scan every 10 s.
func (c *stateCache) janitor() {
	ticker := time.NewTicker(cacheSweepEvery)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			c.evictCold(now)
		case <-c.stopCh:
			return
		}
	}
}

// get returns nil on a miss.
func (c *stateCache) get(id string) *ledgerState {
	c.mu.RLock()
	entry := c.data[id]
	c.mu.RUnlock()

	if entry == nil {
		return nil
	}

	atomic.AddUint32(&entry.hitCount, 1)
	atomic.StoreInt64(&entry.lastRead, time.Now().UnixNano())
	return entry
}

// set overwrites (or creates) the entry.
func (c *stateCache) set(id string, st *ledgerState) {
	atomic.StoreInt64(&st.lastRead, time.Now().UnixNano())
	c.mu.Lock()
	if c.data != nil && (len(c.data) < maxTrackedEntries || c.data[id] != nil) {
		c.data[id] = st
	}
	c.mu.Unlock()
}

func (c *stateCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
