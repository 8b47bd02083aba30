// Package lru implements the built-in cache provider: an in-memory byte store
// bounded by total payload size, with least-recently-used eviction and lazy
// per-entry TTL expiry.
//
// Recency is tracked in an index-stable arena: a growable slot slice plus a
// key→slot map, with prev/next slot indices per slot instead of pointers.
// Sentinel head/tail slots keep the list manipulation branch-free.
package lru

import (
	"context"
	"sync"
	"time"

	"github.com/unkn0wn-root/dotstore/provider"
)

// DefaultMaxBytes bounds the cache when Config.MaxBytes is zero.
const DefaultMaxBytes = 20 << 20 // 20 MiB

// Policy names an eviction strategy. Only LRU is implemented; unrecognized
// tags degrade to LRU rather than failing construction.
type Policy string

const PolicyLRU Policy = "lru"

// Config tunes the cache. The zero value is usable.
type Config struct {
	MaxBytes      int64         // total payload budget; 0 => DefaultMaxBytes
	TTL           time.Duration // default entry lifetime when Set gets ttl<=0; 0 => no expiry
	Policy        Policy        // "" or unknown => LRU
	SweepInterval time.Duration // background expiry sweep; 0 => lazy expiry only
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits        uint64
	Misses      uint64
	Evictions   uint64
	Expirations uint64
	Entries     int
	SizeBytes   int64
	MaxBytes    int64
}

// sentinel slot indices; real entries start at slot 2
const (
	head = 0 // most-recent side
	tail = 1 // least-recent side
)

type slot struct {
	key        string
	value      []byte
	size       int64
	touchedAt  time.Time
	expireAt   time.Time // zero => no TTL
	prev, next int
	used       bool
}

// Cache is a size-bounded LRU byte store. It implements provider.Provider.
//
// All methods take an internal mutex, so a Cache is safe as the shared read
// cache of one store instance. The store additionally serializes its own
// operations, so at most one document mutation is in flight against it.
type Cache struct {
	mu    sync.Mutex
	cfg   Config
	slots []slot
	index map[string]int
	free  []int
	size  int64

	hits, misses, evictions, expirations uint64

	ticker    *time.Ticker
	stopCh    chan struct{}
	closeWg   sync.WaitGroup
	closeOnce sync.Once
}

var _ provider.Provider = (*Cache)(nil)

// New constructs a Cache from cfg, applying defaults for zero fields.
func New(cfg Config) *Cache {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.Policy != PolicyLRU {
		cfg.Policy = PolicyLRU
	}
	c := &Cache{
		cfg:   cfg,
		slots: make([]slot, 2, 2+16),
		index: make(map[string]int),
	}
	c.slots[head].next = tail
	c.slots[tail].prev = head

	if cfg.SweepInterval > 0 && cfg.TTL > 0 {
		c.ticker = time.NewTicker(cfg.SweepInterval)
		c.stopCh = make(chan struct{})
		c.closeWg.Add(1)
		go c.sweepLoop()
	}
	return c
}

// Get returns the bytes stored under key. An entry older than its TTL is
// removed and reported as a miss; a hit refreshes the entry's recency.
func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.index[key]
	if !ok {
		c.misses++
		return nil, false, nil
	}
	s := &c.slots[i]
	if !s.expireAt.IsZero() && time.Now().After(s.expireAt) {
		c.removeSlot(i)
		c.expirations++
		c.misses++
		return nil, false, nil
	}
	s.touchedAt = time.Now()
	c.moveToFront(i)
	c.hits++
	return s.value, true, nil
}

// Set stores value under key. An existing entry is replaced, its size
// recomputed, and moved to the most-recent end; a new entry is inserted at
// the most-recent end. Cost is ignored: the cache accounts payload bytes
// itself. Set never rejects a write.
//
// Eviction runs synchronously from the least-recent end until the budget
// holds again, but never removes the entry just written — a single oversized
// entry may push the cache over budget and must still be retrievable once.
func (c *Cache) Set(_ context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	now := time.Now()
	if ttl <= 0 {
		ttl = c.cfg.TTL
	}
	var expireAt time.Time
	if ttl > 0 {
		expireAt = now.Add(ttl)
	}
	size := entrySize(key, value)

	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.index[key]
	if ok {
		s := &c.slots[i]
		c.size += size - s.size
		s.value = value
		s.size = size
		s.touchedAt = now
		s.expireAt = expireAt
		c.moveToFront(i)
	} else {
		i = c.takeSlot()
		c.slots[i] = slot{
			key:       key,
			value:     value,
			size:      size,
			touchedAt: now,
			expireAt:  expireAt,
			used:      true,
		}
		c.index[key] = i
		c.linkFront(i)
		c.size += size
	}

	for c.size > c.cfg.MaxBytes {
		victim := c.slots[tail].prev
		if victim == head || victim == i {
			break
		}
		c.removeSlot(victim)
		c.evictions++
	}
	return true, nil
}

// Del removes key if present.
func (c *Cache) Del(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i, ok := c.index[key]; ok {
		c.removeSlot(i)
	}
	return nil
}

// Clear drops every entry and resets size accounting. Counters survive.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slots = c.slots[:2]
	c.slots[head].next = tail
	c.slots[tail].prev = head
	c.index = make(map[string]int)
	c.free = c.free[:0]
	c.size = 0
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.index)
}

// SizeBytes returns the accounted payload size.
func (c *Cache) SizeBytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:        c.hits,
		Misses:      c.misses,
		Evictions:   c.evictions,
		Expirations: c.expirations,
		Entries:     len(c.index),
		SizeBytes:   c.size,
		MaxBytes:    c.cfg.MaxBytes,
	}
}

// Close stops the sweep goroutine, if any. The cache stays usable after
// Close; only background expiry stops.
func (c *Cache) Close(context.Context) error {
	c.closeOnce.Do(func() {
		if c.stopCh != nil {
			close(c.stopCh)
			c.closeWg.Wait()
			c.ticker.Stop()
		}
	})
	return nil
}

func (c *Cache) sweepLoop() {
	defer c.closeWg.Done()
	for {
		select {
		case <-c.ticker.C:
			c.sweep()
		case <-c.stopCh:
			return
		}
	}
}

// sweep removes every expired entry, walking from the least-recent end.
func (c *Cache) sweep() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := c.slots[tail].prev; i != head; {
		prev := c.slots[i].prev
		if s := &c.slots[i]; !s.expireAt.IsZero() && now.After(s.expireAt) {
			c.removeSlot(i)
			c.expirations++
		}
		i = prev
	}
}

// entrySize charges the payload plus the key, so many tiny entries still
// consume budget. Informational for eviction, not exact memory accounting.
func entrySize(key string, value []byte) int64 {
	return int64(len(key) + len(value))
}

func (c *Cache) takeSlot() int {
	if n := len(c.free); n > 0 {
		i := c.free[n-1]
		c.free = c.free[:n-1]
		return i
	}
	c.slots = append(c.slots, slot{})
	return len(c.slots) - 1
}

func (c *Cache) linkFront(i int) {
	first := c.slots[head].next
	c.slots[i].prev = head
	c.slots[i].next = first
	c.slots[first].prev = i
	c.slots[head].next = i
}

func (c *Cache) unlink(i int) {
	p, n := c.slots[i].prev, c.slots[i].next
	c.slots[p].next = n
	c.slots[n].prev = p
}

func (c *Cache) moveToFront(i int) {
	c.unlink(i)
	c.linkFront(i)
}

func (c *Cache) removeSlot(i int) {
	c.unlink(i)
	s := &c.slots[i]
	c.size -= s.size
	delete(c.index, s.key)
	*s = slot{}
	c.free = append(c.free, i)
}
