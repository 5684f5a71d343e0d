// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package cache

import (
	"sync"
	"time"
)

// lfuEntry is a node of one frequency list.
type lfuEntry[V any] struct {
	key       string
	value     V
	freq      int
	expiresAt time.Time
	prev      *lfuEntry[V]
	next      *lfuEntry[V]
}

// freqList holds the entries sharing one access count, most recent first.
type freqList[V any] struct {
	head *lfuEntry[V]
	tail *lfuEntry[V]
	size int
}

func newFreqList[V any]() *freqList[V] {
	fl := &freqList[V]{head: &lfuEntry[V]{}, tail: &lfuEntry[V]{}}
	fl.head.next = fl.tail
	fl.tail.prev = fl.head
	return fl
}

func (fl *freqList[V]) pushFront(entry *lfuEntry[V]) {
	entry.prev = fl.head
	entry.next = fl.head.next
	fl.head.next.prev = entry
	fl.head.next = entry
	fl.size++
}

func (fl *freqList[V]) remove(entry *lfuEntry[V]) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	entry.prev, entry.next = nil, nil
	fl.size--
}

// LFU is a thread-safe least-frequently-used cache with a per-entry TTL.
// Ties between equally used entries go to the least recently used one.
//
// It suits result caches where a few users or restaurants are requested
// far more often than the rest: a burst of one-off lookups does not push
// the hot entries out, which it would under LRU.
type LFU[V any] struct {
	mu sync.Mutex

	capacity int
	ttl      time.Duration
	now      func() time.Time

	items   map[string]*lfuEntry[V]
	freqs   map[int]*freqList[V]
	minFreq int

	hits      int64
	misses    int64
	evictions int64
}

// NewLFU creates a cache holding at most capacity entries for ttl each.
func NewLFU[V any](capacity int, ttl time.Duration) *LFU[V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &LFU[V]{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		items:    make(map[string]*lfuEntry[V], capacity),
		freqs:    make(map[int]*freqList[V]),
	}
}

// Get returns the value for key if present and not expired. A hit counts
// as one more use.
func (c *LFU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	entry, ok := c.items[key]
	if !ok {
		c.misses++
		return zero, false
	}
	if c.now().After(entry.expiresAt) {
		c.removeEntry(entry)
		c.misses++
		return zero, false
	}

	c.touch(entry)
	c.hits++
	return entry.value, true
}

// Set stores value under key with the default TTL.
func (c *LFU[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores value under key with a custom TTL. Updating an existing
// key counts as a use; a new key starts at frequency 1 and evicts the least
// frequently used entry when the cache is full.
func (c *LFU[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(ttl)
	if entry, ok := c.items[key]; ok {
		entry.value = value
		entry.expiresAt = expiresAt
		c.touch(entry)
		return
	}

	if len(c.items) >= c.capacity {
		c.evict()
	}

	entry := &lfuEntry[V]{key: key, value: value, freq: 1, expiresAt: expiresAt}
	c.list(1).pushFront(entry)
	c.items[key] = entry
	c.minFreq = 1
}

// Delete removes key. It reports whether the key was present.
func (c *LFU[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.items[key]; ok {
		c.removeEntry(entry)
		return true
	}
	return false
}

// Frequency returns the use count of key, 0 if absent.
func (c *LFU[V]) Frequency(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.items[key]; ok {
		return entry.freq
	}
	return 0
}

// Len returns the number of stored entries, expired or not.
func (c *LFU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Clear removes every entry. Statistics are kept.
func (c *LFU[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*lfuEntry[V], c.capacity)
	c.freqs = make(map[int]*freqList[V])
	c.minFreq = 0
}

// CleanupExpired removes all expired entries and returns how many were dropped.
func (c *LFU[V]) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for _, entry := range c.items {
		if now.After(entry.expiresAt) {
			c.removeEntry(entry)
			removed++
		}
	}
	return removed
}

// Stats returns hit, miss and eviction counters.
func (c *LFU[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Size:      len(c.items),
	}
}

// The methods below must be called with mu held.

func (c *LFU[V]) list(freq int) *freqList[V] {
	fl, ok := c.freqs[freq]
	if !ok {
		fl = newFreqList[V]()
		c.freqs[freq] = fl
	}
	return fl
}

// touch moves entry one frequency level up.
func (c *LFU[V]) touch(entry *lfuEntry[V]) {
	old := entry.freq
	fl := c.freqs[old]
	fl.remove(entry)
	if fl.size == 0 {
		delete(c.freqs, old)
		if c.minFreq == old {
			c.minFreq = old + 1
		}
	}
	entry.freq++
	c.list(entry.freq).pushFront(entry)
}

func (c *LFU[V]) removeEntry(entry *lfuEntry[V]) {
	if fl, ok := c.freqs[entry.freq]; ok {
		fl.remove(entry)
		if fl.size == 0 {
			delete(c.freqs, entry.freq)
		}
	}
	delete(c.items, entry.key)
}

// evict drops the least recently used entry of the lowest frequency.
// minFreq can be stale after deletes, so it is recomputed when its list
// is gone.
func (c *LFU[V]) evict() {
	fl, ok := c.freqs[c.minFreq]
	if !ok {
		c.minFreq = 0
		for f := range c.freqs {
			if c.minFreq == 0 || f < c.minFreq {
				c.minFreq = f
			}
		}
		if fl, ok = c.freqs[c.minFreq]; !ok {
			return
		}
	}
	c.removeEntry(fl.tail.prev)
	c.evictions++
}
