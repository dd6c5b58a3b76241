package lru

// golang -lru
// https://github.com/hashicorp/golang-lru
import (
	"sync"
	"time"
)

// EvictCallback is used to get a callback when a cache entry is evicted
type EvictCallback[K comparable, V any] func(key K, value V)

// LRU implements a thread-safe LRU with expirable entries.
// Expired entries are dropped when they are read or pushed out.
type LRU[K comparable, V any] struct {
	mu        sync.Mutex
	size      int
	ttl       time.Duration
	evictList *lruList[K, V]
	items     map[K]*entry[K, V]
	onEvict   EvictCallback[K, V]
}

// NewLRU returns a new thread-safe cache with expirable entries.
//
// Size parameter set to 0 makes cache of unlimited size, e.g. turns LRU mechanism off.
//
// Providing 0 TTL turns expiring off.
func NewLRU[K comparable, V any](size int, onEvict EvictCallback[K, V], ttl time.Duration) *LRU[K, V] {
	if size < 0 {
		size = 0
	}
	if ttl < 0 {
		ttl = 0
	}

	return &LRU[K, V]{
		size:      size,
		ttl:       ttl,
		evictList: newList[K, V](),
		items:     make(map[K]*entry[K, V]),
		onEvict:   onEvict,
	}
}

// Add adds a value to the cache. Returns true if an eviction occurred.
func (c *LRU[K, V]) Add(key K, value V) (evicted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = time.Now().Add(c.ttl)
	}

	if ent, ok := c.items[key]; ok {
		c.evictList.moveToFront(ent)
		ent.value = value
		ent.expiresAt = expiresAt
		return false
	}

	c.items[key] = c.evictList.pushFront(key, value, expiresAt)
	if c.size > 0 && c.evictList.len > c.size {
		c.removeElement(c.evictList.back())
		return true
	}
	return false
}

// Get looks up a key's value from the cache.
func (c *LRU[K, V]) Get(key K) (value V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ent, ok := c.items[key]
	if !ok {
		return value, false
	}

	if ent.expired(time.Now()) {
		c.removeElement(ent)
		return value, false
	}

	c.evictList.moveToFront(ent)
	return ent.value, true
}

// Remove removes the provided key from the cache, returning if the
// key was contained.
func (c *LRU[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		c.removeElement(ent)
		return true
	}
	return false
}

// Purge clears the cache completely.
// onEvict is called for each evicted key.
func (c *LRU[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k, ent := range c.items {
		if c.onEvict != nil {
			c.onEvict(k, ent.value)
		}
		delete(c.items, k)
	}
	c.evictList.init()
}

// Keys returns a slice of the keys in the cache, from oldest to newest.
// Expired entries are filtered out.
func (c *LRU[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]K, 0, len(c.items))
	now := time.Now()
	for ent := c.evictList.back(); ent != nil; ent = ent.prevEntry() {
		if !ent.expired(now) {
			keys = append(keys, ent.key)
		}
	}
	return keys
}

// Len returns the number of items in the cache, expired ones included.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictList.len
}

// Cap returns the capacity of the cache
func (c *LRU[K, V]) Cap() int {
	return c.size
}

// removeElement has to be called with lock!
func (c *LRU[K, V]) removeElement(e *entry[K, V]) {
	c.evictList.remove(e)
	delete(c.items, e.key)
	if c.onEvict != nil {
		c.onEvict(e.key, e.value)
	}
}

type entry[K comparable, V any] struct {
	next, prev *entry[K, V]
	list       *lruList[K, V]
	key        K
	value      V
	// zero when the entry never expires
	expiresAt time.Time
}

func (e *entry[K, V]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

func (e *entry[K, V]) prevEntry() *entry[K, V] {
	if p := e.prev; e.list != nil && p != &e.list.root {
		return p
	}
	return nil
}

// lruList is a ring, &root is both the next element of the back and the
// previous element of the front.
type lruList[K comparable, V any] struct {
	root entry[K, V]
	len  int
}

func newList[K comparable, V any]() *lruList[K, V] { return new(lruList[K, V]).init() }

func (l *lruList[K, V]) init() *lruList[K, V] {
	l.root.next = &l.root
	l.root.prev = &l.root
	l.len = 0
	return l
}

func (l *lruList[K, V]) back() *entry[K, V] {
	if l.len == 0 {
		return nil
	}
	return l.root.prev
}

func (l *lruList[K, V]) pushFront(k K, v V, expiresAt time.Time) *entry[K, V] {
	e := &entry[K, V]{key: k, value: v, expiresAt: expiresAt, list: l}
	at := &l.root
	e.prev = at
	e.next = at.next
	e.prev.next = e
	e.next.prev = e
	l.len++
	return e
}

func (l *lruList[K, V]) remove(e *entry[K, V]) {
	e.prev.next = e.next
	e.next.prev = e.prev
	e.next = nil
	e.prev = nil
	e.list = nil
	l.len--
}

func (l *lruList[K, V]) moveToFront(e *entry[K, V]) {
	if e.list != l || l.root.next == e {
		return
	}
	e.prev.next = e.next
	e.next.prev = e.prev

	at := &l.root
	e.prev = at
	e.next = at.next
	e.prev.next = e
	e.next.prev = e
}
