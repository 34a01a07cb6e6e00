package source

import (
	"container/list"
	"context"
	"fmt"
	"sync"
)

// cachedItem is the internal structure stored in the linked list.
type cachedItem[K comparable, V any] struct {
	key   K
	value V
}

// CachedSource wraps a RecordSource with a fixed-size, in-memory cache using
// a Least Recently Used (LRU) eviction policy. Only positive fetches are
// cached: an authoritative miss from the underlying source evicts any stale
// entry and is passed through, so a deleted record never reads as present.
type CachedSource[K comparable, V any] struct {
	maxSize int
	backing RecordSource[K, V]

	mu    sync.Mutex
	ll    *list.List          // Used to track the order of items (recency).
	cache map[K]*list.Element // Used for fast key lookups.
}

// NewCachedSource creates a new size-limited read-through source.
// - maxSize: The maximum number of items to cache. Must be > 0.
func NewCachedSource[K comparable, V any](maxSize int, backing RecordSource[K, V]) (*CachedSource[K, V], error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("maxSize must be greater than 0")
	}
	if backing == nil {
		return nil, fmt.Errorf("backing source cannot be nil")
	}
	return &CachedSource[K, V]{
		maxSize: maxSize,
		backing: backing,
		ll:      list.New(),
		cache:   make(map[K]*list.Element),
	}, nil
}

// Fetch retrieves a record. A cache hit moves the item to the front of the
// recency list; a cache miss falls through to the backing source and caches
// a positive result, potentially evicting the least recently used item.
func (c *CachedSource[K, V]) Fetch(ctx context.Context, key K) (V, bool, error) {
	c.mu.Lock()
	if elem, ok := c.cache[key]; ok {
		c.ll.MoveToFront(elem)
		c.mu.Unlock()
		return elem.Value.(*cachedItem[K, V]).value, true, nil
	}
	c.mu.Unlock()

	value, found, err := c.backing.Fetch(ctx, key)
	if err != nil {
		var zero V
		return zero, false, err
	}
	if !found {
		// The record is authoritatively absent; drop any stale entry.
		_ = c.Invalidate(ctx, key)
		var zero V
		return zero, false, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check if another goroutine populated the cache while we were fetching.
	if elem, ok := c.cache[key]; ok {
		c.ll.MoveToFront(elem)
		return elem.Value.(*cachedItem[K, V]).value, true, nil
	}

	newItem := &cachedItem[K, V]{key: key, value: value}
	element := c.ll.PushFront(newItem)
	c.cache[key] = element

	if c.ll.Len() > c.maxSize {
		c.evict()
	}

	return value, true, nil
}

// Invalidate removes a key from the cache without touching the backing
// source. Use it when a caller knows the record changed or was removed.
func (c *CachedSource[K, V]) Invalidate(_ context.Context, key K) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.cache[key]; ok {
		c.ll.Remove(elem)
		delete(c.cache, key)
	}
	return nil
}

// evict removes the least recently used item from the cache.
// This method is unexported and must be called within a locked mutex.
func (c *CachedSource[K, V]) evict() {
	elementToRemove := c.ll.Back()
	if elementToRemove != nil {
		itemToRemove := c.ll.Remove(elementToRemove).(*cachedItem[K, V])
		delete(c.cache, itemToRemove.key)
	}
}

// Close closes the backing source.
func (c *CachedSource[K, V]) Close() error {
	return c.backing.Close()
}
