// Package cache holds the bounded in-memory store of loaded lines.
//
// The viewer never keeps a whole dataset resident; the cache is the only
// place line content lives between a fetch and its eviction. Recency is
// encoded as list position, which gives a total order with no tie-breaking.
package cache

import "container/list"

// DefaultCapacity bounds the cache when no capacity is configured.
const DefaultCapacity = 10000

// LineCache is a bounded mapping from line index to content with
// least-recently-used eviction.
//
// It is owned by the engine's run loop: all calls must come from a single
// goroutine. That is the same single-writer discipline the engine applies to
// the viewport, and it keeps the hot path lock-free.
type LineCache struct {
	capacity int
	entries  map[int]*list.Element
	recency  *list.List // front = most recently used
}

type entry struct {
	index   int
	content []byte
}

// New creates a cache bounded to capacity entries
func New(capacity int) *LineCache {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &LineCache{
		capacity: capacity,
		entries:  make(map[int]*list.Element, capacity),
		recency:  list.New(),
	}
}

// Get returns the content for a line index and refreshes its recency.
// The second return is false on a miss.
func (c *LineCache) Get(index int) ([]byte, bool) {
	elem, ok := c.entries[index]
	if !ok {
		return nil, false
	}
	c.recency.MoveToFront(elem)
	return elem.Value.(*entry).content, true
}

// Contains reports whether a line is resident without touching recency.
// Gap detection uses this so that scanning the render range does not
// reorder the eviction queue.
func (c *LineCache) Contains(index int) bool {
	_, ok := c.entries[index]
	return ok
}

// Put inserts content for a line index, or refreshes recency and replaces
// content if the index is already resident. When an insertion pushes the
// cache past capacity the single least-recently-used entry is evicted.
func (c *LineCache) Put(index int, content []byte) {
	if elem, ok := c.entries[index]; ok {
		c.recency.MoveToFront(elem)
		elem.Value.(*entry).content = content
		return
	}

	elem := c.recency.PushFront(&entry{index: index, content: content})
	c.entries[index] = elem

	if c.recency.Len() > c.capacity {
		oldest := c.recency.Back()
		delete(c.entries, oldest.Value.(*entry).index)
		c.recency.Remove(oldest)
	}
}

// InvalidateAll clears every entry. Used on dataset replacement.
func (c *LineCache) InvalidateAll() {
	c.entries = make(map[int]*list.Element, c.capacity)
	c.recency.Init()
}

// Len returns the number of resident entries
func (c *LineCache) Len() int {
	return c.recency.Len()
}

// Cap returns the configured capacity
func (c *LineCache) Cap() int {
	return c.capacity
}
