package cache

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapacityInvariant(t *testing.T) {
	c := New(5)

	for i := 0; i < 100; i++ {
		c.Put(i, []byte(fmt.Sprintf("line %d", i)))
		require.LessOrEqual(t, c.Len(), c.Cap(), "capacity exceeded after put %d", i)
	}
	assert.Equal(t, 5, c.Len())
}

func TestGetMiss(t *testing.T) {
	c := New(3)

	content, ok := c.Get(7)
	assert.False(t, ok)
	assert.Nil(t, content)
}

func TestGetHit(t *testing.T) {
	c := New(3)
	c.Put(7, []byte("hello"))

	content, ok := c.Get(7)
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), content)
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	c := New(3)
	c.Put(1, []byte("a"))
	c.Put(2, []byte("b"))
	c.Put(3, []byte("c"))

	// 1 is now strictly least recently used; inserting 4 must evict exactly 1.
	c.Put(4, []byte("d"))

	assert.False(t, c.Contains(1))
	assert.True(t, c.Contains(2))
	assert.True(t, c.Contains(3))
	assert.True(t, c.Contains(4))
}

func TestGetRefreshesRecency(t *testing.T) {
	c := New(3)
	c.Put(1, []byte("a"))
	c.Put(2, []byte("b"))
	c.Put(3, []byte("c"))

	// Accessing 1 promotes it, so the next eviction falls on 2.
	_, ok := c.Get(1)
	require.True(t, ok)

	c.Put(4, []byte("d"))

	assert.True(t, c.Contains(1))
	assert.False(t, c.Contains(2))
	assert.True(t, c.Contains(3))
	assert.True(t, c.Contains(4))
}

func TestContainsDoesNotRefreshRecency(t *testing.T) {
	c := New(3)
	c.Put(1, []byte("a"))
	c.Put(2, []byte("b"))
	c.Put(3, []byte("c"))

	// Contains must not promote 1: gap scans probe the whole render range
	// and would otherwise scramble eviction order.
	require.True(t, c.Contains(1))

	c.Put(4, []byte("d"))

	assert.False(t, c.Contains(1))
}

func TestPutExistingRefreshesAndReplaces(t *testing.T) {
	c := New(3)
	c.Put(1, []byte("a"))
	c.Put(2, []byte("b"))
	c.Put(3, []byte("c"))

	c.Put(1, []byte("a2"))
	c.Put(4, []byte("d"))

	assert.False(t, c.Contains(2), "2 was least recently used after 1 refreshed")

	content, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, []byte("a2"), content)
	assert.Equal(t, 3, c.Len())
}

func TestInvalidateAll(t *testing.T) {
	c := New(10)
	for i := 0; i < 10; i++ {
		c.Put(i, []byte("x"))
	}

	c.InvalidateAll()

	assert.Equal(t, 0, c.Len())
	assert.False(t, c.Contains(0))

	// Cache remains usable after a wipe.
	c.Put(1, []byte("y"))
	assert.Equal(t, 1, c.Len())
}

func TestZeroCapacityFallsBackToDefault(t *testing.T) {
	c := New(0)
	assert.Equal(t, DefaultCapacity, c.Cap())
}
