package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_InsertWithinBudget(t *testing.T) {
	c := New[string](3)
	require.NoError(t, c.Insert("A", "valueA", 1))
	require.NoError(t, c.Insert("B", "valueB", 1))
	require.NoError(t, c.Insert("C", "valueC", 1))

	assert.Equal(t, 3, c.Weight())
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, 3, c.Budget())

	value, ok := c.Retrieve("B")
	require.True(t, ok)
	assert.Equal(t, "valueB", value)
}

func TestCache_InsertRejected(t *testing.T) {
	c := New[string](2)
	require.NoError(t, c.Insert("dupe", "value", 1))
	assert.Equal(t, ErrKeyExists, c.Insert("dupe", "value", 1))
	assert.Equal(t, ErrWeightTooLarge, c.Insert("big", "value", 3))
	assert.Equal(t, 1, c.Weight())
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := New[string](2)
	c.SetVerbose(true)
	require.NoError(t, c.Insert("evicted", "valueEvicted", 1))
	require.NoError(t, c.Insert("A", "valueA", 1))
	require.NoError(t, c.Insert("B", "valueB", 1))

	_, ok := c.Retrieve("evicted")
	assert.False(t, ok)
	_, ok = c.Retrieve("A")
	assert.True(t, ok)
	_, ok = c.Retrieve("B")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Weight())
}

func TestCache_EvictsLeastRecentlyRetrieved(t *testing.T) {
	c := New[string](2)
	require.NoError(t, c.Insert("A", "valueA", 1))
	require.NoError(t, c.Insert("B", "valueB", 1))

	// B becomes the least recently used entry
	c.Retrieve("A")
	require.NoError(t, c.Insert("C", "valueC", 1))

	_, ok := c.Retrieve("B")
	assert.False(t, ok)
	_, ok = c.Retrieve("A")
	assert.True(t, ok)
}

func TestCache_WeightedEviction(t *testing.T) {
	c := New[[]byte](10)
	require.NoError(t, c.Insert("small1", make([]byte, 3), 3))
	require.NoError(t, c.Insert("small2", make([]byte, 3), 3))
	require.NoError(t, c.Insert("large", make([]byte, 8), 8))

	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 8, c.Weight())
}

func TestCache_RemoveAndClear(t *testing.T) {
	c := New[int](5)
	require.NoError(t, c.Insert("a", 1, 2))
	require.NoError(t, c.Insert("b", 2, 2))
	require.NoError(t, c.Insert("c", 3, 1))

	assert.True(t, c.Remove("b"))
	assert.False(t, c.Remove("b"))
	assert.Equal(t, 3, c.Weight())

	require.NoError(t, c.Insert("b", 4, 2))
	value, ok := c.Retrieve("b")
	require.True(t, ok)
	assert.Equal(t, 4, value)

	c.Clear()
	assert.Zero(t, c.Len())
	assert.Zero(t, c.Weight())
	_, ok = c.Retrieve("a")
	assert.False(t, ok)
}

func TestCache_Concurrent(t *testing.T) {
	c := New[int](64)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("%d/%d", worker, j)
				_ = c.Insert(key, j, 1)
				c.Retrieve(key)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 64, c.Len())
	assert.Equal(t, 64, c.Weight())
}
