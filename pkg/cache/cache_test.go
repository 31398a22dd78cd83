package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_InsertAndRetrieve(t *testing.T) {
	c := NewCache(10)

	require.NoError(t, c.Insert("A", "valueA", 1))
	require.NoError(t, c.Insert("B", "valueB", 2))
	assert.Equal(t, 3, c.GetWeight())
	assert.Equal(t, 10, c.GetBudget())

	value, ok := c.Retrieve("A")
	require.True(t, ok)
	assert.Equal(t, "valueA", value)

	_, ok = c.Retrieve("missing")
	assert.False(t, ok)

	assert.Equal(t, ErrKeyExists, c.Insert("A", "other", 1))
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewCache(2)

	require.NoError(t, c.Insert("A", "valueA", 1))
	require.NoError(t, c.Insert("B", "valueB", 1))

	// A becomes the most recently used entry
	_, ok := c.Retrieve("A")
	require.True(t, ok)

	require.NoError(t, c.Insert("C", "valueC", 1))
	assert.Equal(t, 2, c.GetWeight())

	_, ok = c.Retrieve("B")
	assert.False(t, ok)
	_, ok = c.Retrieve("A")
	assert.True(t, ok)
	_, ok = c.Retrieve("C")
	assert.True(t, ok)
}

func TestCache_OverweightEntryEvictsEverything(t *testing.T) {
	c := NewCache(2)
	c.SetVerbose(true)

	require.NoError(t, c.Insert("A", "valueA", 1))
	require.NoError(t, c.Insert("huge", "valueHuge", 5))

	assert.Equal(t, 0, c.GetWeight())
	_, ok := c.Retrieve("A")
	assert.False(t, ok)
	_, ok = c.Retrieve("huge")
	assert.False(t, ok)
}

func TestCache_UpsertAndDelete(t *testing.T) {
	c := NewCache(10)

	c.Upsert("A", 1, 1)
	c.Upsert("A", 2, 3)
	assert.Equal(t, 3, c.GetWeight())

	value, ok := c.Retrieve("A")
	require.True(t, ok)
	assert.Equal(t, 2, value)

	assert.True(t, c.Delete("A"))
	assert.False(t, c.Delete("A"))
	assert.Equal(t, 0, c.GetWeight())

	c.Upsert("B", 1, 1)
	c.Clear()
	assert.Equal(t, 0, c.GetWeight())
	_, ok = c.Retrieve("B")
	assert.False(t, ok)
}

func TestCache_Expiry(t *testing.T) {
	now := time.Now()

	c := NewCacheWithTTL(10, time.Minute).(*cache)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Insert("A", "valueA", 1))

	now = now.Add(30 * time.Second)
	_, ok := c.Retrieve("A")
	assert.True(t, ok)

	now = now.Add(30 * time.Second)
	_, ok = c.Retrieve("A")
	assert.False(t, ok)
	assert.Equal(t, 0, c.GetWeight())

	require.NoError(t, c.Insert("B", "valueB", 1))
	now = now.Add(time.Hour)
	require.NoError(t, c.Insert("B", "fresh", 1))

	value, ok := c.Retrieve("B")
	require.True(t, ok)
	assert.Equal(t, "fresh", value)
}

func TestCache_Concurrency(t *testing.T) {
	c := NewCache(100)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			for j := 0; j < 50; j++ {
				key := fmt.Sprintf("%d-%d", i, j)
				c.Upsert(key, j, 1)
				c.Retrieve(key)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 100, c.GetWeight())
}
