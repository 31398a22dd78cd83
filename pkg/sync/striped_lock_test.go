package sync

import (
	"fmt"
	base "sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripedLock_Consistency(t *testing.T) {
	l := NewStripedLock(8)

	for i := 0; i < 256; i++ {
		key := []byte(fmt.Sprintf("wallet%d", i))
		assert.Same(t, l.Get(key), l.Get(key))
	}
}

func TestStripedLock_Distribution(t *testing.T) {
	stripes := 4
	keys := 10_000

	r := newRing(stripes, replicasPerStripe)

	counts := make(map[int]int)
	for i := 0; i < keys; i++ {
		counts[r.slot([]byte(fmt.Sprintf("key%d", i)))]++
	}

	assert.Len(t, counts, stripes)
	for _, count := range counts {
		assert.InDelta(t, keys/stripes, count, float64(keys/stripes)/2)
	}
}

func TestStripedLock_SingleStripe(t *testing.T) {
	l := NewStripedLock(0)
	assert.Same(t, l.Get([]byte("a")), l.Get([]byte("b")))
}

func TestStripedLock_MutualExclusion(t *testing.T) {
	workers := 64
	increments := 1000

	l := NewStripedLock(4)
	counts := make([]int, workers)

	var wg base.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()

			key := []byte(fmt.Sprintf("worker%d", worker%8))
			for j := 0; j < increments; j++ {
				mu := l.Get(key)
				mu.Lock()
				counts[worker%8]++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 8; i++ {
		assert.Equal(t, increments*workers/8, counts[i])
	}
}
