package ir

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClockStartsAtZero(t *testing.T) {
	c := NewClock()
	assert.Equal(t, int64(0), c.Current())
	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(1), c.Current())
}

func TestClockAt(t *testing.T) {
	c := NewClockAt(100)
	assert.Equal(t, int64(101), c.Next())
}

func TestClockConcurrentNextIsUnique(t *testing.T) {
	c := NewClock()
	const n = 1000

	seen := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- c.Next()
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[int64]bool, n)
	for v := range seen {
		assert.False(t, unique[v], "duplicate seq %d", v)
		unique[v] = true
	}
	assert.Equal(t, int64(n), c.Current())
}
