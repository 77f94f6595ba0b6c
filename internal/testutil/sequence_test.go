package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequence_Next(t *testing.T) {
	s := NewSequence("uid-")
	assert.Equal(t, 0, s.Count())

	assert.Equal(t, "uid-1", s.Next())
	assert.Equal(t, "uid-2", s.Generate())
	assert.Equal(t, 2, s.Count())
}

func TestSequence_Reset(t *testing.T) {
	s := NewSequence("e")
	s.Next()
	s.Next()

	s.Reset()
	assert.Equal(t, 0, s.Count())
	assert.Equal(t, "e1", s.Next())
}

func TestSequence_ConcurrentValuesAreUnique(t *testing.T) {
	s := NewSequence("k")

	const goroutines = 10
	const perGoroutine = 100

	var wg sync.WaitGroup
	results := make(chan string, goroutines*perGoroutine)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				results <- s.Next()
			}
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[string]bool)
	for v := range results {
		assert.False(t, seen[v], "duplicate value %s", v)
		seen[v] = true
	}
	assert.Len(t, seen, goroutines*perGoroutine)
	assert.Equal(t, goroutines*perGoroutine, s.Count())
}
