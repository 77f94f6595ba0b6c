package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_EnqueueDequeue(t *testing.T) {
	q := New[string]()

	require.True(t, q.Enqueue("a"))

	got, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, "a", got)
}

func TestQueue_FIFO(t *testing.T) {
	q := New[int]()
	for i := 1; i <= 3; i++ {
		q.Enqueue(i)
	}

	for want := 1; want <= 3; want++ {
		got, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}

	_, ok := q.TryDequeue()
	assert.False(t, ok, "queue should be empty")
}

func TestQueue_EmptyReturnsZero(t *testing.T) {
	q := New[*int]()

	got, ok := q.TryDequeue()
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestQueue_Len(t *testing.T) {
	q := New[int]()
	assert.Equal(t, 0, q.Len())

	q.Enqueue(1)
	q.Enqueue(2)
	assert.Equal(t, 2, q.Len())

	q.TryDequeue()
	assert.Equal(t, 1, q.Len())
}

func TestQueue_EnqueueAfterClose(t *testing.T) {
	q := New[int]()
	q.Close()

	assert.False(t, q.Enqueue(1))
	assert.True(t, q.Closed())
}

func TestQueue_CloseIsIdempotent(t *testing.T) {
	q := New[int]()
	q.Close()
	assert.NotPanics(t, q.Close)
}

func TestQueue_DrainAfterClose(t *testing.T) {
	q := New[int]()
	q.Enqueue(7)
	q.Close()

	got, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, 7, got)
}

func TestQueue_WaitSignalsOnEnqueue(t *testing.T) {
	q := New[int]()

	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Enqueue(1)
	}()

	select {
	case <-q.Wait():
	case <-time.After(time.Second):
		t.Fatal("wait was not signalled")
	}

	_, ok := q.TryDequeue()
	assert.True(t, ok)
}

func TestQueue_WaitClosedOnClose(t *testing.T) {
	q := New[int]()
	q.Close()

	select {
	case _, open := <-q.Wait():
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("wait channel not closed")
	}
}

func TestQueue_ConcurrentProducers(t *testing.T) {
	q := New[int]()

	var wg sync.WaitGroup
	for p := 0; p < 8; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				q.Enqueue(i)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 800, q.Len())
}
