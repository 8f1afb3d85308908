package containers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueueOrdering(t *testing.T) {
	q := NewQueue[int]()

	for i := 0; i < 100; i++ {
		q.Enqueue(i)
	}
	assert.Equal(t, 100, q.Len())

	for i := 0; i < 100; i++ {
		v, ok := q.Dequeue()
		assert.True(t, ok)
		assert.Equal(t, i, v)
	}
	_, ok := q.Dequeue()
	assert.False(t, ok)
}

func TestQueueGrowsAcrossWrap(t *testing.T) {
	q := NewQueue[int]()

	// force the read index off zero, then grow across the wrap point
	for i := 0; i < minQueueCapacity; i++ {
		q.Enqueue(i)
	}
	for i := 0; i < minQueueCapacity/2; i++ {
		q.Dequeue()
	}
	for i := 0; i < minQueueCapacity*2; i++ {
		q.Enqueue(1000 + i)
	}

	expect := make([]int, 0)
	for i := minQueueCapacity / 2; i < minQueueCapacity; i++ {
		expect = append(expect, i)
	}
	for i := 0; i < minQueueCapacity*2; i++ {
		expect = append(expect, 1000+i)
	}

	got := make([]int, 0)
	for {
		v, ok := q.Dequeue()
		if !ok {
			break
		}
		got = append(got, v)
	}
	assert.Equal(t, expect, got)
}
