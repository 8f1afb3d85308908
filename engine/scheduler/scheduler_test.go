package scheduler

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrandSerializesInSubmissionOrder(t *testing.T) {
	s := New(4)
	defer s.Shutdown()

	st := s.NewStrand("test")

	var mu sync.Mutex
	var order []int

	var wg sync.WaitGroup
	for i := 0; i < 1000; i++ {
		i := i
		wg.Add(1)
		st.Post(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			wg.Done()
		})
	}
	wg.Wait()

	require.Len(t, order, 1000)
	for i, v := range order {
		assert.Equal(t, i, v)
	}
}

func TestStrandsRunConcurrently(t *testing.T) {
	s := New(2)
	defer s.Shutdown()

	a := s.NewStrand("a")
	b := s.NewStrand("b")

	release := make(chan struct{})
	ran := make(chan string, 2)

	a.Post(func() {
		<-release
		ran <- "a"
	})
	// b must not be blocked behind a
	b.Do(func() {
		ran <- "b"
	})

	assert.Equal(t, "b", <-ran)
	close(release)
	assert.Equal(t, "a", <-ran)
}

func TestDoReturnsAfterExecution(t *testing.T) {
	s := New(1)
	defer s.Shutdown()

	st := s.NewStrand("do")

	var value atomic.Int64
	st.Do(func() { value.Store(42) })
	assert.Equal(t, int64(42), value.Load())

	got := Sync(st, func() int { return 7 })
	assert.Equal(t, 7, got)
}

func TestGroupLanesAreIndependent(t *testing.T) {
	type lane uint8
	const (
		laneA lane = iota
		laneB
		laneCount
	)

	s := New(2)
	defer s.Shutdown()

	g := MakeStrands(s, "sub", laneCount)
	assert.NotSame(t, g.Lane(laneA), g.Lane(laneB))

	// total order within one lane is preserved while another lane is busy
	block := make(chan struct{})
	g.Lane(laneB).Post(func() { <-block })

	var seen []int
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		i := i
		wg.Add(1)
		g.Lane(laneA).Post(func() {
			seen = append(seen, i)
			wg.Done()
		})
	}
	wg.Wait()
	close(block)

	for i, v := range seen {
		assert.Equal(t, i, v)
	}
}

func TestShutdownDrainsQueuedWork(t *testing.T) {
	s := New(2)
	st := s.NewStrand("drain")

	var count atomic.Int64
	for i := 0; i < 100; i++ {
		st.Post(func() { count.Add(1) })
	}
	for i := 0; i < 50; i++ {
		s.Submit(func() { count.Add(1) })
	}

	s.Shutdown()
	assert.Equal(t, int64(150), count.Load())
}
