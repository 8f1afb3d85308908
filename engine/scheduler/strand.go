package scheduler

import (
	"sync"

	"github.com/google/uuid"

	"github.com/spaghettifunk/gravity/engine/containers"
	"github.com/spaghettifunk/gravity/engine/core"
)

// Strand is a serial execution lane: tasks posted to it run one at a time
// in submission order, concurrently with every other strand. State owned by
// a strand must only be touched from tasks running on it.
type Strand struct {
	name string
	id   string

	mu     sync.Mutex
	cond   *sync.Cond
	queue  *containers.Queue[Task]
	closed bool

	done chan struct{}
}

func newStrand(name string) *Strand {
	st := &Strand{
		name:  name,
		id:    uuid.NewString()[:8],
		queue: containers.NewQueue[Task](),
		done:  make(chan struct{}),
	}
	st.cond = sync.NewCond(&st.mu)

	go st.run()

	core.LogTrace("strand %s (%s) created", st.name, st.id)
	return st
}

func (st *Strand) run() {
	for {
		st.mu.Lock()
		for st.queue.IsEmpty() && !st.closed {
			st.cond.Wait()
		}
		task, ok := st.queue.Dequeue()
		if !ok && st.closed {
			st.mu.Unlock()
			break
		}
		st.mu.Unlock()

		if ok {
			task()
		}
	}
	close(st.done)
	core.LogTrace("strand %s (%s) drained", st.name, st.id)
}

// Post queues task for serialized execution and returns immediately.
func (st *Strand) Post(task Task) {
	st.mu.Lock()
	if st.closed {
		st.mu.Unlock()
		panic("scheduler: Post on drained strand " + st.name)
	}
	st.queue.Enqueue(task)
	st.mu.Unlock()
	st.cond.Signal()
}

// Do runs f on the strand and blocks the caller until it has executed.
// Tasks must be short critical sections; blocking waits (file I/O, polling
// timers) belong on the calling goroutine between Do calls, and any slot
// reference must be re-derived by index inside each Do.
func (st *Strand) Do(f Task) {
	ch := make(chan struct{})
	st.Post(func() {
		f()
		close(ch)
	})
	<-ch
}

func (st *Strand) Name() string { return st.name }

// drain closes the queue and waits for queued tasks to finish.
func (st *Strand) drain() {
	st.mu.Lock()
	st.closed = true
	st.mu.Unlock()
	st.cond.Signal()
	<-st.done
}

// Sync runs f on the strand and returns its result to the caller.
func Sync[T any](st *Strand, f func() T) T {
	var out T
	st.Do(func() {
		out = f()
	})
	return out
}
