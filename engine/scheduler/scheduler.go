// Package scheduler provides the engine's only concurrency primitives: a
// pool of background workers for blocking jobs (file reads) and serial
// execution lanes (strands) that subsystems use to mutate their state
// without locks.
package scheduler

import (
	"runtime"
	"sync"

	"github.com/spaghettifunk/gravity/engine/core"
)

// Task is a unit of work executed by a worker or a strand.
type Task func()

// Scheduler owns the worker pool and every strand minted from it. It must
// outlive all leases and live handles; Shutdown drains queued work before
// returning.
type Scheduler struct {
	jobQueue chan Task
	workerWG sync.WaitGroup

	mu      sync.Mutex
	strands []*Strand
	closed  bool
}

// New starts a scheduler with the given number of background workers.
// workers <= 0 means one per hardware thread.
func New(workers int) *Scheduler {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	s := &Scheduler{
		jobQueue: make(chan Task, workers*4),
	}

	for i := 0; i < workers; i++ {
		s.workerWG.Add(1)
		go func(id int) {
			defer s.workerWG.Done()
			core.LogTrace("worker-%d run() entered", id)
			for job := range s.jobQueue {
				job()
			}
			core.LogTrace("worker-%d run() exited", id)
		}(i)
	}

	return s
}

// Submit queues a blocking job on the worker pool. Jobs have no ordering
// guarantees; serialization belongs to strands.
func (s *Scheduler) Submit(job Task) {
	s.jobQueue <- job
}

// NewStrand mints a serial execution lane sharing this scheduler's
// lifetime. Prefer MakeStrands for subsystems with multiple lanes.
func (s *Scheduler) NewStrand(name string) *Strand {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		panic("scheduler: NewStrand after Shutdown")
	}

	st := newStrand(name)
	s.strands = append(s.strands, st)
	return st
}

// Shutdown drains every strand queue and the worker pool, then stops all
// goroutines. Callers must not hold leases or live handles at this point.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	strands := make([]*Strand, len(s.strands))
	copy(strands, s.strands)
	s.mu.Unlock()

	for _, st := range strands {
		st.drain()
	}

	close(s.jobQueue)
	s.workerWG.Wait()

	core.LogInfo("scheduler shut down; %d strands drained", len(strands))
}
