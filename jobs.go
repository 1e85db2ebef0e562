package bounce

import (
	"runtime"
	"sync"
)

// JobSystem is a fixed pool of workers executing physics sub-tasks during a
// step. The pool size defaults to the available hardware concurrency minus
// one, reserving the calling thread.
type JobSystem struct {
	tasks   chan func()
	workers int

	closeOnce sync.Once
}

// NewJobSystem starts a pool with the given number of workers; workers <= 0
// selects the default size.
func NewJobSystem(workers int) *JobSystem {
	if workers <= 0 {
		workers = runtime.NumCPU() - 1
		if workers < 1 {
			workers = 1
		}
	}

	js := &JobSystem{
		// One in-flight chunk per worker; ParallelFor never submits more.
		tasks:   make(chan func(), workers),
		workers: workers,
	}

	for i := 0; i < workers; i++ {
		go func() {
			for task := range js.tasks {
				task()
			}
		}()
	}

	return js
}

// NumWorkers returns the pool size.
func (js *JobSystem) NumWorkers() int {
	return js.workers
}

// ParallelFor splits [0, n) into one chunk per worker and blocks until every
// index has been processed. fn must be safe to call concurrently for distinct
// indices.
func (js *JobSystem) ParallelFor(n int, fn func(i int)) {
	if n <= 0 {
		return
	}

	chunkSize := (n + js.workers - 1) / js.workers

	var wg sync.WaitGroup
	for workerID := 0; workerID < js.workers; workerID++ {
		start := workerID * chunkSize
		end := min(start+chunkSize, n)
		if start >= end {
			break
		}

		wg.Add(1)
		js.tasks <- func() {
			defer wg.Done()
			for i := start; i < end; i++ {
				fn(i)
			}
		}
	}
	wg.Wait()
}

// Close stops the workers. Pending ParallelFor calls must have returned.
func (js *JobSystem) Close() {
	js.closeOnce.Do(func() {
		close(js.tasks)
	})
}
