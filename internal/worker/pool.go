package worker

import (
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/qarzdaftar/backend/internal/metrics"
)

type task func()

// Pool runs submitted tasks on a fixed set of goroutines.
type Pool struct {
	wg   sync.WaitGroup
	jobs chan task

	mu     sync.RWMutex
	closed bool
}

func NewPool(n int) *Pool {
	if n <= 0 {
		n = 1
	}
	p := &Pool{jobs: make(chan task, 1024)}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				metrics.WorkerQueueDepth.Dec()
				run(job)
			}
		}()
	}
	return p
}

// run keeps a panicking task from taking the worker down with it.
func run(job task) {
	defer func() {
		if rec := recover(); rec != nil {
			metrics.WorkerPanicsTotal.Inc()
			slog.Error("worker task panic", "panic", rec, "stack", string(debug.Stack()))
		}
	}()
	job()
}

// Submit queues f. After Stop, f runs on the caller's goroutine instead.
func (p *Pool) Submit(f task) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		run(f)
		return
	}
	metrics.WorkerQueueDepth.Inc()
	p.jobs <- f
}

// RunAll submits every task and blocks until all of them returned. It must
// not be called from inside a pool task.
func (p *Pool) RunAll(tasks ...func()) {
	var wg sync.WaitGroup
	wg.Add(len(tasks))
	for _, t := range tasks {
		t := t
		p.Submit(func() {
			defer wg.Done()
			t()
		})
	}
	wg.Wait()
}

// Stop drains the queue and waits for the workers. It is safe to call more
// than once.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}
