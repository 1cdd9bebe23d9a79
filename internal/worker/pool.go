package worker

import (
	"context"
	"sync"
)

// Job is one unit of work run by a Pool
type Job interface {
	Execute(ctx context.Context) Result
}

// Result is what a Job produces
type Result interface {
	GetError() error
}

// Pool runs jobs on a fixed number of goroutines and streams their results
// in completion order. Use either Results or Wait to consume, not both.
type Pool struct {
	workers int
	ctx     context.Context
	cancel  context.CancelFunc
	jobs    chan Job
	results chan Result
	wg      sync.WaitGroup

	mu        sync.RWMutex
	closed    bool
	startOnce sync.Once
}

// NewPool creates a pool whose jobs observe ctx; cancelling ctx stops the pool
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	return &Pool{
		workers: workers,
		ctx:     ctx,
		cancel:  cancel,
		jobs:    make(chan Job, workers*2),
		results: make(chan Result, workers*2),
	}
}

// Start launches the workers. The results channel is closed once every
// worker has exited. Calling Start again is a no-op.
func (p *Pool) Start() {
	p.startOnce.Do(func() {
		p.wg.Add(p.workers)
		for range p.workers {
			go p.run()
		}
		go func() {
			p.wg.Wait()
			close(p.results)
		}()
	})
}

func (p *Pool) run() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			result := job.Execute(p.ctx)
			select {
			case p.results <- result:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// Submit queues a job. It returns false once the pool is closed or its
// context is done.
func (p *Pool) Submit(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed || p.ctx.Err() != nil {
		return false
	}
	select {
	case p.jobs <- job:
		return true
	case <-p.ctx.Done():
		return false
	}
}

// Results streams job results. It is closed after Close (or Shutdown)
// once the workers drain the queue.
func (p *Pool) Results() <-chan Result {
	return p.results
}

// Close stops accepting jobs; queued jobs still run
func (p *Pool) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	p.Start()
}

// Wait closes the pool and collects every remaining result
func (p *Pool) Wait() []Result {
	p.Close()

	var results []Result
	for result := range p.results {
		results = append(results, result)
	}
	return results
}

// Shutdown cancels running jobs, drops queued ones and waits for the workers
func (p *Pool) Shutdown() {
	p.cancel()
	p.Close()
	p.wg.Wait()
}
