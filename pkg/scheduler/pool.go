package scheduler

import (
	"context"
	"sync"
	"sync/atomic"

	"GuardianSOS/pkg/logger"

	"go.uber.org/zap"
)

// Pool is a fixed set of workers reading from a bounded queue.
//
// Submit never blocks and never drops: when the queue is full (or the pool
// is already shut down) the job gets its own goroutine instead.
type Pool struct {
	jobs     chan Job
	mu       sync.RWMutex
	closed   bool
	workers  sync.WaitGroup
	overflow sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc

	queued    atomic.Int64
	overflows atomic.Int64
}

func NewPool(workers, queue int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queue < 0 {
		queue = 0
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{jobs: make(chan Job, queue), ctx: ctx, cancel: cancel}
	for i := 0; i < workers; i++ {
		p.workers.Add(1)
		go p.work()
	}
	return p
}

func (p *Pool) work() {
	defer p.workers.Done()
	for job := range p.jobs {
		safeRun(p.ctx, job)
	}
}

// Submit reports whether job was queued (true) or handed to an overflow goroutine (false).
func (p *Pool) Submit(job Job) bool {
	p.mu.RLock()
	if !p.closed {
		select {
		case p.jobs <- job:
			p.mu.RUnlock()
			p.queued.Add(1)
			return true
		default:
		}
	}
	p.overflow.Add(1)
	p.mu.RUnlock()

	n := p.overflows.Add(1)
	logger.Warn("worker pool saturated, running job on dedicated goroutine", zap.Int64("overflows", n))
	go func() {
		defer p.overflow.Done()
		safeRun(p.ctx, job)
	}()
	return false
}

// Stats returns how many jobs were queued and how many overflowed.
func (p *Pool) Stats() (queued, overflows int64) {
	return p.queued.Load(), p.overflows.Load()
}

// Shutdown stops accepting queued work and waits for in-flight jobs.
// If ctx expires first the job context is cancelled and ctx.Err() returned.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.workers.Wait()
		p.overflow.Wait()
		close(done)
	}()
	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		return ctx.Err()
	}
}
