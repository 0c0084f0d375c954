// Package workerpool runs independent solve calls on a fixed number of
// goroutines.
package workerpool

import (
	"context"
	"log/slog"
	"sync"
)

// Task is a unit of work.
type Task func()

// Pool is a fixed set of workers draining a bounded queue.
type Pool struct {
	workers   int
	taskQueue chan Task
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	logger    *slog.Logger

	// mu guards closed against a Submit that is still sending.
	mu     sync.RWMutex
	closed bool
}

// New starts workers goroutines behind a queue of queueSize tasks.
func New(workers, queueSize int, logger *slog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		workers:   workers,
		taskQueue: make(chan Task, queueSize),
		ctx:       ctx,
		cancel:    cancel,
		logger:    logger,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.logger.Debug("worker pool started", "workers", workers, "queue_size", queueSize)
	return p
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case task, ok := <-p.taskQueue:
			if !ok {
				return
			}
			p.run(id, task)
		}
	}
}

func (p *Pool) run(id int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("task panic recovered", "worker_id", id, "panic", r)
		}
	}()
	task()
}

// Submit queues a task, blocking while the queue is full. It returns false
// when ctx is done or the pool is shut down.
func (p *Pool) Submit(ctx context.Context, task Task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case <-p.ctx.Done():
		return false
	case <-ctx.Done():
		return false
	case p.taskQueue <- task:
		return true
	}
}

// TrySubmit queues a task without blocking.
func (p *Pool) TrySubmit(task Task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case <-p.ctx.Done():
		return false
	case p.taskQueue <- task:
		return true
	default:
		return false
	}
}

func (p *Pool) Workers() int { return p.workers }

// Queued reports how many accepted tasks are waiting for a worker.
func (p *Pool) Queued() int { return len(p.taskQueue) }

// Shutdown stops accepting tasks, waits for the workers and then runs
// whatever is still queued, so every accepted task runs exactly once.
func (p *Pool) Shutdown() {
	p.closeOnce.Do(func() {
		p.cancel()
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
		p.wg.Wait()

		drained := 0
		for {
			select {
			case task := <-p.taskQueue:
				p.run(-1, task)
				drained++
			default:
				p.logger.Debug("worker pool stopped", "drained", drained)
				return
			}
		}
	})
}
