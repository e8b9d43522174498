package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrQueueFull is returned by TrySubmit when no queue slot is free.
var ErrQueueFull = errors.New("worker: queue full")

// ErrClosed is returned once the pool no longer accepts tasks.
var ErrClosed = errors.New("worker: pool closed")

// Task represents a unit of work
type Task func(ctx context.Context) error

// Pool runs tasks on a fixed set of goroutines.
type Pool struct {
	name        string
	workerCount int
	taskQueue   chan Task
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	closed      bool
	closeMux    sync.RWMutex
	logger      *slog.Logger
}

// NewPool creates a pool with workerCount workers and room for queueSize
// waiting tasks.
func NewPool(name string, workerCount, queueSize int, logger *slog.Logger) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	if queueSize < 1 {
		queueSize = workerCount * 2
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		name:        name,
		workerCount: workerCount,
		taskQueue:   make(chan Task, queueSize),
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger.With("pool", name),
	}
}

// Start launches worker goroutines
func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.logger.Debug("worker_pool_started", "workers", p.workerCount)
}

// TrySubmit queues task without blocking. Callers on a latency-sensitive
// path drop the task when this fails.
func (p *Pool) TrySubmit(task Task) error {
	p.closeMux.RLock()
	defer p.closeMux.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.taskQueue <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Wait stops accepting tasks and blocks until queued tasks complete.
func (p *Pool) Wait() {
	p.closeMux.Lock()
	if !p.closed {
		close(p.taskQueue)
		p.closed = true
	}
	p.closeMux.Unlock()

	p.wg.Wait()
	p.logger.Debug("worker_pool_drained")
}

// Shutdown cancels running tasks and discards queued ones.
func (p *Pool) Shutdown() {
	p.cancel()
	p.Wait()
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case task, ok := <-p.taskQueue:
			if !ok {
				return
			}
			if err := task(p.ctx); err != nil {
				p.logger.Warn("worker_task_failed", "worker", id, "error", err)
			}

		case <-p.ctx.Done():
			return
		}
	}
}
