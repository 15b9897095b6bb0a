// Package tasks runs fire-and-forget work on a fixed set of goroutines.
package tasks

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrQueueFull = errors.New("task queue full")
	ErrClosed    = errors.New("task pool closed")
)

// Pool hands each task a context bounded by the configured timeout. Submit never blocks:
// when the queue is full the task is rejected and the caller decides what to log.
type Pool struct {
	jobs    chan func(context.Context)
	timeout time.Duration
	logger  *zap.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewPool(workers, queue int, timeout time.Duration, logger *zap.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queue < 0 {
		queue = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pool{
		jobs:    make(chan func(context.Context), queue),
		timeout: timeout,
		logger:  logger,
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.work()
	}
	return p
}

func (p *Pool) Submit(task func(ctx context.Context)) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.jobs <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Shutdown stops accepting tasks and waits for queued ones to finish or ctx to end.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) work() {
	defer p.wg.Done()
	for task := range p.jobs {
		p.run(task)
	}
}

func (p *Pool) run(task func(context.Context)) {
	ctx := context.Background()
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("task panicked", zap.Any("panic", r))
		}
	}()
	task(ctx)
}
